// Package clerk implements the Clerk Archetype Registry (spec §4.B) and
// Clerk Instances: persistent characters whose rendering habits are fixed
// across every record they produce.
package clerk

import (
	"io"
	"text/template"

	"github.com/rgonzalez12/posthist/internal/generrors"
)

// Casing is an archetype's fixed capitalization policy.
type Casing string

const (
	CasingUpper Casing = "upper"
	CasingLower Casing = "lower"
	CasingTitle Casing = "title"
)

// AbbreviationPolicy controls how aggressively an archetype shortens
// tokens (rank titles, level-name tags).
type AbbreviationPolicy string

const (
	AbbreviationNone     AbbreviationPolicy = "none"
	AbbreviationModerate AbbreviationPolicy = "moderate"
	AbbreviationHeavy    AbbreviationPolicy = "heavy"
)

// FatigueCurve describes how an archetype's output degrades after a
// per-clerk position threshold within a single source, per §4.I.
type FatigueCurve struct {
	Threshold               int     `yaml:"threshold"`
	SpacingCollapseRate     float64 `yaml:"spacing_collapse_rate"`
	CapitalizationDriftRate float64 `yaml:"capitalization_drift_rate"`
	TruncationRate          float64 `yaml:"truncation_rate"`
}

// Archetype is a finite catalog entry: the fixed habits of one clerk
// character. Structural choices (template, separator, casing) are never
// resampled per record; only the fatigue/imperfection draws are stochastic.
type Archetype struct {
	ID                 string             `yaml:"id"`
	Label              string             `yaml:"label"`
	WorkingEnvironment string             `yaml:"working_environment"`
	NameTemplate       string             `yaml:"name_template"`
	RankStyle          AbbreviationPolicy `yaml:"rank_style"`
	UnitTemplate       string             `yaml:"unit_template"`
	Separator          string             `yaml:"separator"`
	Casing             Casing             `yaml:"casing"`
	AbbreviationPolicy AbbreviationPolicy `yaml:"abbreviation_policy"`
	FatigueCurve       FatigueCurve       `yaml:"fatigue_curve"`
	ConfounderRate     float64            `yaml:"confounder_rate"`
	ClutterPoolRef     string             `yaml:"clutter_pool_ref"`
	Placement          string             `yaml:"placement"` // "suffix" or "infix"

	nameTmpl *template.Template
	unitTmpl *template.Template
}

// compile parses the archetype's templates once, so every subsequent
// render is a pure function of frozen inputs. Returns ArchetypeInvalid if
// either template fails to parse or references an unknown field.
func (a *Archetype) compile() error {
	nt, err := template.New(a.ID + "-name").Parse(a.NameTemplate)
	if err != nil {
		return generrors.Wrap(generrors.ArchetypeInvalid, "clerk", a.ID, err)
	}
	ut, err := template.New(a.ID + "-unit").Parse(a.UnitTemplate)
	if err != nil {
		return generrors.Wrap(generrors.ArchetypeInvalid, "clerk", a.ID, err)
	}
	if err := nt.Execute(io.Discard, nameData{}); err != nil {
		return generrors.Wrap(generrors.ArchetypeInvalid, "clerk", a.ID, err)
	}
	if err := ut.Execute(io.Discard, unitData{}); err != nil {
		return generrors.Wrap(generrors.ArchetypeInvalid, "clerk", a.ID, err)
	}
	a.nameTmpl = nt
	a.unitTmpl = ut
	return nil
}

// Validate checks that an archetype's policy values are within range and
// its templates compile.
func (a *Archetype) Validate() error {
	if a.ID == "" {
		return generrors.New(generrors.ArchetypeInvalid, "clerk", "", "archetype id is required")
	}
	if a.NameTemplate == "" || a.UnitTemplate == "" {
		return generrors.New(generrors.ArchetypeInvalid, "clerk", a.ID, "name_template and unit_template are required")
	}
	if a.ConfounderRate < 0 || a.ConfounderRate > 1 {
		return generrors.New(generrors.ArchetypeInvalid, "clerk", a.ID, "confounder_rate must be in [0,1]")
	}
	switch a.Casing {
	case CasingUpper, CasingLower, CasingTitle, "":
	default:
		return generrors.New(generrors.ArchetypeInvalid, "clerk", a.ID, "unknown casing policy")
	}
	switch a.Placement {
	case "suffix", "infix", "":
	default:
		return generrors.New(generrors.ArchetypeInvalid, "clerk", a.ID, "unknown vocabulary placement")
	}
	return a.compile()
}
