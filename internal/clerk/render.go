package clerk

import (
	"strings"

	"github.com/rgonzalez12/posthist/internal/generrors"
)

// rankTitles maps an abbreviation policy to the fixed rank token an
// archetype writes. This is a structural choice, not a per-record draw:
// every record from a given clerk instance uses the same rank title.
var rankTitles = map[AbbreviationPolicy]string{
	AbbreviationNone:     "Private",
	AbbreviationModerate: "Pvt.",
	AbbreviationHeavy:    "PVT",
}

// RenderRank returns this archetype's fixed rank token.
func (a *Archetype) RenderRank() string {
	return rankTitles[a.RankStyle]
}

type nameData struct {
	Rank       string
	ServiceNum string
}

// RenderName executes the archetype's name template against a soldier's
// service number (a stand-in anonymized designation; the data model has no
// personal-name field, per spec.md's non-goal on historical realism).
func (a *Archetype) RenderName(serviceNum string) (string, error) {
	if a.nameTmpl == nil {
		return "", generrors.New(generrors.RenderIncompatible, "clerk", a.ID, "name template not compiled")
	}
	var sb strings.Builder
	data := nameData{Rank: a.RenderRank(), ServiceNum: serviceNum}
	if err := a.nameTmpl.Execute(&sb, data); err != nil {
		return "", generrors.Wrap(generrors.RenderIncompatible, "clerk", a.ID, err)
	}
	return a.applyCasing(sb.String()), nil
}

type unitData struct {
	Segments  string
	BranchTag string
}

// RenderUnitString executes the archetype's unit-string template over the
// given path segments (already truncated to the familiarity-driven
// expansion depth by the caller) joined with the archetype's separator,
// plus an optional branch tag for different-branch familiarity.
func (a *Archetype) RenderUnitString(segments []string, branchTag string) (string, error) {
	if a.unitTmpl == nil {
		return "", generrors.New(generrors.RenderIncompatible, "clerk", a.ID, "unit template not compiled")
	}
	if len(segments) == 0 {
		return "", generrors.New(generrors.RenderIncompatible, "clerk", a.ID, "no path segments to render")
	}

	joined := strings.Join(segments, a.Separator)
	tag := ""
	if branchTag != "" {
		tag = " [" + branchTag + "]"
	}

	var sb strings.Builder
	data := unitData{Segments: joined, BranchTag: tag}
	if err := a.unitTmpl.Execute(&sb, data); err != nil {
		return "", generrors.Wrap(generrors.RenderIncompatible, "clerk", a.ID, err)
	}
	return a.applyCasing(sb.String()), nil
}

// applyCasing applies the archetype's fixed casing policy.
func (a *Archetype) applyCasing(s string) string {
	switch a.Casing {
	case CasingUpper:
		return strings.ToUpper(s)
	case CasingLower:
		return strings.ToLower(s)
	case CasingTitle:
		return strings.Title(s) //nolint:staticcheck // archetype-driven casing, not Unicode-sensitive text
	default:
		return s
	}
}
