package clerk

import (
	"os"
	"sort"

	"github.com/rgonzalez12/posthist/internal/generrors"
	"gopkg.in/yaml.v3"
)

// Registry is the finite, read-only catalog of clerk archetypes, built
// once and shared freely thereafter (spec §5 "Shared-resource policy").
type Registry struct {
	archetypes map[string]*Archetype
}

// BuiltinCatalog returns the default catalog (spec §4.B: at least formal
// headquarters, efficient headquarters, rushed local, methodical local,
// field/medical, transit, depot intake, and one expeditionary minimalist).
func BuiltinCatalog() []*Archetype {
	return []*Archetype{
		{
			ID:                 "formal_hq",
			Label:              "Formal Headquarters Clerk",
			WorkingEnvironment: "office",
			NameTemplate:       "{{.Rank}} {{.ServiceNum}}",
			RankStyle:          AbbreviationNone,
			UnitTemplate:       "{{.Segments}}{{.BranchTag}}",
			Separator:          ", ",
			Casing:             CasingTitle,
			AbbreviationPolicy: AbbreviationNone,
			FatigueCurve:       FatigueCurve{Threshold: 40, SpacingCollapseRate: 0.02, CapitalizationDriftRate: 0.01, TruncationRate: 0.0},
			ConfounderRate:     0.02,
			ClutterPoolRef:     "office",
			Placement:          "suffix",
		},
		{
			ID:                 "efficient_hq",
			Label:              "Efficient Headquarters Clerk",
			WorkingEnvironment: "office",
			NameTemplate:       "{{.Rank}}{{.ServiceNum}}",
			RankStyle:          AbbreviationModerate,
			UnitTemplate:       "{{.Segments}}",
			Separator:          "/",
			Casing:             CasingUpper,
			AbbreviationPolicy: AbbreviationModerate,
			FatigueCurve:       FatigueCurve{Threshold: 60, SpacingCollapseRate: 0.05, CapitalizationDriftRate: 0.0, TruncationRate: 0.05},
			ConfounderRate:     0.03,
			ClutterPoolRef:     "office",
			Placement:          "suffix",
		},
		{
			ID:                 "rushed_local",
			Label:              "Rushed Local Clerk",
			WorkingEnvironment: "field_office",
			NameTemplate:       "{{.Rank}} {{.ServiceNum}}",
			RankStyle:          AbbreviationHeavy,
			UnitTemplate:       "{{.Segments}}",
			Separator:          " ",
			Casing:             CasingLower,
			AbbreviationPolicy: AbbreviationHeavy,
			FatigueCurve:       FatigueCurve{Threshold: 10, SpacingCollapseRate: 0.25, CapitalizationDriftRate: 0.3, TruncationRate: 0.3},
			ConfounderRate:     0.12,
			ClutterPoolRef:     "field_office",
			Placement:          "infix",
		},
		{
			ID:                 "methodical_local",
			Label:              "Methodical Local Clerk",
			WorkingEnvironment: "field_office",
			NameTemplate:       "{{.Rank}} {{.ServiceNum}}",
			RankStyle:          AbbreviationModerate,
			UnitTemplate:       "{{.Segments}}",
			Separator:          "-",
			Casing:             CasingTitle,
			AbbreviationPolicy: AbbreviationModerate,
			FatigueCurve:       FatigueCurve{Threshold: 50, SpacingCollapseRate: 0.03, CapitalizationDriftRate: 0.02, TruncationRate: 0.02},
			ConfounderRate:     0.05,
			ClutterPoolRef:     "field_office",
			Placement:          "suffix",
		},
		{
			ID:                 "field_medical",
			Label:              "Field Medical Clerk",
			WorkingEnvironment: "medical",
			NameTemplate:       "{{.Rank}} {{.ServiceNum}}",
			RankStyle:          AbbreviationHeavy,
			UnitTemplate:       "{{.Segments}}",
			Separator:          " ",
			Casing:             CasingLower,
			AbbreviationPolicy: AbbreviationHeavy,
			FatigueCurve:       FatigueCurve{Threshold: 15, SpacingCollapseRate: 0.3, CapitalizationDriftRate: 0.2, TruncationRate: 0.35},
			ConfounderRate:     0.15,
			ClutterPoolRef:     "medical",
			Placement:          "infix",
		},
		{
			ID:                 "transit",
			Label:              "Transit Clerk",
			WorkingEnvironment: "transit",
			NameTemplate:       "{{.ServiceNum}}",
			RankStyle:          AbbreviationHeavy,
			UnitTemplate:       "{{.Segments}}",
			Separator:          "/",
			Casing:             CasingUpper,
			AbbreviationPolicy: AbbreviationHeavy,
			FatigueCurve:       FatigueCurve{Threshold: 20, SpacingCollapseRate: 0.2, CapitalizationDriftRate: 0.1, TruncationRate: 0.25},
			ConfounderRate:     0.18,
			ClutterPoolRef:     "transit",
			Placement:          "infix",
		},
		{
			ID:                 "depot_intake",
			Label:              "Depot Intake Clerk",
			WorkingEnvironment: "depot",
			NameTemplate:       "{{.Rank}} {{.ServiceNum}}",
			RankStyle:          AbbreviationModerate,
			UnitTemplate:       "{{.Segments}}",
			Separator:          ", ",
			Casing:             CasingTitle,
			AbbreviationPolicy: AbbreviationModerate,
			FatigueCurve:       FatigueCurve{Threshold: 30, SpacingCollapseRate: 0.08, CapitalizationDriftRate: 0.05, TruncationRate: 0.1},
			ConfounderRate:     0.08,
			ClutterPoolRef:     "depot",
			Placement:          "suffix",
		},
		{
			ID:                 "expeditionary_minimalist",
			Label:              "Expeditionary Minimalist",
			WorkingEnvironment: "field_office",
			NameTemplate:       "{{.ServiceNum}}",
			RankStyle:          AbbreviationHeavy,
			UnitTemplate:       "{{.Segments}}",
			Separator:          "",
			Casing:             CasingUpper,
			AbbreviationPolicy: AbbreviationHeavy,
			FatigueCurve:       FatigueCurve{Threshold: 8, SpacingCollapseRate: 0.4, CapitalizationDriftRate: 0.1, TruncationRate: 0.45},
			ConfounderRate:     0.2,
			ClutterPoolRef:     "field_office",
			Placement:          "infix",
		},
		{
			ID:                 "adjutant",
			Label:              "Adjutant Clerk",
			WorkingEnvironment: "office",
			NameTemplate:       "{{.Rank}} {{.ServiceNum}}",
			RankStyle:          AbbreviationNone,
			UnitTemplate:       "{{.Segments}}{{.BranchTag}}",
			Separator:          "; ",
			Casing:             CasingTitle,
			AbbreviationPolicy: AbbreviationNone,
			FatigueCurve:       FatigueCurve{Threshold: 45, SpacingCollapseRate: 0.015, CapitalizationDriftRate: 0.01, TruncationRate: 0.0},
			ConfounderRate:     0.01,
			ClutterPoolRef:     "office",
			Placement:          "suffix",
		},
		{
			ID:                 "courier_desk",
			Label:              "Courier Desk Clerk",
			WorkingEnvironment: "depot",
			NameTemplate:       "{{.Rank}} {{.ServiceNum}}",
			RankStyle:          AbbreviationModerate,
			UnitTemplate:       "{{.Segments}}",
			Separator:          " / ",
			Casing:             CasingUpper,
			AbbreviationPolicy: AbbreviationModerate,
			FatigueCurve:       FatigueCurve{Threshold: 25, SpacingCollapseRate: 0.1, CapitalizationDriftRate: 0.05, TruncationRate: 0.1},
			ConfounderRate:     0.1,
			ClutterPoolRef:     "depot",
			Placement:          "infix",
		},
	}
}

// LoadRegistry builds a Registry from the built-in catalog. If path is
// non-empty, it's parsed as a YAML archetype catalog (§6 item 2) and
// replaces the built-in list entirely.
func LoadRegistry(path string) (*Registry, error) {
	archetypes := BuiltinCatalog()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, generrors.Wrap(generrors.ArchetypeInvalid, "clerk", path, err)
		}
		var loaded []*Archetype
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return nil, generrors.Wrap(generrors.ArchetypeInvalid, "clerk", path, err)
		}
		archetypes = loaded
	}

	return NewRegistry(archetypes)
}

// NewRegistry validates and indexes a list of archetypes.
func NewRegistry(archetypes []*Archetype) (*Registry, error) {
	r := &Registry{archetypes: make(map[string]*Archetype, len(archetypes))}
	for _, a := range archetypes {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.archetypes[a.ID]; dup {
			return nil, generrors.New(generrors.ArchetypeInvalid, "clerk", a.ID, "duplicate archetype id")
		}
		r.archetypes[a.ID] = a
	}
	return r, nil
}

// Get returns the archetype with the given id.
func (r *Registry) Get(id string) (*Archetype, bool) {
	a, ok := r.archetypes[id]
	return a, ok
}

// IDs returns every archetype id in the registry, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.archetypes))
	for id := range r.archetypes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count reports the number of archetypes in the registry.
func (r *Registry) Count() int { return len(r.archetypes) }
