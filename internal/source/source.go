// Package source implements the Source Factory (spec §4.E) and the
// State-Anchor Assigner (spec §4.F).
package source

import (
	"sort"

	"github.com/rgonzalez12/posthist/internal/clerk"
	"github.com/rgonzalez12/posthist/internal/familiarity"
	"github.com/rgonzalez12/posthist/internal/generrors"
	"github.com/rgonzalez12/posthist/internal/hierarchy"
	"github.com/rgonzalez12/posthist/internal/idgen"
	"github.com/rgonzalez12/posthist/internal/situation"
	"math/rand"
)

// Type classifies a source by its administrative character, per §4.E.
// Each type carries a fixed home-unit-to-foreign mixing ratio.
type Type string

const (
	LocalAdministrative Type = "local_administrative"
	SectorHQType        Type = "sector_hq"
	TransitType         Type = "transit"
	MedicalType         Type = "medical"
	DepotIntakeType     Type = "depot_intake"
)

// localBias is the fixed home-unit-vs-foreign mixing ratio per source
// type, per §4.E's 90/70/30/25/10 table.
var localBias = map[Type]float64{
	LocalAdministrative: 0.90,
	SectorHQType:        0.70,
	TransitType:         0.30,
	MedicalType:         0.25,
	DepotIntakeType:     0.10,
}

var allTypes = []Type{LocalAdministrative, SectorHQType, TransitType, MedicalType, DepotIntakeType}

// TemporalAnchor is a ranked position within a soldier's state sequence
// (1-based), or "any" (zero value) meaning the assigner samples uniformly.
type TemporalAnchor struct {
	Ordinal int
}

func (a TemporalAnchor) IsAny() bool { return a.Ordinal == 0 }

// Source is a document-like container: one clerk, one situation, one home
// unit, one temporal anchor, one quality tier.
type Source struct {
	SourceID       string
	ClerkID        string
	SituationID    string
	HomeUnit       familiarity.HomeUnit
	Type           Type
	LocalBias      float64
	TemporalAnchor TemporalAnchor
	QualityTier    int
}

// Targets parameterizes the Source Factory's sampling distributions.
type Targets struct {
	// QualityWeights are the probabilities of quality tiers 1..5, in order.
	QualityWeights [5]float64
	// AnchorAnyProbability is the probability a source's temporal anchor
	// is "any" rather than a fixed state ordinal.
	AnchorAnyProbability float64
	MaxSituationRetries  int
}

// DefaultTargets returns reasonable defaults: a roughly even quality-tier
// spread skewed toward the cleaner tiers, and anchors split evenly between
// "any" and a fixed ordinal.
func DefaultTargets() Targets {
	return Targets{
		QualityWeights:       [5]float64{0.30, 0.25, 0.20, 0.15, 0.10},
		AnchorAnyProbability: 0.5,
		MaxSituationRetries:  12,
	}
}

// Factory produces sources against a fixed hierarchy, clerk pool, and
// situation registry.
type Factory struct {
	Hierarchy  *hierarchy.Hierarchy
	Clerks     []*clerk.Instance
	Situations *situation.Registry
	Targets    Targets
	branches   []string
}

// NewFactory builds a Factory. clerks must be non-empty; the same clerk
// instance may and typically will back many sources.
func NewFactory(h *hierarchy.Hierarchy, clerks []*clerk.Instance, situations *situation.Registry, targets Targets) *Factory {
	f := &Factory{Hierarchy: h, Clerks: clerks, Situations: situations, Targets: targets}
	for name := range h.Branches {
		f.branches = append(f.branches, name)
	}
	sort.Strings(f.branches)
	return f
}

// New generates one source deterministically from rootSeed and index.
func (f *Factory) New(rootSeed int64, index int) (*Source, error) {
	rng := idgen.RandFor(rootSeed, "source", index)
	sourceID := idgen.EntityIDString(rootSeed, "source", index)

	if len(f.Clerks) == 0 {
		return nil, generrors.New(generrors.InfeasibleTargets, "source", sourceID, "no clerk instances available")
	}
	clerkInst := f.Clerks[rng.Intn(len(f.Clerks))]

	srcType := allTypes[rng.Intn(len(allTypes))]

	var homeBranch string
	var sit *situation.Situation
	for attempt := 0; attempt < f.Targets.MaxSituationRetries; attempt++ {
		homeBranch = f.branches[rng.Intn(len(f.branches))]
		candidates := f.Situations.ForBranch(homeBranch)
		if len(candidates) > 0 {
			sit = candidates[rng.Intn(len(candidates))]
			break
		}
	}
	if sit == nil {
		return nil, generrors.New(generrors.InfeasibleTargets, "source", sourceID, "no situation compatible with any sampled home-unit branch")
	}

	homeUnit := f.sampleHomeUnit(rng, homeBranch)
	quality := sampleQualityTier(rng, f.Targets.QualityWeights)
	anchor := f.sampleAnchor(rng)

	return &Source{
		SourceID:       sourceID,
		ClerkID:        clerkInst.ClerkID,
		SituationID:    sit.ID,
		HomeUnit:       homeUnit,
		Type:           srcType,
		LocalBias:      localBias[srcType],
		TemporalAnchor: anchor,
		QualityTier:    quality,
	}, nil
}

func (f *Factory) sampleHomeUnit(rng *rand.Rand, branch string) familiarity.HomeUnit {
	b := f.Hierarchy.Branches[branch]
	prefix := make([]hierarchy.Designator, 0, b.Depth-1)
	for _, level := range b.Levels[:b.Depth-1] {
		values := b.ValidDesignators[level]
		prefix = append(prefix, hierarchy.Designator{Level: level, Value: values[rng.Intn(len(values))]})
	}
	return familiarity.HomeUnit{Branch: branch, Prefix: prefix}
}

func sampleQualityTier(rng *rand.Rand, weights [5]float64) int {
	r := rng.Float64()
	cum := 0.0
	for i, w := range weights {
		cum += w
		if r < cum {
			return i + 1
		}
	}
	return 5
}

func (f *Factory) sampleAnchor(rng *rand.Rand) TemporalAnchor {
	if rng.Float64() < f.Targets.AnchorAnyProbability {
		return TemporalAnchor{Ordinal: 0}
	}
	return TemporalAnchor{Ordinal: 1 + rng.Intn(3)}
}
