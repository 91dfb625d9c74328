package source

import (
	"github.com/rgonzalez12/posthist/internal/generrors"
	"github.com/rgonzalez12/posthist/internal/idgen"
	"github.com/rgonzalez12/posthist/internal/soldier"
)

// Pairing is one (source, soldier, state) co-occurrence: one emitted
// record, in the order the assigner drew it.
type Pairing struct {
	SourceID         string
	SoldierID        string
	StateID          string
	PositionInSource int
}

// AssignerTargets parameterizes the State-Anchor Assigner's sampling.
type AssignerTargets struct {
	// MeanRecordsPerSoldier is the mean of each soldier's sampled
	// propensity weight. It does not set the number of records: that is
	// the sum of the source sizes, so the realised average per soldier is
	// that sum divided by the soldier count.
	MeanRecordsPerSoldier float64
	// MinSourceSize and MaxSourceSize bound how many distinct soldiers a
	// single source co-occurs with.
	MinSourceSize int
	MaxSourceSize int
	// MaxDrawRetries bounds how many roulette spins one draw may take
	// before the assigner gives up and reports AssignerConflict. Soldiers
	// already in the current source are excluded from the roulette, so a
	// spin only fails when rounding leaves it past the last weight.
	MaxDrawRetries int
}

// DefaultAssignerTargets returns the same assigner defaults that
// config.Default sets for the run config.
func DefaultAssignerTargets() AssignerTargets {
	return AssignerTargets{
		MeanRecordsPerSoldier: 20,
		MinSourceSize:         1,
		MaxSourceSize:         12,
		MaxDrawRetries:        64,
	}
}

// Assigner binds soldiers to sources via a bipartite co-occurrence draw.
// Every soldier's propensity to appear in many sources is itself sampled
// (geometric-like), then each source draws distinct soldiers weighted by
// remaining propensity. The hard constraint — a soldier contributes at
// most one record to a given source — is enforced by drawing only among
// soldiers not yet in the source, never by splitting a soldier's
// contribution across two records in one source.
type Assigner struct {
	Targets AssignerTargets
}

func NewAssigner(targets AssignerTargets) *Assigner {
	return &Assigner{Targets: targets}
}

// Assign produces the full set of (source, soldier, state) pairings for
// soldiers against sources, deterministically from rootSeed.
func (a *Assigner) Assign(rootSeed int64, soldiers []*soldier.Soldier, sources []*Source) ([]Pairing, error) {
	if len(soldiers) == 0 || len(sources) == 0 {
		return nil, generrors.New(generrors.InfeasibleTargets, "assigner", "", "no soldiers or no sources to assign")
	}

	rng := idgen.RandFor(rootSeed, "assigner", 0)

	propensity := make([]float64, len(soldiers))
	for i := range soldiers {
		propensity[i] = samplePropensity(rng, a.Targets.MeanRecordsPerSoldier)
	}

	var pairings []Pairing
	for _, src := range sources {
		sourceSize := a.Targets.MinSourceSize
		if a.Targets.MaxSourceSize > a.Targets.MinSourceSize {
			sourceSize += rng.Intn(a.Targets.MaxSourceSize - a.Targets.MinSourceSize + 1)
		}
		if sourceSize > len(soldiers) {
			sourceSize = len(soldiers)
		}

		used := make(map[int]bool, sourceSize)
		position := 1
		for len(used) < sourceSize {
			idx, ok := drawWeighted(rng, propensity, used, a.Targets.MaxDrawRetries)
			if !ok {
				return nil, generrors.New(generrors.AssignerConflict, "assigner", src.SourceID, "exceeded retry budget honoring at-most-once-per-source")
			}
			used[idx] = true
			propensity[idx] *= 0.5 // diminishing propensity after each appearance

			sol := soldiers[idx]
			state := selectState(rng, sol, src.TemporalAnchor)
			pairings = append(pairings, Pairing{
				SourceID:         src.SourceID,
				SoldierID:        sol.SoldierID,
				StateID:          state.StateID,
				PositionInSource: position,
			})
			position++
		}
	}

	return pairings, nil
}

// samplePropensity draws a geometric-like weight with the given mean and
// a long right tail. The weight only sets a soldier's relative chance of
// being drawn; it does not fix how many records the soldier gets.
func samplePropensity(rng rand64, mean float64) float64 {
	if mean <= 0 {
		mean = 1
	}
	p := 1.0 / mean
	draws := 0.0
	for rng.Float64() > p && draws < 500 {
		draws++
	}
	return draws + 1
}

// rand64 is the subset of *rand.Rand used by this file, kept narrow so
// tests can supply a deterministic stub if ever needed.
type rand64 interface {
	Float64() float64
	Intn(n int) int
}

// drawWeighted performs a single weighted roulette draw over weights,
// excluding indices already in used, so it never returns a used index.
// It spins again, up to maxRetries times, only when rounding leaves the
// spin past the last cumulative weight.
func drawWeighted(rng rand64, weights []float64, used map[int]bool, maxRetries int) (int, bool) {
	total := 0.0
	for i, w := range weights {
		if !used[i] {
			total += w
		}
	}
	if total <= 0 {
		return 0, false
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		r := rng.Float64() * total
		cum := 0.0
		for i, w := range weights {
			if used[i] {
				continue
			}
			cum += w
			if r < cum {
				return i, true
			}
		}
	}
	return 0, false
}

// selectState picks which of a soldier's states a pairing anchors to. A
// fixed ordinal is clipped to the soldier's actual state count; "any"
// samples uniformly.
func selectState(rng rand64, sol *soldier.Soldier, anchor TemporalAnchor) soldierState {
	if anchor.IsAny() {
		return sol.States[rng.Intn(len(sol.States))]
	}
	ordinal := anchor.Ordinal
	if ordinal > len(sol.States) {
		ordinal = len(sol.States)
	}
	return sol.States[ordinal-1]
}

type soldierState = soldier.State
