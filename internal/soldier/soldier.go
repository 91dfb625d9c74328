// Package soldier implements the Soldier Factory (spec §4.D): for each
// target soldier, samples 1-3 states, each a valid post, with transitions
// between consecutive states classified per the 50/35/10/5 distribution.
package soldier

import (
	"math/rand"
	"sort"

	"github.com/rgonzalez12/posthist/internal/generrors"
	"github.com/rgonzalez12/posthist/internal/hierarchy"
	"github.com/rgonzalez12/posthist/internal/idgen"
)

// TransitionType classifies the relationship between two consecutive
// states, per spec.md §3.
type TransitionType string

const (
	WithinLowestUnit       TransitionType = "within-lowest-unit"
	SameBranchDifferentMid TransitionType = "same-branch-different-mid"
	SameBranchDifferentTop TransitionType = "same-branch-different-top"
	CrossBranch            TransitionType = "cross-branch"
)

// State is a reference to one post, plus a unique state id and its order
// within the soldier's sequence.
type State struct {
	StateID    string
	Post       hierarchy.Post
	StateOrder int
	// Transition records how this state relates to the previous one; the
	// zero value for the first state.
	Transition TransitionType
}

// Soldier is a stable identity plus an ordered list of 1-3 states.
type Soldier struct {
	SoldierID string
	States    []State
}

// Targets parameterizes the factory's sampling distributions, per spec.md
// §4.D and the run config described in SPEC_FULL.md §1.2.
type Targets struct {
	// StateCountWeights are the probabilities of 1, 2, and 3 states, in
	// that order. Default target: 0.65 / 0.28 / 0.07.
	StateCountWeights [3]float64
	// TransitionWeights are the probabilities of within-lowest-unit,
	// same-branch-different-mid, same-branch-different-top, and
	// cross-branch transitions, in that order. Default target:
	// 0.50 / 0.35 / 0.10 / 0.05.
	TransitionWeights [4]float64
	// MaxStateRetries bounds how many times the factory will redraw a
	// candidate state before giving up on distinctness.
	MaxStateRetries int
}

// DefaultTargets returns the distribution targets named in spec.md §3/§4.D.
func DefaultTargets() Targets {
	return Targets{
		StateCountWeights: [3]float64{0.65, 0.28, 0.07},
		TransitionWeights: [4]float64{0.50, 0.35, 0.10, 0.05},
		MaxStateRetries:   16,
	}
}

// Factory generates soldiers against a fixed hierarchy.
type Factory struct {
	Hierarchy *hierarchy.Hierarchy
	Targets   Targets
	branches  []string
}

// NewFactory builds a Factory, caching the hierarchy's branch name list so
// sampling order is stable across runs.
func NewFactory(h *hierarchy.Hierarchy, targets Targets) *Factory {
	f := &Factory{Hierarchy: h, Targets: targets}
	for name := range h.Branches {
		f.branches = append(f.branches, name)
	}
	sort.Strings(f.branches)
	return f
}

// New generates one soldier deterministically from rootSeed and index. If
// biasCollision is true, the factory retries (up to Targets.MaxStateRetries
// times) to land the first state on a colliding post before falling back
// to whatever was last sampled.
func (f *Factory) New(rootSeed int64, index int, biasCollision bool) (*Soldier, error) {
	soldierID := idgen.EntityIDString(rootSeed, "soldier", index)
	rng := idgen.RandFor(rootSeed, "soldier", index)
	return f.generate(rng, rootSeed, soldierID, index, 0, biasCollision)
}

// Regenerate rebuilds soldierID's state sequence from scratch for one
// rebalancer pass (§4.L), deriving a fresh random source from (rootSeed,
// index, pass) so the new draw differs from whatever was discarded, while
// keeping the soldier's identity unchanged — every already-rendered
// artifact that names soldierID stays attributable to the soldier the
// rebalancer settles on, rather than orphaning it under a newly minted id.
func (f *Factory) Regenerate(rootSeed int64, soldierID string, index, pass int, biasCollision bool) (*Soldier, error) {
	rng := idgen.RandFor(rootSeed, "soldier-regen", index*1000+pass)
	return f.generate(rng, rootSeed, soldierID, index, pass, biasCollision)
}

// generate draws one soldier's state sequence using rng, assigning it
// soldierID and deriving state ids from (rootSeed, index, pass) so a
// regenerated soldier's states never collide with the ones it replaces.
func (f *Factory) generate(rng *rand.Rand, rootSeed int64, soldierID string, index, pass int, biasCollision bool) (*Soldier, error) {
	stateCount := f.sampleStateCount(rng)

	first, err := f.sampleFirstPost(rng, biasCollision)
	if err != nil {
		return nil, err
	}

	stateSeed := rootSeed
	if pass > 0 {
		stateSeed = idgen.DeriveSeed(rootSeed, "state-pass", pass)
	}
	stateBase := index * 8
	states := make([]State, 0, stateCount)
	states = append(states, State{
		StateID:    idgen.EntityIDString(stateSeed, "state", stateBase+0),
		Post:       first,
		StateOrder: 1,
	})

	for i := 1; i < stateCount; i++ {
		transType := f.sampleTransitionType(rng)
		next, err := f.sampleNextPost(rng, states, transType)
		if err != nil {
			return nil, generrors.Wrap(generrors.InfeasibleTargets, "soldier", soldierID, err)
		}
		states = append(states, State{
			StateID:    idgen.EntityIDString(stateSeed, "state", stateBase+i),
			Post:       next,
			StateOrder: i + 1,
			Transition: transType,
		})
	}

	return &Soldier{SoldierID: soldierID, States: states}, nil
}

func (f *Factory) sampleStateCount(rng *rand.Rand) int {
	r := rng.Float64()
	w := f.Targets.StateCountWeights
	if r < w[0] {
		return 1
	}
	if r < w[0]+w[1] {
		return 2
	}
	return 3
}

func (f *Factory) sampleTransitionType(rng *rand.Rand) TransitionType {
	r := rng.Float64()
	w := f.Targets.TransitionWeights
	switch {
	case r < w[0]:
		return WithinLowestUnit
	case r < w[0]+w[1]:
		return SameBranchDifferentMid
	case r < w[0]+w[1]+w[2]:
		return SameBranchDifferentTop
	default:
		return CrossBranch
	}
}

func (f *Factory) sampleBranch(rng *rand.Rand, exclude string) string {
	if exclude == "" || len(f.branches) == 1 {
		return f.branches[rng.Intn(len(f.branches))]
	}
	for {
		b := f.branches[rng.Intn(len(f.branches))]
		if b != exclude {
			return b
		}
	}
}

func (f *Factory) randomPost(rng *rand.Rand, branch string) hierarchy.Post {
	b := f.Hierarchy.Branches[branch]
	path := make([]hierarchy.Designator, len(b.Levels))
	for i, level := range b.Levels {
		values := b.ValidDesignators[level]
		path[i] = hierarchy.Designator{Level: level, Value: values[rng.Intn(len(values))]}
	}
	return hierarchy.Post{Branch: branch, Path: path}
}

func (f *Factory) postCollides(p hierarchy.Post) bool {
	for _, d := range p.Path {
		if f.Hierarchy.Collides(d.Level, d.Value) {
			return true
		}
	}
	return false
}

func (f *Factory) sampleFirstPost(rng *rand.Rand, biasCollision bool) (hierarchy.Post, error) {
	var last hierarchy.Post
	attempts := 1
	if biasCollision {
		attempts = f.Targets.MaxStateRetries
	}
	for i := 0; i < attempts; i++ {
		branch := f.sampleBranch(rng, "")
		last = f.randomPost(rng, branch)
		if !biasCollision || f.postCollides(last) {
			return last, nil
		}
	}
	return last, nil
}

// sampleNextPost generates a post consistent with transType that is
// pairwise distinct from every prior state's post.
func (f *Factory) sampleNextPost(rng *rand.Rand, existing []State, transType TransitionType) (hierarchy.Post, error) {
	from := existing[len(existing)-1].Post

	for attempt := 0; attempt < f.Targets.MaxStateRetries; attempt++ {
		var candidate hierarchy.Post
		switch transType {
		case WithinLowestUnit:
			candidate = f.varyDeepestLevel(rng, from)
		case SameBranchDifferentMid:
			candidate = f.varyMidLevel(rng, from)
		case SameBranchDifferentTop:
			candidate = f.varyTopLevel(rng, from)
		case CrossBranch:
			branch := f.sampleBranch(rng, from.Branch)
			candidate = f.randomPost(rng, branch)
		}

		if !distinctFromAll(candidate, existing) {
			continue
		}
		return candidate, nil
	}

	return hierarchy.Post{}, generrors.New(generrors.InfeasibleTargets, "soldier", "", "exhausted retries sampling distinct "+string(transType)+" state")
}

func distinctFromAll(p hierarchy.Post, existing []State) bool {
	for _, s := range existing {
		if p.Equal(s.Post) {
			return false
		}
	}
	return true
}

// varyDeepestLevel keeps every level but the last, resampling only the
// deepest designator to a different value.
func (f *Factory) varyDeepestLevel(rng *rand.Rand, from hierarchy.Post) hierarchy.Post {
	b := f.Hierarchy.Branches[from.Branch]
	path := append([]hierarchy.Designator{}, from.Path...)
	last := len(path) - 1
	level := b.Levels[last]
	path[last] = hierarchy.Designator{Level: level, Value: differentValue(rng, b.ValidDesignators[level], path[last].Value)}
	return hierarchy.Post{Branch: from.Branch, Path: path}
}

// varyMidLevel keeps the top (Sector) designator, resampling one of the
// middle levels (everything strictly between Sector and the deepest
// level) to a different value. Falls back to varyDeepestLevel when the
// branch has no true middle level.
func (f *Factory) varyMidLevel(rng *rand.Rand, from hierarchy.Post) hierarchy.Post {
	b := f.Hierarchy.Branches[from.Branch]
	if len(b.Levels) < 3 {
		return f.varyDeepestLevel(rng, from)
	}
	path := append([]hierarchy.Designator{}, from.Path...)
	midIdx := 1 + rng.Intn(len(path)-2)
	level := b.Levels[midIdx]
	path[midIdx] = hierarchy.Designator{Level: level, Value: differentValue(rng, b.ValidDesignators[level], path[midIdx].Value)}
	return hierarchy.Post{Branch: from.Branch, Path: path}
}

// varyTopLevel resamples the Sector designator to a different value,
// leaving the rest of the path intact (clipped if the new Sector value
// happens to invalidate a lower designator is not modeled: per spec.md §3
// every designator set is branch-level, not Sector-conditioned).
func (f *Factory) varyTopLevel(rng *rand.Rand, from hierarchy.Post) hierarchy.Post {
	b := f.Hierarchy.Branches[from.Branch]
	path := append([]hierarchy.Designator{}, from.Path...)
	level := b.Levels[0]
	path[0] = hierarchy.Designator{Level: level, Value: differentValue(rng, b.ValidDesignators[level], path[0].Value)}
	return hierarchy.Post{Branch: from.Branch, Path: path}
}

func differentValue(rng *rand.Rand, values []string, current string) string {
	if len(values) == 1 {
		return values[0]
	}
	for {
		v := values[rng.Intn(len(values))]
		if v != current {
			return v
		}
	}
}
