// Package vocab implements the Vocabulary Injector (spec §4.H): composes
// situational, contextual-clutter, and confounder terms into a per-record
// term list, without ever leaking the true post or a branch-unique term
// through a confounder.
package vocab

import (
	"math/rand"
	"sort"

	"github.com/rgonzalez12/posthist/internal/hierarchy"
	"github.com/rgonzalez12/posthist/internal/situation"
)

// clutterPools is the built-in working-environment -> clutter-token-pool
// table (SPEC_FULL.md §3): small enough that it doesn't need its own
// catalog file alongside the three named in spec.md §6.
var clutterPools = map[string][]string{
	"office":       {"inbox", "ledger", "binder", "memo", "roster"},
	"field_office": {"tent flap", "field desk", "muster line", "gear rack"},
	"medical":      {"ward", "bed", "chart rack", "triage line"},
	"transit":      {"deck", "berth", "manifest", "gangway"},
	"depot":        {"intake desk", "depot floor", "billet", "crate row"},
}

// confounderTokens are short, deliberately ambiguous strings that look
// like unit designators but never resolve to one. They must never equal a
// branch-unique level name (checked at draw time) or the soldier's true
// post designators.
var confounderTokens = []string{"X", "Q-7", "...", "TBD", "N/A", "Z-1", "--", "?"}

// Injection is the composed term list for one record.
type Injection struct {
	Situational []string
	Clutter     []string
	Confounders []string
}

// Terms flattens the three layers into a single slice, situational first.
func (inj Injection) Terms() []string {
	out := make([]string, 0, len(inj.Situational)+len(inj.Clutter)+len(inj.Confounders))
	out = append(out, inj.Situational...)
	out = append(out, inj.Clutter...)
	out = append(out, inj.Confounders...)
	return out
}

// Targets parameterizes injection rates.
type Targets struct {
	// SituationalCount is how many situational terms are drawn when the
	// layer is not already persisted from a prior record.
	SituationalCount int
	// Persistence is the probability an already-surfaced situational term
	// reappears verbatim, per §4.H layer 1 ("≥0.95 persistence").
	Persistence float64
	ClutterCount int
}

func DefaultTargets() Targets {
	return Targets{SituationalCount: 2, Persistence: 0.95, ClutterCount: 1}
}

// Injector composes terms for a record. Inject's previousSituational
// argument carries the situational terms the previous record of the same
// source surfaced, enabling the within-source persistence invariant.
type Injector struct {
	Targets Targets
}

func NewInjector(targets Targets) *Injector {
	return &Injector{Targets: targets}
}

// Inject draws one record's vocabulary. confounderRate is the archetype's
// per-record confounder injection probability; truePost and branch are
// used to keep confounders from leaking real structure. Situational terms
// are drawn from sit's pool without reference to truePost or branch, so
// they are not checked against the soldier's own branch.
func Inject(rng *rand.Rand, inj *Injector, sit *situation.Situation, branch *hierarchy.Branch, truePost hierarchy.Post, workingEnvironment string, confounderRate float64, previousSituational []string) Injection {
	out := Injection{}

	if len(previousSituational) > 0 && rng.Float64() < inj.Targets.Persistence {
		out.Situational = append(out.Situational, previousSituational...)
	} else {
		out.Situational = sampleSituational(rng, sit, inj.Targets.SituationalCount)
	}

	pool := clutterPools[workingEnvironment]
	if len(pool) > 0 {
		for i := 0; i < inj.Targets.ClutterCount; i++ {
			out.Clutter = append(out.Clutter, pool[rng.Intn(len(pool))])
		}
	}

	if rng.Float64() < confounderRate {
		if tok, ok := sampleConfounder(rng, branch, truePost); ok {
			out.Confounders = append(out.Confounders, tok)
		}
	}

	return out
}

// sampleSituational draws from the situation's tiered pool, biased toward
// primary (0.6), then secondary (0.3), then rare (0.1).
func sampleSituational(rng *rand.Rand, sit *situation.Situation, n int) []string {
	if sit == nil {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tier := pickTier(rng)
		pool := tierPool(sit, tier)
		if len(pool) == 0 {
			pool = tierPool(sit, "primary")
		}
		if len(pool) == 0 {
			continue
		}
		out = append(out, pool[rng.Intn(len(pool))])
	}
	return out
}

func pickTier(rng *rand.Rand) string {
	r := rng.Float64()
	switch {
	case r < 0.6:
		return "primary"
	case r < 0.9:
		return "secondary"
	default:
		return "rare"
	}
}

func tierPool(sit *situation.Situation, tier string) []string {
	switch tier {
	case "primary":
		return sit.Vocabulary.Primary
	case "secondary":
		return sit.Vocabulary.Secondary
	default:
		return sit.Vocabulary.Rare
	}
}

// sampleConfounder draws a confounder token, rejecting any that happens to
// equal a real designator value in the soldier's true post or a
// branch-unique level name, per §4.H's invariants.
func sampleConfounder(rng *rand.Rand, branch *hierarchy.Branch, truePost hierarchy.Post) (string, bool) {
	forbidden := make(map[string]bool)
	for _, d := range truePost.Path {
		forbidden[d.Value] = true
	}
	if branch != nil {
		for _, t := range branch.BranchUniqueTerms {
			forbidden[t] = true
		}
	}

	candidates := make([]string, 0, len(confounderTokens))
	for _, tok := range confounderTokens {
		if !forbidden[tok] {
			candidates = append(candidates, tok)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	return candidates[rng.Intn(len(candidates))], true
}
