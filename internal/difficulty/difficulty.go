// Package difficulty implements the Ground-Truth Difficulty Computer
// (spec §4.K) and the Difficulty Rebalancer (spec §4.L). The computer is
// a pure, post-hoc function over an extraction-signals table, the truth
// labels, and the hierarchy/collision index — it never touches the
// generation-time random source.
package difficulty

import (
	"sort"
	"strings"

	"github.com/rgonzalez12/posthist/internal/extraction"
	"github.com/rgonzalez12/posthist/internal/hierarchy"
)

// Tier is the fixed difficulty classification, per §4.K step 7.
type Tier string

const (
	Easy     Tier = "easy"
	Moderate Tier = "moderate"
	Hard     Tier = "hard"
	Extreme  Tier = "extreme"
)

// Assessment is the ground-truth difficulty record for one soldier (§3,
// §6 "Ground-truth difficulty" artifact).
type Assessment struct {
	SoldierID               string
	CollisionPosition       bool
	ComplementarityScore    float64
	StructuralResolvability bool
	Tier                    Tier
	CandidateBranches       []string
	LevelConfidences        map[string]float64
	EliminatingConstraints  []string
}

// signal is one designator observation with its confidence, derived from
// either a characterized pair (confidence 1.0) or a disambiguated
// uncharacterized token (0.75 or 0.25 per §4.K step 1).
type signal struct {
	Level      string
	Value      string
	Confidence float64
}

// Compute assesses one soldier from the union of extraction records
// gathered across every source the soldier appeared in.
func Compute(h *hierarchy.Hierarchy, soldierID string, records []extraction.Record) Assessment {
	signals := collectSignals(h, records)

	candidates, constraints, uniqueTermHit := eliminateBranches(h, signals)

	complementarity := 0.0
	var levelConfidences map[string]float64
	for _, branch := range candidates {
		score, levels := complementarityFor(h.Branches[branch], signals)
		if score > complementarity {
			complementarity = score
			levelConfidences = levels
		}
	}
	if levelConfidences == nil {
		levelConfidences = map[string]float64{}
	}

	collisionPosition := hasCollidingSignal(h, signals) && !uniqueTermHit
	resolvable := len(candidates) == 1

	tier := classify(collisionPosition, resolvable, complementarity)
	if len(signals) == 0 {
		// Nothing extracted places the soldier anywhere in the hierarchy.
		tier = Extreme
	}

	sort.Strings(candidates)
	return Assessment{
		SoldierID:               soldierID,
		CollisionPosition:       collisionPosition,
		ComplementarityScore:    complementarity,
		StructuralResolvability: resolvable,
		Tier:                    tier,
		CandidateBranches:       candidates,
		LevelConfidences:        levelConfidences,
		EliminatingConstraints:  constraints,
	}
}

// collectSignals turns every record's characterized pairs and
// uncharacterized tokens into typed signals.
func collectSignals(h *hierarchy.Hierarchy, records []extraction.Record) []signal {
	var out []signal
	for _, rec := range records {
		for _, pair := range rec.AllCharacterizedPairs() {
			level, value, ok := splitPair(pair)
			if !ok {
				continue
			}
			out = append(out, signal{Level: level, Value: value, Confidence: 1.0})
		}
		for _, tok := range rec.AllUncharacterized() {
			levels := levelsValidFor(h, tok)
			switch len(levels) {
			case 0:
				// excluded from scoring (confidence 0.0), but a branch-unique
				// term is kept as a level-less signal so branch elimination
				// still sees it.
				for _, b := range h.Branches {
					if b.HasUniqueTerm(tok) {
						out = append(out, signal{Value: tok})
						break
					}
				}
			case 1:
				out = append(out, signal{Level: levels[0], Value: tok, Confidence: 0.75})
			default:
				for _, lvl := range levels {
					out = append(out, signal{Level: lvl, Value: tok, Confidence: 0.25})
				}
			}
		}
	}
	return out
}

func splitPair(pair string) (level, value string, ok bool) {
	idx := strings.Index(pair, ":")
	if idx < 0 {
		return "", "", false
	}
	return pair[:idx], pair[idx+1:], true
}

// levelsValidFor returns the distinct level names, across every branch,
// for which value is a member of the valid designator set.
func levelsValidFor(h *hierarchy.Hierarchy, value string) []string {
	seen := map[string]bool{}
	for _, b := range h.Branches {
		for level, values := range b.ValidDesignators {
			for _, v := range values {
				if v == value {
					seen[level] = true
				}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for lvl := range seen {
		out = append(out, lvl)
	}
	sort.Strings(out)
	return out
}

// eliminateBranches narrows the full branch set down to those consistent
// with the observed signals, per §4.K step 6's three elimination methods.
func eliminateBranches(h *hierarchy.Hierarchy, signals []signal) ([]string, []string, bool) {
	var constraints []string
	candidates := make(map[string]bool)
	for name := range h.Branches {
		candidates[name] = true
	}

	observedLevels := map[string]bool{}
	for _, s := range signals {
		if s.Level != "" {
			observedLevels[s.Level] = true
		}
	}

	// (a) designator invalidity
	for _, s := range signals {
		if s.Confidence < 0.75 {
			continue // ambiguous-level signals don't eliminate on their own
		}
		for name, b := range h.Branches {
			if !candidates[name] {
				continue
			}
			if !b.IsValidDesignator(s.Level, s.Value) {
				delete(candidates, name)
				constraints = append(constraints, "designator invalidity: "+name+" has no "+s.Level+"="+s.Value)
			}
		}
	}

	// (c) depth mismatch
	for name, b := range h.Branches {
		if !candidates[name] {
			continue
		}
		if len(observedLevels) > b.Depth {
			delete(candidates, name)
			constraints = append(constraints, "depth mismatch: observed levels exceed "+name+" depth")
		}
	}

	// (b) branch-unique terms: any signal value that's a branch-unique
	// term for exactly one branch eliminates every other branch outright.
	uniqueTermHit := false
	for _, s := range signals {
		for name, b := range h.Branches {
			if b.HasUniqueTerm(s.Value) {
				uniqueTermHit = true
				for other := range candidates {
					if other != name {
						delete(candidates, other)
					}
				}
				constraints = append(constraints, "branch-unique term: "+s.Value+" belongs only to "+name)
			}
		}
	}

	out := make([]string, 0, len(candidates))
	for name := range candidates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, constraints, uniqueTermHit
}

// complementarityFor computes one candidate branch's complementarity
// score: the sum of per-level max confidences, divided by
// min(branch_depth, 4).
func complementarityFor(b *hierarchy.Branch, signals []signal) (float64, map[string]float64) {
	if b == nil {
		return 0, nil
	}
	maxByLevel := map[string]float64{}
	for _, s := range signals {
		if !levelInBranch(b, s.Level) {
			continue
		}
		if s.Confidence > maxByLevel[s.Level] {
			maxByLevel[s.Level] = s.Confidence
		}
	}

	sum := 0.0
	for _, c := range maxByLevel {
		sum += c
	}
	denom := b.Depth
	if denom > 4 {
		denom = 4
	}
	if denom == 0 {
		return 0, maxByLevel
	}
	return sum / float64(denom), maxByLevel
}

func levelInBranch(b *hierarchy.Branch, level string) bool {
	for _, l := range b.Levels {
		if l == level {
			return true
		}
	}
	return false
}

// hasCollidingSignal reports whether any extracted (level, value) pair —
// characterized or disambiguated-uncharacterized alike — is valid in more
// than one branch, per §4.K step 5 ("extraction-based, not
// membership-based"). Confidence only bears on complementarity, not on
// whether a pair counts as colliding.
func hasCollidingSignal(h *hierarchy.Hierarchy, signals []signal) bool {
	for _, s := range signals {
		if h.Collides(s.Level, s.Value) {
			return true
		}
	}
	return false
}

// classify applies the fixed tier thresholds from §4.K step 7.
func classify(collisionPosition, resolvable bool, complementarity float64) Tier {
	if !collisionPosition {
		return Easy
	}
	if resolvable {
		return Moderate
	}
	switch {
	case complementarity >= 0.7:
		return Moderate
	case complementarity >= 0.4:
		return Hard
	default:
		return Extreme
	}
}
