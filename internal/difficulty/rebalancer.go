package difficulty

import (
	"sort"

	"github.com/rgonzalez12/posthist/internal/generrors"
)

// TierTargets is the desired fraction of soldiers in each tier, per
// §4.L. Fractions need not sum to exactly 1; the rebalancer works off
// absolute surplus counts against the soldier total.
type TierTargets struct {
	Easy     float64
	Moderate float64
	Hard     float64
	Extreme  float64
}

// DefaultTierTargets spreads soldiers across the tiers with a bias toward
// the easier end, reflecting a typical disambiguation benchmark's shape.
func DefaultTierTargets() TierTargets {
	return TierTargets{Easy: 0.40, Moderate: 0.30, Hard: 0.20, Extreme: 0.10}
}

func (t TierTargets) fraction(tier Tier) float64 {
	switch tier {
	case Easy:
		return t.Easy
	case Moderate:
		return t.Moderate
	case Hard:
		return t.Hard
	default:
		return t.Extreme
	}
}

// robustMargin is how far from its tier's nearest threshold an
// assessment's complementarity score must sit to be considered "robust"
// — safe to discard and regenerate without accidentally starving a
// neighboring tier.
const robustMargin = 0.08

// thresholdDistance returns how far a moderate/hard/extreme assessment's
// complementarity sits from the nearest tier boundary (0.4, 0.7).
func thresholdDistance(a Assessment) float64 {
	if !a.CollisionPosition || a.StructuralResolvability {
		return 1 // easy/moderate-by-resolvability soldiers are never "near" a complementarity boundary
	}
	c := a.ComplementarityScore
	d1 := abs(c - 0.4)
	d2 := abs(c - 0.7)
	if d1 < d2 {
		return d1
	}
	return d2
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// RebalancePlan names the soldiers to regenerate and how many passes were
// spent reaching it.
type RebalancePlan struct {
	Regenerate []string
	Passes     int
	Satisfied  bool
}

// Rebalancer selects over-represented, robust soldiers for regeneration
// against a target tier distribution, bounded by a maximum pass count.
type Rebalancer struct {
	Targets   TierTargets
	Tolerance float64
	MaxPasses int
}

func NewRebalancer(targets TierTargets, tolerance float64, maxPasses int) *Rebalancer {
	return &Rebalancer{Targets: targets, Tolerance: tolerance, MaxPasses: maxPasses}
}

// Plan computes which soldiers to regenerate this pass. The orchestrator
// is expected to call Plan, regenerate the named soldiers, recompute
// their assessments, and call Plan again, up to MaxPasses times.
func (r *Rebalancer) Plan(assessments []Assessment, pass int) (RebalancePlan, error) {
	if pass >= r.MaxPasses {
		return RebalancePlan{}, generrors.New(generrors.InfeasibleTargets, "rebalancer", "", "exceeded maximum rebalancing passes")
	}

	n := len(assessments)
	if n == 0 {
		return RebalancePlan{Satisfied: true, Passes: pass}, nil
	}

	counts := map[Tier]int{}
	for _, a := range assessments {
		counts[a.Tier]++
	}

	surplus := map[Tier]int{}
	maxSurplus := 0
	for _, tier := range []Tier{Easy, Moderate, Hard, Extreme} {
		target := int(r.Targets.fraction(tier) * float64(n))
		s := counts[tier] - target
		surplus[tier] = s
		if s > maxSurplus {
			maxSurplus = s
		}
	}

	toleranceCount := int(r.Tolerance * float64(n))
	if maxSurplus <= toleranceCount {
		return RebalancePlan{Satisfied: true, Passes: pass}, nil
	}

	type candidate struct {
		id       string
		distance float64
	}
	byTier := map[Tier][]candidate{}
	for _, a := range assessments {
		byTier[a.Tier] = append(byTier[a.Tier], candidate{id: a.SoldierID, distance: thresholdDistance(a)})
	}

	var regenerate []string
	for _, tier := range []Tier{Easy, Moderate, Hard, Extreme} {
		need := surplus[tier]
		if need <= 0 {
			continue
		}
		cands := byTier[tier]
		sort.Slice(cands, func(i, j int) bool { return cands[i].distance > cands[j].distance })
		for _, c := range cands {
			if need <= 0 {
				break
			}
			if c.distance < robustMargin {
				continue
			}
			regenerate = append(regenerate, c.id)
			need--
		}
	}

	return RebalancePlan{Regenerate: regenerate, Passes: pass + 1, Satisfied: false}, nil
}
