// Package render implements the Renderer (spec §4.I): the single
// contract that turns a clerk, a soldier's state, a familiarity level, a
// situation's vocabulary, a quality tier, and a source position into the
// raw text of one record.
package render

import (
	"math/rand"
	"strings"
	"unicode"

	"github.com/rgonzalez12/posthist/internal/clerk"
	"github.com/rgonzalez12/posthist/internal/familiarity"
	"github.com/rgonzalez12/posthist/internal/generrors"
	"github.com/rgonzalez12/posthist/internal/hierarchy"
	"github.com/rgonzalez12/posthist/internal/idgen"
	"github.com/rgonzalez12/posthist/internal/vocab"
)

// Input bundles everything one call to Render needs, matching the
// contract named in spec.md §4.I: render(clerk, soldier_state,
// familiarity, situation, quality_tier, position_in_source) -> raw_text.
type Input struct {
	Clerk            *clerk.Instance
	SoldierID        string
	State            hierarchy.Post
	Branch           *hierarchy.Branch
	Familiarity      familiarity.Level
	Injection        vocab.Injection
	QualityTier      int
	PositionInSource int
}

// Render produces the raw text of one record. It never fails silently:
// any incompatibility between the archetype's templates and the supplied
// designators surfaces as RenderIncompatible.
func Render(in Input) (string, error) {
	a := in.Clerk.Archetype

	serviceNum := serviceNumber(in.SoldierID)
	name, err := a.RenderName(serviceNum)
	if err != nil {
		return "", err
	}

	exposed, branchTag, err := ExposedDesignators(in.State, in.Branch, in.Familiarity)
	if err != nil {
		return "", err
	}
	segments := make([]string, len(exposed))
	for i, d := range exposed {
		segments[i] = d.Value
	}
	segments = compressForQuality(segments, in.QualityTier)

	unit, err := a.RenderUnitString(segments, branchTag)
	if err != nil {
		return "", err
	}

	terms := in.Injection.Terms()
	text := merge(name, unit, terms, a.Separator, a.Placement)

	if in.PositionInSource > a.FatigueCurve.Threshold {
		rng := fatigueRand(in.Clerk.FatigueSeed, in.PositionInSource)
		text = applyFatigue(text, a.FatigueCurve, rng)
	}

	return text, nil
}

// serviceNumber derives a stand-in service number deterministically from
// the soldier's id; the data model carries no personal-name field, per
// spec.md's non-goal on historical realism.
func serviceNumber(soldierID string) string {
	compact := strings.ReplaceAll(soldierID, "-", "")
	if len(compact) > 8 {
		compact = compact[:8]
	}
	return strings.ToUpper(compact)
}

// ExposedDesignators returns the trailing path designators a clerk would
// plausibly write out in full for the given familiarity level, plus a
// branch tag when the source's home unit is in a different branch
// entirely. It's exported so the orchestrator can derive, from the same
// logic the renderer itself uses, exactly which true designators a
// record discloses — the basis for the self-extraction the pipeline
// feeds the difficulty computer during generation.
func ExposedDesignators(state hierarchy.Post, branch *hierarchy.Branch, fam familiarity.Level) ([]hierarchy.Designator, string, error) {
	depth := len(state.Path)
	if depth == 0 {
		return nil, "", generrors.New(generrors.RenderIncompatible, "renderer", "", "soldier state has no path")
	}

	n := familiarity.ExpansionSegments(fam, depth)
	if n <= 0 || n > depth {
		return nil, "", generrors.New(generrors.RenderIncompatible, "renderer", "", "expansion segment count out of range")
	}

	tail := state.Path[depth-n:]
	designators := append([]hierarchy.Designator{}, tail...)

	branchTag := ""
	if fam == familiarity.DifferentBranch {
		if branch != nil {
			branchTag = branch.Name
		} else {
			branchTag = state.Branch
		}
	}
	return designators, branchTag, nil
}

// compressForQuality simulates tier-driven compression: tier 1 is
// explicit and complete; tier 5 is fragmentary, truncating each segment
// to its leading characters.
func compressForQuality(segments []string, tier int) []string {
	if tier <= 1 {
		return segments
	}
	out := make([]string, len(segments))
	for i, s := range segments {
		keep := len(s)
		switch {
		case tier >= 5:
			keep = 1
		case tier == 4:
			keep = 2
		case tier == 3:
			keep = 3
		}
		if keep < len(s) {
			out[i] = s[:keep]
		} else {
			out[i] = s
		}
	}
	return out
}

// merge places the vocabulary terms at the archetype's configured
// placement relative to the name and unit-string tokens.
func merge(name, unit string, terms []string, sep, placement string) string {
	if len(terms) == 0 {
		return strings.Join([]string{name, unit}, sep)
	}
	extras := strings.Join(terms, sep)
	switch placement {
	case "infix":
		return strings.Join([]string{name, extras, unit}, sep)
	default: // "suffix" and unset
		return strings.Join([]string{name, unit, extras}, sep)
	}
}

func fatigueRand(fatigueSeed int64, position int) *rand.Rand {
	return idgen.RandFor(fatigueSeed, "fatigue", position)
}

// applyFatigue applies small monotonic drifts once a clerk passes its
// per-instance fatigue threshold within a single source: spacing
// collapse, capitalization drift, and truncation, each gated by its own
// rate.
func applyFatigue(text string, curve clerk.FatigueCurve, rng *rand.Rand) string {
	if rng.Float64() < curve.SpacingCollapseRate {
		text = strings.ReplaceAll(text, "  ", " ")
		text = strings.ReplaceAll(text, ", ", ",")
	}
	if rng.Float64() < curve.CapitalizationDriftRate {
		text = driftCapitalization(text, rng)
	}
	if rng.Float64() < curve.TruncationRate && len(text) > 4 {
		cut := len(text) - 1 - rng.Intn(len(text)/3+1)
		if cut < 1 {
			cut = 1
		}
		text = text[:cut]
	}
	return text
}

// driftCapitalization flips the case of a handful of letters, simulating
// a tired clerk's inconsistent capitalization.
func driftCapitalization(s string, rng *rand.Rand) string {
	runes := []rune(s)
	flips := 1 + rng.Intn(3)
	for i := 0; i < flips && len(runes) > 0; i++ {
		idx := rng.Intn(len(runes))
		r := runes[idx]
		if unicode.IsUpper(r) {
			runes[idx] = unicode.ToLower(r)
		} else if unicode.IsLower(r) {
			runes[idx] = unicode.ToUpper(r)
		}
	}
	return string(runes)
}
