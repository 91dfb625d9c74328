// Package familiarity implements the Familiarity Calculator (spec §4.G):
// given a soldier's active state and a source's home unit, decide how much
// of the post's path a clerk would plausibly write out in full.
package familiarity

import "github.com/rgonzalez12/posthist/internal/hierarchy"

// Level is one of the four nested-prefix relations between a soldier's
// state and a source's home unit, ordered from most to least familiar.
type Level int

const (
	// SameMidUnit: the state and the home unit agree on every level except
	// the deepest one — the clerk's own unit.
	SameMidUnit Level = iota
	// SameBranchDifferentMid: same branch, same top-level (Sector) value,
	// but the mid-level prefix differs.
	SameBranchDifferentMid
	// SameBranchDifferentTop: same branch, but even the top-level (Sector)
	// value differs.
	SameBranchDifferentTop
	// DifferentBranch: the state's post lies in a different branch
	// entirely from the source's home unit.
	DifferentBranch
)

func (l Level) String() string {
	switch l {
	case SameMidUnit:
		return "same-mid-unit"
	case SameBranchDifferentMid:
		return "same-branch-different-mid"
	case SameBranchDifferentTop:
		return "same-branch-different-top"
	case DifferentBranch:
		return "different-branch"
	default:
		return "unknown"
	}
}

// HomeUnit references a mid-level unit within some branch: the prefix of a
// post's path down to, but not including, the deepest level.
type HomeUnit struct {
	Branch string
	Prefix []hierarchy.Designator
}

// Calculate compares state's full path against home's prefix and returns
// the resulting familiarity level.
func Calculate(state hierarchy.Post, home HomeUnit) Level {
	if state.Branch != home.Branch {
		return DifferentBranch
	}

	if len(state.Path) == 0 {
		return DifferentBranch
	}

	topMatches := len(home.Prefix) > 0 && state.Path[0].Value == home.Prefix[0].Value

	midMatches := len(home.Prefix) == len(state.Path)-1
	if midMatches {
		for i, d := range home.Prefix {
			if state.Path[i] != d {
				midMatches = false
				break
			}
		}
	}

	switch {
	case midMatches:
		return SameMidUnit
	case topMatches:
		return SameBranchDifferentMid
	default:
		return SameBranchDifferentTop
	}
}

// ExpansionSegments returns how many trailing path segments (counting from
// the deepest level backward) the Renderer should write out in full for a
// given familiarity level, per §4.I: same-mid-unit writes only the deepest
// one or two segments; the two same-branch levels write intermediate
// segments (everything but the top Sector value, which is assumed known);
// different-branch writes the full path (the Renderer adds the branch tag
// on top of that).
func ExpansionSegments(l Level, depth int) int {
	switch l {
	case SameMidUnit:
		if depth >= 2 {
			return 2
		}
		return depth
	case SameBranchDifferentMid, SameBranchDifferentTop:
		if depth >= 2 {
			return depth - 1
		}
		return depth
	default: // DifferentBranch
		return depth
	}
}
