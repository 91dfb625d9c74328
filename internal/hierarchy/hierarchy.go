// Package hierarchy implements the Hierarchy Model (spec §4.A): branch
// definitions, post validity, and the collision index used by both the
// Soldier Factory and the Ground-Truth Difficulty Computer.
package hierarchy

import (
	"sort"
	"strings"

	"github.com/rgonzalez12/posthist/internal/generrors"
)

// Sector is the top level shared by every branch, per spec.md §3.
const Sector = "Sector"

// Branch is a named organizational hierarchy with a fixed depth, ordered
// level names, and per-level valid designator sets.
type Branch struct {
	Name              string
	Depth             int
	Levels            []string
	ValidDesignators  map[string][]string // level name -> valid values
	BranchUniqueTerms []string
}

// IsValidDesignator reports whether value is a member of the branch's
// valid set for level.
func (b *Branch) IsValidDesignator(level, value string) bool {
	for _, v := range b.ValidDesignators[level] {
		if v == value {
			return true
		}
	}
	return false
}

// HasUniqueTerm reports whether token, normalized per §9 Design Note (b)
// (case-insensitive, whole-token match), is one of this branch's
// branch-unique terms.
func (b *Branch) HasUniqueTerm(token string) bool {
	norm := strings.ToLower(strings.TrimSpace(token))
	for _, t := range b.BranchUniqueTerms {
		if strings.ToLower(t) == norm {
			return true
		}
	}
	return false
}

// Designator is one (level, value) pair in a post's path.
type Designator struct {
	Level string
	Value string
}

// Post is a full path through exactly one branch's hierarchy: one
// designator per level, in level order.
type Post struct {
	Branch string
	Path   []Designator
}

// Designator returns the value assigned at level, or "" if level is not
// part of this post's path.
func (p Post) Designator(level string) (string, bool) {
	for _, d := range p.Path {
		if d.Level == level {
			return d.Value, true
		}
	}
	return "", false
}

// Equal reports whether two posts resolve to the same branch and path.
func (p Post) Equal(other Post) bool {
	if p.Branch != other.Branch || len(p.Path) != len(other.Path) {
		return false
	}
	for i := range p.Path {
		if p.Path[i] != other.Path[i] {
			return false
		}
	}
	return true
}

// collisionKey is the (level, value) pair the collision index is keyed on.
type collisionKey struct {
	Level string
	Value string
}

// Hierarchy is the read-only, once-built model of every branch plus the
// derived collision index, per §9's "Collision index as derived state".
type Hierarchy struct {
	Branches       map[string]*Branch
	collisionIndex map[collisionKey][]string // level/value -> branch names, sorted
}

// Build validates a set of branch definitions and constructs their
// collision index. It fails with HierarchyMalformed if any branch's depth,
// level count, or designator sets are inconsistent.
func Build(branches map[string]*Branch) (*Hierarchy, error) {
	if len(branches) == 0 {
		return nil, generrors.New(generrors.HierarchyMalformed, "hierarchy", "", "no branches defined")
	}

	h := &Hierarchy{
		Branches:       branches,
		collisionIndex: make(map[collisionKey][]string),
	}

	for name, b := range branches {
		if b.Depth <= 0 {
			return nil, generrors.New(generrors.HierarchyMalformed, "hierarchy", name, "depth must be positive")
		}
		if len(b.Levels) != b.Depth {
			return nil, generrors.New(generrors.HierarchyMalformed, "hierarchy", name, "level count disagrees with depth")
		}
		if b.Levels[0] != Sector {
			return nil, generrors.New(generrors.HierarchyMalformed, "hierarchy", name, "top level must be "+Sector)
		}
		for _, level := range b.Levels {
			values := b.ValidDesignators[level]
			if len(values) == 0 {
				return nil, generrors.New(generrors.HierarchyMalformed, "hierarchy", name, "level "+level+" has no valid designator set")
			}
		}
	}

	for name, b := range branches {
		for level, values := range b.ValidDesignators {
			for _, v := range values {
				key := collisionKey{Level: level, Value: v}
				h.collisionIndex[key] = appendSorted(h.collisionIndex[key], name)
			}
		}
	}

	return h, nil
}

func appendSorted(list []string, name string) []string {
	for _, existing := range list {
		if existing == name {
			return list
		}
	}
	list = append(list, name)
	sort.Strings(list)
	return list
}

// IsValid reports whether (level, value) is a member of branch's valid set.
func (h *Hierarchy) IsValid(branch, level, value string) bool {
	b, ok := h.Branches[branch]
	if !ok {
		return false
	}
	return b.IsValidDesignator(level, value)
}

// BranchesFor returns every branch in which (level, value) is valid, i.e.
// the collision set for that pair. Cardinality >= 2 means the pair
// collides, per the GLOSSARY definition.
func (h *Hierarchy) BranchesFor(level, value string) []string {
	return h.collisionIndex[collisionKey{Level: level, Value: value}]
}

// Collides reports whether (level, value) is valid in more than one branch.
func (h *Hierarchy) Collides(level, value string) bool {
	return len(h.BranchesFor(level, value)) >= 2
}

// BranchesWithDepth enumerates branches whose depth equals d.
func (h *Hierarchy) BranchesWithDepth(d int) []string {
	var out []string
	for name, b := range h.Branches {
		if b.Depth == d {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// AllPosts enumerates every post in branch B: the cartesian product of its
// per-level valid designator sets, in level order. Intended for small test
// hierarchies, not production-scale catalogs.
func (h *Hierarchy) AllPosts(branch string) ([]Post, error) {
	b, ok := h.Branches[branch]
	if !ok {
		return nil, generrors.New(generrors.HierarchyMalformed, "hierarchy", branch, "unknown branch")
	}

	paths := [][]Designator{{}}
	for _, level := range b.Levels {
		var next [][]Designator
		for _, prefix := range paths {
			for _, v := range b.ValidDesignators[level] {
				d := append(append([]Designator{}, prefix...), Designator{Level: level, Value: v})
				next = append(next, d)
			}
		}
		paths = next
	}

	out := make([]Post, 0, len(paths))
	for _, p := range paths {
		out = append(out, Post{Branch: branch, Path: p})
	}
	return out, nil
}

// UniqueLevelNames returns the level names that appear in exactly one
// branch's Levels list, usable as structural discriminators per §4.A.
func (h *Hierarchy) UniqueLevelNames() map[string]string {
	counts := make(map[string][]string)
	for name, b := range h.Branches {
		for _, lvl := range b.Levels {
			counts[lvl] = appendSorted(counts[lvl], name)
		}
	}
	out := make(map[string]string)
	for lvl, owners := range counts {
		if len(owners) == 1 {
			out[lvl] = owners[0]
		}
	}
	return out
}
