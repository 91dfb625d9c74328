// Package situation implements the Situation Registry (spec §4.C): named
// operational contexts, each bundling a three-tier vocabulary pool.
package situation

import (
	"os"
	"sort"

	"github.com/rgonzalez12/posthist/internal/generrors"
	"gopkg.in/yaml.v3"
)

// VocabularyPool is a situation's signal-bearing term pool, partitioned
// into primary/secondary/rare tiers per §4.H layer 1.
type VocabularyPool struct {
	Primary   []string `yaml:"primary"`
	Secondary []string `yaml:"secondary"`
	Rare      []string `yaml:"rare"`
}

func (p VocabularyPool) empty() bool {
	return len(p.Primary) == 0 && len(p.Secondary) == 0 && len(p.Rare) == 0
}

// Situation is a named operational context mapping to an allowed-branch
// set and a vocabulary pool.
type Situation struct {
	ID              string         `yaml:"id"`
	AllowedBranches []string       `yaml:"allowed_branches"`
	Vocabulary      VocabularyPool `yaml:"vocabulary"`
}

// AllowsBranch reports whether a source whose home unit lies in branch may
// be assigned this situation.
func (s *Situation) AllowsBranch(branch string) bool {
	for _, b := range s.AllowedBranches {
		if b == branch {
			return true
		}
	}
	return false
}

// Registry is the read-only catalog of situations.
type Registry struct {
	situations map[string]*Situation
}

// NewRegistry validates and indexes a list of situations. Fails with
// SituationInvalid if a vocabulary pool is empty or an allowed branch is
// unknown (checked against knownBranches, which may be nil to skip that
// check at load time before the hierarchy is available).
func NewRegistry(situations []*Situation, knownBranches map[string]bool) (*Registry, error) {
	r := &Registry{situations: make(map[string]*Situation, len(situations))}
	for _, s := range situations {
		if s.ID == "" {
			return nil, generrors.New(generrors.SituationInvalid, "situation", "", "situation id is required")
		}
		if s.Vocabulary.empty() {
			return nil, generrors.New(generrors.SituationInvalid, "situation", s.ID, "vocabulary layer is empty")
		}
		if len(s.AllowedBranches) == 0 {
			return nil, generrors.New(generrors.SituationInvalid, "situation", s.ID, "allowed_branches is empty")
		}
		if knownBranches != nil {
			for _, b := range s.AllowedBranches {
				if !knownBranches[b] {
					return nil, generrors.New(generrors.SituationInvalid, "situation", s.ID, "unknown allowed branch "+b)
				}
			}
		}
		if _, dup := r.situations[s.ID]; dup {
			return nil, generrors.New(generrors.SituationInvalid, "situation", s.ID, "duplicate situation id")
		}
		r.situations[s.ID] = s
	}
	if len(r.situations) == 0 {
		return nil, generrors.New(generrors.SituationInvalid, "situation", "", "no situations defined")
	}
	return r, nil
}

// Get returns the situation with the given id.
func (r *Registry) Get(id string) (*Situation, bool) {
	s, ok := r.situations[id]
	return s, ok
}

// IDs returns every situation id, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.situations))
	for id := range r.situations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ForBranch returns every situation that allows branch, sorted by id.
func (r *Registry) ForBranch(branch string) []*Situation {
	var out []*Situation
	for _, id := range r.IDs() {
		s := r.situations[id]
		if s.AllowsBranch(branch) {
			out = append(out, s)
		}
	}
	return out
}

// LoadFile reads a situation catalog (§6 item 3) from path.
func LoadFile(path string, knownBranches map[string]bool) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, generrors.Wrap(generrors.SituationInvalid, "situation", path, err)
	}
	var situations []*Situation
	if err := yaml.Unmarshal(data, &situations); err != nil {
		return nil, generrors.Wrap(generrors.SituationInvalid, "situation", path, err)
	}
	return NewRegistry(situations, knownBranches)
}
