package hierarchy

import (
	"os"

	"github.com/rgonzalez12/posthist/internal/generrors"
	"gopkg.in/yaml.v3"
)

// branchDoc mirrors spec.md §6 item 1's configuration document shape:
// branch_name -> { depth, levels, valid_designators, branch_unique_terms }.
type branchDoc struct {
	Depth             int                 `yaml:"depth"`
	Levels            []string            `yaml:"levels"`
	ValidDesignators  map[string][]string `yaml:"valid_designators"`
	BranchUniqueTerms []string            `yaml:"branch_unique_terms"`
}

// LoadFile reads a hierarchy definition YAML document and builds the
// Hierarchy (including its collision index). Returns HierarchyMalformed on
// any structural problem, per §7.
func LoadFile(path string) (*Hierarchy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, generrors.Wrap(generrors.HierarchyMalformed, "hierarchy", path, err)
	}
	return LoadBytes(data)
}

// LoadBytes parses a hierarchy definition document from memory.
func LoadBytes(data []byte) (*Hierarchy, error) {
	var docs map[string]branchDoc
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, generrors.Wrap(generrors.HierarchyMalformed, "hierarchy", "", err)
	}

	branches := make(map[string]*Branch, len(docs))
	for name, d := range docs {
		branches[name] = &Branch{
			Name:              name,
			Depth:             d.Depth,
			Levels:            d.Levels,
			ValidDesignators:  d.ValidDesignators,
			BranchUniqueTerms: d.BranchUniqueTerms,
		}
	}

	return Build(branches)
}
