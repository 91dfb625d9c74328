package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoBranchFixture(t *testing.T) *Hierarchy {
	t.Helper()
	yamlDoc := []byte(`
army:
  depth: 3
  levels: [Sector, Regiment, Company]
  valid_designators:
    Sector: ["North", "South"]
    Regiment: ["1", "2", "7"]
    Company: ["A", "B", "C"]
  branch_unique_terms: ["regiment"]
navy:
  depth: 3
  levels: [Sector, Flotilla, Division]
  valid_designators:
    Sector: ["North", "South"]
    Flotilla: ["1", "2", "7"]
    Division: ["A", "B"]
  branch_unique_terms: ["flotilla"]
`)
	h, err := LoadBytes(yamlDoc)
	require.NoError(t, err)
	return h
}

func TestBuild_CollisionIndex(t *testing.T) {
	h := twoBranchFixture(t)

	// "7" is valid as a Regiment designator in army and a Flotilla
	// designator in navy: both branches list it under a different level
	// name but the same VALUE, so it collides on (level=Regiment,"7")? No —
	// collision is keyed on (level, value); Regiment/"7" only exists in
	// army, Flotilla/"7" only in navy. The shared-value, different-level
	// case is not itself a collision; the colliding pair must share the
	// level name too.
	assert.False(t, h.Collides("Regiment", "7"))

	// Sector "North" is valid in both branches at the shared top level.
	assert.True(t, h.Collides("Sector", "North"))
	branches := h.BranchesFor("Sector", "North")
	assert.ElementsMatch(t, []string{"army", "navy"}, branches)
}

func TestBuild_MalformedDepth(t *testing.T) {
	_, err := LoadBytes([]byte(`
bad:
  depth: 2
  levels: [Sector, Regiment, Company]
  valid_designators:
    Sector: ["North"]
    Regiment: ["1"]
    Company: ["A"]
`))
	require.Error(t, err)
}

func TestBuild_EmptyDesignatorSet(t *testing.T) {
	_, err := LoadBytes([]byte(`
bad:
  depth: 2
  levels: [Sector, Regiment]
  valid_designators:
    Sector: ["North"]
`))
	require.Error(t, err)
}

func TestAllPosts_CartesianProduct(t *testing.T) {
	h := twoBranchFixture(t)
	posts, err := h.AllPosts("army")
	require.NoError(t, err)
	assert.Len(t, posts, 2*3*3)
	for _, p := range posts {
		assert.Equal(t, "army", p.Branch)
		assert.Len(t, p.Path, 3)
	}
}

func TestUniqueLevelNames(t *testing.T) {
	h := twoBranchFixture(t)
	unique := h.UniqueLevelNames()
	assert.Equal(t, "army", unique["Regiment"])
	assert.Equal(t, "navy", unique["Flotilla"])
	_, sharedPresent := unique[Sector]
	assert.False(t, sharedPresent)
}

func TestBranchesWithDepth(t *testing.T) {
	h := twoBranchFixture(t)
	assert.ElementsMatch(t, []string{"army", "navy"}, h.BranchesWithDepth(3))
	assert.Empty(t, h.BranchesWithDepth(5))
}
