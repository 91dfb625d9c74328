package clerk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalog_CountAndValidate(t *testing.T) {
	catalog := BuiltinCatalog()
	assert.GreaterOrEqual(t, len(catalog), 8)
	assert.LessOrEqual(t, len(catalog), 13)

	reg, err := NewRegistry(catalog)
	require.NoError(t, err)
	assert.Equal(t, len(catalog), reg.Count())

	wantKinds := []string{"formal_hq", "efficient_hq", "rushed_local", "methodical_local", "field_medical", "transit", "depot_intake", "expeditionary_minimalist"}
	for _, id := range wantKinds {
		_, ok := reg.Get(id)
		assert.True(t, ok, "expected built-in archetype %s", id)
	}
}

func TestArchetype_DuplicateIDRejected(t *testing.T) {
	a := BuiltinCatalog()[0]
	_, err := NewRegistry([]*Archetype{a, a})
	require.Error(t, err)
}

func TestArchetype_InvalidConfounderRate(t *testing.T) {
	bad := &Archetype{ID: "x", NameTemplate: "{{.Rank}}", UnitTemplate: "{{.Segments}}", ConfounderRate: 2.0}
	err := bad.Validate()
	require.Error(t, err)
}

func TestRenderName_Deterministic(t *testing.T) {
	reg, err := NewRegistry(BuiltinCatalog())
	require.NoError(t, err)
	a, _ := reg.Get("formal_hq")

	name1, err := a.RenderName("0042")
	require.NoError(t, err)
	name2, err := a.RenderName("0042")
	require.NoError(t, err)
	assert.Equal(t, name1, name2)
	assert.Contains(t, name1, "0042")
}

func TestRenderUnitString_SegmentsAndBranchTag(t *testing.T) {
	reg, err := NewRegistry(BuiltinCatalog())
	require.NoError(t, err)
	a, _ := reg.Get("formal_hq")

	out, err := a.RenderUnitString([]string{"North", "7", "B"}, "army")
	require.NoError(t, err)
	assert.Contains(t, out, "Army")
}

func TestRenderUnitString_NoSegments(t *testing.T) {
	reg, err := NewRegistry(BuiltinCatalog())
	require.NoError(t, err)
	a, _ := reg.Get("formal_hq")

	_, err = a.RenderUnitString(nil, "")
	require.Error(t, err)
}

func TestNewInstance_DeterministicAcrossCalls(t *testing.T) {
	reg, err := NewRegistry(BuiltinCatalog())
	require.NoError(t, err)
	a, _ := reg.Get("transit")

	i1 := NewInstance(42, 3, a)
	i2 := NewInstance(42, 3, a)
	assert.Equal(t, i1.ClerkID, i2.ClerkID)
	assert.Equal(t, i1.FatigueSeed, i2.FatigueSeed)
}
