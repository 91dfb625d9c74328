package source

import (
	"testing"

	"github.com/rgonzalez12/posthist/internal/clerk"
	"github.com/rgonzalez12/posthist/internal/hierarchy"
	"github.com/rgonzalez12/posthist/internal/situation"
	"github.com/rgonzalez12/posthist/internal/soldier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHierarchy(t *testing.T) *hierarchy.Hierarchy {
	t.Helper()
	h, err := hierarchy.Build(map[string]*hierarchy.Branch{
		"army": {
			Name:  "army",
			Depth: 3,
			Levels: []string{"Sector", "Regiment", "Company"},
			ValidDesignators: map[string][]string{
				"Sector":   {"1", "2"},
				"Regiment": {"A", "B"},
				"Company":  {"x", "y"},
			},
		},
		"navy": {
			Name:  "navy",
			Depth: 3,
			Levels: []string{"Sector", "Flotilla", "Ship"},
			ValidDesignators: map[string][]string{
				"Sector":   {"1", "2"},
				"Flotilla": {"C", "D"},
				"Ship":     {"x", "y"},
			},
		},
	})
	require.NoError(t, err)
	return h
}

func testSituations(t *testing.T) *situation.Registry {
	t.Helper()
	reg, err := situation.NewRegistry([]*situation.Situation{
		{
			ID:              "field_exercise",
			AllowedBranches: []string{"army"},
			Vocabulary:      situation.VocabularyPool{Primary: []string{"maneuver"}},
		},
		{
			ID:              "port_call",
			AllowedBranches: []string{"navy"},
			Vocabulary:      situation.VocabularyPool{Primary: []string{"berth"}},
		},
	}, map[string]bool{"army": true, "navy": true})
	require.NoError(t, err)
	return reg
}

func testClerks(t *testing.T) []*clerk.Instance {
	t.Helper()
	reg, err := clerk.NewRegistry(clerk.BuiltinCatalog())
	require.NoError(t, err)
	arch, ok := reg.Get("formal_hq")
	require.True(t, ok)
	return []*clerk.Instance{clerk.NewInstance(1, 0, arch)}
}

func TestFactory_New_Deterministic(t *testing.T) {
	h := testHierarchy(t)
	f := NewFactory(h, testClerks(t), testSituations(t), DefaultTargets())

	a, err := f.New(7, 3)
	require.NoError(t, err)
	b, err := f.New(7, 3)
	require.NoError(t, err)

	assert.Equal(t, a.SourceID, b.SourceID)
	assert.Equal(t, a.HomeUnit, b.HomeUnit)
	assert.Equal(t, a.SituationID, b.SituationID)
	assert.Equal(t, a.Type, b.Type)
	assert.Equal(t, a.LocalBias, b.LocalBias)
}

func TestFactory_New_SituationMatchesBranch(t *testing.T) {
	h := testHierarchy(t)
	f := NewFactory(h, testClerks(t), testSituations(t), DefaultTargets())

	for i := 0; i < 50; i++ {
		src, err := f.New(42, i)
		require.NoError(t, err)
		sit, ok := testSituations(t).Get(src.SituationID)
		require.True(t, ok)
		assert.True(t, sit.AllowsBranch(src.HomeUnit.Branch))
	}
}

func TestFactory_New_NoCompatibleSituation(t *testing.T) {
	h := testHierarchy(t)
	onlyArmy, err := situation.NewRegistry([]*situation.Situation{
		{ID: "s", AllowedBranches: []string{"nonexistent"}, Vocabulary: situation.VocabularyPool{Primary: []string{"x"}}},
	}, nil)
	require.NoError(t, err)

	f := NewFactory(h, testClerks(t), onlyArmy, DefaultTargets())
	_, err = f.New(1, 0)
	assert.Error(t, err)
}

func buildSoldiers(t *testing.T, h *hierarchy.Hierarchy, n int) []*soldier.Soldier {
	t.Helper()
	sf := soldier.NewFactory(h, soldier.DefaultTargets())
	out := make([]*soldier.Soldier, 0, n)
	for i := 0; i < n; i++ {
		s, err := sf.New(99, i, false)
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestAssigner_NoSoldierRepeatsWithinSource(t *testing.T) {
	h := testHierarchy(t)
	f := NewFactory(h, testClerks(t), testSituations(t), DefaultTargets())
	soldiers := buildSoldiers(t, h, 20)

	var sources []*Source
	for i := 0; i < 10; i++ {
		src, err := f.New(5, i)
		require.NoError(t, err)
		sources = append(sources, src)
	}

	at := DefaultAssignerTargets()
	at.MaxSourceSize = 8
	asg := NewAssigner(at)

	pairings, err := asg.Assign(5, soldiers, sources)
	require.NoError(t, err)
	require.NotEmpty(t, pairings)

	seenPerSource := make(map[string]map[string]bool)
	for _, p := range pairings {
		if seenPerSource[p.SourceID] == nil {
			seenPerSource[p.SourceID] = make(map[string]bool)
		}
		assert.False(t, seenPerSource[p.SourceID][p.SoldierID], "soldier repeated within a single source")
		seenPerSource[p.SourceID][p.SoldierID] = true
	}
}

func TestAssigner_SourceSizeClampedToPool(t *testing.T) {
	h := testHierarchy(t)
	f := NewFactory(h, testClerks(t), testSituations(t), DefaultTargets())
	soldiers := buildSoldiers(t, h, 2)

	src, err := f.New(5, 0)
	require.NoError(t, err)

	at := DefaultAssignerTargets()
	at.MinSourceSize = 10
	at.MaxSourceSize = 10
	asg := NewAssigner(at)

	_, err = asg.Assign(5, soldiers, []*Source{src})
	assert.NoError(t, err) // clamped to pool size, not a conflict
}

func TestAssigner_Deterministic(t *testing.T) {
	h := testHierarchy(t)
	f := NewFactory(h, testClerks(t), testSituations(t), DefaultTargets())
	soldiers := buildSoldiers(t, h, 15)

	var sources []*Source
	for i := 0; i < 5; i++ {
		src, err := f.New(5, i)
		require.NoError(t, err)
		sources = append(sources, src)
	}

	asg := NewAssigner(DefaultAssignerTargets())
	a, err := asg.Assign(11, soldiers, sources)
	require.NoError(t, err)
	b, err := asg.Assign(11, soldiers, sources)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i], b[i])
	}
}
