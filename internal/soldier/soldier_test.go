package soldier

import (
	"testing"

	"github.com/rgonzalez12/posthist/internal/hierarchy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHierarchy(t *testing.T) *hierarchy.Hierarchy {
	t.Helper()
	h, err := hierarchy.LoadBytes([]byte(`
army:
  depth: 4
  levels: [Sector, Regiment, Company, Platoon]
  valid_designators:
    Sector: ["North", "South"]
    Regiment: ["1", "2", "7"]
    Company: ["A", "B", "C"]
    Platoon: ["1", "2"]
navy:
  depth: 3
  levels: [Sector, Flotilla, Division]
  valid_designators:
    Sector: ["North", "South"]
    Flotilla: ["1", "2"]
    Division: ["A", "B"]
`))
	require.NoError(t, err)
	return h
}

func TestNew_DeterministicForSameSeedAndIndex(t *testing.T) {
	h := testHierarchy(t)
	f := NewFactory(h, DefaultTargets())

	s1, err := f.New(42, 7, false)
	require.NoError(t, err)
	s2, err := f.New(42, 7, false)
	require.NoError(t, err)

	assert.Equal(t, s1.SoldierID, s2.SoldierID)
	assert.Equal(t, len(s1.States), len(s2.States))
	for i := range s1.States {
		assert.Equal(t, s1.States[i].Post, s2.States[i].Post)
	}
}

func TestNew_StatesAreDistinctAndValid(t *testing.T) {
	h := testHierarchy(t)
	f := NewFactory(h, DefaultTargets())

	for seed := int64(0); seed < 200; seed++ {
		s, err := f.New(seed, 0, false)
		require.NoError(t, err)

		seen := map[string]bool{}
		for _, st := range s.States {
			key := st.Post.Branch
			for _, d := range st.Post.Path {
				key += "|" + d.Level + "=" + d.Value
			}
			assert.False(t, seen[key], "duplicate post within soldier")
			seen[key] = true

			b := h.Branches[st.Post.Branch]
			require.Len(t, st.Post.Path, b.Depth)
			for _, d := range st.Post.Path {
				assert.True(t, b.IsValidDesignator(d.Level, d.Value))
			}
		}
	}
}

func TestNew_StateCountHistogram(t *testing.T) {
	h := testHierarchy(t)
	f := NewFactory(h, DefaultTargets())

	counts := map[int]int{}
	const n = 5000
	for i := 0; i < n; i++ {
		s, err := f.New(int64(i), 0, false)
		require.NoError(t, err)
		counts[len(s.States)]++
	}

	pct1 := float64(counts[1]) / n * 100
	pct2 := float64(counts[2]) / n * 100
	pct3 := float64(counts[3]) / n * 100

	assert.InDelta(t, 65, pct1, 3)
	assert.InDelta(t, 28, pct2, 3)
	assert.InDelta(t, 7, pct3, 3)
}

func TestNew_CrossBranchTransitionsAreRare(t *testing.T) {
	h := testHierarchy(t)
	f := NewFactory(h, DefaultTargets())

	var crossBranch, totalTransitions int
	for i := 0; i < 5000; i++ {
		s, err := f.New(int64(i), 1, false)
		require.NoError(t, err)
		for _, st := range s.States {
			if st.Transition == "" {
				continue
			}
			totalTransitions++
			if st.Transition == CrossBranch {
				crossBranch++
			}
		}
	}

	require.Greater(t, totalTransitions, 0)
	frac := float64(crossBranch) / float64(totalTransitions)
	assert.LessOrEqual(t, frac, 0.07)
}

func TestNew_CollisionBiasLandsOnCollidingPost(t *testing.T) {
	h := testHierarchy(t)
	f := NewFactory(h, DefaultTargets())

	hit := 0
	const n = 100
	for i := 0; i < n; i++ {
		s, err := f.New(int64(i)+1000, 0, true)
		require.NoError(t, err)
		if f.postCollides(s.States[0].Post) {
			hit++
		}
	}
	assert.Greater(t, hit, n/2)
}

func TestNew_WithinLowestUnitOnlyChangesDeepest(t *testing.T) {
	h := testHierarchy(t)
	f := NewFactory(h, DefaultTargets())

	targets := DefaultTargets()
	targets.TransitionWeights = [4]float64{1, 0, 0, 0}
	targets.StateCountWeights = [3]float64{0, 1, 0}
	f.Targets = targets

	for i := 0; i < 50; i++ {
		s, err := f.New(int64(i), 2, false)
		require.NoError(t, err)
		require.Len(t, s.States, 2)
		first, second := s.States[0].Post, s.States[1].Post
		assert.Equal(t, first.Branch, second.Branch)
		for i := 0; i < len(first.Path)-1; i++ {
			assert.Equal(t, first.Path[i], second.Path[i])
		}
		assert.NotEqual(t, first.Path[len(first.Path)-1], second.Path[len(second.Path)-1])
	}
}
