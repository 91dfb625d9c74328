package orchestrator

import (
	"testing"

	"github.com/rgonzalez12/posthist/internal/clerk"
	"github.com/rgonzalez12/posthist/internal/config"
	"github.com/rgonzalez12/posthist/internal/generrors"
	"github.com/rgonzalez12/posthist/internal/hierarchy"
	"github.com/rgonzalez12/posthist/internal/situation"
	"github.com/rgonzalez12/posthist/internal/soldier"
	"github.com/rgonzalez12/posthist/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHierarchy(t *testing.T) *hierarchy.Hierarchy {
	t.Helper()
	h, err := hierarchy.Build(map[string]*hierarchy.Branch{
		"army": {
			Name:   "army",
			Depth:  3,
			Levels: []string{"Sector", "Regiment", "Company"},
			ValidDesignators: map[string][]string{
				"Sector":   {"1", "2"},
				"Regiment": {"A", "B"},
				"Company":  {"x", "y"},
			},
		},
		"navy": {
			Name:   "navy",
			Depth:  3,
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

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	reg, err := clerk.NewRegistry(clerk.BuiltinCatalog())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.SoldierCount = 12
	cfg.SourceCount = 6
	cfg.CollisionCoverageTarget = 0.3
	cfg.AssignerMeanRecordsPerSoldier = 3
	cfg.AssignerMinSourceSize = 1
	cfg.AssignerMaxSourceSize = 4
	cfg.EnableRebalancer = false

	return &Pipeline{Config: cfg, Hierarchy: testHierarchy(t), Clerks: reg, Situations: testSituations(t)}
}

func TestRun_ProducesRecordsAndAssessments(t *testing.T) {
	p := testPipeline(t)

	records, soldiers, sources, assessments, summary, err := p.Run(7)
	require.NoError(t, err)

	assert.Len(t, soldiers, 12)
	assert.Len(t, sources, 6)
	assert.NotEmpty(t, records)
	assert.Len(t, assessments, len(soldiers))
	assert.Equal(t, len(soldiers), summary.SoldierCount)
	assert.Equal(t, len(sources), summary.SourceCount)
	assert.Equal(t, len(records), summary.RecordCount)
}

func TestRun_DeterministicForSameRootSeed(t *testing.T) {
	p := testPipeline(t)

	recordsA, _, _, assessmentsA, _, err := p.Run(11)
	require.NoError(t, err)
	recordsB, _, _, assessmentsB, _, err := p.Run(11)
	require.NoError(t, err)

	require.Equal(t, len(recordsA), len(recordsB))
	for i := range recordsA {
		assert.Equal(t, recordsA[i], recordsB[i])
	}
	require.Equal(t, len(assessmentsA), len(assessmentsB))
	for i := range assessmentsA {
		assert.Equal(t, assessmentsA[i].Tier, assessmentsB[i].Tier)
	}
}

func TestRun_RebalancerSatisfiesLoosetolerance(t *testing.T) {
	p := testPipeline(t)
	p.Config.EnableRebalancer = true
	p.Config.RebalanceMaxPasses = 3
	p.Config.RebalanceTolerance = 0.9 // 10 of 12 soldiers: every tier mix but all-extreme is within tolerance
	p.Config.TierEasy = 0.4
	p.Config.TierModerate = 0.3
	p.Config.TierHard = 0.2
	p.Config.TierExtreme = 0.1

	_, _, _, _, summary, err := p.Run(21)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.RebalancePasses)
}

// TestRun_RebalancerWithRealisticToleranceKeepsRecordsConsistent exercises
// the rebalancer with a tolerance tight enough to actually force a
// regenerate-and-re-render pass, rather than the loose tolerance above
// under which no soldier is ever regenerated. Per spec.md §8 scenario 6,
// a tight tolerance legitimately may exhaust its pass budget and fail with
// InfeasibleTargets instead of converging; either outcome is acceptable,
// but whenever Run succeeds, every record must still resolve against the
// final soldier roster it returns, not a pre-rebalance one.
func TestRun_RebalancerWithRealisticToleranceKeepsRecordsConsistent(t *testing.T) {
	p := testPipeline(t)
	p.Config.EnableRebalancer = true
	p.Config.RebalanceMaxPasses = 5
	p.Config.RebalanceTolerance = 0.1
	p.Config.TierEasy = 0.4
	p.Config.TierModerate = 0.3
	p.Config.TierHard = 0.2
	p.Config.TierExtreme = 0.1

	records, soldiers, _, assessments, summary, err := p.Run(21)
	if err != nil {
		var genErr *generrors.GenError
		require.ErrorAs(t, err, &genErr)
		require.Equal(t, generrors.InfeasibleTargets, genErr.Kind)
		return
	}

	assert.Greater(t, summary.RebalancePasses, 0, "tolerance 0.1 against tier targets 0.4/0.3/0.2/0.1 should not already be satisfied on pass 0")
	assert.Len(t, assessments, len(soldiers))

	knownSoldiers := make(map[string]*soldier.Soldier, len(soldiers))
	for _, s := range soldiers {
		knownSoldiers[s.SoldierID] = s
	}
	for _, r := range records {
		sol, ok := knownSoldiers[r.SoldierID]
		require.Truef(t, ok, "record references soldier %s, which is absent from the final roster", r.SoldierID)
		_, ok = findState(sol, r.StateID)
		assert.Truef(t, ok, "record's state_id %s does not belong to soldier %s's final state list", r.StateID, r.SoldierID)
	}
}

// TestRebalance_RegeneratePreservesIdentityAndRecordConsistency drives the
// rebalancer's own regenerate-then-re-render mechanics directly, so the
// invariant it must uphold - every record.soldier_id/state_id still names
// a real entry in the final soldier roster - is checked deterministically
// rather than depending on the stochastic rebalance loop actually
// converging.
func TestRebalance_RegeneratePreservesIdentityAndRecordConsistency(t *testing.T) {
	p := testPipeline(t)
	rootSeed := int64(21)

	clerkInstances := p.instantiateClerks(rootSeed)
	clerksByID := make(map[string]*clerk.Instance, len(clerkInstances))
	for _, inst := range clerkInstances {
		clerksByID[inst.ClerkID] = inst
	}

	soldierFactory := soldier.NewFactory(p.Hierarchy, p.soldierTargets())
	soldiers := p.buildSoldiers(soldierFactory, rootSeed, p.Config.SoldierCount)
	require.NotEmpty(t, soldiers)

	sourceFactory := source.NewFactory(p.Hierarchy, clerkInstances, p.Situations, source.DefaultTargets())
	sources, err := p.buildSources(sourceFactory, rootSeed, p.Config.SourceCount)
	require.NoError(t, err)

	assigner := source.NewAssigner(source.AssignerTargets{
		MeanRecordsPerSoldier: p.Config.AssignerMeanRecordsPerSoldier,
		MinSourceSize:         p.Config.AssignerMinSourceSize,
		MaxSourceSize:         p.Config.AssignerMaxSourceSize,
		MaxDrawRetries:        64,
	})
	pairings, err := assigner.Assign(rootSeed, soldiers, sources)
	require.NoError(t, err)

	_, _, err = p.render(rootSeed, clerksByID, soldiers, sources, pairings)
	require.NoError(t, err)

	// Regenerate one soldier in place, exactly as a rebalancer pass does,
	// then re-render: the old state ids this soldier minted must be gone
	// from the final record set, replaced by the regenerated ones, with
	// the soldier_id itself unchanged.
	target := soldiers[0].SoldierID
	staleStateIDs := make(map[string]bool, len(soldiers[0].States))
	for _, st := range soldiers[0].States {
		staleStateIDs[st.StateID] = true
	}

	regenerated, err := soldierFactory.Regenerate(rootSeed, target, 0, 1, false)
	require.NoError(t, err)
	assert.Equal(t, target, regenerated.SoldierID)
	soldiers[0] = regenerated

	newPairings, err := assigner.Assign(rootSeed, soldiers, sources)
	require.NoError(t, err)
	records, _, err := p.render(rootSeed, clerksByID, soldiers, sources, newPairings)
	require.NoError(t, err)

	knownSoldiers := make(map[string]*soldier.Soldier, len(soldiers))
	for _, s := range soldiers {
		knownSoldiers[s.SoldierID] = s
	}

	for _, r := range records {
		sol, ok := knownSoldiers[r.SoldierID]
		require.Truef(t, ok, "record references unknown soldier %s", r.SoldierID)
		_, ok = findState(sol, r.StateID)
		assert.Truef(t, ok, "record's state_id %s does not belong to soldier %s", r.StateID, r.SoldierID)

		if r.SoldierID == target {
			assert.Falsef(t, staleStateIDs[r.StateID], "record still names a state_id %s from before regeneration", r.StateID)
		}
	}
}
