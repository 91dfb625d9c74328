package difficulty

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assessment(id string, tier Tier, complementarity float64) Assessment {
	return Assessment{
		SoldierID:            id,
		CollisionPosition:    tier != Easy,
		ComplementarityScore: complementarity,
		Tier:                 tier,
	}
}

func TestRebalancer_SatisfiedWhenWithinTolerance(t *testing.T) {
	var assessments []Assessment
	for i := 0; i < 40; i++ {
		assessments = append(assessments, assessment("e", Easy, 0))
	}
	for i := 0; i < 30; i++ {
		assessments = append(assessments, assessment("m", Moderate, 0.75))
	}
	for i := 0; i < 20; i++ {
		assessments = append(assessments, assessment("h", Hard, 0.5))
	}
	for i := 0; i < 10; i++ {
		assessments = append(assessments, assessment("x", Extreme, 0.1))
	}

	r := NewRebalancer(DefaultTierTargets(), 0.05, 5)
	plan, err := r.Plan(assessments, 0)
	require.NoError(t, err)
	assert.True(t, plan.Satisfied)
}

func TestRebalancer_SelectsRobustSurplus(t *testing.T) {
	var assessments []Assessment
	for i := 0; i < 90; i++ {
		assessments = append(assessments, assessment("e", Easy, 0))
	}
	for i := 0; i < 10; i++ {
		assessments = append(assessments, assessment("x", Extreme, 0.05))
	}

	r := NewRebalancer(DefaultTierTargets(), 0.02, 5)
	plan, err := r.Plan(assessments, 0)
	require.NoError(t, err)
	assert.False(t, plan.Satisfied)
	assert.NotEmpty(t, plan.Regenerate)
}

func TestRebalancer_ExceedsMaxPasses(t *testing.T) {
	r := NewRebalancer(DefaultTierTargets(), 0.0, 2)
	_, err := r.Plan([]Assessment{assessment("e", Easy, 0)}, 2)
	assert.Error(t, err)
}
