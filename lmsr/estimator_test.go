package lmsr_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credencemarkets/credence/lmsr"
	"github.com/credencemarkets/credence/types"
)

func TestEstimatorTracksExactCurve(t *testing.T) {
	est := lmsr.NewEstimator(referenceLiquidity)
	require.InDelta(t, 1000.0, est.B, 1e-9)

	// The float estimate should sit within float64 noise of the exact value.
	got := est.Price(1000, 0, types.SideTrust)
	assert.InDelta(t, 0.7310585786300049, got, 1e-12)

	assert.InDelta(t, 0.5, est.Price(250, 250, types.SideTrust), 1e-12)
	assert.InDelta(t, 1.0,
		est.Price(100, 40, types.SideTrust)+est.Price(100, 40, types.SideDistrust), 1e-12)
}

func TestEstimatorCost(t *testing.T) {
	est := lmsr.Estimator{B: 1000}

	buy := est.Cost(100, 40, 50, types.SideTrust)
	assert.Greater(t, buy, 0.0)
	sell := est.Cost(100, 40, -50, types.SideTrust)
	assert.Less(t, sell, 0.0)
	// Cost stays finite at large counts thanks to the log-sum-exp trick.
	assert.False(t, math.IsInf(est.Cost(1e6, 0, 10, types.SideTrust), 0))
}

func TestEstimatorVotesForBudget(t *testing.T) {
	est := lmsr.Estimator{B: 1000}

	votes := est.VotesForBudget(0, 0, 100, types.SideTrust)
	assert.Greater(t, votes, 0.0)
	// Inverting then pricing should recover the budget.
	assert.InDelta(t, 100, est.Cost(0, 0, votes, types.SideTrust), 1e-6)

	assert.Equal(t, 0.0, est.VotesForBudget(0, 0, 0, types.SideTrust))
	assert.Equal(t, 0.0, est.VotesForBudget(0, 0, -5, types.SideTrust))
}

func TestEstimatorVotesForBudgetBehindTheMarket(t *testing.T) {
	est := lmsr.Estimator{B: 1000}

	// Buying the side far behind is cheap, so a small budget buys many
	// votes; the bisection bracket has to reach well past the budget itself.
	votes := est.VotesForBudget(0, 5000, 10, types.SideTrust)
	assert.Greater(t, votes, 900.0)
	assert.InDelta(t, 10, est.Cost(0, 5000, votes, types.SideTrust), 1e-6)
}
