package dynamics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swarmdyn/internal/store"
)

func TestEstimatePotential_TwoStateDetailedBalance(t *testing.T) {
	counts := []store.TransitionCount{
		{From: "t1-a", To: "t1-b", Count: 100},
		{From: "t1-b", To: "t1-a", Count: 25},
	}

	result := EstimatePotential(counts, []string{"t1-a", "t1-b"}, DefaultEstimatorOptions())

	require.Equal(t, 1, result.Fit.EdgesUsed)

	// Detailed balance pins V(b)-V(a) to the smoothed log-ratio.
	want := -math.Log(101.0 / 26.0)
	got := result.V["t1-b"] - result.V["t1-a"]
	assert.InEpsilon(t, want, got, 0.10)

	// Anchor is the state with the larger outgoing count.
	assert.Zero(t, result.V["t1-a"])
}

func TestEstimatePotential_DegenerateInputs(t *testing.T) {
	t.Run("no states", func(t *testing.T) {
		result := EstimatePotential(nil, nil, DefaultEstimatorOptions())
		assert.Empty(t, result.V)
		assert.Zero(t, result.Fit.EdgesUsed)
		assert.Zero(t, result.Fit.RMSELogRatio)
	})

	t.Run("no reversible edges", func(t *testing.T) {
		counts := []store.TransitionCount{
			{From: "t1-a", To: "t1-b", Count: 50},
			{From: "t1-b", To: "t1-c", Count: 10},
		}
		result := EstimatePotential(counts, []string{"t1-a", "t1-b", "t1-c"}, DefaultEstimatorOptions())
		assert.Zero(t, result.Fit.EdgesUsed)
		for id, v := range result.V {
			assert.Zero(t, v, "state %s defaults to 0", id)
		}
	})
}

func TestEstimatePotential_SelfLoopsDropped(t *testing.T) {
	counts := []store.TransitionCount{
		{From: "t1-a", To: "t1-a", Count: 500},
		{From: "t1-a", To: "t1-b", Count: 10},
		{From: "t1-b", To: "t1-a", Count: 10},
	}
	result := EstimatePotential(counts, nil, DefaultEstimatorOptions())
	assert.Equal(t, 1, result.Fit.EdgesUsed)
	// Symmetric counts mean a flat landscape.
	assert.InDelta(t, 0.0, result.V["t1-b"]-result.V["t1-a"], 1e-3)
}

func TestEstimatePotential_UntouchedStateGetsGlobalRMSE(t *testing.T) {
	counts := []store.TransitionCount{
		{From: "t1-a", To: "t1-b", Count: 100},
		{From: "t1-b", To: "t1-a", Count: 25},
	}
	result := EstimatePotential(counts, []string{"t1-a", "t1-b", "t1-z"}, DefaultEstimatorOptions())

	require.Contains(t, result.V, "t1-z")
	assert.Zero(t, result.V["t1-z"])
	assert.Equal(t, result.Fit.RMSELogRatio, result.Stderr["t1-z"])
}

func TestEstimatePotential_AnchorTieBreaksToSmallestID(t *testing.T) {
	// Both states have equal outgoing totals; the lexicographically smaller
	// id must hold the gauge.
	counts := []store.TransitionCount{
		{From: "t1-a", To: "t1-b", Count: 40},
		{From: "t1-b", To: "t1-a", Count: 40},
	}
	result := EstimatePotential(counts, nil, DefaultEstimatorOptions())
	assert.Zero(t, result.V["t1-a"])
}

func TestEstimatePotential_ThreeStateChainConsistent(t *testing.T) {
	// a <-> b <-> c with consistent ratios: V differences should compose.
	counts := []store.TransitionCount{
		{From: "t1-a", To: "t1-b", Count: 90},
		{From: "t1-b", To: "t1-a", Count: 30},
		{From: "t1-b", To: "t1-c", Count: 60},
		{From: "t1-c", To: "t1-b", Count: 20},
	}
	opts := DefaultEstimatorOptions()
	result := EstimatePotential(counts, nil, opts)

	require.Equal(t, 2, result.Fit.EdgesUsed)
	dAB := result.V["t1-b"] - result.V["t1-a"]
	dBC := result.V["t1-c"] - result.V["t1-b"]
	assert.InEpsilon(t, -math.Log(91.0/31.0), dAB, 0.10)
	assert.InEpsilon(t, -math.Log(61.0/21.0), dBC, 0.10)
	assert.Less(t, result.Fit.RMSELogRatio, 0.05)
}
