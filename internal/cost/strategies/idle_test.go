package strategies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

func usageRecord(t *testing.T, resourceID, amount string, usage float64, d int) cost.CostRecord {
	t.Helper()
	rec := dailyRecord(t, resourceID, amount, d, nil)
	rec.UsageQuantity = usage
	return rec
}

func TestIdleFlagsExactlyZeroUsage(t *testing.T) {
	input := &cost.EvalInput{
		Provider: cost.ProviderAWS,
		Records: []cost.CostRecord{
			usageRecord(t, "vol-abandoned", "2", 0, 1),
			usageRecord(t, "vol-abandoned", "2", 0, 2),
			usageRecord(t, "vol-abandoned", "2", 0, 3),
		},
	}

	s := NewIdle(IdleConfig{})
	recs, err := s.Evaluate(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, "Terminate idle AmazonEC2 resource", rec.Action)
	assert.InDelta(t, 0.95, rec.Confidence, 1e-9)
	// The full monthly bill is recoverable: 6 USD over 72h -> 730h.
	assert.InDelta(t, 6*hoursPerMonth/72, rec.MonthlySavings.Float64(), 0.01)
}

func TestIdleNearZeroGetsLowerConfidence(t *testing.T) {
	input := &cost.EvalInput{
		Provider: cost.ProviderAWS,
		Records: []cost.CostRecord{
			usageRecord(t, "i-trickle", "2", 0.0005, 1),
			usageRecord(t, "i-trickle", "2", 0, 2),
		},
	}

	s := NewIdle(IdleConfig{UsageEpsilon: 0.001})
	recs, err := s.Evaluate(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.InDelta(t, 0.7, recs[0].Confidence, 1e-9)
}

func TestIdleIgnoresActiveResources(t *testing.T) {
	input := &cost.EvalInput{
		Provider: cost.ProviderAWS,
		Records: []cost.CostRecord{
			usageRecord(t, "i-busy", "2", 24, 1),
			usageRecord(t, "i-busy", "2", 0, 2),
		},
	}

	s := NewIdle(IdleConfig{})
	recs, err := s.Evaluate(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestIdleNeedsMinimumPeriods(t *testing.T) {
	input := &cost.EvalInput{
		Provider: cost.ProviderAWS,
		Records:  []cost.CostRecord{usageRecord(t, "vol-new", "2", 0, 1)},
	}

	s := NewIdle(IdleConfig{MinSamplePeriods: 2})
	recs, err := s.Evaluate(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestIdleSkipsFreeResources(t *testing.T) {
	input := &cost.EvalInput{
		Provider: cost.ProviderAWS,
		Records: []cost.CostRecord{
			usageRecord(t, "free-tier", "0", 0, 1),
			usageRecord(t, "free-tier", "0", 0, 2),
		},
	}

	s := NewIdle(IdleConfig{})
	recs, err := s.Evaluate(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, recs, "zero savings is not worth a recommendation")
}
