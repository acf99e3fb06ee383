package strategies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

func TestCommitmentFlagsSteadyUsage(t *testing.T) {
	input := &cost.EvalInput{
		Provider: cost.ProviderAWS,
		Records: []cost.CostRecord{
			dailyRecord(t, "i-steady", "12", 1, nil),
			dailyRecord(t, "i-steady", "12", 2, nil),
			dailyRecord(t, "i-steady", "12", 3, nil),
		},
	}

	s := NewCommitment(CommitmentConfig{CommittedDiscount: 0.3, FullConfidenceSamples: 6})
	recs, err := s.Evaluate(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, "Cover steady AmazonEC2 usage with committed pricing", rec.Action)
	// Perfectly flat series: cv = 0, confidence = 3/6.
	assert.InDelta(t, 0.5, rec.Confidence, 1e-9)
	// 30% of the projected monthly bill: 36 USD over 72h.
	assert.InDelta(t, 36*hoursPerMonth/72*0.3, rec.MonthlySavings.Float64(), 0.01)
}

func TestCommitmentIgnoresVolatileUsage(t *testing.T) {
	input := &cost.EvalInput{
		Provider: cost.ProviderAWS,
		Records: []cost.CostRecord{
			dailyRecord(t, "i-spiky", "2", 1, nil),
			dailyRecord(t, "i-spiky", "40", 2, nil),
			dailyRecord(t, "i-spiky", "5", 3, nil),
		},
	}

	s := NewCommitment(CommitmentConfig{MaxVariation: 0.15})
	recs, err := s.Evaluate(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCommitmentNeedsMinimumPeriods(t *testing.T) {
	input := &cost.EvalInput{
		Provider: cost.ProviderAWS,
		Records: []cost.CostRecord{
			dailyRecord(t, "i-young", "12", 1, nil),
			dailyRecord(t, "i-young", "12", 2, nil),
		},
	}

	s := NewCommitment(CommitmentConfig{MinSamplePeriods: 3})
	recs, err := s.Evaluate(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCostVariation(t *testing.T) {
	flat := []cost.CostRecord{
		dailyRecord(t, "r", "10", 1, nil),
		dailyRecord(t, "r", "10", 2, nil),
	}
	cv, ok := costVariation(flat)
	require.True(t, ok)
	assert.InDelta(t, 0, cv, 1e-9)

	_, ok = costVariation(flat[:1])
	assert.False(t, ok, "one period cannot establish variation")
}
