package strategies

import (
	"context"
	"fmt"
	"math"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

// CommitmentConfig tunes the commitment/reservation strategy.
type CommitmentConfig struct {
	// MaxVariation is the highest coefficient of variation of per-period
	// cost still counted as steady-state.
	MaxVariation float64 `yaml:"maxVariation"`
	// MinSamplePeriods is the minimum number of billing periods needed
	// to call a usage pattern steady.
	MinSamplePeriods int `yaml:"minSamplePeriods"`
	// CommittedDiscount is the discount of reserved/committed pricing
	// relative to on-demand.
	CommittedDiscount float64 `yaml:"committedDiscount"`
	// FullConfidenceSamples is the sample count at which the size factor
	// of confidence reaches its maximum.
	FullConfidenceSamples int `yaml:"fullConfidenceSamples"`
}

// DefaultCommitmentConfig returns the thresholds used when configuration
// leaves them unset.
func DefaultCommitmentConfig() CommitmentConfig {
	return CommitmentConfig{
		MaxVariation:          0.15,
		MinSamplePeriods:      3,
		CommittedDiscount:     0.3,
		FullConfidenceSamples: 6,
	}
}

// Commitment flags steady-state usage eligible for reserved or committed
// pricing. Savings are the on-demand versus committed rate delta projected
// over the steady monthly usage.
type Commitment struct {
	cfg CommitmentConfig
}

// NewCommitment builds the strategy, filling unset config fields with
// defaults.
func NewCommitment(cfg CommitmentConfig) *Commitment {
	def := DefaultCommitmentConfig()
	if cfg.MaxVariation <= 0 {
		cfg.MaxVariation = def.MaxVariation
	}
	if cfg.MinSamplePeriods <= 0 {
		cfg.MinSamplePeriods = def.MinSamplePeriods
	}
	if cfg.CommittedDiscount <= 0 || cfg.CommittedDiscount >= 1 {
		cfg.CommittedDiscount = def.CommittedDiscount
	}
	if cfg.FullConfidenceSamples <= 0 {
		cfg.FullConfidenceSamples = def.FullConfidenceSamples
	}
	return &Commitment{cfg: cfg}
}

func (s *Commitment) Name() string { return "commitment" }

func (s *Commitment) CrossProvider() bool { return false }

// Evaluate looks for flat cost series worth covering with a commitment.
func (s *Commitment) Evaluate(ctx context.Context, input *cost.EvalInput) ([]cost.Recommendation, error) {
	var recs []cost.Recommendation

	for _, series := range buildSeries(input) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if len(series.records) < s.cfg.MinSamplePeriods {
			continue
		}

		cv, ok := costVariation(series.records)
		if !ok || cv > s.cfg.MaxVariation {
			continue
		}

		savings := series.monthlyCost().MulFloat(s.cfg.CommittedDiscount)
		if savings.IsZero() {
			continue
		}

		// Steadier series and longer windows both raise confidence.
		confidence := sampleConfidence(len(series.records), s.cfg.FullConfidenceSamples) * (1 - cv)

		action := fmt.Sprintf("Cover steady %s usage with committed pricing", series.service)
		recs = append(recs, cost.NewRecommendation(
			series.provider, series.resourceID, action,
			savings, confidence, s.Name(), series.evidence,
		))
	}

	return recs, nil
}

// costVariation computes the coefficient of variation of per-period cost,
// each period normalized to an hourly rate so uneven period lengths do not
// masquerade as volatility.
func costVariation(records []cost.CostRecord) (float64, bool) {
	rates := make([]float64, 0, len(records))
	for _, rec := range records {
		hours := rec.PeriodHours()
		if hours <= 0 {
			continue
		}
		rates = append(rates, rec.Amount.Float64()/hours)
	}
	if len(rates) < 2 {
		return 0, false
	}

	var sum float64
	for _, r := range rates {
		sum += r
	}
	mean := sum / float64(len(rates))
	if mean <= 0 {
		return 0, false
	}

	var sq float64
	for _, r := range rates {
		sq += (r - mean) * (r - mean)
	}
	stddev := math.Sqrt(sq / float64(len(rates)))

	return stddev / mean, true
}
