package strategies

import (
	"context"
	"fmt"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

// IdleConfig tunes the idle-resource strategy.
type IdleConfig struct {
	// UsageEpsilon is the per-period usage quantity under which a
	// resource counts as near-zero. Exactly zero across the window gets
	// the high-confidence treatment.
	UsageEpsilon float64 `yaml:"usageEpsilon"`
	// MinSamplePeriods is the minimum number of observed billing
	// periods before the strategy will speak up.
	MinSamplePeriods int `yaml:"minSamplePeriods"`
}

// DefaultIdleConfig returns the thresholds used when configuration leaves
// them unset.
func DefaultIdleConfig() IdleConfig {
	return IdleConfig{
		UsageEpsilon:     0.001,
		MinSamplePeriods: 2,
	}
}

// Idle flags resources with near-zero usage quantity over the full
// analysis window. A resource that is exactly zero the whole time is
// almost certainly abandoned, so confidence is pinned high.
type Idle struct {
	cfg IdleConfig
}

// NewIdle builds the strategy, filling unset config fields with defaults.
func NewIdle(cfg IdleConfig) *Idle {
	def := DefaultIdleConfig()
	if cfg.UsageEpsilon <= 0 {
		cfg.UsageEpsilon = def.UsageEpsilon
	}
	if cfg.MinSamplePeriods <= 0 {
		cfg.MinSamplePeriods = def.MinSamplePeriods
	}
	return &Idle{cfg: cfg}
}

func (s *Idle) Name() string { return "idle-resources" }

func (s *Idle) CrossProvider() bool { return false }

// Evaluate proposes terminating resources that billed but did nothing.
func (s *Idle) Evaluate(ctx context.Context, input *cost.EvalInput) ([]cost.Recommendation, error) {
	var recs []cost.Recommendation

	for _, series := range buildSeries(input) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if len(series.records) < s.cfg.MinSamplePeriods {
			continue
		}

		exactlyZero := true
		nearZero := true
		for _, rec := range series.records {
			if rec.UsageQuantity != 0 {
				exactlyZero = false
			}
			if rec.UsageQuantity > s.cfg.UsageEpsilon {
				nearZero = false
				break
			}
		}
		if !nearZero {
			continue
		}

		// An idle resource's whole bill is recoverable.
		savings := series.monthlyCost()
		if savings.IsZero() {
			continue
		}

		confidence := 0.95
		if !exactlyZero {
			confidence = 0.7
		}

		action := fmt.Sprintf("Terminate idle %s resource", series.service)
		recs = append(recs, cost.NewRecommendation(
			series.provider, series.resourceID, action,
			savings, confidence, s.Name(), series.evidence,
		))
	}

	return recs, nil
}
