package strategies

import (
	"context"
	"fmt"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

// RightsizingConfig tunes the rightsizing strategy.
type RightsizingConfig struct {
	// UtilizationThreshold is the ceiling below which every observed
	// period must fall for a resource to count as overprovisioned.
	UtilizationThreshold float64 `yaml:"utilizationThreshold"`
	// MinSamplePeriods is the minimum number of observed periods with a
	// utilization reading. Fewer samples yield no recommendation at all.
	MinSamplePeriods int `yaml:"minSamplePeriods"`
	// FullConfidenceSamples is the sample count at which confidence
	// reaches 1.0.
	FullConfidenceSamples int `yaml:"fullConfidenceSamples"`
	// TierCostRatio approximates the price of the next-smaller instance
	// tier relative to the current one when no explicit pricing exists.
	TierCostRatio float64 `yaml:"tierCostRatio"`
}

// DefaultRightsizingConfig returns the thresholds used when configuration
// leaves them unset.
func DefaultRightsizingConfig() RightsizingConfig {
	return RightsizingConfig{
		UtilizationThreshold:  0.2,
		MinSamplePeriods:      2,
		FullConfidenceSamples: 5,
		TierCostRatio:         0.5,
	}
}

// Rightsizing flags resources whose utilization stays below the threshold
// across the whole observed window and proposes stepping down one instance
// tier. Savings are the tier-step delta scaled by the utilization headroom.
type Rightsizing struct {
	cfg RightsizingConfig
}

// NewRightsizing builds the strategy, filling unset config fields with
// defaults.
func NewRightsizing(cfg RightsizingConfig) *Rightsizing {
	def := DefaultRightsizingConfig()
	if cfg.UtilizationThreshold <= 0 {
		cfg.UtilizationThreshold = def.UtilizationThreshold
	}
	if cfg.MinSamplePeriods <= 0 {
		cfg.MinSamplePeriods = def.MinSamplePeriods
	}
	if cfg.FullConfidenceSamples <= 0 {
		cfg.FullConfidenceSamples = def.FullConfidenceSamples
	}
	if cfg.TierCostRatio <= 0 || cfg.TierCostRatio >= 1 {
		cfg.TierCostRatio = def.TierCostRatio
	}
	return &Rightsizing{cfg: cfg}
}

func (s *Rightsizing) Name() string { return "rightsizing" }

func (s *Rightsizing) CrossProvider() bool { return false }

// Evaluate scans each resource series for sustained low utilization.
func (s *Rightsizing) Evaluate(ctx context.Context, input *cost.EvalInput) ([]cost.Recommendation, error) {
	var recs []cost.Recommendation

	for _, series := range buildSeries(input) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		samples := series.utilizationSamples()
		if len(samples) < s.cfg.MinSamplePeriods {
			// Insufficient data beats a low-confidence guess.
			continue
		}

		sustained := true
		var sum float64
		for _, u := range samples {
			if u >= s.cfg.UtilizationThreshold {
				sustained = false
				break
			}
			sum += u
		}
		if !sustained {
			continue
		}
		avgUtil := sum / float64(len(samples))

		monthly := series.monthlyCost()
		smaller, ratio := nextSmallerTier(series.instanceType, s.cfg.TierCostRatio)
		headroom := 1 - avgUtil
		savings := monthly.Sub(monthly.MulFloat(ratio)).MulFloat(headroom)
		if !savings.IsZero() && savings.IsNegative() {
			continue
		}

		action := "Rightsize to a smaller instance tier"
		if smaller != "" {
			action = fmt.Sprintf("Rightsize %s to %s", series.instanceType, smaller)
		}

		confidence := sampleConfidence(len(samples), s.cfg.FullConfidenceSamples)
		recs = append(recs, cost.NewRecommendation(
			series.provider, series.resourceID, action,
			savings, confidence, s.Name(), series.evidence,
		))
	}

	return recs, nil
}

// nextSmallerTier maps an instance type to the next tier down and the cost
// ratio of that step. Unknown types fall back to the configured ratio with
// no named target.
func nextSmallerTier(instanceType string, fallbackRatio float64) (string, float64) {
	downsize := map[string]string{
		// AWS
		"t3.large":    "t3.medium",
		"t3.medium":   "t3.small",
		"t3.small":    "t3.micro",
		"m5.2xlarge":  "m5.xlarge",
		"m5.xlarge":   "m5.large",
		"c5.xlarge":   "c5.large",
		"r5.xlarge":   "r5.large",
		"r5d.2xlarge": "r5d.xlarge",
		"i3.xlarge":   "i3.large",
		// Azure
		"Standard_D4s_v3": "Standard_D2s_v3",
		"Standard_D8s_v3": "Standard_D4s_v3",
		"Standard_E4s_v3": "Standard_E2s_v3",
		// GCP
		"n1-standard-4": "n1-standard-2",
		"n1-standard-8": "n1-standard-4",
		"n2-standard-4": "n2-standard-2",
	}
	if smaller, ok := downsize[instanceType]; ok {
		// Tier steps in these families halve capacity and roughly
		// halve price.
		return smaller, 0.5
	}
	return "", fallbackRatio
}
