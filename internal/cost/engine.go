package cost

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Strategy is a pluggable optimization algorithm. Implementations must be
// pure with respect to their inputs: no shared mutable state across
// invocations, so the engine may evaluate them concurrently.
type Strategy interface {
	// Name identifies the strategy in registries, logs and merged output.
	Name() string

	// CrossProvider reports whether the strategy wants one call with all
	// records instead of one call per provider partition.
	CrossProvider() bool

	// Evaluate inspects canonical records and proposes recommendations.
	// A returned error is wrapped in StrategyError and skips only this
	// strategy's contribution.
	Evaluate(ctx context.Context, input *EvalInput) ([]Recommendation, error)
}

// EvalInput carries one partition of normalized records into a strategy.
// Provider is empty for cross-provider evaluations.
type EvalInput struct {
	Provider   Provider
	Records    []CostRecord
	JobHistory []JobHistoryRecord
}

// Engine runs one full analysis cycle: partition, evaluate, merge, rank.
// It holds no state across runs and performs no I/O of its own; invoking
// it repeatedly with fresh inputs is safe.
type Engine struct {
	// Currency is the reporting currency the inputs were normalized to.
	Currency string
	// Timeout bounds the whole evaluation phase. Zero means no deadline.
	// A timed-out strategy is treated as failed; its partial results are
	// discarded, never partially merged.
	Timeout time.Duration
	// MaxConcurrency caps parallel (partition, strategy) evaluations.
	// Zero means one goroutine per pair.
	MaxConcurrency int
}

// NewEngine returns an engine reporting in the given currency.
func NewEngine(currency string) *Engine {
	return &Engine{Currency: currency}
}

// Run executes every strategy against the provider-partitioned records and
// returns the merged, ranked recommendation set. An empty strategy list is
// a ConfigurationError; individual strategy failures are warnings.
func (e *Engine) Run(ctx context.Context, records []CostRecord, jobHistory []JobHistoryRecord, strategies []Strategy) (*RecommendationSet, error) {
	if len(strategies) == 0 {
		return nil, &ConfigurationError{Reason: "no strategies active"}
	}

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	partitions := partitionRecords(records, jobHistory)

	type evaluation struct {
		strategy Strategy
		input    *EvalInput
	}
	var evals []evaluation
	for _, s := range strategies {
		if s.CrossProvider() {
			evals = append(evals, evaluation{s, &EvalInput{Records: records, JobHistory: jobHistory}})
			continue
		}
		for _, part := range partitions {
			evals = append(evals, evaluation{s, part})
		}
	}

	var (
		mu        sync.Mutex
		collected []Recommendation
		warnings  []Warning
	)

	g, gctx := errgroup.WithContext(ctx)
	if e.MaxConcurrency > 0 {
		g.SetLimit(e.MaxConcurrency)
	}
	for _, ev := range evals {
		g.Go(func() error {
			recs, err := ev.strategy.Evaluate(gctx, ev.input)
			if err == nil {
				err = gctx.Err()
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				serr := &StrategyError{Strategy: ev.strategy.Name(), Provider: ev.input.Provider, Err: err}
				log.Printf("Skipping strategy contribution: %v", serr)
				warnings = append(warnings, Warning{
					Provider: ev.input.Provider,
					Source:   ev.strategy.Name(),
					Message:  serr.Error(),
				})
				return nil
			}
			collected = append(collected, recs...)
			return nil
		})
	}
	// Goroutines absorb their own failures, so Wait only reflects the
	// (impossible) case of a nil-error group abort.
	_ = g.Wait()

	merged := MergeAndRank(collected)

	providers := coveredProviders(records)
	label := "multi"
	switch len(providers) {
	case 0:
		label = ""
	case 1:
		label = providers[0].String()
	}

	sort.Slice(warnings, func(i, j int) bool {
		if warnings[i].Source != warnings[j].Source {
			return warnings[i].Source < warnings[j].Source
		}
		return warnings[i].Provider < warnings[j].Provider
	})

	return &RecommendationSet{
		RunID:           uuid.New().String(),
		ProviderLabel:   label,
		Providers:       providers,
		TotalSavings:    TotalSavings(merged, e.Currency),
		Currency:        e.Currency,
		Recommendations: merged,
		Warnings:        warnings,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

// partitionRecords groups records by provider so no strategy sees mixed
// providers unless it opts in. Partitions come back in stable provider
// order.
func partitionRecords(records []CostRecord, jobHistory []JobHistoryRecord) []*EvalInput {
	byProvider := make(map[Provider]*EvalInput)
	for _, rec := range records {
		part, ok := byProvider[rec.Provider]
		if !ok {
			part = &EvalInput{Provider: rec.Provider}
			byProvider[rec.Provider] = part
		}
		part.Records = append(part.Records, rec)
	}
	for _, j := range jobHistory {
		part, ok := byProvider[j.Provider]
		if !ok {
			part = &EvalInput{Provider: j.Provider}
			byProvider[j.Provider] = part
		}
		part.JobHistory = append(part.JobHistory, j)
	}

	var parts []*EvalInput
	for _, p := range KnownProviders() {
		if part, ok := byProvider[p]; ok {
			parts = append(parts, part)
		}
	}
	return parts
}

func coveredProviders(records []CostRecord) []Provider {
	seen := make(map[Provider]bool)
	for _, rec := range records {
		seen[rec.Provider] = true
	}
	var providers []Provider
	for _, p := range KnownProviders() {
		if seen[p] {
			providers = append(providers, p)
		}
	}
	return providers
}
