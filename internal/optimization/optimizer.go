// Package optimization wires the cloud adapters, the normalizer and the
// recommendation engine into one orchestrator. It owns the analysis
// lifecycle: fetch, normalize, evaluate, cache, notify.
package optimization

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ochestra-tech/cloudoptimizer/internal/config"
	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
	"github.com/ochestra-tech/cloudoptimizer/internal/cost/providers"
	"github.com/ochestra-tech/cloudoptimizer/internal/cost/strategies"
	"github.com/ochestra-tech/cloudoptimizer/internal/notify"
)

// Optimizer coordinates analysis runs across all configured clouds.
type Optimizer struct {
	cfg        *config.Config
	adapters   []providers.Adapter
	jobSources []providers.JobHistoryAdapter
	normalizer *cost.Normalizer
	registry   *strategies.Registry
	engine     *cost.Engine
	notifiers  []notify.Notifier

	mu     sync.RWMutex
	latest *cost.RecommendationSet

	stopChan chan struct{}
}

// NewOptimizer builds an orchestrator from configuration. Adapters are
// created only for the providers that are enabled.
func NewOptimizer(ctx context.Context, cfg *config.Config) (*Optimizer, error) {
	registry, err := strategies.Build(cfg.Strategies.Enabled,
		cfg.Strategies.Rightsizing, cfg.Strategies.Idle, cfg.Strategies.Commitment)
	if err != nil {
		return nil, err
	}

	o := &Optimizer{
		cfg:        cfg,
		normalizer: cost.NewNormalizer(cfg.Reporting.Currency, cfg.Reporting.ConversionRates),
		registry:   registry,
		engine: &cost.Engine{
			Currency:       cfg.Reporting.Currency,
			Timeout:        time.Duration(cfg.Engine.TimeoutSeconds) * time.Second,
			MaxConcurrency: cfg.Engine.MaxConcurrency,
		},
		stopChan: make(chan struct{}),
	}

	if err := o.buildAdapters(ctx); err != nil {
		return nil, err
	}
	o.buildNotifiers()

	return o, nil
}

func (o *Optimizer) buildAdapters(ctx context.Context) error {
	if o.cfg.Providers.AWS.Enabled {
		a, err := providers.NewAWSAdapter(o.cfg.Providers.AWS.Region, o.cfg.Providers.AWS.Profile)
		if err != nil {
			return err
		}
		o.adapters = append(o.adapters, a)
	}
	if o.cfg.Providers.Azure.Enabled {
		a, err := providers.NewAzureAdapter(o.cfg.Providers.Azure.SubscriptionID)
		if err != nil {
			return err
		}
		o.adapters = append(o.adapters, a)
	}
	if o.cfg.Providers.GCP.Enabled {
		a, err := providers.NewGCPAdapter(ctx, o.cfg.Providers.GCP.ProjectID)
		if err != nil {
			return err
		}
		o.adapters = append(o.adapters, a)
	}
	if o.cfg.Databricks.Enabled {
		a, err := providers.NewDatabricksAdapter(o.cfg.Databricks.WorkspaceURL,
			o.cfg.Databricks.Token, cost.Provider(o.cfg.Databricks.CloudProvider))
		if err != nil {
			return err
		}
		o.jobSources = append(o.jobSources, a)
	}
	return nil
}

func (o *Optimizer) buildNotifiers() {
	o.notifiers = []notify.Notifier{notify.LogNotifier{}}
	if o.cfg.Notify.SlackWebhookURL != "" {
		o.notifiers = append(o.notifiers, notify.NewSlackNotifier(o.cfg.Notify.SlackWebhookURL))
	}
}

// Adapters exposes the configured cloud adapters, used for credential
// checks at startup.
func (o *Optimizer) Adapters() []providers.Adapter {
	return o.adapters
}

// Analyze runs a full analysis over [start, end) with every active
// strategy and caches the result.
func (o *Optimizer) Analyze(ctx context.Context, start, end time.Time) (*cost.RecommendationSet, error) {
	return o.AnalyzeWith(ctx, "", nil, start, end)
}

// AnalyzeWith runs an analysis restricted to one provider and/or a subset
// of strategies. An empty provider means all configured clouds; nil
// strategy names means every active strategy. A scope no adapter covers is
// a ConfigurationError, never a silently empty result.
func (o *Optimizer) AnalyzeWith(ctx context.Context, provider cost.Provider, strategyNames []string, start, end time.Time) (*cost.RecommendationSet, error) {
	active, err := o.selectStrategies(strategyNames)
	if err != nil {
		return nil, err
	}
	if err := o.checkAdapterCoverage(provider); err != nil {
		return nil, err
	}

	records, jobHistory, warnings := o.collect(ctx, provider, start, end)

	set, err := o.engine.Run(ctx, records, jobHistory, active)
	if err != nil {
		return nil, err
	}

	if len(warnings) > 0 {
		set.Warnings = append(set.Warnings, warnings...)
		sort.Slice(set.Warnings, func(i, j int) bool {
			if set.Warnings[i].Source != set.Warnings[j].Source {
				return set.Warnings[i].Source < set.Warnings[j].Source
			}
			return set.Warnings[i].Provider < set.Warnings[j].Provider
		})
	}

	o.mu.Lock()
	o.latest = set
	o.mu.Unlock()

	return set, nil
}

func (o *Optimizer) selectStrategies(names []string) ([]cost.Strategy, error) {
	if len(names) == 0 {
		return o.registry.Active(), nil
	}
	var selected []cost.Strategy
	for _, name := range names {
		s, ok := o.registry.Get(name)
		if !ok {
			return nil, &cost.ConfigurationError{Reason: "unknown strategy \"" + name + "\""}
		}
		selected = append(selected, s)
	}
	return selected, nil
}

// checkAdapterCoverage verifies at least one adapter serves the requested
// scope.
func (o *Optimizer) checkAdapterCoverage(provider cost.Provider) error {
	if provider == "" {
		if len(o.adapters) == 0 {
			return &cost.ConfigurationError{Reason: "no provider adapters configured"}
		}
		return nil
	}
	for _, adapter := range o.adapters {
		if adapter.Provider() == provider {
			return nil
		}
	}
	return &cost.ConfigurationError{Reason: fmt.Sprintf("no adapter configured for provider %q", provider)}
}

// collect fetches and normalizes raw data from every matching adapter.
// Adapter failures degrade to warnings so one unreachable cloud does not
// sink the whole run.
func (o *Optimizer) collect(ctx context.Context, provider cost.Provider, start, end time.Time) ([]cost.CostRecord, []cost.JobHistoryRecord, []cost.Warning) {
	var (
		records    []cost.CostRecord
		jobHistory []cost.JobHistoryRecord
		warnings   []cost.Warning
	)

	for _, adapter := range o.adapters {
		if provider != "" && adapter.Provider() != provider {
			continue
		}

		raw, err := adapter.FetchCostRecords(ctx, start, end)
		if err != nil {
			log.Printf("adapter %s failed: %v", adapter.Provider(), err)
			warnings = append(warnings, cost.Warning{
				Provider: adapter.Provider(),
				Source:   "adapter",
				Message:  err.Error(),
			})
			continue
		}

		normalized, normWarnings, err := o.normalizer.Normalize(raw, adapter.Provider())
		if err != nil {
			warnings = append(warnings, cost.Warning{
				Provider: adapter.Provider(),
				Source:   "normalizer",
				Message:  err.Error(),
			})
			continue
		}
		records = append(records, normalized...)
		warnings = append(warnings, normWarnings...)
	}

	for _, source := range o.jobSources {
		jobs, err := source.FetchJobHistory(ctx, start, end)
		if err != nil {
			log.Printf("job history fetch failed: %v", err)
			warnings = append(warnings, cost.Warning{
				Source:  "job-history",
				Message: err.Error(),
			})
			continue
		}
		for _, job := range jobs {
			if provider == "" || job.Provider == provider {
				jobHistory = append(jobHistory, job)
			}
		}
	}

	return records, jobHistory, warnings
}

// Latest returns the most recent analysis result, or nil before the
// first run completes.
func (o *Optimizer) Latest() *cost.RecommendationSet {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.latest
}

// LatestForProvider returns the most recent result narrowed to one
// provider's recommendations and warnings.
func (o *Optimizer) LatestForProvider(provider cost.Provider) *cost.RecommendationSet {
	o.mu.RLock()
	set := o.latest
	o.mu.RUnlock()
	if set == nil {
		return nil
	}

	filtered := &cost.RecommendationSet{
		RunID:         set.RunID,
		ProviderLabel: string(provider),
		Providers:     []cost.Provider{provider},
		Currency:      set.Currency,
		GeneratedAt:   set.GeneratedAt,
	}
	for _, rec := range set.Recommendations {
		if rec.Provider == provider {
			filtered.Recommendations = append(filtered.Recommendations, rec)
		}
	}
	for _, w := range set.Warnings {
		if w.Provider == provider || w.Provider == "" {
			filtered.Warnings = append(filtered.Warnings, w)
		}
	}
	filtered.TotalSavings = cost.TotalSavings(filtered.Recommendations, set.Currency)
	return filtered
}

// Start launches the proactive analysis loop. The first cycle runs
// immediately rather than one interval in.
func (o *Optimizer) Start(ctx context.Context) {
	go o.proactiveLoop(ctx)
}

func (o *Optimizer) proactiveLoop(ctx context.Context) {
	interval := time.Duration(o.cfg.Proactive.IntervalHours) * time.Hour
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.runCycle(ctx)

	for {
		select {
		case <-ticker.C:
			o.runCycle(ctx)
		case <-o.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (o *Optimizer) runCycle(ctx context.Context) {
	log.Println("Running analysis cycle...")
	start, end := providers.DefaultWindow()

	set, err := o.Analyze(ctx, start, end)
	if err != nil {
		log.Printf("Analysis cycle failed: %v", err)
		return
	}

	notify.Broadcast(ctx, o.notifiers, set)
	log.Println("Analysis cycle completed")
}

// Stop halts the proactive loop.
func (o *Optimizer) Stop() {
	close(o.stopChan)
}
