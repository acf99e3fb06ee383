// Package health tracks whether the configured cloud adapters can still
// reach their APIs. The monitor backs the readiness endpoint so a broken
// credential shows up before the next analysis cycle fails.
package health

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
	"github.com/ochestra-tech/cloudoptimizer/internal/cost/providers"
)

// checkTimeout bounds a single credential probe.
const checkTimeout = 30 * time.Second

// ProviderStatus is the outcome of the most recent credential probe for
// one cloud.
type ProviderStatus struct {
	Provider  cost.Provider `json:"provider"`
	Healthy   bool          `json:"healthy"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Monitor periodically validates adapter credentials.
type Monitor struct {
	adapters []providers.Adapter
	interval time.Duration

	mu       sync.RWMutex
	statuses map[cost.Provider]ProviderStatus

	stopChan chan struct{}
}

// NewMonitor creates a monitor over the given adapters.
func NewMonitor(adapters []providers.Adapter, interval time.Duration) *Monitor {
	return &Monitor{
		adapters: adapters,
		interval: interval,
		statuses: make(map[cost.Provider]ProviderStatus),
		stopChan: make(chan struct{}),
	}
}

// Start begins the probe loop. The first probe runs immediately.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.check(ctx)
		for {
			select {
			case <-ticker.C:
				m.check(ctx)
			case <-m.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Monitor) check(ctx context.Context) {
	for _, adapter := range m.adapters {
		probeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := adapter.ValidateCredentials(probeCtx)
		cancel()

		status := ProviderStatus{
			Provider:  adapter.Provider(),
			Healthy:   err == nil,
			CheckedAt: time.Now().UTC(),
		}
		if err != nil {
			status.Error = err.Error()
			log.Printf("credential check for %s failed: %v", adapter.Provider(), err)
		}

		m.mu.Lock()
		m.statuses[adapter.Provider()] = status
		m.mu.Unlock()
	}
}

// Statuses returns a copy of the latest probe results in stable provider
// order.
func (m *Monitor) Statuses() []ProviderStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ProviderStatus
	for _, p := range cost.KnownProviders() {
		if s, ok := m.statuses[p]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Healthy reports whether every probed adapter passed its last check.
// Before the first probe completes the monitor reports healthy.
func (m *Monitor) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// Stop halts the probe loop.
func (m *Monitor) Stop() {
	close(m.stopChan)
}
