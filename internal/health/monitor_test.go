package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
	"github.com/ochestra-tech/cloudoptimizer/internal/cost/providers"
)

type probeAdapter struct {
	provider cost.Provider
	err      error
}

func (p *probeAdapter) Provider() cost.Provider { return p.provider }
func (p *probeAdapter) FetchCostRecords(context.Context, time.Time, time.Time) ([]cost.RawRecord, error) {
	return nil, nil
}
func (p *probeAdapter) ValidateCredentials(context.Context) error { return p.err }

var _ providers.Adapter = (*probeAdapter)(nil)

func TestMonitorHealthyBeforeFirstProbe(t *testing.T) {
	m := NewMonitor(nil, time.Minute)
	assert.True(t, m.Healthy())
	assert.Empty(t, m.Statuses())
}

func TestMonitorRecordsProbeResults(t *testing.T) {
	m := NewMonitor([]providers.Adapter{
		&probeAdapter{provider: cost.ProviderAWS},
		&probeAdapter{provider: cost.ProviderGCP, err: errors.New("permission denied")},
	}, time.Minute)

	m.check(context.Background())

	assert.False(t, m.Healthy())

	statuses := m.Statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, cost.ProviderAWS, statuses[0].Provider)
	assert.True(t, statuses[0].Healthy)
	assert.Equal(t, cost.ProviderGCP, statuses[1].Provider)
	assert.False(t, statuses[1].Healthy)
	assert.Contains(t, statuses[1].Error, "permission denied")
}

func TestMonitorRecoversAfterFix(t *testing.T) {
	flaky := &probeAdapter{provider: cost.ProviderAzure, err: errors.New("expired")}
	m := NewMonitor([]providers.Adapter{flaky}, time.Minute)

	m.check(context.Background())
	assert.False(t, m.Healthy())

	flaky.err = nil
	m.check(context.Background())
	assert.True(t, m.Healthy())
}
