package strategies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

type stubStrategy struct{ name string }

func (s *stubStrategy) Name() string        { return s.name }
func (s *stubStrategy) CrossProvider() bool { return false }
func (s *stubStrategy) Evaluate(context.Context, *cost.EvalInput) ([]cost.Recommendation, error) {
	return nil, nil
}

func TestRegistryDuplicateReplaces(t *testing.T) {
	reg := NewRegistry()
	first := &stubStrategy{name: "dup"}
	second := &stubStrategy{name: "dup"}

	reg.Register("dup", first)
	reg.Register("dup", second)

	got, ok := reg.Get("dup")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Len(t, reg.Active(), 1)
}

func TestRegistryActiveIsSorted(t *testing.T) {
	reg := NewRegistry()
	reg.Register("zeta", &stubStrategy{name: "zeta"})
	reg.Register("alpha", &stubStrategy{name: "alpha"})
	reg.Register("mid", &stubStrategy{name: "mid"})

	assert.Equal(t, []string{"alpha", "mid", "zeta"}, reg.Names())

	active := reg.Active()
	require.Len(t, active, 3)
	assert.Equal(t, "alpha", active[0].Name())
	assert.Equal(t, "zeta", active[2].Name())
}

func TestRegistryUnregister(t *testing.T) {
	reg := NewRegistry()
	reg.Register("gone", &stubStrategy{name: "gone"})
	reg.Unregister("gone")
	reg.Unregister("never-there")

	_, ok := reg.Get("gone")
	assert.False(t, ok)
}

func TestBuildKnownStrategies(t *testing.T) {
	reg, err := Build([]string{"rightsizing", "idle-resources", "commitment"},
		RightsizingConfig{}, IdleConfig{}, CommitmentConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"commitment", "idle-resources", "rightsizing"}, reg.Names())
}

func TestBuildRejectsUnknownStrategy(t *testing.T) {
	_, err := Build([]string{"rightsizing", "typo-strategy"},
		RightsizingConfig{}, IdleConfig{}, CommitmentConfig{})
	require.Error(t, err)

	var cerr *cost.ConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Error(), "typo-strategy")
}
