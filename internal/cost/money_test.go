package cost

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoneyParsesDecimalStrings(t *testing.T) {
	m, err := NewMoney("12.3456789", "USD")
	require.NoError(t, err)
	assert.Equal(t, "12.3456789", m.String())
	assert.Equal(t, "USD", m.Currency)

	_, err = NewMoney("not-a-number", "USD")
	assert.Error(t, err)
}

func TestMoneyArithmetic(t *testing.T) {
	a, err := NewMoney("0.1", "USD")
	require.NoError(t, err)
	b, err := NewMoney("0.2", "USD")
	require.NoError(t, err)

	// Exact decimal arithmetic, not float.
	assert.Equal(t, "0.3", a.Add(b).String())
	assert.Equal(t, "0.1", b.Sub(a).String())
	assert.Equal(t, "0.05", a.MulFloat(0.5).String())
}

func TestMoneyComparison(t *testing.T) {
	small, _ := NewMoney("1.00", "USD")
	big, _ := NewMoney("2", "USD")

	assert.Equal(t, -1, small.Cmp(big))
	assert.Equal(t, 1, big.Cmp(small))
	assert.Equal(t, 0, small.Cmp(small))
}

func TestMoneyCurrencyMismatchPanics(t *testing.T) {
	usd, _ := NewMoney("1", "USD")
	eur, _ := NewMoney("1", "EUR")

	assert.Panics(t, func() { usd.Add(eur) })
	assert.Panics(t, func() { usd.Cmp(eur) })
}

func TestMoneyNonFiniteInputsYieldZero(t *testing.T) {
	assert.True(t, NewMoneyFromFloat(math.NaN(), "USD").IsZero())
	assert.True(t, NewMoneyFromFloat(math.Inf(1), "USD").IsZero())

	m, _ := NewMoney("10", "USD")
	assert.True(t, m.MulFloat(math.NaN()).IsZero())
	assert.True(t, m.MulFloat(math.Inf(-1)).IsZero())
	assert.Equal(t, "USD", m.MulFloat(math.NaN()).Currency)
}

func TestMoneyConvert(t *testing.T) {
	eur, _ := NewMoney("10", "EUR")
	usd := eur.Convert(1.08, "USD")

	assert.Equal(t, "USD", usd.Currency)
	assert.InDelta(t, 10.8, usd.Float64(), 1e-9)
}

func TestMoneyIsNegative(t *testing.T) {
	neg, _ := NewMoney("-0.01", "USD")
	zero := Zero("USD")

	assert.True(t, neg.IsNegative())
	assert.False(t, zero.IsNegative())
	assert.True(t, zero.IsZero())
}

func TestMoneyJSONIsBareNumber(t *testing.T) {
	m, _ := NewMoney("42.50", "USD")
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "42.50", string(data))

	var back Money
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "42.50", back.String())
}
