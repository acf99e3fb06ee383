package cost

import (
	"fmt"
	"math"

	"github.com/cockroachdb/apd/v3"
)

// Money is an exact decimal amount tagged with an ISO 4217 currency code.
// Billing line items routinely carry sub-cent precision, so amounts are
// never handled as binary floats.
type Money struct {
	value    apd.Decimal
	Currency string
}

// NewMoney parses a decimal string into a Money value.
func NewMoney(s, currency string) (Money, error) {
	var d apd.Decimal
	if _, _, err := d.SetString(s); err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{value: d, Currency: currency}, nil
}

// NewMoneyFromFloat converts a float amount, losing no more precision than
// the float itself carries. Intended for adapter payloads that only expose
// float64 cost fields. NaN and infinite inputs yield zero.
func NewMoneyFromFloat(f float64, currency string) Money {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Zero(currency)
	}
	var d apd.Decimal
	d.SetFloat64(f)
	return Money{value: d, Currency: currency}
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Currency: currency}
}

func (m Money) String() string {
	return m.value.Text('f')
}

func (m Money) IsZero() bool {
	return m.value.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.value.Negative && !m.value.IsZero()
}

// Cmp compares two amounts. Currencies must match; comparing across
// currencies is a programming error and panics.
func (m Money) Cmp(other Money) int {
	m.mustMatch(other)
	return m.value.Cmp(&other.value)
}

// Add returns the sum of m and other in the shared currency.
func (m Money) Add(other Money) Money {
	m.mustMatch(other)
	var result apd.Decimal
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Add(&result, &m.value, &other.value)
	return Money{value: result, Currency: m.Currency}
}

// Sub returns m minus other in the shared currency.
func (m Money) Sub(other Money) Money {
	m.mustMatch(other)
	var result apd.Decimal
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Sub(&result, &m.value, &other.value)
	return Money{value: result, Currency: m.Currency}
}

// MulFloat scales the amount by a dimensionless factor, e.g. a currency
// conversion rate or a utilization headroom factor. A NaN or infinite
// factor yields zero rather than a garbage amount.
func (m Money) MulFloat(f float64) Money {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Zero(m.Currency)
	}
	var factor, result apd.Decimal
	factor.SetFloat64(f)
	ctx := apd.BaseContext.WithPrecision(34)
	ctx.Mul(&result, &m.value, &factor)
	return Money{value: result, Currency: m.Currency}
}

// Float64 returns the closest float64 to the amount, for scoring only.
func (m Money) Float64() float64 {
	f, _ := m.value.Float64()
	return f
}

// Convert re-tags the amount into the target currency using the given rate.
func (m Money) Convert(rate float64, currency string) Money {
	converted := m.MulFloat(rate)
	converted.Currency = currency
	return converted
}

// MarshalJSON emits the amount as a plain JSON number. The output contract
// uses bare numbers for savings, not {amount, currency} objects.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.value.Text('f')), nil
}

// UnmarshalJSON parses a bare JSON number. The currency tag is restored by
// the caller from surrounding context.
func (m *Money) UnmarshalJSON(data []byte) error {
	if _, _, err := m.value.SetString(string(data)); err != nil {
		return fmt.Errorf("invalid amount %q: %w", data, err)
	}
	return nil
}

func (m Money) mustMatch(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("currency mismatch: %s vs %s", m.Currency, other.Currency))
	}
}
