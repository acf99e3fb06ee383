package cost

import (
	"fmt"
	"time"
)

// RawRecord is the structured-but-unvalidated shape adapters hand to the
// normalizer. Adapters own pagination and authentication; they do not own
// validation or currency conversion.
type RawRecord struct {
	Service       string
	Region        string
	ResourceID    string
	Amount        string
	Currency      string
	UsageQuantity float64
	UsageUnit     string
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Tags          map[string]string
}

// Normalizer converts raw adapter payloads into canonical CostRecords in a
// single reporting currency.
type Normalizer struct {
	// Currency is the reporting currency all amounts are converted to.
	Currency string
	// Rates maps a source currency to its conversion rate into Currency.
	// The reporting currency itself always converts at 1.
	Rates map[string]float64
}

// NewNormalizer returns a normalizer targeting the given reporting currency.
func NewNormalizer(currency string, rates map[string]float64) *Normalizer {
	return &Normalizer{Currency: currency, Rates: rates}
}

// Normalize validates and converts a batch of raw records. Malformed
// records are dropped and reported in the returned warnings; one bad record
// never aborts the batch. The provider must be in the known set.
func (n *Normalizer) Normalize(raw []RawRecord, provider Provider) ([]CostRecord, []Warning, error) {
	if !provider.IsValid() {
		return nil, nil, &ValidationError{Provider: provider, Field: "provider", Reason: "unknown provider"}
	}

	records := make([]CostRecord, 0, len(raw))
	var warnings []Warning

	for _, r := range raw {
		rec, err := n.normalizeOne(r, provider)
		if err != nil {
			warnings = append(warnings, Warning{
				Provider: provider,
				Source:   "normalize",
				Message:  err.Error(),
			})
			continue
		}
		records = append(records, rec)
	}

	return records, warnings, nil
}

func (n *Normalizer) normalizeOne(r RawRecord, provider Provider) (CostRecord, error) {
	if r.ResourceID == "" {
		return CostRecord{}, &ValidationError{Provider: provider, Field: "resource_id", Reason: "missing"}
	}
	if r.Amount == "" {
		return CostRecord{}, &ValidationError{Provider: provider, Resource: r.ResourceID, Field: "amount", Reason: "missing"}
	}
	if r.PeriodStart.IsZero() || r.PeriodEnd.IsZero() {
		return CostRecord{}, &ValidationError{Provider: provider, Resource: r.ResourceID, Field: "period", Reason: "missing"}
	}
	if !r.PeriodStart.Before(r.PeriodEnd) {
		return CostRecord{}, &ValidationError{Provider: provider, Resource: r.ResourceID, Field: "period", Reason: "start must precede end"}
	}

	amount, err := NewMoney(r.Amount, r.Currency)
	if err != nil {
		return CostRecord{}, &ValidationError{Provider: provider, Resource: r.ResourceID, Field: "amount", Reason: err.Error()}
	}
	if amount.IsNegative() {
		return CostRecord{}, &ValidationError{Provider: provider, Resource: r.ResourceID, Field: "amount", Reason: "negative amount"}
	}

	amount, err = n.convert(amount)
	if err != nil {
		return CostRecord{}, &ValidationError{Provider: provider, Resource: r.ResourceID, Field: "currency", Reason: err.Error()}
	}

	return CostRecord{
		Provider:      provider,
		Service:       r.Service,
		Region:        r.Region,
		ResourceID:    r.ResourceID,
		Amount:        amount,
		UsageQuantity: r.UsageQuantity,
		UsageUnit:     r.UsageUnit,
		PeriodStart:   r.PeriodStart.UTC(),
		PeriodEnd:     r.PeriodEnd.UTC(),
		Tags:          r.Tags,
	}, nil
}

// convert moves an amount into the reporting currency. Usage quantities are
// deliberately left unit-tagged and unconverted.
func (n *Normalizer) convert(m Money) (Money, error) {
	src := m.Currency
	if src == "" || src == n.Currency {
		m.Currency = n.Currency
		return m, nil
	}
	rate, ok := n.Rates[src]
	if !ok {
		return Money{}, fmt.Errorf("no conversion rate from %s to %s", src, n.Currency)
	}
	return m.Convert(rate, n.Currency), nil
}
