package cost

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Recommendation is a single actionable cost-saving suggestion. Its ID is a
// stable hash of (provider, resource, action), so the same fix proposed by
// two strategies collides on purpose and gets merged.
type Recommendation struct {
	ID         string   `json:"id"`
	Provider   Provider `json:"provider"`
	ResourceID string   `json:"resource"`
	Action     string   `json:"action"`
	// MonthlySavings is the estimated monthly saving in the reporting
	// currency.
	MonthlySavings Money   `json:"savings"`
	Confidence     float64 `json:"confidence"`
	// Strategies names every strategy that contributed, sorted. A fresh
	// recommendation has exactly one entry.
	Strategies []string `json:"strategies"`
	// Evidence lists the identifiers of the records the suggestion is
	// based on, in contribution order with duplicates removed.
	Evidence []string `json:"evidence,omitempty"`
}

// NewRecommendation builds a recommendation with its canonical ID.
func NewRecommendation(provider Provider, resourceID, action string, savings Money, confidence float64, strategy string, evidence []string) Recommendation {
	return Recommendation{
		ID:             RecommendationID(provider, resourceID, action),
		Provider:       provider,
		ResourceID:     resourceID,
		Action:         action,
		MonthlySavings: savings,
		Confidence:     confidence,
		Strategies:     []string{strategy},
		Evidence:       evidence,
	}
}

// RecommendationID derives the stable dedup key for a (provider, resource,
// action) tuple.
func RecommendationID(provider Provider, resourceID, action string) string {
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(resourceID))
	h.Write([]byte{0})
	h.Write([]byte(action))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Score is the composite ranking key: savings times confidence.
func (r Recommendation) Score() float64 {
	return r.MonthlySavings.Float64() * r.Confidence
}

// Warning reports a dropped record or a skipped strategy. Warnings degrade
// output quality but never abort a run.
type Warning struct {
	Provider Provider `json:"provider,omitempty"`
	Source   string   `json:"source"`
	Message  string   `json:"message"`
}

// RecommendationSet is the immutable output of one engine run, ordered by
// descending composite score.
type RecommendationSet struct {
	RunID string `json:"run_id"`
	// ProviderLabel is the single provider covered, or "multi" when the
	// run spanned more than one. Downstream tooling keys on this field.
	ProviderLabel   string           `json:"provider"`
	Providers       []Provider       `json:"providers"`
	TotalSavings    Money            `json:"total_potential_savings"`
	Currency        string           `json:"currency"`
	Recommendations []Recommendation `json:"recommendations"`
	Warnings        []Warning        `json:"warnings,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at"`
}
