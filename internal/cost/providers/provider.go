// Package providers contains the cloud adapters that fetch raw billing and
// usage data. Adapters own authentication, pagination and throttling; they
// emit RawRecords and leave validation and currency conversion to the
// normalizer.
package providers

import (
	"context"
	"strconv"
	"time"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

// Adapter is the contract every cloud integration implements.
type Adapter interface {
	// Provider identifies which cloud the adapter speaks for.
	Provider() cost.Provider

	// FetchCostRecords returns raw billing line items for [start, end).
	// Failures are returned as AdapterError and surfaced to the caller
	// unchanged.
	FetchCostRecords(ctx context.Context, start, end time.Time) ([]cost.RawRecord, error)

	// ValidateCredentials checks that the adapter can reach its cloud.
	ValidateCredentials(ctx context.Context) error
}

// JobHistoryAdapter is implemented by platforms that expose per-job
// execution metrics, currently Databricks.
type JobHistoryAdapter interface {
	FetchJobHistory(ctx context.Context, start, end time.Time) ([]cost.JobHistoryRecord, error)
}

// DefaultWindow returns the default analysis window: the last 30 days,
// aligned to whole UTC days.
func DefaultWindow() (time.Time, time.Time) {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	return end.AddDate(0, 0, -30), end
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
