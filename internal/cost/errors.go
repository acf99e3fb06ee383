package cost

import "fmt"

// ValidationError marks a raw record that failed normalization. Records
// carrying this error are dropped and surfaced as warnings; they never
// abort a batch.
type ValidationError struct {
	Provider Provider
	Resource string
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s record %q: field %s: %s", e.Provider, e.Resource, e.Field, e.Reason)
}

// StrategyError wraps a failure inside a single strategy evaluation. The
// failing strategy's contribution for the run is skipped; other strategies
// are unaffected.
type StrategyError struct {
	Strategy string
	Provider Provider
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s failed for %s: %v", e.Strategy, e.Provider, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// ConfigurationError is fatal: the run is aborted before any evaluation.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// AdapterError wraps a provider adapter failure. The engine never raises
// these itself; adapters return them and callers see them unchanged.
type AdapterError struct {
	Provider Provider
	Op       string
	Err      error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s adapter: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
