package cost

import (
	"fmt"
	"time"
)

// Provider identifies the cloud a record was billed by. The set is closed:
// normalization rejects anything else.
type Provider string

const (
	ProviderAWS   Provider = "aws"
	ProviderAzure Provider = "azure"
	ProviderGCP   Provider = "gcp"
)

// KnownProviders lists the supported providers in stable order.
func KnownProviders() []Provider {
	return []Provider{ProviderAWS, ProviderAzure, ProviderGCP}
}

// IsValid reports whether p is in the known provider set.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderAWS, ProviderAzure, ProviderGCP:
		return true
	}
	return false
}

func (p Provider) String() string {
	return string(p)
}

// CostRecord is one billed or metered line item in the canonical,
// provider-agnostic shape. Records are immutable once constructed and are
// consumed read-only by strategies.
type CostRecord struct {
	Provider      Provider          `json:"provider"`
	Service       string            `json:"service"`
	Region        string            `json:"region"`
	ResourceID    string            `json:"resource_id"`
	Amount        Money             `json:"amount"`
	UsageQuantity float64           `json:"usage_quantity"`
	UsageUnit     string            `json:"usage_unit"`
	PeriodStart   time.Time         `json:"period_start"`
	PeriodEnd     time.Time         `json:"period_end"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// Key identifies the record for evidence trails: resource plus period.
func (r CostRecord) Key() string {
	return fmt.Sprintf("%s/%s@%s", r.Provider, r.ResourceID, r.PeriodStart.UTC().Format(time.RFC3339))
}

// PeriodHours returns the length of the billing period in hours.
func (r CostRecord) PeriodHours() float64 {
	return r.PeriodEnd.Sub(r.PeriodStart).Hours()
}

// Overlaps reports whether the record's half-open period intersects
// [start, end).
func (r CostRecord) Overlaps(start, end time.Time) bool {
	return r.PeriodStart.Before(end) && start.Before(r.PeriodEnd)
}

// JobHistoryRecord is one Databricks cluster or job execution summary.
// Utilization metrics are fractions in [0,1]; a negative value means the
// metric was not reported.
type JobHistoryRecord struct {
	Provider          Provider      `json:"provider"`
	JobID             string        `json:"job_id"`
	ClusterID         string        `json:"cluster_id"`
	InstanceTypes     []string      `json:"instance_types"`
	Duration          time.Duration `json:"duration"`
	CPUUtilization    float64       `json:"cpu_utilization"`
	MemoryUtilization float64       `json:"memory_utilization"`
	DBUHours          float64       `json:"dbu_hours"`
	// ResourceID links the execution back to the billed resource; cost
	// attribution matches on it plus period overlap.
	ResourceID  string    `json:"resource_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// Key identifies the execution for evidence trails.
func (j JobHistoryRecord) Key() string {
	return fmt.Sprintf("%s/job/%s@%s", j.Provider, j.JobID, j.PeriodStart.UTC().Format(time.RFC3339))
}

// HasCPUUtilization reports whether a CPU utilization sample was recorded.
func (j JobHistoryRecord) HasCPUUtilization() bool {
	return j.CPUUtilization >= 0
}

// Overlaps reports whether the execution window intersects [start, end).
func (j JobHistoryRecord) Overlaps(start, end time.Time) bool {
	return j.PeriodStart.Before(end) && start.Before(j.PeriodEnd)
}
