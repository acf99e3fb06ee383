package strategies

import (
	"sort"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

// hoursPerMonth is the FinOps convention for projecting period costs to a
// monthly figure.
const hoursPerMonth = 730.0

// resourceSeries is one resource's observed billing periods within the
// analysis window, with utilization samples attributed from job history.
type resourceSeries struct {
	provider     cost.Provider
	resourceID   string
	service      string
	region       string
	instanceType string
	records      []cost.CostRecord
	// utilization holds one sample per record, -1 where no job history
	// overlapped the period.
	utilization []float64
	evidence    []string
	totalCost   cost.Money
	totalUsage  float64
	windowHours float64
}

// buildSeries groups a partition's records per resource, attributes
// utilization from overlapping job history, and returns the series sorted
// by resource ID for deterministic iteration.
func buildSeries(input *cost.EvalInput) []resourceSeries {
	byResource := make(map[string][]cost.CostRecord)
	for _, rec := range input.Records {
		byResource[rec.ResourceID] = append(byResource[rec.ResourceID], rec)
	}

	ids := make([]string, 0, len(byResource))
	for id := range byResource {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	series := make([]resourceSeries, 0, len(ids))
	for _, id := range ids {
		records := byResource[id]
		sort.Slice(records, func(i, j int) bool {
			return records[i].PeriodStart.Before(records[j].PeriodStart)
		})

		s := resourceSeries{
			provider:   records[0].Provider,
			resourceID: id,
			service:    records[0].Service,
			region:     records[0].Region,
			records:    records,
			totalCost:  cost.Zero(records[0].Amount.Currency),
		}
		if t, ok := records[0].Tags["instance_type"]; ok {
			s.instanceType = t
		}

		for _, rec := range records {
			s.totalCost = s.totalCost.Add(rec.Amount)
			s.totalUsage += rec.UsageQuantity
			s.windowHours += rec.PeriodHours()
			s.evidence = append(s.evidence, rec.Key())

			util, jobKeys := utilizationFor(rec, input.JobHistory)
			s.utilization = append(s.utilization, util)
			s.evidence = append(s.evidence, jobKeys...)

			if s.instanceType == "" {
				s.instanceType = instanceTypeFor(rec, input.JobHistory)
			}
		}

		series = append(series, s)
	}
	return series
}

// utilizationFor averages CPU utilization across job history entries that
// link to the record by resource ID and period overlap. Returns -1 when no
// sample exists.
func utilizationFor(rec cost.CostRecord, jobs []cost.JobHistoryRecord) (float64, []string) {
	var sum float64
	var n int
	var keys []string
	for _, j := range jobs {
		if j.ResourceID != rec.ResourceID || !j.HasCPUUtilization() {
			continue
		}
		if !j.Overlaps(rec.PeriodStart, rec.PeriodEnd) {
			continue
		}
		sum += j.CPUUtilization
		n++
		keys = append(keys, j.Key())
	}
	if n == 0 {
		return -1, nil
	}
	return sum / float64(n), keys
}

func instanceTypeFor(rec cost.CostRecord, jobs []cost.JobHistoryRecord) string {
	for _, j := range jobs {
		if j.ResourceID == rec.ResourceID && len(j.InstanceTypes) > 0 {
			return j.InstanceTypes[0]
		}
	}
	return ""
}

// monthlyCost projects the observed window cost to a monthly estimate.
func (s resourceSeries) monthlyCost() cost.Money {
	if s.windowHours <= 0 {
		return s.totalCost
	}
	return s.totalCost.MulFloat(hoursPerMonth / s.windowHours)
}

// utilizationSamples returns only the periods that carried a utilization
// reading.
func (s resourceSeries) utilizationSamples() []float64 {
	var samples []float64
	for _, u := range s.utilization {
		if u >= 0 {
			samples = append(samples, u)
		}
	}
	return samples
}

// sampleConfidence scales confidence with the number of observed periods,
// capped at 1.0 once full is reached.
func sampleConfidence(samples, full int) float64 {
	if full <= 0 {
		return 1
	}
	c := float64(samples) / float64(full)
	if c > 1 {
		return 1
	}
	return c
}
