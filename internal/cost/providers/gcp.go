package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	compute "cloud.google.com/go/compute/apiv1"
	computepb "cloud.google.com/go/compute/apiv1/computepb"
	"google.golang.org/api/cloudbilling/v1"
	"google.golang.org/api/iterator"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

// computeEngineService is the Cloud Billing catalog ID for Compute Engine.
const computeEngineService = "services/6F81-5844-456A"

// GCPAdapter synthesizes billing line items from the Compute Engine
// inventory priced via the Cloud Billing catalog. GCP's native line-item
// export lives in BigQuery and is owned by the platform team; the catalog
// route needs no extra infrastructure.
type GCPAdapter struct {
	instances *compute.InstancesClient
	billing   *cloudbilling.APIService
	projectID string

	rates       map[string]float64
	ratesExpiry time.Time
}

// NewGCPAdapter creates an adapter for the given project using application
// default credentials.
func NewGCPAdapter(ctx context.Context, projectID string) (*GCPAdapter, error) {
	instancesClient, err := compute.NewInstancesRESTClient(ctx)
	if err != nil {
		return nil, &cost.AdapterError{Provider: cost.ProviderGCP, Op: "create compute client", Err: err}
	}

	billingService, err := cloudbilling.NewService(ctx)
	if err != nil {
		return nil, &cost.AdapterError{Provider: cost.ProviderGCP, Op: "create billing client", Err: err}
	}

	return &GCPAdapter{
		instances: instancesClient,
		billing:   billingService,
		projectID: projectID,
		rates:     make(map[string]float64),
	}, nil
}

func (a *GCPAdapter) Provider() cost.Provider {
	return cost.ProviderGCP
}

// FetchCostRecords lists running instances and prices each one per day of
// the window at its machine type's on-demand rate.
func (a *GCPAdapter) FetchCostRecords(ctx context.Context, start, end time.Time) ([]cost.RawRecord, error) {
	if err := a.refreshRates(ctx); err != nil {
		return nil, err
	}

	var records []cost.RawRecord

	req := &computepb.AggregatedListInstancesRequest{Project: a.projectID}
	it := a.instances.AggregatedList(ctx, req)
	for {
		pair, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &cost.AdapterError{Provider: cost.ProviderGCP, Op: "list instances", Err: err}
		}
		if pair.Value == nil {
			continue
		}
		for _, inst := range pair.Value.Instances {
			records = append(records, a.instanceRecords(inst, start, end)...)
		}
	}

	return records, nil
}

func (a *GCPAdapter) instanceRecords(inst *computepb.Instance, start, end time.Time) []cost.RawRecord {
	machineType := lastPathSegment(inst.GetMachineType())
	zone := lastPathSegment(inst.GetZone())
	region := zoneRegion(zone)
	running := inst.GetStatus() == "RUNNING"

	series, cores := splitMachineType(machineType)
	coreRate, priced := a.rates[series]
	if !priced || cores == 0 {
		return nil
	}
	hourly := coreRate * float64(cores)

	var records []cost.RawRecord
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		usageHours := 0.0
		if running {
			usageHours = 24
		}
		records = append(records, cost.RawRecord{
			Service:       "Compute Engine",
			Region:        region,
			ResourceID:    fmt.Sprintf("projects/%s/zones/%s/instances/%s", a.projectID, zone, inst.GetName()),
			Amount:        strconv.FormatFloat(hourly*usageHours, 'f', -1, 64),
			Currency:      "USD",
			UsageQuantity: usageHours,
			UsageUnit:     "hour",
			PeriodStart:   day,
			PeriodEnd:     day.AddDate(0, 0, 1),
			Tags:          map[string]string{"instance_type": machineType},
		})
	}
	return records
}

// splitMachineType breaks "n1-standard-4" into its series and core count.
func splitMachineType(machineType string) (string, int) {
	parts := strings.Split(machineType, "-")
	if len(parts) < 3 {
		return machineType, 0
	}
	cores, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return parts[0], 0
	}
	return parts[0], cores
}

// refreshRates loads on-demand per-core hourly rates per machine series
// from the billing catalog, cached for a day.
func (a *GCPAdapter) refreshRates(ctx context.Context) error {
	if time.Now().Before(a.ratesExpiry) && len(a.rates) > 0 {
		return nil
	}

	call := a.billing.Services.Skus.List(computeEngineService).Context(ctx)
	err := call.Pages(ctx, func(resp *cloudbilling.ListSkusResponse) error {
		for _, sku := range resp.Skus {
			if sku.Category == nil || sku.Category.UsageType != "OnDemand" {
				continue
			}
			series := machineSeriesFromSKU(sku.Description)
			if series == "" {
				continue
			}
			rate, ok := skuHourlyRate(sku)
			if !ok {
				continue
			}
			a.rates[series] = rate
		}
		return nil
	})
	if err != nil {
		return &cost.AdapterError{Provider: cost.ProviderGCP, Op: "list billing skus", Err: err}
	}

	a.ratesExpiry = time.Now().Add(24 * time.Hour)
	return nil
}

// machineSeriesFromSKU recovers a machine series from a predefined
// per-core instance SKU description like "N1 Predefined Instance Core
// running in Americas".
func machineSeriesFromSKU(description string) string {
	lower := strings.ToLower(description)
	if !strings.Contains(lower, "instance core") {
		return ""
	}
	fields := strings.Fields(lower)
	if len(fields) == 0 {
		return ""
	}
	switch fields[0] {
	case "n1", "n2", "e2", "c2", "c3", "m1":
		return fields[0]
	}
	return ""
}

func skuHourlyRate(sku *cloudbilling.Sku) (float64, bool) {
	if len(sku.PricingInfo) == 0 {
		return 0, false
	}
	expr := sku.PricingInfo[0].PricingExpression
	if expr == nil || len(expr.TieredRates) == 0 {
		return 0, false
	}
	price := expr.TieredRates[0].UnitPrice
	if price == nil {
		return 0, false
	}
	return float64(price.Units) + float64(price.Nanos)/1e9, true
}

// ValidateCredentials reads the project's billing info.
func (a *GCPAdapter) ValidateCredentials(ctx context.Context) error {
	_, err := a.billing.Projects.GetBillingInfo("projects/" + a.projectID).Context(ctx).Do()
	if err != nil {
		return &cost.AdapterError{Provider: cost.ProviderGCP, Op: "validate credentials", Err: err}
	}
	return nil
}

func lastPathSegment(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// zoneRegion strips the zone suffix: us-central1-a -> us-central1.
func zoneRegion(zone string) string {
	if i := strings.LastIndex(zone, "-"); i > 0 {
		return zone[:i]
	}
	return zone
}
