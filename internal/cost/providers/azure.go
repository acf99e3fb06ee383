package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/consumption/armconsumption"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

// AzureAdapter fetches billing line items from the Azure Consumption API
// and enriches them with VM instance types from the Compute API.
type AzureAdapter struct {
	subscriptionID string
	usage          *armconsumption.UsageDetailsClient
	query          *armcostmanagement.QueryClient
	vms            *armcompute.VirtualMachinesClient
}

// NewAzureAdapter creates an adapter for the given subscription using the
// default credential chain (environment, managed identity, CLI).
func NewAzureAdapter(subscriptionID string) (*AzureAdapter, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, &cost.AdapterError{Provider: cost.ProviderAzure, Op: "create credential", Err: err}
	}

	usage, err := armconsumption.NewUsageDetailsClient(cred, nil)
	if err != nil {
		return nil, &cost.AdapterError{Provider: cost.ProviderAzure, Op: "create usage client", Err: err}
	}
	query, err := armcostmanagement.NewQueryClient(cred, nil)
	if err != nil {
		return nil, &cost.AdapterError{Provider: cost.ProviderAzure, Op: "create query client", Err: err}
	}
	vms, err := armcompute.NewVirtualMachinesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, &cost.AdapterError{Provider: cost.ProviderAzure, Op: "create compute client", Err: err}
	}

	return &AzureAdapter{
		subscriptionID: subscriptionID,
		usage:          usage,
		query:          query,
		vms:            vms,
	}, nil
}

func (a *AzureAdapter) Provider() cost.Provider {
	return cost.ProviderAzure
}

// FetchCostRecords pages through usage details for the window. VM-backed
// records get an instance_type tag from the compute inventory so the
// rightsizing strategy can name a downsizing target.
func (a *AzureAdapter) FetchCostRecords(ctx context.Context, start, end time.Time) ([]cost.RawRecord, error) {
	instanceTypes, err := a.vmInstanceTypes(ctx)
	if err != nil {
		return nil, err
	}

	scope := "/subscriptions/" + a.subscriptionID
	filter := fmt.Sprintf("properties/usageStart ge '%s' and properties/usageEnd le '%s'",
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	var records []cost.RawRecord
	pager := a.usage.NewListPager(scope, &armconsumption.UsageDetailsClientListOptions{
		Filter: &filter,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &cost.AdapterError{Provider: cost.ProviderAzure, Op: "list usage details", Err: err}
		}
		for _, detail := range page.Value {
			legacy, ok := detail.(*armconsumption.LegacyUsageDetail)
			if !ok || legacy.Properties == nil {
				continue
			}
			records = append(records, a.toRawRecord(legacy.Properties, instanceTypes))
		}
	}

	return records, nil
}

func (a *AzureAdapter) toRawRecord(props *armconsumption.LegacyUsageDetailProperties, instanceTypes map[string]string) cost.RawRecord {
	rec := cost.RawRecord{}

	if props.ConsumedService != nil {
		rec.Service = *props.ConsumedService
	}
	if props.ResourceLocation != nil {
		rec.Region = *props.ResourceLocation
	}
	if props.ResourceID != nil {
		rec.ResourceID = *props.ResourceID
	}
	if props.Cost != nil {
		rec.Amount = strconv.FormatFloat(*props.Cost, 'f', -1, 64)
	}
	if props.BillingCurrency != nil {
		rec.Currency = *props.BillingCurrency
	}
	if props.Quantity != nil {
		rec.UsageQuantity = *props.Quantity
	}
	if props.MeterDetails != nil && props.MeterDetails.UnitOfMeasure != nil {
		rec.UsageUnit = *props.MeterDetails.UnitOfMeasure
	}
	if props.Date != nil {
		rec.PeriodStart = *props.Date
		rec.PeriodEnd = props.Date.AddDate(0, 0, 1)
	}
	if t, ok := instanceTypes[strings.ToLower(rec.ResourceID)]; ok {
		rec.Tags = map[string]string{"instance_type": t}
	}

	return rec
}

// vmInstanceTypes maps lowercased VM resource IDs to their size names.
func (a *AzureAdapter) vmInstanceTypes(ctx context.Context) (map[string]string, error) {
	types := make(map[string]string)
	pager := a.vms.NewListAllPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &cost.AdapterError{Provider: cost.ProviderAzure, Op: "list virtual machines", Err: err}
		}
		for _, vm := range page.Value {
			if vm.ID == nil || vm.Properties == nil || vm.Properties.HardwareProfile == nil || vm.Properties.HardwareProfile.VMSize == nil {
				continue
			}
			types[strings.ToLower(*vm.ID)] = string(*vm.Properties.HardwareProfile.VMSize)
		}
	}
	return types, nil
}

// ValidateCredentials runs a minimal month-to-date aggregate query.
func (a *AzureAdapter) ValidateCredentials(ctx context.Context) error {
	scope := "/subscriptions/" + a.subscriptionID
	exportType := armcostmanagement.ExportTypeActualCost
	timeframe := armcostmanagement.TimeframeTypeMonthToDate
	granularity := armcostmanagement.GranularityType("None")
	function := armcostmanagement.FunctionTypeSum
	column := "Cost"

	definition := armcostmanagement.QueryDefinition{
		Type:      &exportType,
		Timeframe: &timeframe,
		Dataset: &armcostmanagement.QueryDataset{
			Granularity: &granularity,
			Aggregation: map[string]*armcostmanagement.QueryAggregation{
				"totalCost": {Name: &column, Function: &function},
			},
		},
	}

	if _, err := a.query.Usage(ctx, scope, definition, nil); err != nil {
		return &cost.AdapterError{Provider: cost.ProviderAzure, Op: "validate credentials", Err: err}
	}
	return nil
}
