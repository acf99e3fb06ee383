package providers

import (
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/consumption/armconsumption"
	"github.com/stretchr/testify/assert"
)

func TestAzureToRawRecord(t *testing.T) {
	a := &AzureAdapter{subscriptionID: "sub-1"}

	service := "Microsoft.Compute"
	location := "eastus"
	resourceID := "/subscriptions/sub-1/resourceGroups/rg/providers/Microsoft.Compute/virtualMachines/vm-1"
	costValue := 12.34
	currency := "USD"
	quantity := 24.0
	unit := "1 Hour"
	date := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	props := &armconsumption.LegacyUsageDetailProperties{
		ConsumedService:  &service,
		ResourceLocation: &location,
		ResourceID:       &resourceID,
		Cost:             &costValue,
		BillingCurrency:  &currency,
		Quantity:         &quantity,
		MeterDetails:     &armconsumption.MeterDetailsResponse{UnitOfMeasure: &unit},
		Date:             &date,
	}

	rec := a.toRawRecord(props, map[string]string{
		strings.ToLower(resourceID): "Standard_D4s_v3",
	})

	assert.Equal(t, "Microsoft.Compute", rec.Service)
	assert.Equal(t, "eastus", rec.Region)
	assert.Equal(t, resourceID, rec.ResourceID)
	assert.Equal(t, "12.34", rec.Amount)
	assert.Equal(t, "USD", rec.Currency)
	assert.Equal(t, 24.0, rec.UsageQuantity)
	assert.Equal(t, "1 Hour", rec.UsageUnit)
	assert.Equal(t, date, rec.PeriodStart)
	assert.Equal(t, date.AddDate(0, 0, 1), rec.PeriodEnd)
	assert.Equal(t, "Standard_D4s_v3", rec.Tags["instance_type"])
}

func TestAzureToRawRecordHandlesSparseDetail(t *testing.T) {
	a := &AzureAdapter{subscriptionID: "sub-1"}

	rec := a.toRawRecord(&armconsumption.LegacyUsageDetailProperties{}, nil)

	assert.Empty(t, rec.ResourceID)
	assert.Empty(t, rec.Amount)
	assert.Nil(t, rec.Tags)
}
