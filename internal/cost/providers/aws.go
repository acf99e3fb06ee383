package providers

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/costexplorer"
	"github.com/aws/aws-sdk-go/service/sts"
	"golang.org/x/time/rate"

	"github.com/ochestra-tech/cloudoptimizer/internal/cost"
)

const awsDateLayout = "2006-01-02"

// AWSAdapter fetches billing line items from the AWS Cost Explorer API.
type AWSAdapter struct {
	session *session.Session
	ce      *costexplorer.CostExplorer
	sts     *sts.STS
	region  string
	// Cost Explorer allows very few requests per second per account.
	limiter *rate.Limiter
}

// NewAWSAdapter creates an adapter using the given region and shared
// credentials profile.
func NewAWSAdapter(region, profile string) (*AWSAdapter, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		Profile:           profile,
		Config:            aws.Config{Region: aws.String(region)},
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, &cost.AdapterError{Provider: cost.ProviderAWS, Op: "create session", Err: err}
	}

	return &AWSAdapter{
		session: sess,
		ce:      costexplorer.New(sess),
		sts:     sts.New(sess),
		region:  region,
		limiter: rate.NewLimiter(rate.Limit(1), 2),
	}, nil
}

func (a *AWSAdapter) Provider() cost.Provider {
	return cost.ProviderAWS
}

// FetchCostRecords pages through daily resource-level cost and usage for
// the window.
func (a *AWSAdapter) FetchCostRecords(ctx context.Context, start, end time.Time) ([]cost.RawRecord, error) {
	var records []cost.RawRecord
	var nextToken *string

	for {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, &cost.AdapterError{Provider: cost.ProviderAWS, Op: "throttle", Err: err}
		}

		input := &costexplorer.GetCostAndUsageWithResourcesInput{
			TimePeriod: &costexplorer.DateInterval{
				Start: aws.String(start.Format(awsDateLayout)),
				End:   aws.String(end.Format(awsDateLayout)),
			},
			Granularity: aws.String(costexplorer.GranularityDaily),
			Metrics:     []*string{aws.String("UnblendedCost"), aws.String("UsageQuantity")},
			Filter: &costexplorer.Expression{
				Dimensions: &costexplorer.DimensionValues{
					Key:    aws.String("RECORD_TYPE"),
					Values: []*string{aws.String("Usage")},
				},
			},
			GroupBy: []*costexplorer.GroupDefinition{
				{Type: aws.String("DIMENSION"), Key: aws.String("SERVICE")},
				{Type: aws.String("DIMENSION"), Key: aws.String("RESOURCE_ID")},
			},
			NextPageToken: nextToken,
		}

		out, err := a.ce.GetCostAndUsageWithResourcesWithContext(ctx, input)
		if err != nil {
			return nil, &cost.AdapterError{Provider: cost.ProviderAWS, Op: "get cost and usage", Err: err}
		}

		for _, result := range out.ResultsByTime {
			periodStart, periodEnd, err := parseInterval(result.TimePeriod)
			if err != nil {
				continue
			}
			for _, group := range result.Groups {
				if len(group.Keys) < 2 {
					continue
				}
				rec := cost.RawRecord{
					Service:     aws.StringValue(group.Keys[0]),
					ResourceID:  aws.StringValue(group.Keys[1]),
					Region:      a.region,
					PeriodStart: periodStart,
					PeriodEnd:   periodEnd,
				}
				if m, ok := group.Metrics["UnblendedCost"]; ok {
					rec.Amount = aws.StringValue(m.Amount)
					rec.Currency = aws.StringValue(m.Unit)
				}
				if m, ok := group.Metrics["UsageQuantity"]; ok {
					rec.UsageQuantity = parseFloat(aws.StringValue(m.Amount))
					rec.UsageUnit = aws.StringValue(m.Unit)
				}
				records = append(records, rec)
			}
		}

		nextToken = out.NextPageToken
		if nextToken == nil {
			break
		}
	}

	return records, nil
}

// ValidateCredentials resolves the caller identity.
func (a *AWSAdapter) ValidateCredentials(ctx context.Context) error {
	_, err := a.sts.GetCallerIdentityWithContext(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return &cost.AdapterError{Provider: cost.ProviderAWS, Op: "validate credentials", Err: err}
	}
	return nil
}

func parseInterval(interval *costexplorer.DateInterval) (time.Time, time.Time, error) {
	start, err := time.Parse(awsDateLayout, aws.StringValue(interval.Start))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(awsDateLayout, aws.StringValue(interval.End))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
