package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const metricNamespace = "BudgetGuard"

// PutMetric implements cloudprovider.MetricsSink: one custom datapoint
// in the BudgetGuard namespace.
func (p *Provider) PutMetric(ctx context.Context, name string, value float64, unit string) error {
	if unit == "" {
		unit = "None"
	}
	_, err := p.cwClient.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(metricNamespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(value),
				Unit:       cwtypes.StandardUnit(unit),
				Timestamp:  aws.Time(time.Now().UTC()),
			},
		},
	})
	return wrapErr("putting metric "+name, err)
}
