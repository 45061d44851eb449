package emitter

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

const DefaultNamespace = "AWS/ECS"

// CloudWatchAPI is the subset of the CloudWatch client used to publish.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

type CloudWatchEmitter struct {
	client    CloudWatchAPI
	namespace string
}

func NewCloudWatchEmitter(client CloudWatchAPI, namespace string) *CloudWatchEmitter {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &CloudWatchEmitter{
		client:    client,
		namespace: namespace,
	}
}

func (e *CloudWatchEmitter) Emit(ctx context.Context, point models.Datapoint) error {
	datum := types.MetricDatum{
		MetricName: aws.String(point.MetricName),
		Dimensions: []types.Dimension{
			{Name: aws.String("ClusterName"), Value: aws.String(point.Dimensions.ClusterName)},
			{Name: aws.String("ServiceName"), Value: aws.String(point.Dimensions.ServiceName)},
			{Name: aws.String("QueueName"), Value: aws.String(point.Dimensions.QueueName)},
		},
		Timestamp: aws.Time(point.Timestamp),
		Value:     aws.Float64(point.Value),
	}
	if point.Unit != "" {
		datum.Unit = types.StandardUnit(point.Unit)
	}

	_, err := e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(e.namespace),
		MetricData: []types.MetricDatum{datum},
	})
	if err != nil {
		return fmt.Errorf("%w: put %s to %s: %v", models.ErrEmission, point.MetricName, e.namespace, err)
	}
	return nil
}
