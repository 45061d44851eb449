package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"

	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

const nonExistentQueueCode = "AWS.SimpleQueueService.NonExistentQueue"

// SQSAPI is the subset of the SQS client used to read queue attributes.
type SQSAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
}

// SQSSource reads the approximate depth attribute straight from the queue.
type SQSSource struct {
	client SQSAPI
}

func NewSQSSource(client SQSAPI) *SQSSource {
	return &SQSSource{client: client}
}

func (s *SQSSource) Fetch(ctx context.Context, req *models.MetricRequest) (models.MetricReading, error) {
	queueURL, err := s.resolveQueue(ctx, req)
	if err != nil {
		return 0, err
	}

	attribute := req.MetricName
	if attribute == "" {
		attribute = models.SQSDepthAttribute
	}

	out, err := s.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeName(attribute)},
	})
	if err != nil {
		if isQueueMissing(err) {
			return 0, fmt.Errorf("%w: %s: %v", models.ErrQueueNotFound, req.QueueName, err)
		}
		return 0, fmt.Errorf("%w: get attributes of %s: %v", models.ErrMetricBackend, req.QueueName, err)
	}

	raw, ok := out.Attributes[attribute]
	if !ok {
		logger.FromContext(ctx).Debugf("Queue %s has no attribute %s, reading 0", req.QueueName, attribute)
		return 0, nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: attribute %s=%q is not numeric", models.ErrMetricBackend, attribute, raw)
	}

	return checkReading(value)
}

func (s *SQSSource) resolveQueue(ctx context.Context, req *models.MetricRequest) (string, error) {
	input := &sqs.GetQueueUrlInput{
		QueueName: aws.String(req.QueueName),
	}
	if req.QueueOwnerAccountID != "" {
		input.QueueOwnerAWSAccountId = aws.String(req.QueueOwnerAccountID)
	}

	out, err := s.client.GetQueueUrl(ctx, input)
	if err != nil {
		if isQueueMissing(err) {
			return "", fmt.Errorf("%w: %s: %v", models.ErrQueueNotFound, req.QueueName, err)
		}
		return "", fmt.Errorf("%w: resolve queue %s: %v", models.ErrMetricBackend, req.QueueName, err)
	}

	if out.QueueUrl == nil || *out.QueueUrl == "" {
		return "", fmt.Errorf("%w: %s", models.ErrQueueNotFound, req.QueueName)
	}

	return *out.QueueUrl, nil
}

func isQueueMissing(err error) bool {
	var notExist *types.QueueDoesNotExist
	if errors.As(err, &notExist) {
		return true
	}

	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == nonExistentQueueCode
}

func (s *SQSSource) Close() error {
	return nil
}
