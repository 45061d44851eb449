// Package service looks up the desired task count of an ECS service.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

const statusInactive = "INACTIVE"

// Lookup returns a fresh snapshot of a service. Implementations must not
// cache: the desired count changes with external scaling actions.
type Lookup interface {
	Fetch(ctx context.Context, cluster, service string) (models.ServiceState, error)
}

// ECSAPI is the subset of the ECS client used to describe services.
type ECSAPI interface {
	DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
}

type ECSLookup struct {
	client ECSAPI
}

func NewECSLookup(client ECSAPI) *ECSLookup {
	return &ECSLookup{client: client}
}

func (l *ECSLookup) Fetch(ctx context.Context, cluster, service string) (models.ServiceState, error) {
	out, err := l.client.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(cluster),
		Services: []string{service},
	})
	if err != nil {
		var clusterErr *types.ClusterNotFoundException
		var serviceErr *types.ServiceNotFoundException
		if errors.As(err, &clusterErr) || errors.As(err, &serviceErr) {
			return models.ServiceState{}, fmt.Errorf("%w: %s/%s: %v", models.ErrServiceNotFound, cluster, service, err)
		}
		return models.ServiceState{}, fmt.Errorf("%w: describe %s/%s: %v", models.ErrServiceLookup, cluster, service, err)
	}

	for _, failure := range out.Failures {
		logger.FromContext(ctx).Warnf("DescribeServices failure for %s: %s %s",
			aws.ToString(failure.Arn), aws.ToString(failure.Reason), aws.ToString(failure.Detail))
	}

	for _, svc := range out.Services {
		if aws.ToString(svc.ServiceName) != service && aws.ToString(svc.ServiceArn) != service {
			continue
		}
		if aws.ToString(svc.Status) == statusInactive {
			break
		}
		return models.ServiceState{
			DesiredCount: int(svc.DesiredCount),
			RunningCount: int(svc.RunningCount),
			Status:       aws.ToString(svc.Status),
		}, nil
	}

	return models.ServiceState{}, fmt.Errorf("%w: %s/%s", models.ErrServiceNotFound, cluster, service)
}
