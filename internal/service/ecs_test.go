package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

type fakeECS struct {
	out   *ecs.DescribeServicesOutput
	err   error
	input *ecs.DescribeServicesInput
	calls int
}

func (f *fakeECS) DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	f.calls++
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func activeService(name string, desired int32) types.Service {
	return types.Service{
		ServiceName:  aws.String(name),
		ServiceArn:   aws.String("arn:aws:ecs:us-east-1:123456789012:service/c1/" + name),
		Status:       aws.String("ACTIVE"),
		DesiredCount: desired,
		RunningCount: desired,
	}
}

func TestECSLookup_Fetch(t *testing.T) {
	fake := &fakeECS{
		out: &ecs.DescribeServicesOutput{Services: []types.Service{activeService("svc", 2)}},
	}

	state, err := NewECSLookup(fake).Fetch(context.Background(), "c1", "svc")
	require.NoError(t, err)

	assert.Equal(t, 2, state.DesiredCount)
	assert.Equal(t, "ACTIVE", state.Status)
	assert.Equal(t, "c1", aws.ToString(fake.input.Cluster))
	assert.Equal(t, []string{"svc"}, fake.input.Services)
}

func TestECSLookup_NeverCaches(t *testing.T) {
	fake := &fakeECS{
		out: &ecs.DescribeServicesOutput{Services: []types.Service{activeService("svc", 2)}},
	}
	lookup := NewECSLookup(fake)

	_, err := lookup.Fetch(context.Background(), "c1", "svc")
	require.NoError(t, err)

	fake.out = &ecs.DescribeServicesOutput{Services: []types.Service{activeService("svc", 0)}}
	state, err := lookup.Fetch(context.Background(), "c1", "svc")
	require.NoError(t, err)

	assert.Equal(t, 0, state.DesiredCount)
	assert.Equal(t, 2, fake.calls)
}

func TestECSLookup_Errors(t *testing.T) {
	inactive := activeService("svc", 1)
	inactive.Status = aws.String("INACTIVE")

	tests := []struct {
		name      string
		fake      *fakeECS
		expectErr error
	}{
		{
			name: "missing service",
			fake: &fakeECS{out: &ecs.DescribeServicesOutput{
				Failures: []types.Failure{{Arn: aws.String("svc"), Reason: aws.String("MISSING")}},
			}},
			expectErr: models.ErrServiceNotFound,
		},
		{
			name:      "inactive service",
			fake:      &fakeECS{out: &ecs.DescribeServicesOutput{Services: []types.Service{inactive}}},
			expectErr: models.ErrServiceNotFound,
		},
		{
			name:      "unknown cluster",
			fake:      &fakeECS{err: &types.ClusterNotFoundException{Message: aws.String("Cluster not found.")}},
			expectErr: models.ErrServiceNotFound,
		},
		{
			name:      "transport failure",
			fake:      &fakeECS{err: errors.New("request timeout")},
			expectErr: models.ErrServiceLookup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewECSLookup(tt.fake).Fetch(context.Background(), "c1", "svc")
			assert.ErrorIs(t, err, tt.expectErr)
		})
	}
}

func TestECSLookup_FetchByARN(t *testing.T) {
	clusterARN := "arn:aws:ecs:us-east-1:123456789012:cluster/c1"
	serviceARN := "arn:aws:ecs:us-east-1:123456789012:service/c1/svc"
	fake := &fakeECS{
		out: &ecs.DescribeServicesOutput{Services: []types.Service{activeService("svc", 3)}},
	}

	state, err := NewECSLookup(fake).Fetch(context.Background(), clusterARN, serviceARN)
	require.NoError(t, err)

	assert.Equal(t, 3, state.DesiredCount)
	assert.Equal(t, clusterARN, aws.ToString(fake.input.Cluster))
	assert.Equal(t, []string{serviceARN}, fake.input.Services)
}
