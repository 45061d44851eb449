package backlog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/ecs-queue-backlog/internal/emitter"
	"github.com/OldStager01/ecs-queue-backlog/internal/metrics"
	"github.com/OldStager01/ecs-queue-backlog/internal/service"
	"github.com/OldStager01/ecs-queue-backlog/internal/source"
	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

type fixture struct {
	handler  *Handler
	source   *source.MockSource
	lookup   *service.StaticLookup
	emitter  *emitter.RecordingEmitter
	recorder *metrics.Recorder
}

func newFixture(reading models.MetricReading, workers int) *fixture {
	src := source.NewMockSource(reading)
	registry := source.NewRegistry()
	registry.Register(models.ProviderSQS, src)
	registry.Register(models.ProviderDatadog, src)

	f := &fixture{
		source:   src,
		lookup:   service.NewStaticLookup(workers),
		emitter:  emitter.NewRecordingEmitter(),
		recorder: metrics.NewRecorder(),
	}
	f.handler = New(Config{
		Sources:  registry,
		Services: f.lookup,
		Emitter:  f.emitter,
		Recorder: f.recorder,
	})
	f.handler.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func rate(v float64) *float64 {
	return &v
}

func request() models.MetricRequest {
	return models.MetricRequest{
		ClusterName:    "c1",
		ServiceName:    "svc",
		QueueName:      "jobs",
		MetricProvider: "sqs",
	}
}

func TestHandle_BacklogWithWorkers(t *testing.T) {
	f := newFixture(100, 2)

	req := request()
	req.EstMsgsPerSec = rate(1)
	result, err := f.handler.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.Result{}, result)

	consumer, ok := f.emitter.Find(models.MetricQueueRequiresConsumer)
	require.True(t, ok)
	assert.Equal(t, 0.0, consumer.Value)
	assert.Equal(t, models.Dimensions{ClusterName: "c1", ServiceName: "svc", QueueName: "jobs"}, consumer.Dimensions)

	backlog, ok := f.emitter.Find(models.MetricQueueBacklog)
	require.True(t, ok)
	assert.Equal(t, 50.0, backlog.Value)
	assert.Equal(t, emitter.UnitSeconds, backlog.Unit)
	assert.Equal(t, consumer.Timestamp, backlog.Timestamp)

	count, err := testutil.GatherAndCount(f.recorder.Registry(), "backlog_invocations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandle_IdleServiceEmptyQueue(t *testing.T) {
	f := newFixture(0, 0)

	_, err := f.handler.Handle(context.Background(), request())
	require.NoError(t, err)

	consumer, ok := f.emitter.Find(models.MetricQueueRequiresConsumer)
	require.True(t, ok)
	assert.Equal(t, 0.0, consumer.Value)

	backlog, ok := f.emitter.Find(models.MetricQueueBacklog)
	require.True(t, ok)
	assert.Equal(t, 0.0, backlog.Value)
}

func TestHandle_UndefinedBacklogIsSuccess(t *testing.T) {
	f := newFixture(42, 0)

	_, err := f.handler.Handle(context.Background(), request())
	require.NoError(t, err)

	consumer, ok := f.emitter.Find(models.MetricQueueRequiresConsumer)
	require.True(t, ok)
	assert.Equal(t, 1.0, consumer.Value)

	_, ok = f.emitter.Find(models.MetricQueueBacklog)
	assert.False(t, ok)
	assert.Len(t, f.emitter.Points(), 1)
}

func TestHandle_ZeroRateFailsBeforeRemoteCalls(t *testing.T) {
	f := newFixture(100, 2)

	req := request()
	req.EstMsgsPerSec = rate(0)
	_, err := f.handler.Handle(context.Background(), req)

	assert.ErrorIs(t, err, models.ErrInvalidRate)
	assert.Empty(t, f.emitter.Points())
	assert.Zero(t, f.source.Calls())
	assert.Zero(t, f.lookup.Calls())
}

func TestHandle_UnknownProviderFailsBeforeRemoteCalls(t *testing.T) {
	for _, provider := range []string{"graphite", "", "prometheus"} {
		t.Run(fmt.Sprintf("provider %q", provider), func(t *testing.T) {
			f := newFixture(100, 2)

			req := request()
			req.MetricProvider = provider
			req.MetricName = "depth"
			_, err := f.handler.Handle(context.Background(), req)

			var providerErr *models.InvalidProviderError
			require.ErrorAs(t, err, &providerErr)
			assert.Equal(t, provider, providerErr.Provider)
			assert.Zero(t, f.source.Calls())
			assert.Zero(t, f.lookup.Calls())
			assert.Empty(t, f.emitter.Points())
		})
	}
}

func TestHandle_FetchErrorsAreTerminal(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*fixture)
		expectErr error
	}{
		{
			name:      "queue not found",
			setup:     func(f *fixture) { f.source.SetError(fmt.Errorf("%w: jobs", models.ErrQueueNotFound)) },
			expectErr: models.ErrQueueNotFound,
		},
		{
			name:      "no data",
			setup:     func(f *fixture) { f.source.SetError(models.ErrNoData) },
			expectErr: models.ErrNoData,
		},
		{
			name:      "service not found",
			setup:     func(f *fixture) { f.lookup.SetError(models.ErrServiceNotFound) },
			expectErr: models.ErrServiceNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(10, 1)
			tt.setup(f)

			_, err := f.handler.Handle(context.Background(), request())

			assert.ErrorIs(t, err, tt.expectErr)
			assert.Empty(t, f.emitter.Points())
		})
	}
}

func TestHandle_FailedConsumerEmissionStillEmitsBacklog(t *testing.T) {
	f := newFixture(100, 4)
	f.emitter.FailOn(models.MetricQueueRequiresConsumer, errors.New("throttled"))

	_, err := f.handler.Handle(context.Background(), request())

	assert.ErrorIs(t, err, models.ErrEmission)
	backlog, ok := f.emitter.Find(models.MetricQueueBacklog)
	require.True(t, ok)
	assert.Equal(t, 25.0, backlog.Value)
}

func TestHandle_TimeSeriesAliasUsesDatadogSource(t *testing.T) {
	f := newFixture(9, 3)

	req := request()
	req.MetricProvider = "time-series"
	req.MetricName = "aws.sqs.approximate_number_of_messages_visible"
	_, err := f.handler.Handle(context.Background(), req)
	require.NoError(t, err)

	backlog, ok := f.emitter.Find(models.MetricQueueBacklog)
	require.True(t, ok)
	assert.Equal(t, 3.0, backlog.Value)
}

func TestHandle_TimeSeriesQueueNameIsOnlyADimension(t *testing.T) {
	f := newFixture(30, 3)

	req := request()
	req.MetricProvider = "time-series"
	req.MetricName = "rabbitmq.queue.messages"
	req.QueueName = "orders.high"
	_, err := f.handler.Handle(context.Background(), req)
	require.NoError(t, err)

	backlog, ok := f.emitter.Find(models.MetricQueueBacklog)
	require.True(t, ok)
	assert.Equal(t, "orders.high", backlog.Dimensions.QueueName)
	assert.Equal(t, 10.0, backlog.Value)
}

func TestHandle_AcceptsECSARNs(t *testing.T) {
	f := newFixture(10, 1)

	req := request()
	req.ClusterName = "arn:aws:ecs:us-east-1:123456789012:cluster/c1"
	req.ServiceName = "arn:aws:ecs:us-east-1:123456789012:service/c1/svc"
	_, err := f.handler.Handle(context.Background(), req)
	require.NoError(t, err)

	point, ok := f.emitter.Find(models.MetricQueueRequiresConsumer)
	require.True(t, ok)
	assert.Equal(t, req.ClusterName, point.Dimensions.ClusterName)
}

func TestHandle_TrimsPaddedNames(t *testing.T) {
	f := newFixture(10, 1)

	req := request()
	req.ClusterName = " c1 "
	req.ServiceName = "svc\t"
	req.QueueName = " jobs"
	_, err := f.handler.Handle(context.Background(), req)
	require.NoError(t, err)

	points := f.emitter.Points()
	require.Len(t, points, 2)
	for _, p := range points {
		assert.Equal(t, models.Dimensions{ClusterName: "c1", ServiceName: "svc", QueueName: "jobs"}, p.Dimensions)
	}
}

func TestOutcomeFor(t *testing.T) {
	assert.Equal(t, metrics.OutcomeValidationError, outcomeFor(&models.InvalidProviderError{Provider: "x"}))
	assert.Equal(t, metrics.OutcomeNotFound, outcomeFor(models.ErrQueueNotFound))
	assert.Equal(t, metrics.OutcomeEmissionError, outcomeFor(models.ErrEmission))
	assert.Equal(t, metrics.OutcomeBackendError, outcomeFor(models.ErrMetricBackend))
}
