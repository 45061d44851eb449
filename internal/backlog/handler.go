// Package backlog runs one metric derivation: read the queue depth, read the
// service's desired task count, estimate, publish.
package backlog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/ecs-queue-backlog/internal/emitter"
	"github.com/OldStager01/ecs-queue-backlog/internal/estimator"
	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
	"github.com/OldStager01/ecs-queue-backlog/internal/metrics"
	"github.com/OldStager01/ecs-queue-backlog/internal/service"
	"github.com/OldStager01/ecs-queue-backlog/internal/source"
	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

// SourceResolver picks the source for a provider selector without any
// network access.
type SourceResolver interface {
	Resolve(selector string) (source.Source, error)
}

type Config struct {
	Sources  SourceResolver
	Services service.Lookup
	Emitter  emitter.Emitter
	// Recorder is optional.
	Recorder *metrics.Recorder
}

// Handler is safe for concurrent use; it holds no per-invocation state.
type Handler struct {
	sources  SourceResolver
	services service.Lookup
	emitter  emitter.Emitter
	recorder *metrics.Recorder
	now      func() time.Time
}

func New(cfg Config) *Handler {
	return &Handler{
		sources:  cfg.Sources,
		services: cfg.Services,
		emitter:  cfg.Emitter,
		recorder: cfg.Recorder,
		now:      time.Now,
	}
}

// Handle computes and publishes QueueRequiresConsumer and, when defined,
// QueueBacklog. An undefined backlog is not an error.
func (h *Handler) Handle(ctx context.Context, in models.MetricRequest) (models.Result, error) {
	start := time.Now()

	if logger.TraceIDFromContext(ctx) == "" {
		ctx = logger.WithTraceID(ctx, models.NewInvocationID())
	}

	req := in.WithDefaults()
	outcome, err := h.handle(ctx, &req)

	if h.recorder != nil {
		h.recorder.ObserveInvocation(providerLabel(req.MetricProvider), outcome, time.Since(start))
	}

	if err != nil {
		logger.WithTarget(ctx, req.ClusterName, req.ServiceName, req.QueueName).
			WithField("outcome", outcome).
			Errorf("Invocation failed: %v", err)
		return models.Result{}, err
	}
	return models.Result{}, nil
}

func (h *Handler) handle(ctx context.Context, req *models.MetricRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return metrics.OutcomeValidationError, err
	}

	src, err := h.sources.Resolve(req.MetricProvider)
	if err != nil {
		return metrics.OutcomeValidationError, err
	}

	log := logger.WithTarget(ctx, req.ClusterName, req.ServiceName, req.QueueName)

	reading, err := src.Fetch(ctx, req)
	if err != nil {
		return outcomeFor(err), err
	}

	state, err := h.services.Fetch(ctx, req.ClusterName, req.ServiceName)
	if err != nil {
		return outcomeFor(err), err
	}

	log.Debugf("Read queue depth %v with %d desired tasks", float64(reading), state.DesiredCount)

	computed, err := estimator.Estimate(reading, state.DesiredCount, req.Rate())
	if err != nil {
		return metrics.OutcomeValidationError, err
	}

	if h.recorder != nil {
		h.recorder.SetComputed(req.Dimensions(), reading, state, computed)
	}

	now := h.now().UTC()
	var errs []error

	if err := h.emit(ctx, req, models.MetricQueueRequiresConsumer, computed.RequiresConsumerValue(), emitter.UnitNone, now); err != nil {
		errs = append(errs, err)
	}

	seconds, ok := computed.Backlog.Seconds()
	if !ok {
		log.Infof("QueueBacklog is undefined with no tasks and %v messages, skipping", float64(reading))
		if len(errs) > 0 {
			return metrics.OutcomeEmissionError, errors.Join(errs...)
		}
		return metrics.OutcomeNoBacklog, nil
	}

	if err := h.emit(ctx, req, models.MetricQueueBacklog, seconds, emitter.UnitSeconds, now); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return metrics.OutcomeEmissionError, errors.Join(errs...)
	}
	return metrics.OutcomeSuccess, nil
}

func (h *Handler) emit(ctx context.Context, req *models.MetricRequest, name string, value float64, unit string, ts time.Time) error {
	err := h.emitter.Emit(ctx, models.Datapoint{
		Dimensions: req.Dimensions(),
		MetricName: name,
		Value:      value,
		Unit:       unit,
		Timestamp:  ts,
	})
	if err != nil {
		if !errors.Is(err, models.ErrEmission) {
			err = fmt.Errorf("%w: %s: %v", models.ErrEmission, name, err)
		}
		return err
	}

	logger.WithTarget(ctx, req.ClusterName, req.ServiceName, req.QueueName).
		Infof("Emitted %s=%v", name, value)
	return nil
}

func outcomeFor(err error) string {
	switch {
	case models.IsValidationError(err):
		return metrics.OutcomeValidationError
	case models.IsNotFound(err):
		return metrics.OutcomeNotFound
	case errors.Is(err, models.ErrEmission):
		return metrics.OutcomeEmissionError
	default:
		return metrics.OutcomeBackendError
	}
}

func providerLabel(selector string) string {
	if p, err := models.ParseProvider(selector); err == nil {
		return p.String()
	}
	return "invalid"
}
