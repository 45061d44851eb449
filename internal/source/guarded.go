package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
	"github.com/OldStager01/ecs-queue-backlog/internal/resilience"
	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

// GuardedSource puts a circuit breaker in front of a source. Only backend
// failures trip it; a missing queue or an empty series is an answer, not an
// outage. While open, fetches fail immediately with ErrMetricBackend.
type GuardedSource struct {
	provider models.Provider
	source   Source
	breaker  *resilience.CircuitBreaker
}

type GuardConfig struct {
	MaxFailures int
	Cooldown    time.Duration
}

func NewGuardedSource(provider models.Provider, src Source, cfg GuardConfig) *GuardedSource {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        provider.String(),
		MaxFailures: cfg.MaxFailures,
		Cooldown:    cfg.Cooldown,
		IsFailure: func(err error) bool {
			return errors.Is(err, models.ErrMetricBackend)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.WithField("provider", name).Warnf("Metric backend circuit %s -> %s", from, to)
		},
	})

	return &GuardedSource{provider: provider, source: src, breaker: breaker}
}

func (g *GuardedSource) Fetch(ctx context.Context, req *models.MetricRequest) (models.MetricReading, error) {
	var reading models.MetricReading

	err := g.breaker.Execute(func() error {
		var err error
		reading, err = g.source.Fetch(ctx, req)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return 0, fmt.Errorf("%w: %s: %v", models.ErrMetricBackend, g.provider, err)
	}
	if err != nil {
		return 0, err
	}
	return reading, nil
}

func (g *GuardedSource) State() resilience.State {
	return g.breaker.State()
}

func (g *GuardedSource) Close() error {
	return g.source.Close()
}
