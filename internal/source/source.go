// Package source reads the current depth of a queue from one of several
// metric backends.
package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

// Window is the trailing range queried from time-series backends. It is the
// finest resolution that is meaningful for any backlog-driving signal.
const Window = 5 * time.Minute

// Source fetches a single scalar queue depth.
type Source interface {
	// Fetch reads the current queue depth described by req
	Fetch(ctx context.Context, req *models.MetricRequest) (models.MetricReading, error)

	// Close releases any resources held by the source
	Close() error
}

// Registry dispatches a request to the source registered for its provider.
type Registry struct {
	mu      sync.RWMutex
	sources map[models.Provider]Source
}

func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[models.Provider]Source),
	}
}

func (r *Registry) Register(provider models.Provider, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[provider] = src
}

// Resolve maps a provider selector onto a registered source without
// touching the network.
func (r *Registry) Resolve(selector string) (Source, error) {
	provider, err := models.ParseProvider(selector)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	src, ok := r.sources[provider]
	r.mu.RUnlock()

	if !ok {
		return nil, &models.InvalidProviderError{Provider: selector, Reason: "provider is not configured"}
	}
	return src, nil
}

func (r *Registry) Fetch(ctx context.Context, req *models.MetricRequest) (models.MetricReading, error) {
	src, err := r.Resolve(req.MetricProvider)
	if err != nil {
		return 0, err
	}
	return src.Fetch(ctx, req)
}

func (r *Registry) Providers() []models.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]models.Provider, 0, len(r.sources))
	for p := range r.sources {
		providers = append(providers, p)
	}
	return providers
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for p, src := range r.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s source: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

func checkReading(value float64) (models.MetricReading, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0, fmt.Errorf("%w: invalid queue depth %v", models.ErrMetricBackend, value)
	}
	return models.MetricReading(value), nil
}
