// Package estimator derives queue health metrics from a depth reading and
// the number of workers consuming the queue.
package estimator

import (
	"fmt"
	"math"

	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

// Estimate computes QueueRequiresConsumer and QueueBacklog.
//
// The backlog is undefined when no workers are configured but the queue is
// not empty; the returned Backlog then holds no value and RequiresConsumer
// is set.
func Estimate(reading models.MetricReading, workers int, rate float64) (models.ComputedMetrics, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return models.ComputedMetrics{}, fmt.Errorf("%w: %v", models.ErrInvalidRate, rate)
	}
	if workers < 0 {
		return models.ComputedMetrics{}, fmt.Errorf("%w: negative worker count %d", models.ErrInvalidRequest, workers)
	}
	depth := float64(reading)
	if depth < 0 || math.IsNaN(depth) {
		return models.ComputedMetrics{}, fmt.Errorf("%w: negative queue depth %v", models.ErrInvalidRequest, depth)
	}

	result := models.ComputedMetrics{
		RequiresConsumer: workers == 0 && depth > 0,
	}

	switch {
	case workers > 0:
		result.Backlog = models.SomeBacklog(depth / (float64(workers) * rate))
	case depth == 0:
		result.Backlog = models.SomeBacklog(0)
	default:
		result.Backlog = models.NoBacklog()
	}

	return result, nil
}
