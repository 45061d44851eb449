// Package emitter publishes derived queue metrics to a monitoring sink.
package emitter

import (
	"context"
	"sync"

	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

const (
	UnitSeconds = "Seconds"
	UnitNone    = "None"
)

// Emitter publishes one datapoint per call.
type Emitter interface {
	Emit(ctx context.Context, point models.Datapoint) error
}

// LogEmitter only logs datapoints. Used for dry runs.
type LogEmitter struct{}

func (LogEmitter) Emit(ctx context.Context, point models.Datapoint) error {
	dims := point.Dimensions
	logger.WithTarget(ctx, dims.ClusterName, dims.ServiceName, dims.QueueName).
		WithField("dry_run", true).
		Infof("Would emit %s=%v", point.MetricName, point.Value)
	return nil
}

// RecordingEmitter keeps every datapoint in memory and can be told to fail
// for a given metric name.
type RecordingEmitter struct {
	mu     sync.Mutex
	points []models.Datapoint
	fail   map[string]error
}

func NewRecordingEmitter() *RecordingEmitter {
	return &RecordingEmitter{fail: make(map[string]error)}
}

func (e *RecordingEmitter) FailOn(metricName string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail[metricName] = err
}

func (e *RecordingEmitter) Emit(ctx context.Context, point models.Datapoint) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err, ok := e.fail[point.MetricName]; ok {
		return err
	}
	e.points = append(e.points, point)
	return nil
}

func (e *RecordingEmitter) Points() []models.Datapoint {
	e.mu.Lock()
	defer e.mu.Unlock()

	points := make([]models.Datapoint, len(e.points))
	copy(points, e.points)
	return points
}

// Find returns the last recorded datapoint with the given name.
func (e *RecordingEmitter) Find(metricName string) (models.Datapoint, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := len(e.points) - 1; i >= 0; i-- {
		if e.points[i].MetricName == metricName {
			return e.points[i], true
		}
	}
	return models.Datapoint{}, false
}
