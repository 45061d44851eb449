package source

import (
	"context"
	"sync"

	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

// MockSource returns a fixed reading. It backs the run command's --reading
// override and tests.
type MockSource struct {
	mu      sync.Mutex
	reading models.MetricReading
	err     error
	calls   int
}

func NewMockSource(reading models.MetricReading) *MockSource {
	return &MockSource{reading: reading}
}

func (s *MockSource) SetReading(reading models.MetricReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reading = reading
}

func (s *MockSource) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MockSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *MockSource) Fetch(ctx context.Context, req *models.MetricRequest) (models.MetricReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.reading, nil
}

func (s *MockSource) Close() error {
	return nil
}
