package service

import (
	"context"
	"sync"

	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

// StaticLookup reports a fixed desired count for every service. It backs
// the run command's --desired-count override and tests.
type StaticLookup struct {
	mu    sync.Mutex
	state models.ServiceState
	err   error
	calls int
}

func NewStaticLookup(desired int) *StaticLookup {
	return &StaticLookup{state: models.ServiceState{DesiredCount: desired, Status: "ACTIVE"}}
}

func (l *StaticLookup) SetDesiredCount(desired int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.DesiredCount = desired
}

func (l *StaticLookup) SetError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func (l *StaticLookup) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *StaticLookup) Fetch(ctx context.Context, cluster, service string) (models.ServiceState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.err != nil {
		return models.ServiceState{}, l.err
	}
	return l.state, nil
}
