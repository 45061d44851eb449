// Package scheduler triggers backlog invocations on a cron schedule for
// deployments that are not driven by an external scheduler.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

// Invoker runs a single invocation.
type Invoker interface {
	Handle(ctx context.Context, req models.MetricRequest) (models.Result, error)
}

type Config struct {
	Spec    string
	Timeout time.Duration
	Targets []models.MetricRequest
}

type Scheduler struct {
	invoker Invoker
	cron    *cron.Cron

	mu      sync.Mutex
	entryID cron.EntryID
	spec    string
	timeout time.Duration
	targets []models.MetricRequest
	running bool

	ctx    context.Context
	cancel context.CancelFunc
}

func New(invoker Invoker, cfg Config) (*Scheduler, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 50 * time.Second
	}

	s := &Scheduler{
		invoker: invoker,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{}),
			cron.SkipIfStillRunning(cronLogger{}),
		)),
	}

	if err := s.Reload(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload swaps the schedule and target list. In-flight runs finish with the
// targets they started with.
func (s *Scheduler) Reload(cfg Config) error {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 50 * time.Second
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.Spec != s.spec {
		id, err := s.cron.AddFunc(cfg.Spec, s.tick)
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cfg.Spec, err)
		}
		if s.entryID != 0 {
			s.cron.Remove(s.entryID)
		}
		s.entryID = id
		s.spec = cfg.Spec
	}

	s.timeout = cfg.Timeout
	s.targets = append([]models.MetricRequest(nil), cfg.Targets...)

	logger.Infof("Scheduler configured with %d targets on %q", len(cfg.Targets), cfg.Spec)
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	// A stopped scheduler starts again with a fresh context.
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true
	s.cron.Start()

	logger.Info("Scheduler started")
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.cron.Stop().Done()

	logger.Info("Scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) Targets() []models.MetricRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MetricRequest(nil), s.targets...)
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if ctx == nil {
		return
	}
	if err := s.RunOnce(ctx); err != nil {
		logger.Warnf("Scheduled run finished with errors: %v", err)
	}
}

// RunOnce invokes every target once, in order. A failing target does not
// stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	targets := append([]models.MetricRequest(nil), s.targets...)
	timeout := s.timeout
	s.mu.Unlock()

	var errs []error
	for _, target := range targets {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		runCtx, cancel := context.WithTimeout(ctx, timeout)
		runCtx = logger.WithTraceID(runCtx, models.NewInvocationID())
		_, err := s.invoker.Handle(runCtx, target)
		cancel()

		if err != nil {
			errs = append(errs, fmt.Errorf("%s/%s/%s: %w", target.ClusterName, target.ServiceName, target.QueueName, err))
		}
	}
	return errors.Join(errs...)
}

// cronLogger routes cron's own messages through the process logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
