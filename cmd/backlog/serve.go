package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OldStager01/ecs-queue-backlog/api"
	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
	"github.com/OldStager01/ecs-queue-backlog/internal/scheduler"
	"github.com/OldStager01/ecs-queue-backlog/pkg/config"
)

func newServeCommand(load configLoader, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger API, plus the scheduler when targets are configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, overrides{})
			if err != nil {
				return err
			}
			defer a.Close()

			deps := api.Dependencies{
				Invoker:   a.handler,
				Providers: a.sources,
				Metrics:   a.recorder.Handler(),
			}

			if len(cfg.Schedule.Targets) > 0 {
				sched, err := startScheduler(a, cfg, *configPath)
				if err != nil {
					return err
				}
				defer sched.Stop()
				deps.Scheduler = sched
			}

			server := api.NewServer(cfg.API, deps)

			errChan := make(chan error, 1)
			go func() {
				logger.Infof("API server listening on port %d", cfg.API.Port)
				if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errChan <- err
				}
			}()

			select {
			case err := <-errChan:
				return fmt.Errorf("server error: %w", err)
			case <-ctx.Done():
				logger.Info("Shutdown signal received")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown error: %w", err)
			}

			logger.Info("Server stopped gracefully")
			return nil
		},
	}
}

// startScheduler starts the cron scheduler and keeps its targets in sync
// with the config file.
func startScheduler(a *app, cfg *config.Config, configPath string) (*scheduler.Scheduler, error) {
	sched, err := scheduler.New(a.handler, schedulerConfig(cfg))
	if err != nil {
		return nil, err
	}

	err = config.Watch(configPath, func(next *config.Config) {
		if err := sched.Reload(schedulerConfig(next)); err != nil {
			logger.Errorf("Failed to apply reloaded schedule: %v", err)
			return
		}
		logger.Info("Schedule reloaded from config")
	}, func(err error) {
		logger.Warnf("Ignoring config change: %v", err)
	})
	if err != nil && !errors.Is(err, config.ErrNoConfigFile) {
		return nil, err
	}

	sched.Start()
	return sched, nil
}

func schedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Spec:    cfg.Schedule.Spec,
		Timeout: cfg.Schedule.Timeout,
		Targets: cfg.Schedule.Targets,
	}
}
