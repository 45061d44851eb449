package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
	"github.com/OldStager01/ecs-queue-backlog/internal/scheduler"
)

var errNoTargets = errors.New("schedule.targets is empty")

func newScheduleCommand(load configLoader, configPath *string) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Invoke the configured targets on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if len(cfg.Schedule.Targets) == 0 {
				return errNoTargets
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, overrides{})
			if err != nil {
				return err
			}
			defer a.Close()

			if once {
				sched, err := scheduler.New(a.handler, schedulerConfig(cfg))
				if err != nil {
					return err
				}
				return sched.RunOnce(ctx)
			}

			sched, err := startScheduler(a, cfg, *configPath)
			if err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("Shutdown signal received")
			sched.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "invoke every target once and exit")

	return cmd
}
