package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
	"github.com/OldStager01/ecs-queue-backlog/pkg/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "backlog",
		Short:         "Publish queue backlog metrics for ECS services",
		Long:          "backlog reads a queue depth and an ECS service's desired task count and publishes QueueRequiresConsumer and QueueBacklog to CloudWatch.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", os.Getenv("BACKLOG_CONFIG"), "path to config file")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}

		logger.Setup(cfg.App.LogLevel, cfg.App.Mode, cfg.App.Name)
		return cfg, nil
	}

	root.AddCommand(newLambdaCommand(load))
	root.AddCommand(newRunCommand(load))
	root.AddCommand(newServeCommand(load, &configPath))
	root.AddCommand(newScheduleCommand(load, &configPath))

	return root
}

type configLoader func() (*config.Config, error)
