package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

type runOptions struct {
	eventPath    string
	dryRun       bool
	reading      float64
	desiredCount int
	rate         float64
	request      models.MetricRequest
}

func newRunCommand(load configLoader) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single invocation from flags or an event file",
		Example: `  backlog run --cluster prod --service worker --queue jobs
  backlog run --event event.json --dry-run
  backlog run --cluster prod --service worker --queue jobs --reading 120 --desired-count 0 --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			req, err := opts.buildRequest(cmd)
			if err != nil {
				return err
			}

			o := overrides{dryRun: opts.dryRun, provider: req.MetricProvider}
			if cmd.Flags().Changed("reading") {
				reading := models.MetricReading(opts.reading)
				o.reading = &reading
			}
			if cmd.Flags().Changed("desired-count") {
				o.desired = &opts.desiredCount
			}

			a, err := newApp(cmd.Context(), cfg, o)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.handler.Handle(cmd.Context(), req)
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
		},
	}

	opts.bindFlags(cmd)

	return cmd
}

func (o *runOptions) bindFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.eventPath, "event", "", "path to a JSON invocation event; flags override its fields")
	f.BoolVar(&o.dryRun, "dry-run", false, "log datapoints instead of publishing them")
	f.Float64Var(&o.reading, "reading", 0, "use this queue depth instead of querying the provider")
	f.IntVar(&o.desiredCount, "desired-count", 0, "use this desired task count instead of querying ECS")
	f.Float64Var(&o.rate, "rate", models.DefaultMsgsPerSecond, "estimated messages per second per task")
	f.StringVar(&o.request.ClusterName, "cluster", "", "ECS cluster name")
	f.StringVar(&o.request.ServiceName, "service", "", "ECS service name")
	f.StringVar(&o.request.QueueName, "queue", "", "queue name")
	f.StringVar(&o.request.QueueOwnerAccountID, "queue-owner", "", "AWS account id owning the queue")
	f.StringVar(&o.request.MetricProvider, "provider", string(models.ProviderSQS), "metric provider: sqs, datadog or prometheus")
	f.StringVar(&o.request.MetricName, "metric-name", "", "metric or queue attribute to read")
	f.StringVar(&o.request.MetricAggregate, "aggregate", "", "time-series aggregation (default max)")
	f.StringVar(&o.request.MetricFilter, "filter", "", "time-series filter expression")
}

// buildRequest starts from the event file, if any, and applies every flag
// the user set explicitly.
func (o *runOptions) buildRequest(cmd *cobra.Command) (models.MetricRequest, error) {
	var req models.MetricRequest

	if o.eventPath != "" {
		data, err := os.ReadFile(o.eventPath)
		if err != nil {
			return req, fmt.Errorf("read event: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("%w: decode event: %v", models.ErrInvalidRequest, err)
		}
	}

	f := cmd.Flags()
	set := func(name string, dst *string, value string) {
		if f.Changed(name) || (o.eventPath == "" && value != "") {
			*dst = value
		}
	}
	set("cluster", &req.ClusterName, o.request.ClusterName)
	set("service", &req.ServiceName, o.request.ServiceName)
	set("queue", &req.QueueName, o.request.QueueName)
	set("queue-owner", &req.QueueOwnerAccountID, o.request.QueueOwnerAccountID)
	set("provider", &req.MetricProvider, o.request.MetricProvider)
	set("metric-name", &req.MetricName, o.request.MetricName)
	set("aggregate", &req.MetricAggregate, o.request.MetricAggregate)
	set("filter", &req.MetricFilter, o.request.MetricFilter)

	if f.Changed("rate") {
		rate := o.rate
		req.EstMsgsPerSec = &rate
	}

	return req, nil
}
