package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/OldStager01/ecs-queue-backlog/internal/backlog"
	"github.com/OldStager01/ecs-queue-backlog/internal/emitter"
	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
	"github.com/OldStager01/ecs-queue-backlog/internal/metrics"
	"github.com/OldStager01/ecs-queue-backlog/internal/service"
	"github.com/OldStager01/ecs-queue-backlog/internal/source"
	"github.com/OldStager01/ecs-queue-backlog/pkg/config"
	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

// app holds the clients built once at process start.
type app struct {
	sources  *source.Registry
	services service.Lookup
	emitter  emitter.Emitter
	recorder *metrics.Recorder
	handler  *backlog.Handler
}

// overrides replace remote collaborators for one-shot runs.
type overrides struct {
	// reading, when set, is served for the provider named by provider.
	reading  *models.MetricReading
	provider string
	desired  *int
	dryRun   bool
}

func newApp(ctx context.Context, cfg *config.Config, o overrides) (*app, error) {
	a := &app{
		sources:  source.NewRegistry(),
		recorder: metrics.NewRecorder(),
	}

	var awsCfg *aws.Config
	awsClients := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := loadAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return aws.Config{}, err
		}
		awsCfg = &c
		return c, nil
	}

	if o.reading != nil {
		if p, err := models.ParseProvider(o.provider); err == nil {
			a.sources.Register(p, source.NewMockSource(*o.reading))
		}
	} else if err := registerSources(a.sources, cfg, awsClients); err != nil {
		return nil, err
	}

	if o.desired != nil {
		a.services = service.NewStaticLookup(*o.desired)
	} else {
		c, err := awsClients()
		if err != nil {
			return nil, err
		}
		a.services = service.NewECSLookup(ecs.NewFromConfig(c))
	}

	if o.dryRun {
		a.emitter = emitter.LogEmitter{}
	} else {
		c, err := awsClients()
		if err != nil {
			return nil, err
		}
		a.emitter = emitter.NewCloudWatchEmitter(cloudwatch.NewFromConfig(c), cfg.AWS.Namespace)
	}

	a.handler = backlog.New(backlog.Config{
		Sources:  a.sources,
		Services: a.services,
		Emitter:  a.emitter,
		Recorder: a.recorder,
	})

	return a, nil
}

func registerSources(registry *source.Registry, cfg *config.Config, awsClients func() (aws.Config, error)) error {
	c, err := awsClients()
	if err != nil {
		return err
	}

	guard := func(p models.Provider, src source.Source) source.Source {
		if !cfg.Breaker.Enabled() {
			return src
		}
		return source.NewGuardedSource(p, src, source.GuardConfig{
			MaxFailures: cfg.Breaker.MaxFailures,
			Cooldown:    cfg.Breaker.Cooldown,
		})
	}

	registry.Register(models.ProviderSQS, guard(models.ProviderSQS, source.NewSQSSource(sqs.NewFromConfig(c))))

	if cfg.Datadog.Enabled() {
		registry.Register(models.ProviderDatadog, guard(models.ProviderDatadog, source.NewDatadogSource(source.DatadogConfig{
			APIKey: cfg.Datadog.APIKey,
			AppKey: cfg.Datadog.AppKey,
			Site:   cfg.Datadog.Site,
		})))
	}

	if cfg.Prometheus.Enabled() {
		prom, err := source.NewPrometheusSource(source.PrometheusConfig{
			Address: cfg.Prometheus.Address,
			Step:    cfg.Prometheus.Step,
			Timeout: cfg.Prometheus.Timeout,
		})
		if err != nil {
			return err
		}
		registry.Register(models.ProviderPrometheus, guard(models.ProviderPrometheus, prom))
	}

	logger.Infof("Metric providers configured: %v", registry.Providers())
	return nil
}

func loadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}
	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return awsCfg, nil
}

func (a *app) Close() error {
	return a.sources.Close()
}
