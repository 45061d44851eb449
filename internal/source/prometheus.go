package source

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

// PrometheusAPI is the subset of the Prometheus HTTP API used for range queries.
type PrometheusAPI interface {
	QueryRange(ctx context.Context, query string, r v1.Range, opts ...v1.Option) (model.Value, v1.Warnings, error)
}

type PrometheusConfig struct {
	Address string
	Step    time.Duration
	Timeout time.Duration
}

// PrometheusSource reads the last sample of an aggregated range query.
type PrometheusSource struct {
	api    PrometheusAPI
	config PrometheusConfig
	now    func() time.Time
}

func NewPrometheusSource(cfg PrometheusConfig) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("create prometheus client: %w", err)
	}
	return NewPrometheusSourceWithAPI(v1.NewAPI(client), cfg), nil
}

func NewPrometheusSourceWithAPI(promAPI PrometheusAPI, cfg PrometheusConfig) *PrometheusSource {
	if cfg.Step <= 0 {
		cfg.Step = time.Minute
	}
	return &PrometheusSource{
		api:    promAPI,
		config: cfg,
		now:    time.Now,
	}
}

// PrometheusQuery renders "<aggregate>(<metric>{<filter>})".
func PrometheusQuery(req *models.MetricRequest) string {
	aggregate := req.MetricAggregate
	if aggregate == "" {
		aggregate = models.DefaultAggregate
	}
	selector := req.MetricName
	if req.MetricFilter != "" {
		selector = fmt.Sprintf("%s{%s}", req.MetricName, req.MetricFilter)
	}
	return fmt.Sprintf("%s(%s)", aggregate, selector)
}

func (s *PrometheusSource) Fetch(ctx context.Context, req *models.MetricRequest) (models.MetricReading, error) {
	end := s.now()
	query := PrometheusQuery(req)

	var opts []v1.Option
	if s.config.Timeout > 0 {
		opts = append(opts, v1.WithTimeout(s.config.Timeout))
	}

	value, warnings, err := s.api.QueryRange(ctx, query, v1.Range{
		Start: end.Add(-Window),
		End:   end,
		Step:  s.config.Step,
	}, opts...)
	if err != nil {
		return 0, fmt.Errorf("%w: prometheus query %q: %v", models.ErrMetricBackend, query, err)
	}
	for _, w := range warnings {
		logger.FromContext(ctx).Warnf("Prometheus query %q warning: %s", query, w)
	}

	if value == nil {
		return 0, fmt.Errorf("%w: prometheus query %q", models.ErrNoData, query)
	}

	matrix, ok := value.(model.Matrix)
	if !ok {
		return 0, fmt.Errorf("%w: prometheus query %q returned %s, expected matrix", models.ErrMetricBackend, query, value.Type())
	}
	if len(matrix) == 0 || len(matrix[0].Values) == 0 {
		return 0, fmt.Errorf("%w: prometheus query %q", models.ErrNoData, query)
	}

	samples := matrix[0].Values
	return checkReading(float64(samples[len(samples)-1].Value))
}

func (s *PrometheusSource) Close() error {
	return nil
}
