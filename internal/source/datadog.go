package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV1"

	"github.com/OldStager01/ecs-queue-backlog/internal/logger"
	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

// DatadogAPI is the subset of the Datadog metrics API used to query a series.
type DatadogAPI interface {
	QueryMetrics(ctx context.Context, from int64, to int64, query string) (datadogV1.MetricsQueryResponse, *http.Response, error)
}

type DatadogConfig struct {
	APIKey string
	AppKey string
	Site   string
}

// DatadogSource reads the most recent point of an aggregated series.
type DatadogSource struct {
	api    DatadogAPI
	config DatadogConfig
	now    func() time.Time
}

func NewDatadogSource(cfg DatadogConfig) *DatadogSource {
	client := datadog.NewAPIClient(datadog.NewConfiguration())
	return NewDatadogSourceWithAPI(datadogV1.NewMetricsApi(client), cfg)
}

func NewDatadogSourceWithAPI(api DatadogAPI, cfg DatadogConfig) *DatadogSource {
	return &DatadogSource{
		api:    api,
		config: cfg,
		now:    time.Now,
	}
}

// DatadogQuery renders "<aggregate>:<metric>{<filter>}"; an empty filter
// selects every scope.
func DatadogQuery(req *models.MetricRequest) string {
	aggregate := req.MetricAggregate
	if aggregate == "" {
		aggregate = models.DefaultAggregate
	}
	filter := req.MetricFilter
	if filter == "" {
		filter = "*"
	}
	return fmt.Sprintf("%s:%s{%s}", aggregate, req.MetricName, filter)
}

func (s *DatadogSource) Fetch(ctx context.Context, req *models.MetricRequest) (models.MetricReading, error) {
	to := s.now()
	from := to.Add(-Window)
	query := DatadogQuery(req)

	logger.FromContext(ctx).Debugf("Querying Datadog: %s", query)

	resp, httpResp, err := s.api.QueryMetrics(s.authContext(ctx), from.Unix(), to.Unix(), query)
	if err != nil {
		if httpResp != nil {
			return 0, fmt.Errorf("%w: datadog query %q returned status %d: %v", models.ErrMetricBackend, query, httpResp.StatusCode, err)
		}
		return 0, fmt.Errorf("%w: datadog query %q: %v", models.ErrMetricBackend, query, err)
	}

	if resp.GetStatus() == "error" {
		return 0, fmt.Errorf("%w: datadog query %q: %s", models.ErrMetricBackend, query, resp.GetError())
	}

	series := resp.GetSeries()
	if len(series) == 0 {
		return 0, fmt.Errorf("%w: datadog query %q", models.ErrNoData, query)
	}

	points := series[0].GetPointlist()
	for i := len(points) - 1; i >= 0; i-- {
		point := points[i]
		if len(point) < 2 || point[1] == nil {
			continue
		}
		return checkReading(*point[1])
	}

	return 0, fmt.Errorf("%w: datadog query %q returned no points", models.ErrNoData, query)
}

func (s *DatadogSource) authContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, datadog.ContextAPIKeys, map[string]datadog.APIKey{
		"apiKeyAuth": {Key: s.config.APIKey},
		"appKeyAuth": {Key: s.config.AppKey},
	})
	if s.config.Site != "" {
		ctx = context.WithValue(ctx, datadog.ContextServerVariables, map[string]string{
			"site": s.config.Site,
		})
	}
	return ctx
}

func (s *DatadogSource) Close() error {
	return nil
}
