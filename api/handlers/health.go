package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

// ProviderLister reports which metric providers are configured.
type ProviderLister interface {
	Providers() []models.Provider
}

type HealthHandler struct {
	providers ProviderLister
	scheduler SchedulerStatus
}

// SchedulerStatus is satisfied by the cron scheduler; nil when disabled.
type SchedulerStatus interface {
	IsRunning() bool
	Targets() []models.MetricRequest
}

func NewHealthHandler(providers ProviderLister, scheduler SchedulerStatus) *HealthHandler {
	return &HealthHandler{providers: providers, scheduler: scheduler}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Providers []string          `json:"providers,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) Health(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	var providers []string
	for _, p := range h.providers.Providers() {
		providers = append(providers, p.String())
	}
	sort.Strings(providers)

	if len(providers) == 0 {
		checks["providers"] = "unhealthy: no metric provider configured"
		status = "unhealthy"
	} else {
		checks["providers"] = "healthy"
	}

	if h.scheduler != nil {
		if h.scheduler.IsRunning() {
			checks["scheduler"] = "running"
		} else {
			checks["scheduler"] = "stopped"
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Providers: providers,
		Checks:    checks,
	})
}

func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
