package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

// Invoker runs one backlog invocation.
type Invoker interface {
	Handle(ctx context.Context, req models.MetricRequest) (models.Result, error)
}

type InvocationHandler struct {
	invoker Invoker
}

func NewInvocationHandler(invoker Invoker) *InvocationHandler {
	return &InvocationHandler{invoker: invoker}
}

// Invoke computes and publishes the queue metrics for the request body.
// Success returns an empty object, including when the backlog is undefined.
func (h *InvocationHandler) Invoke(c *gin.Context) {
	var req models.MetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	result, err := h.invoker.Handle(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func statusFor(err error) int {
	switch {
	case models.IsValidationError(err):
		return http.StatusBadRequest
	case models.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
