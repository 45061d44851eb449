package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest  = errors.New("invalid metric request")
	ErrInvalidRate     = errors.New("invalid per-worker processing rate")
	ErrQueueNotFound   = errors.New("queue not found")
	ErrNoData          = errors.New("no data points in metric series")
	ErrMetricBackend   = errors.New("metric backend failure")
	ErrServiceNotFound = errors.New("service not found")
	ErrServiceLookup   = errors.New("service lookup failed")
	ErrEmission        = errors.New("metric emission failed")
)

// InvalidProviderError is returned when a request names a metric provider
// that is not one of the known variants.
type InvalidProviderError struct {
	Provider string
	Reason   string
}

func (e *InvalidProviderError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid metric provider %q: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("invalid metric provider %q", e.Provider)
}

// IsValidationError reports whether err was raised before any remote call.
func IsValidationError(err error) bool {
	var providerErr *InvalidProviderError
	return errors.As(err, &providerErr) ||
		errors.Is(err, ErrInvalidRate) ||
		errors.Is(err, ErrInvalidRequest)
}

// IsNotFound reports whether err means a queue or service does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQueueNotFound) || errors.Is(err, ErrServiceNotFound)
}
