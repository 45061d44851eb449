package models

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/OldStager01/ecs-queue-backlog/pkg/validation"
)

const (
	DefaultAggregate     = "max"
	DefaultMsgsPerSecond = 1.0

	// SQSDepthAttribute is read when a direct-queue request names no attribute.
	SQSDepthAttribute = "ApproximateNumberOfMessages"
)

// MetricRequest describes a single invocation: which service consumes which
// queue, and where the queue depth is read from.
type MetricRequest struct {
	ClusterName         string   `json:"cluster_name" mapstructure:"cluster_name"`
	ServiceName         string   `json:"service_name" mapstructure:"service_name"`
	QueueName           string   `json:"queue_name" mapstructure:"queue_name"`
	QueueOwnerAccountID string   `json:"queue_owner_aws_account_id,omitempty" mapstructure:"queue_owner_aws_account_id"`
	MetricProvider      string   `json:"metric_provider" mapstructure:"metric_provider"`
	MetricName          string   `json:"metric_name" mapstructure:"metric_name"`
	MetricAggregate     string   `json:"metric_aggregate,omitempty" mapstructure:"metric_aggregate"`
	MetricFilter        string   `json:"metric_filter,omitempty" mapstructure:"metric_filter"`
	EstMsgsPerSec       *float64 `json:"est_msgs_per_sec,omitempty" mapstructure:"est_msgs_per_sec"`
}

// WithDefaults returns a copy of the request with surrounding whitespace
// trimmed and optional fields filled in.
func (r MetricRequest) WithDefaults() MetricRequest {
	for _, field := range []*string{
		&r.ClusterName, &r.ServiceName, &r.QueueName, &r.QueueOwnerAccountID,
		&r.MetricProvider, &r.MetricName, &r.MetricAggregate, &r.MetricFilter,
	} {
		*field = strings.TrimSpace(*field)
	}

	if r.MetricAggregate == "" {
		r.MetricAggregate = DefaultAggregate
	}
	if r.EstMsgsPerSec == nil {
		rate := DefaultMsgsPerSecond
		r.EstMsgsPerSec = &rate
	}
	if r.MetricName == "" {
		if p, err := ParseProvider(r.MetricProvider); err == nil && p == ProviderSQS {
			r.MetricName = SQSDepthAttribute
		}
	}
	return r
}

// Provider returns the parsed provider selector.
func (r *MetricRequest) Provider() (Provider, error) {
	return ParseProvider(r.MetricProvider)
}

// Rate returns the assumed per-worker throughput in messages per second.
func (r *MetricRequest) Rate() float64 {
	if r.EstMsgsPerSec == nil {
		return DefaultMsgsPerSecond
	}
	return *r.EstMsgsPerSec
}

// Validate checks the request without touching any backend. Provider and
// rate problems are reported ahead of field problems.
func (r *MetricRequest) Validate() error {
	provider, err := r.Provider()
	if err != nil {
		return err
	}

	rate := r.Rate()
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return fmt.Errorf("%w: est_msgs_per_sec must be positive, got %v", ErrInvalidRate, rate)
	}

	var errs []error
	if err := validation.ValidateClusterName(r.ClusterName); err != nil {
		errs = append(errs, err)
	}
	if err := validation.ValidateServiceName(r.ServiceName); err != nil {
		errs = append(errs, err)
	}
	// Only the direct-queue provider resolves the queue by name; for
	// time-series backends it is just the published dimension.
	if provider == ProviderSQS {
		err = validation.ValidateQueueName(r.QueueName)
	} else {
		err = validation.ValidateDimensionValue("queue_name", r.QueueName)
	}
	if err != nil {
		errs = append(errs, err)
	}
	if r.QueueOwnerAccountID != "" {
		if err := validation.ValidateAccountID(r.QueueOwnerAccountID); err != nil {
			errs = append(errs, err)
		}
	}
	if r.MetricName == "" {
		errs = append(errs, errors.New("metric_name is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, errors.Join(errs...))
	}
	return nil
}

// Dimensions identifies the published datapoints of this request.
func (r *MetricRequest) Dimensions() Dimensions {
	return Dimensions{
		ClusterName: r.ClusterName,
		ServiceName: r.ServiceName,
		QueueName:   r.QueueName,
	}
}

// NewInvocationID returns a fresh id for an invocation that arrived without
// a trace id.
func NewInvocationID() string {
	return uuid.NewString()
}
