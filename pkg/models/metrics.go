package models

import "time"

const (
	MetricQueueRequiresConsumer = "QueueRequiresConsumer"
	MetricQueueBacklog          = "QueueBacklog"
)

// MetricReading is the current queue depth: an exact count or the most
// recent point of a windowed aggregate. Never negative.
type MetricReading float64

// ServiceState is a fresh snapshot of an ECS service.
type ServiceState struct {
	DesiredCount int    `json:"desired_count"`
	RunningCount int    `json:"running_count"`
	Status       string `json:"status,omitempty"`
}

// Backlog is an optional backlog duration. The zero value holds no value.
type Backlog struct {
	seconds float64
	ok      bool
}

func SomeBacklog(seconds float64) Backlog {
	return Backlog{seconds: seconds, ok: true}
}

func NoBacklog() Backlog {
	return Backlog{}
}

// Seconds returns the backlog and whether it is defined.
func (b Backlog) Seconds() (float64, bool) {
	return b.seconds, b.ok
}

// ComputedMetrics holds the two derived health metrics.
type ComputedMetrics struct {
	RequiresConsumer bool
	Backlog          Backlog
}

// RequiresConsumerValue is the 0/1 value published for QueueRequiresConsumer.
func (m ComputedMetrics) RequiresConsumerValue() float64 {
	if m.RequiresConsumer {
		return 1
	}
	return 0
}

// Dimensions names the (cluster, service, queue) identity of a datapoint.
type Dimensions struct {
	ClusterName string `json:"cluster_name"`
	ServiceName string `json:"service_name"`
	QueueName   string `json:"queue_name"`
}

// Datapoint is a single published metric value.
type Datapoint struct {
	Dimensions Dimensions
	MetricName string
	Value      float64
	Unit       string
	Timestamp  time.Time
}

// Result is returned by an invocation. Outputs are published metrics, so it
// carries no fields.
type Result struct{}
