package models

import "strings"

// Provider selects the backend a queue depth reading is fetched from.
type Provider string

const (
	ProviderSQS        Provider = "sqs"
	ProviderDatadog    Provider = "datadog"
	ProviderPrometheus Provider = "prometheus"
)

var providerAliases = map[string]Provider{
	"sqs":          ProviderSQS,
	"direct-queue": ProviderSQS,
	"datadog":      ProviderDatadog,
	"time-series":  ProviderDatadog,
	"prometheus":   ProviderPrometheus,
}

// ParseProvider maps a selector (including the generic aliases) onto a
// known provider.
func ParseProvider(s string) (Provider, error) {
	p, ok := providerAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", &InvalidProviderError{Provider: s}
	}
	return p, nil
}

// IsTimeSeries reports whether the provider answers windowed aggregate queries.
func (p Provider) IsTimeSeries() bool {
	return p == ProviderDatadog || p == ProviderPrometheus
}

func (p Provider) String() string {
	return string(p)
}
