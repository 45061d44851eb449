package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

func (c *Config) Validate() error {
	var errs []error

	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	if c.AWS.Namespace == "" {
		errs = append(errs, errors.New("aws.namespace is required"))
	}

	if c.Prometheus.Enabled() && c.Prometheus.Step <= 0 {
		errs = append(errs, errors.New("prometheus.step must be positive"))
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}

	if c.API.RateLimit < 0 {
		errs = append(errs, errors.New("api.rate_limit must not be negative"))
	}

	if len(c.Schedule.Targets) > 0 {
		if _, err := cron.ParseStandard(c.Schedule.Spec); err != nil {
			errs = append(errs, fmt.Errorf("schedule.spec is invalid: %v", err))
		}
		if c.Schedule.Timeout <= 0 {
			errs = append(errs, errors.New("schedule.timeout must be positive"))
		}
	}

	if c.Breaker.MaxFailures < 0 {
		errs = append(errs, errors.New("breaker.max_failures must not be negative"))
	}
	if c.Breaker.Enabled() && c.Breaker.Cooldown <= 0 {
		errs = append(errs, errors.New("breaker.cooldown must be positive"))
	}

	for i, target := range c.Schedule.Targets {
		req := target.WithDefaults()
		if err := req.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("schedule.targets[%d]: %v", i, err))
			continue
		}
		if err := c.CheckProvider(req.MetricProvider); err != nil {
			errs = append(errs, fmt.Errorf("schedule.targets[%d]: %v", i, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}

// CheckProvider reports whether the backend behind a provider selector has
// the settings it needs.
func (c *Config) CheckProvider(selector string) error {
	p, err := models.ParseProvider(selector)
	if err != nil {
		return err
	}

	switch p {
	case models.ProviderDatadog:
		if !c.Datadog.Enabled() {
			return errors.New("datadog.api_key and datadog.app_key are required for the datadog provider")
		}
	case models.ProviderPrometheus:
		if !c.Prometheus.Enabled() {
			return errors.New("prometheus.address is required for the prometheus provider")
		}
	}
	return nil
}
