package config

import (
	"time"

	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	AWS        AWSConfig        `mapstructure:"aws"`
	Datadog    DatadogConfig    `mapstructure:"datadog"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	API        APIConfig        `mapstructure:"api"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	// Endpoint overrides the service endpoints, e.g. for localstack.
	Endpoint  string `mapstructure:"endpoint"`
	Namespace string `mapstructure:"namespace"`
}

type DatadogConfig struct {
	APIKey string `mapstructure:"api_key"`
	AppKey string `mapstructure:"app_key"`
	Site   string `mapstructure:"site"`
}

// Enabled reports whether credentials for the Datadog provider are present.
func (d DatadogConfig) Enabled() bool {
	return d.APIKey != "" && d.AppKey != ""
}

type PrometheusConfig struct {
	Address string        `mapstructure:"address"`
	Step    time.Duration `mapstructure:"step"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func (p PrometheusConfig) Enabled() bool {
	return p.Address != ""
}

type APIConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTIssuer    string        `mapstructure:"jwt_issuer"`
	// RateLimit is invocations per minute per caller; 0 disables it.
	RateLimit int `mapstructure:"rate_limit"`
}

type ScheduleConfig struct {
	Spec    string                 `mapstructure:"spec"`
	Timeout time.Duration          `mapstructure:"timeout"`
	Targets []models.MetricRequest `mapstructure:"targets"`
}

// BreakerConfig guards metric backends in long-running modes. A zero
// MaxFailures disables the breaker.
type BreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
}

func (b BreakerConfig) Enabled() bool {
	return b.MaxFailures > 0
}
