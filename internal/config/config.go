package config

import (
	"strconv"
	"time"
)

// Config holds all configuration for an instrumented application
type Config struct {
	App     AppConfig
	Log     LogConfig
	Queue   QueueConfig
	Ingest  IngestConfig
	Redis   RedisConfig
	Asynq   AsynqConfig
	OTel    OTelConfig
	Sentry  SentryConfig
	Breaker BreakerConfig
}

// AppConfig identifies the application whose calls are recorded
type AppConfig struct {
	ID  string `mapstructure:"id" validate:"required"`
	Env string `mapstructure:"env" validate:"oneof=development staging production test"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	// Records logs every call record through the log sink
	Records bool `mapstructure:"records"`
}

// QueueConfig holds the asynchronous delivery queue configuration
type QueueConfig struct {
	FlushAt       int           `mapstructure:"flush_at" validate:"gte=1"`
	FlushInterval time.Duration `mapstructure:"flush_interval" validate:"gt=0"`
	MaxSize       int           `mapstructure:"max_size" validate:"gtefield=FlushAt"`
}

// IngestConfig holds the HTTP ingestion endpoint configuration
type IngestConfig struct {
	Host       string        `mapstructure:"host" validate:"omitempty,url"`
	APIKey     string        `mapstructure:"api_key" validate:"required_with=Host"`
	MaxRetries int           `mapstructure:"max_retries" validate:"gte=1,lte=10"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// Enabled reports whether records are posted to an ingestion endpoint
func (c IngestConfig) Enabled() bool {
	return c.Host != ""
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port     int    `mapstructure:"port" validate:"gte=1,lte=65535"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Channel  string `mapstructure:"channel"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// AsynqConfig holds background task configuration. Tasks use the Redis connection.
type AsynqConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Queue   string `mapstructure:"queue" validate:"required_if=Enabled true"`
}

// OTelConfig holds OpenTelemetry export configuration
type OTelConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name" validate:"required_if=Enabled true"`
}

// SentryConfig holds Sentry configuration
type SentryConfig struct {
	DSN          string        `mapstructure:"dsn"`
	Environment  string        `mapstructure:"environment"`
	SampleRate   float64       `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
}

// Enabled reports whether failed calls are reported to Sentry
func (c SentryConfig) Enabled() bool {
	return c.DSN != ""
}

// BreakerConfig holds the circuit breaker guarding remote sinks
type BreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures" validate:"gte=1"`
	Cooldown    time.Duration `mapstructure:"cooldown" validate:"gt=0"`
}

// IsProduction returns true if running in production mode
func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}
