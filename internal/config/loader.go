// Package config loads instrumentation settings from environment variables
// prefixed INSTRUMENT_ and an optional instrument.yaml file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. INSTRUMENT_APP_ID
const EnvPrefix = "INSTRUMENT"

var validate = validator.New()

// Load reads configuration. paths are searched for instrument.yaml in
// addition to the working directory; a missing file is not an error.
func Load(paths ...string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("instrument")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// App
	cfg.App.ID = v.GetString("app.id")
	cfg.App.Env = v.GetString("app.env")

	// Logging
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")
	cfg.Log.Records = v.GetBool("log.records")

	// Queue
	cfg.Queue.FlushAt = v.GetInt("queue.flush_at")
	cfg.Queue.FlushInterval = v.GetDuration("queue.flush_interval")
	cfg.Queue.MaxSize = v.GetInt("queue.max_size")

	// Ingestion
	cfg.Ingest.Host = v.GetString("ingest.host")
	cfg.Ingest.APIKey = v.GetString("ingest.api_key")
	cfg.Ingest.MaxRetries = v.GetInt("ingest.max_retries")
	cfg.Ingest.Timeout = v.GetDuration("ingest.timeout")

	// Redis
	cfg.Redis.Enabled = v.GetBool("redis.enabled")
	cfg.Redis.Host = v.GetString("redis.host")
	cfg.Redis.Port = v.GetInt("redis.port")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Redis.Channel = v.GetString("redis.channel")

	// Asynq
	cfg.Asynq.Enabled = v.GetBool("asynq.enabled")
	cfg.Asynq.Queue = v.GetString("asynq.queue")

	// OpenTelemetry
	cfg.OTel.Enabled = v.GetBool("otel.enabled")
	cfg.OTel.ServiceName = v.GetString("otel.service_name")

	// Sentry
	cfg.Sentry.DSN = v.GetString("sentry.dsn")
	cfg.Sentry.Environment = v.GetString("sentry.environment")
	cfg.Sentry.SampleRate = v.GetFloat64("sentry.sample_rate")
	cfg.Sentry.FlushTimeout = v.GetDuration("sentry.flush_timeout")

	// Circuit breaker
	cfg.Breaker.MaxFailures = v.GetInt("breaker.max_failures")
	cfg.Breaker.Cooldown = v.GetDuration("breaker.cooldown")

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.id", "default")
	v.SetDefault("app.env", "development")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.records", false)

	v.SetDefault("queue.flush_at", 20)
	v.SetDefault("queue.flush_interval", "5s")
	v.SetDefault("queue.max_size", 10000)

	v.SetDefault("ingest.host", "")
	v.SetDefault("ingest.api_key", "")
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.timeout", "10s")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "instrument:records")

	v.SetDefault("asynq.enabled", false)
	v.SetDefault("asynq.queue", "records")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "instrumented-app")

	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "development")
	v.SetDefault("sentry.sample_rate", 1.0)
	v.SetDefault("sentry.flush_timeout", "2s")

	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.cooldown", "30s")
}

// Validate checks cfg's struct tags and cross-field rules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Asynq.Enabled && !cfg.Redis.Enabled {
		return fmt.Errorf("invalid config: asynq requires redis to be enabled")
	}
	return nil
}
