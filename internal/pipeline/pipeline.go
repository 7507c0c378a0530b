// Package pipeline assembles the sinks named by a Config into one
// instrumenter and owns their connections.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agenttrace/instrument/internal/config"
	"github.com/agenttrace/instrument/internal/instrument"
	"github.com/agenttrace/instrument/internal/pkg/circuitbreaker"
	"github.com/agenttrace/instrument/internal/pkg/logger"
	"github.com/agenttrace/instrument/internal/sink"
)

// Pipeline holds the instrumenter and every collaborator it delivers to.
type Pipeline struct {
	Config       *config.Config
	Logger       *zap.Logger
	Instrumenter *instrument.Instrumenter

	// Hub lets in-process consumers subscribe to records
	Hub *sink.Hub

	Redis       *redis.Client
	AsynqClient *asynq.Client

	sinks  sink.Multi
	queues []*sink.Queue
}

// Option customizes Build
type Option func(*options)

type options struct {
	registry *instrument.Registry
	extra    []sink.Sink
}

// WithRegistry uses reg instead of the process-wide registry
func WithRegistry(reg *instrument.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithSinks adds sinks next to the configured ones
func WithSinks(sinks ...sink.Sink) Option {
	return func(o *options) { o.extra = append(o.extra, sinks...) }
}

// Build creates the configured sinks and an instrumenter delivering to all of them.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*Pipeline, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pipeline{
		Config: cfg,
		Logger: logger.OrNop(log),
		Hub:    sink.NewHub(0),
	}
	p.sinks = append(p.sinks, p.Hub)

	if cfg.Log.Records {
		p.sinks = append(p.sinks, sink.NewLog(p.Logger, zapcore.InfoLevel))
	}

	if cfg.Ingest.Enabled() {
		breaker := circuitbreaker.New(circuitbreaker.Config{
			Name:        "ingest",
			MaxFailures: cfg.Breaker.MaxFailures,
			Cooldown:    cfg.Breaker.Cooldown,
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				p.Logger.Warn("circuit breaker state changed",
					zap.String("name", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		})
		p.addQueued(sink.NewHTTP(sink.HTTPConfig{
			Host:       cfg.Ingest.Host,
			APIKey:     cfg.Ingest.APIKey,
			MaxRetries: cfg.Ingest.MaxRetries,
			Timeout:    cfg.Ingest.Timeout,
			Breaker:    breaker,
			Logger:     p.Logger,
		}))
	}

	if cfg.Redis.Enabled {
		client, err := initRedis(ctx, cfg)
		if err != nil {
			p.abort(ctx)
			return nil, err
		}
		p.Redis = client
		p.addQueued(sink.NewRedis(client, cfg.Redis.Channel))
	}

	if cfg.Asynq.Enabled {
		p.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		p.addQueued(sink.Each{Target: sink.NewAsynq(p.AsynqClient, cfg.Asynq.Queue)})
	}

	if cfg.OTel.Enabled {
		p.sinks = append(p.sinks, sink.NewOTel(otel.Tracer(cfg.OTel.ServiceName)))
	}

	if cfg.Sentry.Enabled() {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			p.abort(ctx)
			return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
		}
		p.sinks = append(p.sinks, sink.NewSentry(nil))
	}

	p.sinks = append(p.sinks, o.extra...)

	p.Instrumenter = instrument.New(instrument.Options{
		Registry: o.registry,
		Sink:     p.sinks,
		AppID:    cfg.App.ID,
		Logger:   p.Logger,
	})

	p.Logger.Info("instrumentation pipeline ready",
		zap.String("app_id", cfg.App.ID),
		zap.Int("sinks", len(p.sinks)),
		zap.Int("queues", len(p.queues)),
	)
	return p, nil
}

// Sink returns the fan-out of every configured sink
func (p *Pipeline) Sink() sink.Sink {
	return p.sinks
}

// Flush delivers every finished record and everything pending in the queues
func (p *Pipeline) Flush(ctx context.Context) error {
	errs := []error{p.Instrumenter.Flush(ctx)}
	for _, q := range p.queues {
		if err := q.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Shutdown drains the queues and closes every connection.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	errs := []error{p.Instrumenter.Close(ctx)}
	for _, q := range p.queues {
		if err := q.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Config.Sentry.Enabled() {
		sentry.Flush(p.Config.Sentry.FlushTimeout)
	}
	errs = append(errs, p.close())
	return errors.Join(errs...)
}

func (p *Pipeline) addQueued(target sink.BatchSink) {
	q := sink.NewQueue(target, sink.QueueConfig{
		FlushAt:       p.Config.Queue.FlushAt,
		FlushInterval: p.Config.Queue.FlushInterval,
		MaxQueueSize:  p.Config.Queue.MaxSize,
		Logger:        p.Logger,
	})
	p.queues = append(p.queues, q)
	p.sinks = append(p.sinks, q)
}

// abort stops whatever Build started before failing
func (p *Pipeline) abort(ctx context.Context) {
	for _, q := range p.queues {
		_ = q.Shutdown(ctx)
	}
	_ = p.close()
}

func (p *Pipeline) close() error {
	var errs []error
	if p.AsynqClient != nil {
		errs = append(errs, p.AsynqClient.Close())
	}
	if p.Redis != nil {
		errs = append(errs, p.Redis.Close())
	}
	return errors.Join(errs...)
}

// initRedis initializes Redis client
func initRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
