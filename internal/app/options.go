package app

import (
	"go.uber.org/zap"

	"github.com/agenttrace/instrument/internal/instrument"
	"github.com/agenttrace/instrument/internal/policy"
	"github.com/agenttrace/instrument/internal/sink"
)

// Option configures a BasicApp
type Option func(*BasicApp)

// WithAppID sets the identifier stamped on the app's records
func WithAppID(appID string) Option {
	return func(a *BasicApp) {
		a.id = appID
	}
}

// WithSink sets where the app's records go. Without it the instrumenter's
// default sink receives them.
func WithSink(s sink.Sink) Option {
	return func(a *BasicApp) {
		a.sink = s
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(a *BasicApp) {
		a.logger = l
	}
}

// WithPolicies adds policies to the default adapter policy
func WithPolicies(policies ...policy.Policy) Option {
	return func(a *BasicApp) {
		a.policies = a.policies.With(policies...)
	}
}

// WithMetadata attaches metadata to every record of the app
func WithMetadata(md map[string]any) Option {
	return func(a *BasicApp) {
		if a.metadata == nil {
			a.metadata = make(map[string]any, len(md))
		}
		for k, v := range md {
			a.metadata[k] = v
		}
	}
}

// WithInstrumenter shares an instrumenter between apps
func WithInstrumenter(inst *instrument.Instrumenter) Option {
	return func(a *BasicApp) {
		a.inst = inst
	}
}
