// Package app is the user-facing facade: wrap one function, get every call
// recorded.
//
//	chat, err := app.NewText(func(ctx context.Context, prompt string) (string, error) {
//		return "a response", nil
//	}, "prompt", app.WithAppID("custom-v1"), app.WithSink(mem))
//	out, rec, err := chat.InvokeWithRecord(ctx, "Give me a response")
package app

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/agenttrace/instrument/internal/domain"
	"github.com/agenttrace/instrument/internal/instrument"
	"github.com/agenttrace/instrument/internal/pkg/id"
	"github.com/agenttrace/instrument/internal/pkg/logger"
	"github.com/agenttrace/instrument/internal/policy"
	"github.com/agenttrace/instrument/internal/shim"
	"github.com/agenttrace/instrument/internal/sink"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BasicApp records every call of one wrapped function.
type BasicApp struct {
	id       string
	shim     *shim.App
	inst     *instrument.Instrumenter
	sink     sink.Sink
	metadata map[string]any
	policies policy.Set
	logger   *zap.Logger

	ownsInst bool
}

// New wraps callable and installs instrumentation on its call surface.
func New(callable shim.Callable, opts ...Option) (*BasicApp, error) {
	s, err := shim.New(callable)
	if err != nil {
		return nil, err
	}

	a := &BasicApp{
		shim:     s,
		policies: policy.Union(shim.Policy()),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.logger = logger.OrNop(a.logger)
	if a.id == "" {
		a.id = "app-" + id.NewUUID()
	}
	if a.inst == nil {
		a.inst = instrument.New(instrument.Options{Logger: a.logger})
		a.ownsInst = true
	}
	if a.sink == nil {
		// AppClass may carry another instrumenter's wrapper, so the
		// recording names this app's sink explicitly.
		a.sink = a.inst.Sink()
	}
	if a.sink == nil {
		a.sink = sink.Discard
	}
	a.logger = a.logger.Named("app").With(zap.String("app_id", a.id))

	shim.MarkGeneric(a.inst)
	if err := a.inst.Instrument(s, a.policies); err != nil {
		return nil, err
	}

	a.logger.Debug("app instrumented",
		zap.String("callable", callable.Signature.String()),
		zap.Strings("classes", a.policies.Classes()),
	)
	return a, nil
}

// NewText wraps a text-to-text function whose parameter is named param.
func NewText(fn func(ctx context.Context, text string) (string, error), param string, opts ...Option) (*BasicApp, error) {
	return New(shim.Func1("text_to_text", domain.Required(param), fn), opts...)
}

// ID returns the app identifier
func (a *BasicApp) ID() string {
	return a.id
}

// Shim returns the adapter that carries the wrapped function
func (a *BasicApp) Shim() *shim.App {
	return a.shim
}

// Instrumenter returns the instrumenter the app installed with
func (a *BasicApp) Instrumenter() *instrument.Instrumenter {
	return a.inst
}

// Flush waits until the records of finished calls have reached their sinks.
func (a *BasicApp) Flush(ctx context.Context) error {
	return a.inst.Flush(ctx)
}

// Close flushes pending records and stops the instrumenter the app created.
// An instrumenter passed with WithInstrumenter is only flushed.
func (a *BasicApp) Close(ctx context.Context) error {
	if !a.ownsInst {
		return a.inst.Flush(ctx)
	}
	return a.inst.Close(ctx)
}

// Call runs the wrapped function with positional arguments.
func (a *BasicApp) Call(ctx context.Context, args ...any) (any, error) {
	out, _, err := a.CallWithRecord(ctx, args, nil)
	return out, err
}

// InvokeWithRecord runs the wrapped function with positional arguments and
// returns the call's record.
func (a *BasicApp) InvokeWithRecord(ctx context.Context, args ...any) (any, *domain.CallRecord, error) {
	return a.CallWithRecord(ctx, args, nil)
}

// CallWithRecord runs the wrapped function and returns its result together
// with the record of the call. The record is nil when the arguments could not
// be bound, since the function did not run.
func (a *BasicApp) CallWithRecord(ctx context.Context, args []any, kwargs map[string]any) (any, *domain.CallRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rctx, rc := instrument.StartRecording(ctx, instrument.RecordingOptions{
		AppID:    a.id,
		Sink:     a.sink,
		Metadata: a.metadata,
		Annotate: func(rec *domain.CallRecord) {
			rec.MainInput = MainInput(rec)
		},
	})

	out, err := a.shim.Call(rctx, args, kwargs)
	rec := rc.Last()
	if rec == nil && err == nil {
		a.logger.Warn("call produced no record")
	}
	return out, rec, err
}

// MainInput renders the first bound argument of rec as text. Strings are
// used verbatim, other values as JSON.
func MainInput(rec *domain.CallRecord) string {
	if rec == nil || rec.Bound == nil || len(rec.Bound.Args) == 0 {
		return ""
	}
	switch v := rec.Bound.Args[0].Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}
