// Package middleware records HTTP requests as instrumented calls so that the
// instrumented calls a handler makes with r.Context() become children of the
// request's record.
package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/agenttrace/instrument/internal/domain"
	"github.com/agenttrace/instrument/internal/instrument"
	"github.com/agenttrace/instrument/internal/policy"
	"github.com/agenttrace/instrument/internal/sink"
)

// Names of the handler class and its instrumented method.
const (
	HandlerClassName = "http.Handler"
	MethodServeHTTP  = "ServeHTTP"
)

// HandlerClass is the method table shared by every recorded handler.
var HandlerClass = newHandlerClass()

func newHandlerClass() *instrument.Class {
	c := instrument.NewClass(HandlerClassName)
	c.Define(MethodServeHTTP,
		domain.NewSignature(MethodServeHTTP, domain.Required("method"), domain.Required("path")),
		func(ctx context.Context, self any, _ []any, _ map[string]any) (any, error) {
			return self.(*handler).serve(ctx)
		})
	return c
}

// HTTPPolicy selects ServeHTTP on handlers built by this package.
func HTTPPolicy() policy.Policy {
	return policy.New("http", []string{HandlerClassName}, map[string]policy.Predicate{
		MethodServeHTTP: policy.IsA[*handler](),
	})
}

// HTTPConfig configures the middleware.
type HTTPConfig struct {
	// AppID is stamped on request records.
	AppID string

	// Sink receives request records and their children. Nil uses the
	// instrumenter's default sink.
	Sink sink.Sink

	// SkipPaths are served without recording.
	SkipPaths []string

	// Metadata extracts per-request metadata attached to every record of the request.
	Metadata func(r *http.Request) map[string]any
}

type exchangeKey struct{}

// exchange carries the writer and request into the recorded method body.
type exchange struct {
	w http.ResponseWriter
	r *http.Request
}

type handler struct {
	next   http.Handler
	config *HTTPConfig
	skip   map[string]struct{}
}

func (h *handler) ClassName() string        { return HandlerClassName }
func (h *handler) Class() *instrument.Class { return HandlerClass }

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, skip := h.skip[r.URL.Path]; skip {
		h.next.ServeHTTP(w, r)
		return
	}

	opts := instrument.RecordingOptions{AppID: h.config.AppID, Sink: h.config.Sink}
	if h.config.Metadata != nil {
		opts.Metadata = h.config.Metadata(r)
	}
	ctx, _ := instrument.StartRecording(r.Context(), opts)
	ctx = context.WithValue(ctx, exchangeKey{}, &exchange{w: w, r: r})

	// The returned error only marks the record.
	_, _ = HandlerClass.Invoke(ctx, h, MethodServeHTTP, []any{r.Method, r.URL.Path}, nil)
}

func (h *handler) serve(ctx context.Context) (any, error) {
	ex, ok := ctx.Value(exchangeKey{}).(*exchange)
	if !ok {
		return nil, fmt.Errorf("middleware: no request in context")
	}

	rw := &responseWriter{ResponseWriter: ex.w, statusCode: http.StatusOK}
	h.next.ServeHTTP(rw, ex.r.WithContext(ctx))

	output := map[string]any{"status_code": rw.statusCode}
	if rw.statusCode >= http.StatusInternalServerError {
		return output, fmt.Errorf("%s %s: status %d", ex.r.Method, ex.r.URL.Path, rw.statusCode)
	}
	return output, nil
}

// HTTP returns a middleware that records each request through inst.
func HTTP(inst *instrument.Instrumenter, config *HTTPConfig) (func(http.Handler) http.Handler, error) {
	cfg := HTTPConfig{}
	if config != nil {
		cfg = *config
	}
	if cfg.Sink == nil {
		cfg.Sink = inst.Sink()
	}
	config = &cfg

	skip := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = struct{}{}
	}

	// The wrapper lives on HandlerClass, so any instance installs it.
	owner := &handler{config: config, skip: skip}
	if err := inst.Instrument(owner, policy.Union(HTTPPolicy())); err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		return &handler{next: next, config: config, skip: skip}
	}, nil
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
