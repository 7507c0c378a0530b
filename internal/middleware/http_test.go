package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenttrace/instrument/internal/app"
	"github.com/agenttrace/instrument/internal/domain"
	"github.com/agenttrace/instrument/internal/instrument"
	"github.com/agenttrace/instrument/internal/pkg/id"
	"github.com/agenttrace/instrument/internal/sink"
)

func newInstrumenter() *instrument.Instrumenter {
	return instrument.New(instrument.Options{Registry: instrument.NewRegistry(), IDs: &id.Sequence{}})
}

func TestHTTP_RecordsRequestsWithChildren(t *testing.T) {
	inst := newInstrumenter()
	mem := sink.NewMemory()

	echo, err := app.NewText(func(_ context.Context, s string) (string, error) {
		return "echo: " + s, nil
	}, "text", app.WithInstrumenter(inst), app.WithSink(mem))
	require.NoError(t, err)

	mw, err := HTTP(inst, &HTTPConfig{
		AppID: "api",
		Sink:  mem,
		Metadata: func(r *http.Request) map[string]any {
			return map[string]any{"user_agent": r.UserAgent()}
		},
	})
	require.NoError(t, err)

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out, err := echo.Call(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(out.(string)))
	}))

	req := httptest.NewRequest(http.MethodGet, "/echo?q=ping", nil)
	req.Header.Set("User-Agent", "tester")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "echo: ping", rr.Body.String())

	require.NoError(t, inst.Flush(context.Background()))
	require.Equal(t, 2, mem.Len())
	var root *domain.CallRecord
	for _, rec := range mem.Records() {
		if rec.Unit.Class == HandlerClassName {
			root = rec
		}
	}
	require.NotNil(t, root)
	assert.Equal(t, map[string]any{"method": "GET", "path": "/echo"}, root.Bound.Map())
	assert.Equal(t, "api", root.AppID)
	assert.Equal(t, "tester", root.Metadata["user_agent"])
	assert.Equal(t, domain.StatusOK, root.Status)
	assert.Equal(t, map[string]any{"status_code": http.StatusOK}, root.Output)

	children := root.Children()
	require.Len(t, children, 1)
	assert.Equal(t, root.ID, children[0].ParentID)
	assert.Equal(t, "ping", children[0].MainInput)
}

func TestHTTP_ServerErrorsMarkTheRecord(t *testing.T) {
	inst := newInstrumenter()
	mem := sink.NewMemory()
	mw, err := HTTP(inst, &HTTPConfig{Sink: mem})
	require.NoError(t, err)

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/upstream", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	require.NoError(t, inst.Flush(context.Background()))
	require.Equal(t, 1, mem.Len())
	rec := mem.Records()[0]
	assert.Equal(t, domain.StatusError, rec.Status)
	assert.Contains(t, rec.Error, "status 502")
}

func TestHTTP_SkipPaths(t *testing.T) {
	inst := newInstrumenter()
	mem := sink.NewMemory()
	mw, err := HTTP(inst, &HTTPConfig{Sink: mem, SkipPaths: []string{"/health"}})
	require.NoError(t, err)

	served := false
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served = true
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.True(t, served)
	require.NoError(t, inst.Flush(context.Background()))
	assert.Zero(t, mem.Len())
}

func TestHTTP_LeavesCallerConfigUntouched(t *testing.T) {
	mem := sink.NewMemory()
	inst := instrument.New(instrument.Options{Registry: instrument.NewRegistry(), Sink: mem})
	t.Cleanup(func() { _ = inst.Close(context.Background()) })

	cfg := &HTTPConfig{AppID: "api"}
	mw, err := HTTP(inst, cfg)
	require.NoError(t, err)
	assert.Nil(t, cfg.Sink)

	h := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NoError(t, inst.Flush(context.Background()))
	assert.Equal(t, 1, mem.Len(), "nil sink falls back to the instrumenter's sink")
}

func TestHTTPPolicy(t *testing.T) {
	p := HTTPPolicy()
	assert.True(t, p.Select(&handler{}, MethodServeHTTP))
	assert.False(t, p.Select(&handler{}, "Close"))
}
