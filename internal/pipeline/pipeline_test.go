package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/agenttrace/instrument/internal/app"
	"github.com/agenttrace/instrument/internal/config"
	"github.com/agenttrace/instrument/internal/instrument"
	"github.com/agenttrace/instrument/internal/sink"
)

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{ID: "pipeline-test", Env: "test"},
		Log:     config.LogConfig{Level: "debug", Format: "json", Records: true},
		Queue:   config.QueueConfig{FlushAt: 100, FlushInterval: time.Hour, MaxSize: 1000},
		Ingest:  config.IngestConfig{MaxRetries: 1, Timeout: time.Second},
		Breaker: config.BreakerConfig{MaxFailures: 3, Cooldown: time.Minute},
	}
}

func TestBuild_DeliversToEverySink(t *testing.T) {
	var batches atomic.Int32
	var lastBody atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		lastBody.Store(string(body))
		batches.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Ingest.Host = server.URL
	cfg.Ingest.APIKey = "key"

	mem := sink.NewMemory()
	p, err := Build(context.Background(), cfg, zaptest.NewLogger(t),
		WithRegistry(instrument.NewRegistry()),
		WithSinks(mem),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := p.Hub.Subscribe(ctx, "pipeline-test")

	chat, err := app.NewText(func(_ context.Context, prompt string) (string, error) {
		return "reply to " + prompt, nil
	}, "prompt", app.WithAppID(cfg.App.ID), app.WithInstrumenter(p.Instrumenter))
	require.NoError(t, err)

	out, err := chat.Call(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "reply to hello", out)

	require.NoError(t, chat.Flush(context.Background()))
	assert.Equal(t, 1, mem.Len())
	select {
	case rec := <-sub.Channel:
		assert.Equal(t, "hello", rec.MainInput)
	case <-time.After(time.Second):
		t.Fatal("hub subscriber received nothing")
	}

	assert.Zero(t, batches.Load(), "queued until flush")
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(1), batches.Load())
	assert.True(t, strings.Contains(lastBody.Load().(string), `"mainInput":"hello"`))
}

func TestBuild_Minimal(t *testing.T) {
	cfg := testConfig()
	cfg.Log.Records = false

	p, err := Build(context.Background(), cfg, nil, WithRegistry(instrument.NewRegistry()))
	require.NoError(t, err)
	assert.Nil(t, p.Redis)
	assert.Nil(t, p.AsynqClient)
	assert.Len(t, p.Sink(), 1)
	require.NoError(t, p.Flush(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestBuild_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Build(ctx, cfg, nil, WithRegistry(instrument.NewRegistry()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping redis")
}
