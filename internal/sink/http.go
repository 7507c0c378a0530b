package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/agenttrace/instrument/internal/domain"
	"github.com/agenttrace/instrument/internal/pkg/circuitbreaker"
	"github.com/agenttrace/instrument/internal/pkg/id"
	"github.com/agenttrace/instrument/internal/pkg/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IngestionPath is appended to HTTPConfig.Host.
const IngestionPath = "/api/public/ingestion"

// EventRecordCreate is the ingestion event type of a finished call record.
const EventRecordCreate = "record-create"

// HTTPConfig configures an HTTP sink.
type HTTPConfig struct {
	// Host is the ingestion API base URL.
	Host string
	// APIKey is sent as a bearer token.
	APIKey string
	// MaxRetries is the number of attempts per batch. Defaults to 3.
	MaxRetries int
	// Timeout bounds each request. Defaults to 10 seconds.
	Timeout time.Duration
	// Backoff returns the wait before retry attempt n (0-based). Defaults to 500ms doubling.
	Backoff func(attempt int) time.Duration
	// Breaker skips delivery while the endpoint keeps failing. Optional.
	Breaker *circuitbreaker.CircuitBreaker
	// Client overrides the HTTP client.
	Client *http.Client
	Logger *zap.Logger
}

// HTTP posts record batches to an ingestion endpoint.
type HTTP struct {
	config HTTPConfig
	client *http.Client
	logger *zap.Logger
}

// ingestionEvent is one entry of an ingestion batch
type ingestionEvent struct {
	ID        string             `json:"id"`
	Type      string             `json:"type"`
	Timestamp time.Time          `json:"timestamp"`
	Body      *domain.CallRecord `json:"body"`
}

// NewHTTP creates an HTTP sink
func NewHTTP(config HTTPConfig) *HTTP {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Backoff == nil {
		config.Backoff = func(attempt int) time.Duration {
			return time.Duration(1<<attempt) * 500 * time.Millisecond
		}
	}
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &HTTP{
		config: config,
		client: client,
		logger: logger.OrNop(config.Logger).Named("http_sink"),
	}
}

// Name implements Named
func (h *HTTP) Name() string { return "http" }

// Accept delivers a single record
func (h *HTTP) Accept(ctx context.Context, rec *domain.CallRecord) error {
	return h.AcceptBatch(ctx, []*domain.CallRecord{rec})
}

// AcceptBatch posts records as one ingestion batch.
func (h *HTTP) AcceptBatch(ctx context.Context, records []*domain.CallRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC()
	events := make([]ingestionEvent, len(records))
	for i, rec := range records {
		events[i] = ingestionEvent{
			ID:        id.NewUUID(),
			Type:      EventRecordCreate,
			Timestamp: now,
			Body:      rec,
		}
	}
	data, err := json.Marshal(map[string]any{"batch": events})
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	if h.config.Breaker == nil {
		return h.send(ctx, data)
	}
	return h.config.Breaker.Execute(ctx, func(ctx context.Context) error {
		return h.send(ctx, data)
	})
}

func (h *HTTP) send(ctx context.Context, data []byte) error {
	url := h.config.Host + IngestionPath

	var lastErr error
	for attempt := 0; attempt < h.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait, err := h.post(ctx, url, data, attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if wait < 0 {
			return err
		}

		h.logger.Debug("ingestion attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Duration("retry_in", wait),
			zap.Error(err),
		)
		if attempt == h.config.MaxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", h.config.MaxRetries, lastErr)
}

// post makes one request. A negative wait means the failure is not retryable.
func (h *HTTP) post(ctx context.Context, url string, data []byte, attempt int) (time.Duration, error) {
	reqCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return -1, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.config.APIKey)
	req.Header.Set("User-Agent", "instrument-go/0.1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return h.config.Backoff(attempt), fmt.Errorf("request failed: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return 0, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := 5
		if v, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && v >= 0 {
			retryAfter = v
		}
		return time.Duration(retryAfter) * time.Second, fmt.Errorf("rate limited (429), retry after %ds", retryAfter)
	case resp.StatusCode >= 500:
		return h.config.Backoff(attempt), fmt.Errorf("server error: %d", resp.StatusCode)
	default:
		return -1, fmt.Errorf("client error %d, not retrying", resp.StatusCode)
	}
}
