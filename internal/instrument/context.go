package instrument

import (
	"context"
	"sync"

	"github.com/agenttrace/instrument/internal/domain"
	"github.com/agenttrace/instrument/internal/sink"
)

type contextKey int

const (
	recordKey contextKey = iota
	recordingKey
)

// WithRecord returns a context whose current record is rec.
func WithRecord(ctx context.Context, rec *domain.CallRecord) context.Context {
	return context.WithValue(ctx, recordKey, rec)
}

// CurrentRecord returns the record of the innermost instrumented call on ctx.
func CurrentRecord(ctx context.Context) *domain.CallRecord {
	if rec, ok := ctx.Value(recordKey).(*domain.CallRecord); ok {
		return rec
	}
	return nil
}

// RecordingOptions configures a Recording.
type RecordingOptions struct {
	// AppID is stamped on every record made under the recording.
	AppID string
	// Sink receives the records made under the recording instead of the
	// instrumenter's default sink.
	Sink sink.Sink
	// Metadata is attached to every record made under the recording.
	Metadata map[string]any
	// Annotate runs on each finished record before it is emitted.
	Annotate func(rec *domain.CallRecord)
}

// Recording collects the top-level records of instrumented calls made with
// its context. Nested calls are reachable through their parents' children.
type Recording struct {
	opts RecordingOptions
	base *domain.CallRecord

	mu      sync.Mutex
	records []*domain.CallRecord
}

// StartRecording returns a context that routes records to opts.Sink and a
// Recording that collects the calls made directly with that context.
func StartRecording(ctx context.Context, opts RecordingOptions) (context.Context, *Recording) {
	rc := &Recording{
		opts: opts,
		base: CurrentRecord(ctx),
	}
	return context.WithValue(ctx, recordingKey, rc), rc
}

// RecordingFrom returns the innermost recording on ctx.
func RecordingFrom(ctx context.Context) *Recording {
	if rc, ok := ctx.Value(recordingKey).(*Recording); ok {
		return rc
	}
	return nil
}

// Records returns the top-level records in start order
func (rc *Recording) Records() []*domain.CallRecord {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	out := make([]*domain.CallRecord, len(rc.records))
	copy(out, rc.records)
	return out
}

// Last returns the most recently started top-level record, or nil
func (rc *Recording) Last() *domain.CallRecord {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.records) == 0 {
		return nil
	}
	return rc.records[len(rc.records)-1]
}

// AppID returns the app ID stamped on records
func (rc *Recording) AppID() string {
	return rc.opts.AppID
}

func (rc *Recording) opened(rec, parent *domain.CallRecord) {
	if parent != rc.base {
		return
	}
	rc.mu.Lock()
	rc.records = append(rc.records, rec)
	rc.mu.Unlock()
}
