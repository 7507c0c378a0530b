package domain

import (
	"fmt"
	"sync"
	"time"
)

// Status is the outcome of an instrumented call
type Status string

// Status values
const (
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusPanic   Status = "panic"
)

// IsFailure reports whether the call did not return normally
func (s Status) IsFailure() bool {
	return s == StatusError || s == StatusPanic
}

// CallRecord describes one invocation of an instrumented unit.
type CallRecord struct {
	ID        string         `json:"id"`
	TraceID   string         `json:"traceId"`
	ParentID  string         `json:"parentId,omitempty"`
	AppID     string         `json:"appId,omitempty"`
	Unit      Unit           `json:"unit"`
	Bound     *BoundCall     `json:"bound"`
	MainInput string         `json:"mainInput,omitempty"`
	Output    any            `json:"output,omitempty"`
	Error     string         `json:"error,omitempty"`
	Status    Status         `json:"status"`
	StartTime time.Time      `json:"startTime"`
	EndTime   *time.Time     `json:"endTime,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`

	mu       sync.Mutex
	err      error
	children []*CallRecord
}

// RecordInput holds the fields known when a call is entered
type RecordInput struct {
	ID        string
	TraceID   string
	Parent    *CallRecord
	AppID     string
	Unit      Unit
	Bound     *BoundCall
	StartTime time.Time
	Metadata  map[string]any
}

// OpenRecord creates a running record. A child inherits its parent's trace ID.
func OpenRecord(in RecordInput) *CallRecord {
	rec := &CallRecord{
		ID:        in.ID,
		TraceID:   in.TraceID,
		AppID:     in.AppID,
		Unit:      in.Unit,
		Bound:     in.Bound,
		Status:    StatusRunning,
		StartTime: in.StartTime.UTC(),
		Metadata:  in.Metadata,
	}
	if in.Parent != nil {
		rec.ParentID = in.Parent.ID
		rec.TraceID = in.Parent.TraceID
	}
	return rec
}

// Finish closes the record with the call's outcome. Only the first call has
// an effect; it returns false for later calls.
func (r *CallRecord) Finish(output any, err error, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.EndTime != nil {
		return false
	}
	end := at.UTC()
	r.EndTime = &end

	if err != nil {
		r.err = err
		r.Error = err.Error()
		r.Status = StatusError
		return true
	}
	r.Output = output
	r.Status = StatusOK
	return true
}

// FinishPanic closes the record for a call that panicked with v.
func (r *CallRecord) FinishPanic(v any, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.EndTime != nil {
		return false
	}
	end := at.UTC()
	r.EndTime = &end
	r.Status = StatusPanic
	if e, ok := v.(error); ok {
		r.err = e
	} else {
		r.err = fmt.Errorf("%v", v)
	}
	r.Error = "panic: " + r.err.Error()
	return true
}

// Err returns the error the call returned, or nil
func (r *CallRecord) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Finished reports whether the record has been closed
func (r *CallRecord) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.EndTime != nil
}

// Duration returns the call's wall time, or zero while running
func (r *CallRecord) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// AddChild links a finished nested record under r
func (r *CallRecord) AddChild(child *CallRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.children = append(r.children, child)
}

// Children returns a snapshot of the nested records
func (r *CallRecord) Children() []*CallRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*CallRecord, len(r.children))
	copy(out, r.children)
	return out
}

// Walk visits r and its descendants depth-first
func (r *CallRecord) Walk(fn func(rec *CallRecord, depth int)) {
	r.walk(fn, 0)
}

func (r *CallRecord) walk(fn func(*CallRecord, int), depth int) {
	fn(r, depth)
	for _, c := range r.Children() {
		c.walk(fn, depth+1)
	}
}
