package domain

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// recordView is the wire form of a CallRecord
type recordView struct {
	ID         string         `json:"id"`
	TraceID    string         `json:"traceId"`
	ParentID   string         `json:"parentId,omitempty"`
	AppID      string         `json:"appId,omitempty"`
	Unit       Unit           `json:"unit"`
	Bound      *BoundCall     `json:"bound"`
	MainInput  string         `json:"mainInput,omitempty"`
	Output     any            `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	Status     Status         `json:"status"`
	StartTime  time.Time      `json:"startTime"`
	EndTime    *time.Time     `json:"endTime,omitempty"`
	DurationMs float64        `json:"durationMs"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Children   []*CallRecord  `json:"children,omitempty"`
}

// MarshalJSON encodes the record and its children under the record's lock
func (r *CallRecord) MarshalJSON() ([]byte, error) {
	r.mu.Lock()
	view := recordView{
		ID:        r.ID,
		TraceID:   r.TraceID,
		ParentID:  r.ParentID,
		AppID:     r.AppID,
		Unit:      r.Unit,
		Bound:     r.Bound,
		MainInput: r.MainInput,
		Output:    r.Output,
		Error:     r.Error,
		Status:    r.Status,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Metadata:  r.Metadata,
		Children:  append([]*CallRecord(nil), r.children...),
	}
	if r.EndTime != nil {
		view.DurationMs = float64(r.EndTime.Sub(r.StartTime).Microseconds()) / 1000
	}
	r.mu.Unlock()

	return json.Marshal(view)
}

// UnmarshalJSON decodes a record produced by MarshalJSON. The original error
// value is not recoverable; only its message survives.
func (r *CallRecord) UnmarshalJSON(data []byte) error {
	var view recordView
	if err := json.Unmarshal(data, &view); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ID = view.ID
	r.TraceID = view.TraceID
	r.ParentID = view.ParentID
	r.AppID = view.AppID
	r.Unit = view.Unit
	r.Bound = view.Bound
	r.MainInput = view.MainInput
	r.Output = view.Output
	r.Error = view.Error
	r.Status = view.Status
	r.StartTime = view.StartTime
	r.EndTime = view.EndTime
	r.Metadata = view.Metadata
	r.children = view.Children
	return nil
}

// Encode serializes a record to JSON
func Encode(r *CallRecord) ([]byte, error) {
	return json.Marshal(r)
}

// EncodeBatch serializes records to a JSON array
func EncodeBatch(records []*CallRecord) ([]byte, error) {
	return json.Marshal(records)
}

// Decode parses a record serialized by Encode
func Decode(data []byte) (*CallRecord, error) {
	rec := &CallRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
