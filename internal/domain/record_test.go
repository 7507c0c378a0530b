package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRecord(id string, parent *CallRecord) *CallRecord {
	return OpenRecord(RecordInput{
		ID:        id,
		TraceID:   "4bf92f3577b34da6a3ce929d0e0e4736",
		Parent:    parent,
		AppID:     "app",
		Unit:      NewUnit("shim.App", "Call"),
		StartTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
}

func TestOpenRecord_ParentLinkage(t *testing.T) {
	root := openTestRecord("root", nil)
	child := OpenRecord(RecordInput{ID: "child", TraceID: "other", Parent: root, StartTime: time.Now()})

	assert.Equal(t, StatusRunning, root.Status)
	assert.Empty(t, root.ParentID)
	assert.Equal(t, "root", child.ParentID)
	assert.Equal(t, root.TraceID, child.TraceID)
}

func TestCallRecord_FinishOnce(t *testing.T) {
	rec := openTestRecord("r1", nil)
	end := rec.StartTime.Add(150 * time.Millisecond)

	assert.True(t, rec.Finish("a response", nil, end))
	assert.False(t, rec.Finish(nil, errors.New("late"), end.Add(time.Second)))

	assert.Equal(t, StatusOK, rec.Status)
	assert.Equal(t, "a response", rec.Output)
	assert.NoError(t, rec.Err())
	assert.True(t, rec.Finished())
	assert.Equal(t, 150*time.Millisecond, rec.Duration())
}

func TestCallRecord_FinishError(t *testing.T) {
	cause := errors.New("upstream unavailable")
	rec := openTestRecord("r1", nil)

	rec.Finish("ignored", cause, time.Now())

	assert.Equal(t, StatusError, rec.Status)
	assert.Nil(t, rec.Output)
	assert.Equal(t, "upstream unavailable", rec.Error)
	assert.Same(t, cause, rec.Err())
	assert.True(t, rec.Status.IsFailure())
}

func TestCallRecord_FinishPanic(t *testing.T) {
	rec := openTestRecord("r1", nil)
	rec.FinishPanic("index out of range", time.Now())

	assert.Equal(t, StatusPanic, rec.Status)
	assert.Equal(t, "panic: index out of range", rec.Error)
	assert.EqualError(t, rec.Err(), "index out of range")
}

func TestCallRecord_Walk(t *testing.T) {
	root := openTestRecord("root", nil)
	a := openTestRecord("a", root)
	b := openTestRecord("b", a)
	root.AddChild(a)
	a.AddChild(b)

	var visited []string
	var depths []int
	root.Walk(func(rec *CallRecord, depth int) {
		visited = append(visited, rec.ID)
		depths = append(depths, depth)
	})

	assert.Equal(t, []string{"root", "a", "b"}, visited)
	assert.Equal(t, []int{0, 1, 2}, depths)
}

func TestEncodeDecode(t *testing.T) {
	root := openTestRecord("root", nil)
	root.Bound = &BoundCall{
		Signature: NewSignature("f", Required("prompt")),
		Args:      []Argument{{Name: "prompt", Value: "Give me a response"}},
	}
	root.MainInput = "Give me a response"
	child := openTestRecord("child", root)
	child.Finish("inner", nil, child.StartTime.Add(time.Millisecond))
	root.AddChild(child)
	root.Finish("a response", nil, root.StartTime.Add(2*time.Millisecond))

	data, err := Encode(root)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"durationMs":2`)
	assert.Contains(t, string(data), `"mainInput":"Give me a response"`)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "root", decoded.ID)
	assert.Equal(t, StatusOK, decoded.Status)
	assert.Equal(t, "a response", decoded.Output)
	v, ok := decoded.Bound.Get("prompt")
	require.True(t, ok)
	assert.Equal(t, "Give me a response", v)
	require.Len(t, decoded.Children(), 1)
	assert.Equal(t, "root", decoded.Children()[0].ParentID)
}
