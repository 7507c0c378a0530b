package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := Binding("missing a required argument: 'prompt'")
	assert.Equal(t, "BINDING_ERROR: missing a required argument: 'prompt'", err.Error())

	wrapped := SinkFailure("http", errors.New("connection refused"))
	assert.Equal(t, "SINK_FAILURE: sink http rejected record (connection refused)", wrapped.Error())
	assert.Equal(t, "http", wrapped.Details["sink"])
}

func TestMethodNotFound(t *testing.T) {
	err := MethodNotFound("shim.App", "Run")
	assert.True(t, IsMethodNotFound(err))
	assert.False(t, IsBinding(err))
	assert.Equal(t, "Run", err.Details["method"])
}

func TestHelpers_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("install failed: %w", MethodNotFound("shim.App", "Run"))

	assert.True(t, IsAppError(err))
	assert.True(t, IsMethodNotFound(err))
	assert.Equal(t, CodeMethodNotFound, GetAppError(err).Code)
	assert.Nil(t, GetAppError(errors.New("plain")))
	assert.False(t, IsSinkFailure(nil))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := SinkFailure("redis", cause)
	assert.True(t, Is(err, cause))
}

func TestSinkPanicAndUnitConflict(t *testing.T) {
	err := SinkPanic("hub", "closed channel")
	assert.True(t, IsSinkFailure(err))
	assert.Equal(t, "SINK_FAILURE: sink hub panicked: closed channel", err.Error())

	conflict := UnitConflict("Calculator", "Add")
	assert.True(t, IsUnitConflict(conflict))
	assert.Equal(t, "Add", conflict.Details["method"])
}
