// Package errors provides the error types raised by the instrumentation engine.
//
// This package defines:
//   - AppError type with error classification
//   - Error constructors for the engine's failure modes
//   - Error type checking helpers
//
// # Error Types
//
//   - Binding: arguments could not be matched to a signature
//   - MethodNotFound: an instrumentation target does not define the method
//   - InvalidArgument: a constructor or option received an unusable value
//   - SinkFailure: a record collaborator rejected a record
//   - Internal: unexpected engine failure
//
// Errors returned by an instrumented callable are never wrapped in an AppError;
// callers see them exactly as the callable returned them.
//
// # Usage
//
//	return apperrors.Binding("missing a required argument: 'prompt'")
//
//	if apperrors.IsBinding(err) {
//	    // Handle the mismatch
//	}
package errors
