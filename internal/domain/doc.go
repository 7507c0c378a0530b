// Package domain contains the core types of the instrumentation engine.
//
// This package defines:
//   - Unit: an instrumentable (owning type, method name) pair
//   - Signature and Param: the declared parameter list of a callable
//   - BoundCall: the arguments of one invocation keyed by parameter name
//   - CallRecord: the outcome of one invocation and its position in the call tree
//
// # Design Philosophy
//
// Domain types carry no behavior beyond bookkeeping. The signature resolver
// builds BoundCalls, the instrumenter builds CallRecords, and sinks consume
// them without knowing how they were produced.
//
// # Lifecycle
//
// A CallRecord is opened before the underlying function runs and finished
// exactly once when it returns, fails or panics. After that it is handed to
// sinks and never mutated again, except for late children attached by
// goroutines the call spawned.
package domain
