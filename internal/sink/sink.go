// Package sink delivers finished call records to collaborators.
//
// The instrumenter only needs a Sink: something that accepts a record and
// does not fail back into the call path. Queue turns any BatchSink into a
// non-blocking Sink; the remaining types adapt records to concrete
// collaborators (an ingestion endpoint, Redis, asynq, OpenTelemetry, Sentry,
// logs, in-process subscribers).
package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/agenttrace/instrument/internal/domain"
	apperrors "github.com/agenttrace/instrument/internal/pkg/errors"
)

// Sink accepts one finished record.
type Sink interface {
	Accept(ctx context.Context, rec *domain.CallRecord) error
}

// BatchSink accepts finished records in batches.
type BatchSink interface {
	AcceptBatch(ctx context.Context, records []*domain.CallRecord) error
}

// Func adapts a function to Sink
type Func func(ctx context.Context, rec *domain.CallRecord) error

// Accept calls f
func (f Func) Accept(ctx context.Context, rec *domain.CallRecord) error {
	return f(ctx, rec)
}

// Named is implemented by sinks that report a name for logs and metrics.
type Named interface {
	Name() string
}

// NameOf returns the sink's name, or its Go type when it has none.
func NameOf(s any) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", s)
}

// Multi delivers each record to every sink concurrently and joins their
// errors. A panicking sink is reported as a sink failure.
type Multi []Sink

// Accept fans out to all sinks
func (m Multi) Accept(ctx context.Context, rec *domain.CallRecord) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}
	for _, s := range m {
		g.Go(func() error {
			defer func() {
				if v := recover(); v != nil {
					fail(apperrors.SinkPanic(NameOf(s), v))
				}
			}()
			if err := s.Accept(ctx, rec); err != nil {
				fail(apperrors.SinkFailure(NameOf(s), err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Name implements Named
func (m Multi) Name() string { return "multi" }

// Batch adapts a BatchSink to Sink with a batch of one.
type Batch struct {
	Target BatchSink
}

// Accept delivers rec as a single-record batch
func (b Batch) Accept(ctx context.Context, rec *domain.CallRecord) error {
	return b.Target.AcceptBatch(ctx, []*domain.CallRecord{rec})
}

// Name implements Named
func (b Batch) Name() string { return NameOf(b.Target) }

// Discard drops every record
var Discard Sink = Func(func(context.Context, *domain.CallRecord) error { return nil })

// Each adapts a Sink to BatchSink by delivering records one at a time.
type Each struct {
	Target Sink
}

// AcceptBatch delivers every record and joins the errors
func (e Each) AcceptBatch(ctx context.Context, records []*domain.CallRecord) error {
	var errs []error
	for _, rec := range records {
		if err := e.Target.Accept(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Name implements Named
func (e Each) Name() string { return NameOf(e.Target) }
