package instrument

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/agenttrace/instrument/internal/domain"
	"github.com/agenttrace/instrument/internal/pkg/metrics"
	"github.com/agenttrace/instrument/internal/signature"
	"github.com/agenttrace/instrument/internal/sink"
)

// ErrGoexit is recorded for calls that ended through runtime.Goexit.
var ErrGoexit = errors.New("instrument: call exited via runtime.Goexit")

// wrap builds the recording body that replaces orig. Results, errors and
// panics of orig reach the caller unchanged.
func (i *Instrumenter) wrap(orig *Method) MethodFunc {
	return func(ctx context.Context, self any, args []any, kwargs map[string]any) (result any, err error) {
		if ctx == nil {
			ctx = context.Background()
		}

		bound, err := i.resolver.Resolve(signature.Target{
			Owner:     self,
			Unit:      orig.Unit,
			Signature: orig.Signature,
		}, args, kwargs)
		if err != nil {
			metrics.RecordBindingError(orig.Unit.String())
			return nil, err
		}

		parent := CurrentRecord(ctx)
		rc := RecordingFrom(ctx)
		rec := domain.OpenRecord(domain.RecordInput{
			ID:        i.ids.RecordID(),
			TraceID:   i.ids.TraceID(),
			Parent:    parent,
			AppID:     i.appIDFor(rc),
			Unit:      orig.Unit,
			Bound:     bound,
			StartTime: i.now(),
			Metadata:  metadataFor(rc),
		})
		if rc != nil {
			rc.opened(rec, parent)
		}

		returned := false
		defer func() {
			if returned {
				return
			}
			v := recover()
			if v == nil {
				rec.Finish(nil, ErrGoexit, i.now())
				i.complete(ctx, rc, parent, rec)
				return
			}
			rec.FinishPanic(v, i.now())
			i.complete(ctx, rc, parent, rec)
			panic(v)
		}()

		result, err = orig.Fn(WithRecord(ctx, rec), self, args, kwargs)
		returned = true

		rec.Finish(result, err, i.now())
		i.complete(ctx, rc, parent, rec)
		return result, err
	}
}

// complete annotates rec, links it into the tree and queues it for exactly
// one sink. Delivery happens off the caller's goroutine.
func (i *Instrumenter) complete(ctx context.Context, rc *Recording, parent, rec *domain.CallRecord) {
	metrics.RecordCall(rec.Unit.String(), string(rec.Status), rec.Duration())

	target := i.sink
	if rc != nil {
		if rc.opts.Annotate != nil {
			i.guard("annotate", rec, func() { rc.opts.Annotate(rec) })
		}
		if rc.opts.Sink != nil {
			target = rc.opts.Sink
		}
	}

	if parent != nil {
		parent.AddChild(rec)
	}

	i.logger.Debug("call recorded",
		zap.String("record_id", rec.ID),
		zap.String("parent_id", rec.ParentID),
		zap.Stringer("unit", rec.Unit),
		zap.String("status", string(rec.Status)),
	)

	if target == nil {
		return
	}
	i.dispatch.enqueue(delivery{ctx: context.WithoutCancel(ctx), target: target, rec: rec})
}

// deliver hands one record to its sink. Errors and panics are logged and
// counted, never returned.
func (i *Instrumenter) deliver(d delivery) {
	name := sink.NameOf(d.target)
	i.guard(name, d.rec, func() {
		if err := d.target.Accept(d.ctx, d.rec); err != nil {
			metrics.RecordSinkFailure(name)
			i.logger.Warn("sink rejected record",
				zap.String("sink", name),
				zap.String("record_id", d.rec.ID),
				zap.Error(err),
			)
		}
	})
}

// guard runs fn and swallows a panic from it, so collaborators cannot break
// the instrumented call.
func (i *Instrumenter) guard(name string, rec *domain.CallRecord, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			metrics.RecordSinkFailure(name)
			i.logger.Error("record collaborator panicked",
				zap.String("collaborator", name),
				zap.String("record_id", rec.ID),
				zap.Any("panic", v),
			)
		}
	}()
	fn()
}

func (i *Instrumenter) appIDFor(rc *Recording) string {
	if rc != nil && rc.opts.AppID != "" {
		return rc.opts.AppID
	}
	return i.appID
}

func metadataFor(rc *Recording) map[string]any {
	if rc == nil || len(rc.opts.Metadata) == 0 {
		return nil
	}
	out := make(map[string]any, len(rc.opts.Metadata))
	for k, v := range rc.opts.Metadata {
		out[k] = v
	}
	return out
}
