package sink

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agenttrace/instrument/internal/domain"
)

// Span attribute keys
const (
	AttrRecordID  = attribute.Key("instrument.record_id")
	AttrAppID     = attribute.Key("instrument.app_id")
	AttrStatus    = attribute.Key("instrument.status")
	AttrMainInput = attribute.Key("instrument.main_input")
	AttrArgPrefix = "instrument.arg."
)

// OTel replays finished call trees as spans. Only top-level records are
// exported; their descendants are already attached when they finish, so the
// whole tree is replayed with correct parent links.
type OTel struct {
	tracer trace.Tracer
}

// NewOTel creates an OpenTelemetry sink
func NewOTel(tracer trace.Tracer) *OTel {
	return &OTel{tracer: tracer}
}

// Name implements Named
func (o *OTel) Name() string { return "otel" }

// Accept exports rec's tree if rec is a top-level record
func (o *OTel) Accept(ctx context.Context, rec *domain.CallRecord) error {
	if rec.ParentID != "" {
		return nil
	}
	o.replay(ctx, rec)
	return nil
}

func (o *OTel) replay(ctx context.Context, rec *domain.CallRecord) {
	attrs := []attribute.KeyValue{
		AttrRecordID.String(rec.ID),
		AttrStatus.String(string(rec.Status)),
	}
	if rec.AppID != "" {
		attrs = append(attrs, AttrAppID.String(rec.AppID))
	}
	if rec.MainInput != "" {
		attrs = append(attrs, AttrMainInput.String(rec.MainInput))
	}
	if rec.Bound != nil {
		for _, a := range rec.Bound.Args {
			attrs = append(attrs, attribute.String(AttrArgPrefix+a.Name, fmt.Sprint(a.Value)))
		}
	}

	ctx, span := o.tracer.Start(ctx, rec.Unit.String(),
		trace.WithTimestamp(rec.StartTime),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)

	for _, child := range rec.Children() {
		o.replay(ctx, child)
	}

	if rec.Status.IsFailure() {
		span.SetStatus(codes.Error, rec.Error)
		if err := rec.Err(); err != nil {
			span.RecordError(err)
		}
	} else {
		span.SetStatus(codes.Ok, "")
	}

	end := rec.StartTime
	if rec.EndTime != nil {
		end = *rec.EndTime
	}
	span.End(trace.WithTimestamp(end))
}
