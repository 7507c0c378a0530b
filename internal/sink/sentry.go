package sink

import (
	"context"
	"errors"

	"github.com/getsentry/sentry-go"

	"github.com/agenttrace/instrument/internal/domain"
)

// Sentry reports failed calls. Successful records are ignored.
type Sentry struct {
	hub *sentry.Hub
}

// NewSentry creates a Sentry sink. A nil hub uses sentry.CurrentHub().
func NewSentry(hub *sentry.Hub) *Sentry {
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	return &Sentry{hub: hub}
}

// Name implements Named
func (s *Sentry) Name() string { return "sentry" }

// Accept captures rec when the call failed
func (s *Sentry) Accept(_ context.Context, rec *domain.CallRecord) error {
	if !rec.Status.IsFailure() {
		return nil
	}

	hub := s.hub.Clone()
	hub.Scope().SetTag("unit", rec.Unit.String())
	hub.Scope().SetTag("record_id", rec.ID)
	hub.Scope().SetTag("trace_id", rec.TraceID)
	if rec.AppID != "" {
		hub.Scope().SetTag("app_id", rec.AppID)
	}
	if rec.ParentID != "" {
		hub.Scope().SetExtra("parent_id", rec.ParentID)
	}
	if rec.Bound != nil {
		hub.Scope().SetExtra("args", rec.Bound.Map())
	}

	err := rec.Err()
	if err == nil {
		err = errors.New(rec.Error)
	}
	if rec.Status == domain.StatusPanic {
		hub.Scope().SetLevel(sentry.LevelFatal)
	} else {
		hub.Scope().SetLevel(sentry.LevelError)
	}

	hub.CaptureException(err)
	return nil
}
