package sink

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/agenttrace/instrument/internal/domain"
	"github.com/agenttrace/instrument/internal/pkg/logger"
)

const (
	// TypeRecordIngest is the task type carrying one finished call record
	TypeRecordIngest = "record:ingest"

	// DefaultTaskQueue is the asynq queue record tasks are enqueued on
	DefaultTaskQueue = "records"
)

// Enqueuer is the part of an asynq client the sink uses. *asynq.Client
// satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewRecordTask creates an ingest task for rec
func NewRecordTask(rec *domain.CallRecord) (*asynq.Task, error) {
	data, err := domain.Encode(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record payload: %w", err)
	}
	return asynq.NewTask(TypeRecordIngest, data, asynq.MaxRetry(3)), nil
}

// Asynq hands records to background workers as asynq tasks.
type Asynq struct {
	client Enqueuer
	queue  string
}

// NewAsynq creates an asynq sink. An empty queue uses DefaultTaskQueue.
func NewAsynq(client Enqueuer, queue string) *Asynq {
	if queue == "" {
		queue = DefaultTaskQueue
	}
	return &Asynq{client: client, queue: queue}
}

// Name implements Named
func (a *Asynq) Name() string { return "asynq" }

// Accept enqueues rec
func (a *Asynq) Accept(ctx context.Context, rec *domain.CallRecord) error {
	task, err := NewRecordTask(rec)
	if err != nil {
		return err
	}
	if _, err := a.client.EnqueueContext(ctx, task, asynq.Queue(a.queue)); err != nil {
		return fmt.Errorf("enqueue record %s: %w", rec.ID, err)
	}
	return nil
}

// RecordTaskHandler decodes ingest tasks and delivers the records to a sink.
type RecordTaskHandler struct {
	logger *zap.Logger
	next   Sink
}

// NewRecordTaskHandler creates a handler delivering to next
func NewRecordTaskHandler(l *zap.Logger, next Sink) *RecordTaskHandler {
	return &RecordTaskHandler{logger: logger.OrNop(l), next: next}
}

// ProcessTask implements asynq.Handler
func (h *RecordTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	rec, err := domain.Decode(t.Payload())
	if err != nil {
		return fmt.Errorf("failed to unmarshal record payload: %w: %w", err, asynq.SkipRetry)
	}

	h.logger.Debug("processing record",
		zap.String("record_id", rec.ID),
		zap.Stringer("unit", rec.Unit),
	)

	if err := h.next.Accept(ctx, rec); err != nil {
		return fmt.Errorf("deliver record %s: %w", rec.ID, err)
	}
	return nil
}

// Register adds the handler to mux under TypeRecordIngest
func (h *RecordTaskHandler) Register(mux *asynq.ServeMux) {
	mux.Handle(TypeRecordIngest, h)
}
