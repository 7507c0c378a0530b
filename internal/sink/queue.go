package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agenttrace/instrument/internal/domain"
	apperrors "github.com/agenttrace/instrument/internal/pkg/errors"
	"github.com/agenttrace/instrument/internal/pkg/logger"
	"github.com/agenttrace/instrument/internal/pkg/metrics"
)

// Queue defaults
const (
	DefaultFlushAt       = 20
	DefaultFlushInterval = 5 * time.Second
	DefaultMaxQueueSize  = 10000
)

// ErrQueueClosed is returned by Accept after Shutdown.
var ErrQueueClosed = errors.New("sink: queue is shut down")

// QueueConfig configures a Queue.
type QueueConfig struct {
	// Name labels the queue in logs and metrics. Defaults to the target's name.
	Name string

	// FlushAt is the number of pending records that triggers a flush. Defaults to 20.
	FlushAt int

	// FlushInterval is the time between background flushes. Defaults to 5 seconds.
	FlushInterval time.Duration

	// MaxQueueSize bounds the pending records. When exceeded, the oldest are
	// dropped. Defaults to 10000.
	MaxQueueSize int

	// OnError receives delivery and overflow errors. If nil, they are logged.
	OnError func(err error)

	Logger *zap.Logger
}

// Queue buffers records and delivers them to a BatchSink from a background
// loop. Accept never blocks on the target.
type Queue struct {
	config QueueConfig
	target BatchSink
	logger *zap.Logger

	queueMu sync.Mutex
	queue   []*domain.CallRecord
	dropped int64
	closed  bool

	flushMu sync.Mutex
	flushCh chan struct{}
	doneCh  chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewQueue starts a queue in front of target.
func NewQueue(target BatchSink, config QueueConfig) *Queue {
	if config.Name == "" {
		config.Name = NameOf(target)
	}
	if config.FlushAt <= 0 {
		config.FlushAt = DefaultFlushAt
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = DefaultFlushInterval
	}
	if config.MaxQueueSize <= 0 {
		config.MaxQueueSize = DefaultMaxQueueSize
	}

	q := &Queue{
		config:  config,
		target:  target,
		logger:  logger.OrNop(config.Logger).Named("queue").With(zap.String("sink", config.Name)),
		queue:   make([]*domain.CallRecord, 0, config.FlushAt),
		flushCh: make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
	}

	q.wg.Add(1)
	go q.flushLoop()

	return q
}

// Name implements Named
func (q *Queue) Name() string { return q.config.Name }

// Accept enqueues rec
func (q *Queue) Accept(_ context.Context, rec *domain.CallRecord) error {
	q.queueMu.Lock()
	if q.closed {
		q.queueMu.Unlock()
		return ErrQueueClosed
	}

	dropped := 0
	if len(q.queue) >= q.config.MaxQueueSize {
		dropped = len(q.queue) - q.config.MaxQueueSize + 1
		q.queue = q.queue[dropped:]
		q.dropped += int64(dropped)
	}
	total := q.dropped

	q.queue = append(q.queue, rec)
	shouldFlush := len(q.queue) >= q.config.FlushAt
	q.queueMu.Unlock()

	if dropped > 0 {
		metrics.RecordDropped(q.config.Name, dropped)
		q.reportError(fmt.Errorf("queue overflow, dropped %d records (total dropped: %d)", dropped, total))
	}

	if shouldFlush {
		select {
		case q.flushCh <- struct{}{}:
		default:
		}
	}
	return nil
}

// Flush delivers all pending records.
func (q *Queue) Flush(ctx context.Context) error {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	q.queueMu.Lock()
	if len(q.queue) == 0 {
		q.queueMu.Unlock()
		return nil
	}
	batch := q.queue
	q.queue = make([]*domain.CallRecord, 0, q.config.FlushAt)
	q.queueMu.Unlock()

	if err := q.deliver(ctx, batch); err != nil {
		metrics.RecordSinkFailure(q.config.Name)
		err = fmt.Errorf("deliver %d records: %w", len(batch), err)
		q.reportError(err)
		return err
	}
	metrics.RecordEmitted(q.config.Name, len(batch))
	return nil
}

// deliver hands batch to the target and reports a panic as a sink failure.
func (q *Queue) deliver(ctx context.Context, batch []*domain.CallRecord) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = apperrors.SinkPanic(q.config.Name, v)
		}
	}()
	return q.target.AcceptBatch(ctx, batch)
}

// Shutdown stops the background loop and flushes what is left. Accept fails
// afterwards.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.once.Do(func() {
		q.queueMu.Lock()
		q.closed = true
		q.queueMu.Unlock()
		close(q.doneCh)
	})
	q.wg.Wait()
	return q.Flush(ctx)
}

// Pending returns the number of queued records
func (q *Queue) Pending() int {
	q.queueMu.Lock()
	defer q.queueMu.Unlock()
	return len(q.queue)
}

// Dropped returns the number of records dropped on overflow
func (q *Queue) Dropped() int64 {
	q.queueMu.Lock()
	defer q.queueMu.Unlock()
	return q.dropped
}

func (q *Queue) flushLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.doneCh:
			return
		case <-q.flushCh:
			_ = q.Flush(context.Background())
		case <-ticker.C:
			_ = q.Flush(context.Background())
		}
	}
}

func (q *Queue) reportError(err error) {
	if q.config.OnError != nil {
		q.config.OnError(err)
		return
	}
	q.logger.Warn("queue error", zap.Error(err))
}
