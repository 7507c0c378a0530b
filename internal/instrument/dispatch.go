package instrument

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/agenttrace/instrument/internal/domain"
	"github.com/agenttrace/instrument/internal/pkg/metrics"
	"github.com/agenttrace/instrument/internal/sink"
)

// DefaultBufferSize bounds the records waiting for delivery.
const DefaultBufferSize = 1024

type delivery struct {
	ctx    context.Context
	target sink.Sink
	rec    *domain.CallRecord
}

// dispatcher hands finished records to their sinks on a background
// goroutine, in the order the calls finished. A full buffer drops the
// record instead of blocking the call.
type dispatcher struct {
	deliver func(delivery)
	logger  *zap.Logger

	ch   chan delivery
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.Mutex
	pending int
	idle    []chan struct{}
	closed  bool
}

func newDispatcher(size int, logger *zap.Logger, deliver func(delivery)) *dispatcher {
	if size <= 0 {
		size = DefaultBufferSize
	}
	d := &dispatcher{
		deliver: deliver,
		logger:  logger,
		ch:      make(chan delivery, size),
		done:    make(chan struct{}),
	}
	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *dispatcher) enqueue(del delivery) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.deliver(del)
		return
	}
	d.pending++
	d.mu.Unlock()

	select {
	case d.ch <- del:
	default:
		d.finish()
		name := sink.NameOf(del.target)
		metrics.RecordDropped(name, 1)
		d.logger.Warn("delivery buffer full, record dropped",
			zap.String("sink", name),
			zap.String("record_id", del.rec.ID),
		)
	}
}

func (d *dispatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case del := <-d.ch:
			d.deliver(del)
			d.finish()
		case <-d.done:
			return
		}
	}
}

func (d *dispatcher) finish() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending--
	if d.pending == 0 {
		for _, ch := range d.idle {
			close(ch)
		}
		d.idle = nil
	}
}

// flush waits until every enqueued record has been handed to its sink.
func (d *dispatcher) flush(ctx context.Context) error {
	d.mu.Lock()
	if d.pending == 0 {
		d.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	d.idle = append(d.idle, ch)
	d.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close drains the buffer and stops the loop. Records finished afterwards are
// delivered on the caller's goroutine.
func (d *dispatcher) close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	err := d.flush(ctx)
	if err == nil {
		d.once.Do(func() { close(d.done) })
		d.wg.Wait()
	}
	return err
}
