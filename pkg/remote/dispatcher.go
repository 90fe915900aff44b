package remote

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/gwillem/vectorpad/pkg/teleop"
)

// DefaultQueueSize is the number of commands a Dispatcher buffers.
const DefaultQueueSize = 32

var (
	// ErrQueueFull is returned by Deliver when the send queue is full.
	ErrQueueFull = errors.New("dispatch queue full")
	// ErrClosed is returned by Deliver after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Sender delivers a single command and waits for the result.
type Sender interface {
	Send(ctx context.Context, cmd teleop.Command) error
}

// Stats counts what a Dispatcher did with the commands it was given.
type Stats struct {
	Sent    int64
	Failed  int64
	Dropped int64
}

// Dispatcher queues commands and sends them in order from a single worker,
// so the control loop never waits on the network. Failed sends are logged
// and counted but not retried.
type Dispatcher struct {
	sender Sender
	logger *zap.Logger
	queue  chan teleop.Command

	mu     sync.Mutex
	closed bool

	sent    atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewDispatcher returns a dispatcher with room for size queued commands.
func NewDispatcher(sender Sender, size int, logger *zap.Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sender: sender,
		logger: logger,
		queue:  make(chan teleop.Command, size),
	}
}

// Deliver implements teleop.Deliverer. It only enqueues the command.
func (d *Dispatcher) Deliver(_ context.Context, cmd teleop.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- cmd:
		return nil
	default:
		d.dropped.Add(1)
		d.logger.Warn("command dropped", zap.Stringer("command", cmd))
		return ErrQueueFull
	}
}

// Close stops accepting commands. Run returns once the queue is drained.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		d.closed = true
		close(d.queue)
	}
}

// Run sends queued commands until the dispatcher is closed and drained,
// or ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-d.queue:
			if !ok {
				return nil
			}
			d.send(ctx, cmd)
		}
	}
}

func (d *Dispatcher) send(ctx context.Context, cmd teleop.Command) {
	if err := d.sender.Send(ctx, cmd); err != nil {
		d.failed.Add(1)
		d.logger.Warn("send failed", zap.Stringer("command", cmd), zap.Error(err))
		return
	}
	d.sent.Add(1)
}

// Stats returns the counters so far.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Sent:    d.sent.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
	}
}
