package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/maksline/lavka/internal/model"
)

// queue is a thread-safe FIFO for pending notifications.
//
// Unbounded so that a burst of confirmations never blocks an admin action on
// a slow transport. A buffered signal channel of size 1 coalesces wakeups and
// enables context-aware waiting in the dispatcher loop.
type queue struct {
	mu      sync.Mutex
	pending []Notification
	closed  bool
	signal  chan struct{}
}

func newQueue() *queue {
	return &queue{
		pending: make([]Notification, 0, 16),
		signal:  make(chan struct{}, 1),
	}
}

func (q *queue) enqueue(n Notification) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending = append(q.pending, n)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

func (q *queue) tryDequeue() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Notification{}, false
	}
	n := q.pending[0]
	q.pending[0] = Notification{}
	if len(q.pending) == 1 {
		q.pending = q.pending[:0]
	} else {
		q.pending = q.pending[1:]
	}
	return n, true
}

func (q *queue) drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.pending) == 0
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

// Dispatcher drains the notification queue onto a Transport.
//
// Enqueue* methods are safe from any goroutine; Run must be called from
// exactly one goroutine.
type Dispatcher struct {
	transport Transport
	queue     *queue
}

// NewDispatcher creates a dispatcher for the given transport.
func NewDispatcher(transport Transport) *Dispatcher {
	return &Dispatcher{transport: transport, queue: newQueue()}
}

// EnqueueNotify queues a plain text message to a user and returns the
// delivery id. Returns "" if the dispatcher is already closed.
func (d *Dispatcher) EnqueueNotify(userID int64, text string) string {
	n := Notification{
		DeliveryID: uuid.Must(uuid.NewV7()).String(),
		Kind:       KindNotify,
		UserID:     userID,
		Text:       text,
	}
	if !d.queue.enqueue(n) {
		slog.Warn("notification dropped: dispatcher closed", "delivery_id", n.DeliveryID, "user_id", userID)
		return ""
	}
	return n.DeliveryID
}

// EnqueueUpdate queues an edit of a previously posted message.
func (d *Dispatcher) EnqueueUpdate(ref model.MessageRef, text string) string {
	n := Notification{
		DeliveryID: uuid.Must(uuid.NewV7()).String(),
		Kind:       KindUpdate,
		Ref:        ref,
		Text:       text,
	}
	if !d.queue.enqueue(n) {
		slog.Warn("message update dropped: dispatcher closed", "delivery_id", n.DeliveryID)
		return ""
	}
	return n.DeliveryID
}

// Run delivers queued notifications until the context is cancelled or the
// dispatcher is closed and drained. Send failures are logged and the loop
// moves on; nothing is retried.
func (d *Dispatcher) Run(ctx context.Context) {
	slog.Info("notification dispatcher starting")
	for {
		n, ok := d.queue.tryDequeue()
		if !ok {
			if d.queue.drained() {
				slog.Info("notification dispatcher stopping: queue closed")
				return
			}
			select {
			case <-ctx.Done():
				slog.Info("notification dispatcher stopping: context cancelled")
				return
			case <-d.queue.signal:
				continue
			}
		}
		d.deliver(n)
	}
}

// Close signals that no more notifications will be enqueued.
// Run exits once the remaining queue is drained.
func (d *Dispatcher) Close() {
	d.queue.close()
}

// Len returns the number of undelivered notifications.
func (d *Dispatcher) Len() int {
	return d.queue.len()
}

func (d *Dispatcher) deliver(n Notification) {
	var err error
	switch n.Kind {
	case KindNotify:
		err = d.transport.Notify(n.UserID, n.Text)
	case KindUpdate:
		err = d.transport.UpdateMessage(n.Ref, n.Text)
	}
	if err != nil {
		slog.Warn("notification send failed",
			"delivery_id", n.DeliveryID,
			"kind", n.Kind,
			"user_id", n.UserID,
			"error", err,
		)
		return
	}
	slog.Debug("notification delivered", "delivery_id", n.DeliveryID, "kind", n.Kind)
}
