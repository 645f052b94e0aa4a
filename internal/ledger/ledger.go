// Package ledger implements the shared pending-order ledger.
//
// The ledger is the contention point of the system: it is written by
// purchasing users submitting evidence and consumed by administrators acting
// concurrently. All per-order serialization happens here, inside Take.
package ledger

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/maksline/lavka/internal/fault"
	"github.com/maksline/lavka/internal/model"
)

// Outcome is the administrator's resolution of a pending order.
type Outcome string

const (
	// OutcomeConfirmed accepts the order into financial statistics.
	OutcomeConfirmed Outcome = "CONFIRMED"
	// OutcomeRejected discards the order with no financial mutation.
	OutcomeRejected Outcome = "REJECTED"
)

// Saver persists the full pending-order table. Each save is a whole-table overwrite.
type Saver interface {
	SavePendingOrders(orders map[string]model.PendingOrder) error
}

// Ledger is the shared map from order id to immutable order snapshot.
type Ledger struct {
	mu     sync.Mutex
	orders map[string]model.PendingOrder
	saver  Saver
}

// New creates an empty ledger backed by the given saver.
func New(saver Saver) *Ledger {
	return &Ledger{orders: make(map[string]model.PendingOrder), saver: saver}
}

// Init replaces the in-memory table with loaded state.
func (l *Ledger) Init(orders map[string]model.PendingOrder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders = make(map[string]model.PendingOrder, len(orders))
	for id, o := range orders {
		l.orders[id] = o
	}
}

// Put inserts an order snapshot. Order ids are globally unique by
// construction, so Put never observes a live duplicate.
func (l *Ledger) Put(order model.PendingOrder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders[order.OrderID] = order
	l.persistLocked()
}

// Get returns the order with the given id without removing it.
func (l *Ledger) Get(orderID string) (model.PendingOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok {
		return model.PendingOrder{}, fault.NotFound("order", orderID)
	}
	return order, nil
}

// Take atomically looks up and removes the order in one critical section.
//
// This single check-and-remove is what prevents a double-confirm or a
// confirm-then-reject race: whichever admin action reaches it first gets the
// order, every later action observes NOT_FOUND and performs zero side effects.
func (l *Ledger) Take(orderID string) (model.PendingOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok {
		return model.PendingOrder{}, fault.NotFound("order", orderID)
	}
	delete(l.orders, orderID)
	l.persistLocked()
	return order, nil
}

// AttachMessage records the admin-channel post for an order so the post can
// be updated on resolution. A miss is not an error: the order may already
// have been resolved by the time the post was delivered.
func (l *Ledger) AttachMessage(orderID string, ref model.MessageRef) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[orderID]
	if !ok {
		return
	}
	order.ChannelMsg = &ref
	l.orders[orderID] = order
	l.persistLocked()
}

// List returns all pending orders sorted by creation time, oldest first.
func (l *Ledger) List() []model.PendingOrder {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.PendingOrder, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderID < out[j].OrderID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of unresolved orders.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.orders)
}

func (l *Ledger) persistLocked() {
	if l.saver == nil {
		return
	}
	snapshot := make(map[string]model.PendingOrder, len(l.orders))
	for id, o := range l.orders {
		snapshot[id] = o
	}
	if err := l.saver.SavePendingOrders(snapshot); err != nil {
		slog.Error("pending-order persist failed, continuing with in-memory state", "error", err)
	}
}
