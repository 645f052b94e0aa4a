// Package cart implements the per-user cart aggregator.
//
// Totals are always recomputed against the current catalog price; only a
// PendingOrder freezes prices. A product deleted after being carted is
// silently skipped from totals.
package cart

import (
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maksline/lavka/internal/fault"
	"github.com/maksline/lavka/internal/model"
)

// Catalog is the read side of the catalog the aggregator prices against.
type Catalog interface {
	Product(id int64) (model.Product, error)
}

// Saver persists the full cart map. Each save is a whole-table overwrite.
type Saver interface {
	SaveCarts(carts map[int64][]model.CartItem) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithNow overrides the time source. Used in tests for deterministic AddedAt stamps.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager holds every user's cart behind a single lock.
// A cart is created lazily on first access and deleted, not emptied, on clear.
type Manager struct {
	mu      sync.Mutex
	carts   map[int64][]model.CartItem
	catalog Catalog
	saver   Saver
	now     func() time.Time
}

// New creates an empty cart manager.
func New(catalog Catalog, saver Saver, opts ...Option) *Manager {
	m := &Manager{
		carts:   make(map[int64][]model.CartItem),
		catalog: catalog,
		saver:   saver,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init replaces the in-memory cart map with loaded state.
func (m *Manager) Init(carts map[int64][]model.CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts = make(map[int64][]model.CartItem, len(carts))
	for userID, items := range carts {
		m.carts[userID] = append([]model.CartItem(nil), items...)
	}
}

// Add puts qty units of a product into the user's cart. If the product is
// already carted its stored quantity is incremented rather than duplicated.
// The requested qty is checked against the product's current stock hint.
func (m *Manager) Add(userID, productID int64, qty int) error {
	if qty <= 0 {
		return fault.New(fault.CodeInvalidInput, "quantity must be positive")
	}
	product, err := m.catalog.Product(productID)
	if err != nil {
		return err
	}
	if qty > product.Quantity {
		return fault.Newf(fault.CodeStockExceeded, "only %d of %q available", product.Quantity, product.Name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.carts[userID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity += qty
			m.persistLocked()
			return nil
		}
	}
	m.carts[userID] = append(items, model.CartItem{
		ProductID: productID,
		Quantity:  qty,
		AddedAt:   m.now(),
	})
	m.persistLocked()
	return nil
}

// Remove deletes a product line from the user's cart.
func (m *Manager) Remove(userID, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.carts[userID]
	for i := range items {
		if items[i].ProductID == productID {
			m.carts[userID] = append(items[:i], items[i+1:]...)
			m.persistLocked()
			return nil
		}
	}
	return fault.NotFound("cart item", strconv.FormatInt(productID, 10))
}

// SetQuantity replaces the stored quantity of a carted product.
func (m *Manager) SetQuantity(userID, productID int64, qty int) error {
	if qty <= 0 {
		return fault.New(fault.CodeInvalidInput, "quantity must be positive")
	}
	product, err := m.catalog.Product(productID)
	if err != nil {
		return err
	}
	if qty > product.Quantity {
		return fault.Newf(fault.CodeStockExceeded, "only %d of %q available", product.Quantity, product.Name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.carts[userID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = qty
			m.persistLocked()
			return nil
		}
	}
	return fault.NotFound("cart item", strconv.FormatInt(productID, 10))
}

// Clear deletes the user's cart entirely (the map entry, not just its items).
func (m *Manager) Clear(userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.carts[userID]; !ok {
		return fault.NotFound("cart", strconv.FormatInt(userID, 10))
	}
	delete(m.carts, userID)
	m.persistLocked()
	return nil
}

// Total prices the user's cart against current catalog prices.
// Lines whose product has since been deleted are skipped without error.
func (m *Manager) Total(userID int64) model.CartTotal {
	m.mu.Lock()
	items := append([]model.CartItem(nil), m.carts[userID]...)
	m.mu.Unlock()

	total := model.CartTotal{TotalAmount: decimal.Zero}
	for _, item := range items {
		product, err := m.catalog.Product(item.ProductID)
		if err != nil {
			// Stale line: product was deleted after being carted.
			continue
		}
		lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total.Items = append(total.Items, model.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			LineTotal: lineTotal,
		})
		total.TotalAmount = total.TotalAmount.Add(lineTotal)
		total.TotalQuantity += item.Quantity
	}
	total.ItemsCount = len(total.Items)
	return total
}

// Items returns a copy of the user's raw cart lines.
func (m *Manager) Items(userID int64) []model.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.CartItem(nil), m.carts[userID]...)
}

// Count returns the number of distinct product lines in the user's cart.
func (m *Manager) Count(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.carts[userID])
}

// Snapshot returns a deep copy of the whole cart map.
func (m *Manager) Snapshot() map[int64][]model.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() map[int64][]model.CartItem {
	out := make(map[int64][]model.CartItem, len(m.carts))
	for userID, items := range m.carts {
		out[userID] = append([]model.CartItem(nil), items...)
	}
	return out
}

func (m *Manager) persistLocked() {
	if m.saver == nil {
		return
	}
	if err := m.saver.SaveCarts(m.snapshotLocked()); err != nil {
		slog.Error("cart persist failed, continuing with in-memory state", "error", err)
	}
}
