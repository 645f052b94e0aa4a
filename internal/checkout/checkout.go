// Package checkout implements the per-user checkout state machine.
//
// A session exists only between a buy intent and either evidence submission
// or cancellation. Sessions are ephemeral and are not persisted across
// process restarts; losing one costs the user a re-prompt, nothing more.
package checkout

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/maksline/lavka/internal/fault"
	"github.com/maksline/lavka/internal/model"
)

// Catalog is the read side of the catalog used to snapshot prices.
type Catalog interface {
	Product(id int64) (model.Product, error)
}

// Carts prices the user's cart for whole-cart checkouts.
type Carts interface {
	Total(userID int64) model.CartTotal
}

// Ledger accepts the immutable order snapshot built on evidence submission.
type Ledger interface {
	Put(order model.PendingOrder)
}

// Session is a single in-flight purchase in the AWAITING_EVIDENCE state.
// The priced snapshot is frozen here; later catalog changes do not affect it.
type Session struct {
	UserID        int64
	Username      string
	Mode          model.OrderMode
	OrderID       string
	PaymentMethod string
	Amount        decimal.Decimal
	Items         []model.CartLine
	TotalQuantity int
	CreatedAt     time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithNow overrides the time source used for order ids and timestamps.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// Manager drives every user's checkout session.
//
// A user has at most one session. Starting a new checkout while one is
// awaiting evidence silently replaces it: last write wins. That trade-off is
// deliberate; see the ledger for where orders become contention-safe.
type Manager struct {
	mu            sync.Mutex
	sessions      map[int64]Session
	catalog       Catalog
	carts         Carts
	ledger        Ledger
	paymentMethod string
	now           func() time.Time
}

// New creates a checkout manager. paymentMethod is the display name of the
// externally configured payment routing (it travels into the order snapshot).
func New(catalog Catalog, carts Carts, ledger Ledger, paymentMethod string, opts ...Option) *Manager {
	m := &Manager{
		sessions:      make(map[int64]Session),
		catalog:       catalog,
		carts:         carts,
		ledger:        ledger,
		paymentMethod: paymentMethod,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NormalizeHandle NFC-normalizes and trims a user handle. An empty result
// means the user has no displayable identity.
func NormalizeHandle(handle string) string {
	return strings.TrimSpace(norm.NFC.String(handle))
}

// StartSingleItem opens a session for one product. The product must exist and
// be in stock, and the user must have a non-empty handle. No session is
// created when any precondition fails.
func (m *Manager) StartSingleItem(userID int64, handle string, productID int64) (Session, error) {
	username := NormalizeHandle(handle)
	if username == "" {
		return Session{}, fault.New(fault.CodeMissingIdentity, "a public handle is required to place an order")
	}
	product, err := m.catalog.Product(productID)
	if err != nil {
		return Session{}, err
	}
	if product.Quantity <= 0 {
		return Session{}, fault.Newf(fault.CodeStockExceeded, "%q is out of stock", product.Name)
	}

	now := m.now()
	session := Session{
		UserID:        userID,
		Username:      username,
		Mode:          model.ModeSingle,
		OrderID:       model.NewOrderID(model.ModeSingle, userID, now),
		PaymentMethod: m.paymentMethod,
		Amount:        product.Price,
		Items: []model.CartLine{{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  1,
			LineTotal: product.Price,
		}},
		TotalQuantity: 1,
		CreatedAt:     now,
	}

	m.mu.Lock()
	m.sessions[userID] = session
	m.mu.Unlock()
	return session, nil
}

// StartCartCheckout opens a session covering the user's whole cart, priced at
// the current catalog prices. The cart must be non-empty and the user must
// have a non-empty handle.
func (m *Manager) StartCartCheckout(userID int64, handle string) (Session, error) {
	username := NormalizeHandle(handle)
	if username == "" {
		return Session{}, fault.New(fault.CodeMissingIdentity, "a public handle is required to place an order")
	}
	total := m.carts.Total(userID)
	if total.ItemsCount == 0 {
		return Session{}, fault.New(fault.CodeInvalidInput, "cart is empty")
	}

	now := m.now()
	session := Session{
		UserID:        userID,
		Username:      username,
		Mode:          model.ModeCart,
		OrderID:       model.NewOrderID(model.ModeCart, userID, now),
		PaymentMethod: m.paymentMethod,
		Amount:        total.TotalAmount,
		Items:         total.Items,
		TotalQuantity: total.TotalQuantity,
		CreatedAt:     now,
	}

	m.mu.Lock()
	m.sessions[userID] = session
	m.mu.Unlock()
	return session, nil
}

// SubmitEvidence turns the active session into a PendingOrder carrying the
// opaque evidence reference, inserts it into the ledger, and clears the
// session. The cart is left intact for cart-mode orders: it is cleared only
// on confirmed payment so a rejected order can be retried.
func (m *Manager) SubmitEvidence(userID int64, evidenceRef string) (model.PendingOrder, error) {
	m.mu.Lock()
	session, ok := m.sessions[userID]
	if !ok {
		m.mu.Unlock()
		return model.PendingOrder{}, fault.New(fault.CodeNoActiveSession, "no checkout in progress")
	}
	delete(m.sessions, userID)
	m.mu.Unlock()

	order := model.PendingOrder{
		OrderID:       session.OrderID,
		UserID:        session.UserID,
		Username:      session.Username,
		Mode:          session.Mode,
		Items:         session.Items,
		TotalAmount:   session.Amount,
		TotalQuantity: session.TotalQuantity,
		PaymentMethod: session.PaymentMethod,
		EvidenceRef:   evidenceRef,
		HasUsername:   session.Username != "",
		CreatedAt:     m.now(),
	}
	m.ledger.Put(order)
	return order, nil
}

// Cancel discards the active session without creating a ledger entry.
// It has no effect on orders whose evidence was already submitted.
func (m *Manager) Cancel(userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[userID]; !ok {
		return fault.New(fault.CodeNoActiveSession, "no checkout in progress")
	}
	delete(m.sessions, userID)
	return nil
}

// Active returns the user's in-flight session, if any.
func (m *Manager) Active(userID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[userID]
	return session, ok
}
