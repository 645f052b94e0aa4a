// Package engine composes the storefront components into the operations the
// outer surfaces (CLI, HTTP) call.
//
// Ordering model: every state mutation completes and persists before the
// corresponding notification is enqueued. Notifications are best-effort and
// never retried, so a crash between mutation and delivery leaves the core
// consistent, at worst under-notified.
//
// Resolution races are settled by the pending-order ledger: Take removes the
// order atomically, so two admins resolving the same order concurrently see
// exactly one winner and one NOT_FOUND.
package engine

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/maksline/lavka/internal/cart"
	"github.com/maksline/lavka/internal/catalog"
	"github.com/maksline/lavka/internal/checkout"
	"github.com/maksline/lavka/internal/fault"
	"github.com/maksline/lavka/internal/ledger"
	"github.com/maksline/lavka/internal/model"
	"github.com/maksline/lavka/internal/notify"
	"github.com/maksline/lavka/internal/referral"
	"github.com/maksline/lavka/internal/render"
	"github.com/maksline/lavka/internal/users"
)

// DefaultPageSize is the number of products shown per catalog page.
const DefaultPageSize = 5

// Gate is the subscription-gate collaborator. It is a pure predicate:
// consulting it never mutates core state.
type Gate interface {
	IsSubscribed(userID int64) bool
}

// OpenGate admits everyone. Used by deployments without a membership check
// and by most tests.
type OpenGate struct{}

func (OpenGate) IsSubscribed(int64) bool { return true }

// Config carries the deployment-specific identity and payment settings.
type Config struct {
	// Admins maps administrator ids to their public handles. The handle is
	// shown on resolved channel posts.
	Admins map[int64]string

	// ChannelID is the admin chat where new orders are posted.
	ChannelID int64

	Payment        render.PaymentDetails
	SupportContact string

	// PageSize overrides DefaultPageSize when positive.
	PageSize int
}

// Deps are the composed components. All of them must be non-nil except
// Gate, which defaults to OpenGate.
type Deps struct {
	Catalog    *catalog.Store
	Carts      *cart.Manager
	Checkout   *checkout.Manager
	Orders     *ledger.Ledger
	Users      *users.Ledger
	Referrals  *referral.Engine
	Dispatcher *notify.Dispatcher
	Transport  notify.Transport
	Gate       Gate
}

// Engine is the storefront orchestrator.
type Engine struct {
	cfg        Config
	catalog    *catalog.Store
	carts      *cart.Manager
	checkout   *checkout.Manager
	orders     *ledger.Ledger
	users      *users.Ledger
	referrals  *referral.Engine
	dispatcher *notify.Dispatcher
	transport  notify.Transport
	gate       Gate
	pageSize   int
}

// New builds an Engine from its components.
func New(cfg Config, deps Deps) *Engine {
	gate := deps.Gate
	if gate == nil {
		gate = OpenGate{}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Engine{
		cfg:        cfg,
		catalog:    deps.Catalog,
		carts:      deps.Carts,
		checkout:   deps.Checkout,
		orders:     deps.Orders,
		users:      deps.Users,
		referrals:  deps.Referrals,
		dispatcher: deps.Dispatcher,
		transport:  deps.Transport,
		gate:       gate,
		pageSize:   pageSize,
	}
}

// Register ensures the user exists and, when a referral code is supplied,
// attempts first-touch attribution. Unknown, self-referencing, and repeat
// codes are ignored without error.
func (e *Engine) Register(userID int64, referralCode string) model.User {
	user := e.users.Ensure(userID)
	if referralCode != "" {
		if referrer, bound := e.referrals.Bind(userID, referralCode); bound {
			slog.Info("referral bound",
				"user_id", userID,
				"referrer_id", referrer.ID,
			)
			user, _ = e.users.Get(userID)
		}
	}
	return user
}

func (e *Engine) checkSubscribed(userID int64) error {
	if !e.gate.IsSubscribed(userID) {
		return fault.New(fault.CodeForbidden, "subscription required")
	}
	return nil
}

func (e *Engine) requireAdmin(adminID int64) (string, error) {
	handle, ok := e.cfg.Admins[adminID]
	if !ok {
		return "", fault.New(fault.CodeForbidden, "administrator access required")
	}
	return handle, nil
}

// Categories lists the catalog categories for a subscribed user.
func (e *Engine) Categories(userID int64) ([]model.Category, error) {
	if err := e.checkSubscribed(userID); err != nil {
		return nil, err
	}
	e.users.Ensure(userID)
	return e.catalog.Categories(), nil
}

// ProductPage is one page of a category listing.
type ProductPage struct {
	Items      []model.Product
	Page       int
	TotalPages int
	TotalItems int
}

// ProductsPage returns one page of a category's products. Pages are 1-based;
// out-of-range pages clamp to the nearest valid page. An empty category
// yields a single empty page.
func (e *Engine) ProductsPage(userID, categoryID int64, page int) (ProductPage, error) {
	if err := e.checkSubscribed(userID); err != nil {
		return ProductPage{}, err
	}
	e.users.Ensure(userID)

	if _, err := e.catalog.Category(categoryID); err != nil {
		return ProductPage{}, err
	}
	all := e.catalog.ProductsByCategory(categoryID)

	totalPages := (len(all) + e.pageSize - 1) / e.pageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * e.pageSize
	end := start + e.pageSize
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	return ProductPage{
		Items:      all[start:end],
		Page:       page,
		TotalPages: totalPages,
		TotalItems: len(all),
	}, nil
}

// Product returns a single product for a subscribed user.
func (e *Engine) Product(userID, productID int64) (model.Product, error) {
	if err := e.checkSubscribed(userID); err != nil {
		return model.Product{}, err
	}
	e.users.Ensure(userID)
	return e.catalog.Product(productID)
}

// AddToCart adds qty units of a product to the user's cart.
func (e *Engine) AddToCart(userID, productID int64, qty int) error {
	if err := e.checkSubscribed(userID); err != nil {
		return err
	}
	e.users.Ensure(userID)
	return e.carts.Add(userID, productID, qty)
}

// RemoveFromCart removes a product line from the user's cart.
func (e *Engine) RemoveFromCart(userID, productID int64) error {
	if err := e.checkSubscribed(userID); err != nil {
		return err
	}
	e.users.Ensure(userID)
	return e.carts.Remove(userID, productID)
}

// SetCartQuantity replaces the quantity of an existing cart line.
func (e *Engine) SetCartQuantity(userID, productID int64, qty int) error {
	if err := e.checkSubscribed(userID); err != nil {
		return err
	}
	e.users.Ensure(userID)
	return e.carts.SetQuantity(userID, productID, qty)
}

// ClearCart empties the user's cart.
func (e *Engine) ClearCart(userID int64) error {
	if err := e.checkSubscribed(userID); err != nil {
		return err
	}
	e.users.Ensure(userID)
	return e.carts.Clear(userID)
}

// CartTotal reprices the user's cart against the current catalog.
func (e *Engine) CartTotal(userID int64) (model.CartTotal, error) {
	if err := e.checkSubscribed(userID); err != nil {
		return model.CartTotal{}, err
	}
	e.users.Ensure(userID)
	return e.carts.Total(userID), nil
}

// BuySingle opens a single-item checkout session and returns the session
// plus the rendered payment instructions.
func (e *Engine) BuySingle(userID int64, handle string, productID int64) (checkout.Session, string, error) {
	if err := e.checkSubscribed(userID); err != nil {
		return checkout.Session{}, "", err
	}
	e.users.Ensure(userID)

	session, err := e.checkout.StartSingleItem(userID, handle, productID)
	if err != nil {
		return checkout.Session{}, "", err
	}
	return session, render.PaymentInstructions(session, e.cfg.Payment), nil
}

// CheckoutCart opens a whole-cart checkout session and returns the session
// plus the rendered payment instructions.
func (e *Engine) CheckoutCart(userID int64, handle string) (checkout.Session, string, error) {
	if err := e.checkSubscribed(userID); err != nil {
		return checkout.Session{}, "", err
	}
	e.users.Ensure(userID)

	session, err := e.checkout.StartCartCheckout(userID, handle)
	if err != nil {
		return checkout.Session{}, "", err
	}
	return session, render.PaymentInstructions(session, e.cfg.Payment), nil
}

// SubmitEvidence turns the user's active checkout session into a pending
// order. The order enters the ledger before any delivery is attempted; the
// channel post and buyer acknowledgement are best-effort.
func (e *Engine) SubmitEvidence(userID int64, evidenceRef string) (model.PendingOrder, error) {
	order, err := e.checkout.SubmitEvidence(userID, evidenceRef)
	if err != nil {
		return model.PendingOrder{}, err
	}

	// The channel post is delivered synchronously so its message reference
	// can be attached to the order before an admin resolves it.
	actions := []notify.Action{
		{Label: "Confirm", Callback: "confirm_" + order.OrderID},
		{Label: "Reject", Callback: "reject_" + order.OrderID},
	}
	ref, err := e.transport.NotifyWithImage(e.cfg.ChannelID, order.EvidenceRef, render.ChannelPost(order), actions)
	if err != nil {
		slog.Warn("channel post failed",
			"order_id", order.OrderID,
			"error", err,
		)
	} else {
		e.orders.AttachMessage(order.OrderID, ref)
		order.ChannelMsg = &ref
	}

	e.dispatcher.EnqueueNotify(userID, render.OrderSubmitted(order))
	return order, nil
}

// CancelCheckout discards the user's active checkout session.
func (e *Engine) CancelCheckout(userID int64) error {
	return e.checkout.Cancel(userID)
}

// PendingOrders lists unresolved orders, oldest first. Admin only.
func (e *Engine) PendingOrders(adminID int64) ([]model.PendingOrder, error) {
	if _, err := e.requireAdmin(adminID); err != nil {
		return nil, err
	}
	return e.orders.List(), nil
}

// Resolve settles a pending order as confirmed or rejected.
//
// Authorization is checked before the order is touched, so an unauthorized
// caller can never consume an order. The ledger Take is the commit point:
// after it succeeds this resolution owns the order and every follow-on
// effect applies exactly once.
func (e *Engine) Resolve(adminID int64, orderID string, outcome ledger.Outcome) error {
	adminHandle, err := e.requireAdmin(adminID)
	if err != nil {
		return err
	}
	if outcome != ledger.OutcomeConfirmed && outcome != ledger.OutcomeRejected {
		return fault.Newf(fault.CodeInvalidInput, "unknown outcome %q", outcome)
	}

	order, err := e.orders.Take(orderID)
	if err != nil {
		return err
	}

	if outcome == ledger.OutcomeConfirmed {
		e.confirm(order)
	} else {
		slog.Info("order rejected",
			"order_id", order.OrderID,
			"user_id", order.UserID,
			"admin_id", adminID,
		)
		e.dispatcher.EnqueueNotify(order.UserID, render.OrderRejected(order, e.cfg.SupportContact))
	}

	if order.ChannelMsg != nil {
		text := render.ChannelPost(order) + render.ResolvedSuffix(outcome, adminHandle)
		e.dispatcher.EnqueueUpdate(*order.ChannelMsg, text)
	}
	return nil
}

// confirm applies the confirmed-order effects in a fixed order: spend
// ledger, cart clearing, referral accounting, then notifications.
func (e *Engine) confirm(order model.PendingOrder) {
	if _, err := e.users.ApplyPurchase(order.UserID, order.TotalAmount); err != nil {
		slog.Error("apply purchase failed",
			"order_id", order.OrderID,
			"user_id", order.UserID,
			"error", err,
		)
	}

	if order.Mode == model.ModeCart {
		// The cart may already be empty if the user cleared it while the
		// order was pending.
		if err := e.carts.Clear(order.UserID); err != nil && !fault.IsNotFound(err) {
			slog.Warn("cart clear failed",
				"order_id", order.OrderID,
				"user_id", order.UserID,
				"error", err,
			)
		}
	}

	// Referrer qualification is checked before the buyer's own reward is
	// redeemed, so a purchase can both qualify its referrer and spend one of
	// the buyer's previously earned rewards.
	if referrerID := e.referrals.ReferrerOf(order.UserID); referrerID != 0 {
		if e.referrals.CheckQualification(referrerID, order.TotalAmount) {
			if referrer, err := e.users.Get(referrerID); err == nil {
				e.dispatcher.EnqueueNotify(referrerID, render.ReferralReward(referrer.AvailableRewards))
			}
		}
	}
	app := e.referrals.ApplyReward(order.UserID, order.TotalAmount)

	slog.Info("order confirmed",
		"order_id", order.OrderID,
		"user_id", order.UserID,
		"amount", order.TotalAmount.StringFixed(2),
		"reward_applied", app.Applied,
	)
	e.dispatcher.EnqueueNotify(order.UserID, render.OrderConfirmed(order, app.Applied, app.Remaining))
}

// UserStats returns the user's own account view.
func (e *Engine) UserStats(userID int64) (model.User, error) {
	return e.users.Get(userID)
}

// ReferralSettings returns the current referral program settings. Admin only.
func (e *Engine) ReferralSettings(adminID int64) (referral.Settings, error) {
	if _, err := e.requireAdmin(adminID); err != nil {
		return referral.Settings{}, err
	}
	return e.referrals.Settings(), nil
}

// SetReferralEnabled toggles referral qualification. Admin only.
func (e *Engine) SetReferralEnabled(adminID int64, enabled bool) error {
	if _, err := e.requireAdmin(adminID); err != nil {
		return err
	}
	e.referrals.SetEnabled(enabled)
	return nil
}

// SetReferralMinPurchase sets the qualification threshold. Admin only.
func (e *Engine) SetReferralMinPurchase(adminID int64, amount decimal.Decimal) error {
	if _, err := e.requireAdmin(adminID); err != nil {
		return err
	}
	return e.referrals.SetMinPurchase(amount)
}
