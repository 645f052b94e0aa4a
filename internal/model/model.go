// Package model defines the entities shared by the catalog, cart, checkout,
// ledger, referral and persistence layers.
//
// Records are tagged structs validated at the store boundary: malformed rows
// are rejected on load instead of surfacing missing-field errors at use time.
package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products in the catalog.
// Identifiers are assigned max(existing)+1 and are never reused while live.
type Category struct {
	ID   int64  `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Product is a purchasable catalog entry.
//
// Quantity is a display-only stock hint: it is checked on cart and checkout
// operations but never decremented by a purchase. Changing that would alter
// observable capacity semantics.
type Product struct {
	ID          int64           `json:"id" yaml:"id"`
	CategoryID  int64           `json:"category_id" yaml:"category_id"`
	Name        string          `json:"name" yaml:"name"`
	Price       decimal.Decimal `json:"price" yaml:"price"`
	Description string          `json:"description" yaml:"description"`
	Quantity    int             `json:"quantity" yaml:"quantity"`
}

// CartItem is one (product, quantity) pair in a user's cart.
// A cart holds at most one item per product; re-adding increments quantity.
type CartItem struct {
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// CartLine is a priced cart entry computed against a catalog price.
// Inside a PendingOrder the price is frozen at order-creation time; inside a
// CartTotal it reflects the current catalog price.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartTotal is the priced aggregate of a cart at a point in time.
type CartTotal struct {
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalQuantity int             `json:"total_quantity"`
	Items         []CartLine      `json:"items"`
	ItemsCount    int             `json:"items_count"`
}

// OrderMode distinguishes single-item orders from whole-cart orders.
type OrderMode string

const (
	// ModeSingle is a one-product purchase started from a product page.
	ModeSingle OrderMode = "SINGLE"
	// ModeCart is a checkout of the user's whole cart.
	ModeCart OrderMode = "CART"
)

// NewOrderID builds the globally unique order identifier
// {SINGLE|CART}_{user_id}_{unix_timestamp}.
func NewOrderID(mode OrderMode, userID int64, at time.Time) string {
	return fmt.Sprintf("%s_%d_%d", mode, userID, at.Unix())
}

// MessageRef identifies an outbound transport message so it can be edited later.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

// PendingOrder is the immutable snapshot written to the ledger when payment
// evidence is submitted. Line prices are frozen at order-creation time; the
// catalog price may change afterwards without affecting the order.
type PendingOrder struct {
	OrderID       string          `json:"order_id"`
	UserID        int64           `json:"user_id"`
	Username      string          `json:"username"`
	Mode          OrderMode       `json:"mode"`
	Items         []CartLine      `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalQuantity int             `json:"total_quantity"`
	PaymentMethod string          `json:"payment_method"`
	EvidenceRef   string          `json:"evidence_ref"`
	HasUsername   bool            `json:"has_username"`
	CreatedAt     time.Time       `json:"created_at"`

	// ChannelMsg points at the admin-channel post for this order, if one was
	// delivered. Used to update the post when the order is resolved.
	ChannelMsg *MessageRef `json:"channel_msg,omitempty"`
}

// User is a storefront account plus its referral and spending state.
type User struct {
	ID               int64           `json:"id"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
	TotalOrders      int             `json:"total_orders"`
	RegistrationDate time.Time       `json:"registration_date"`
	LastActivity     time.Time       `json:"last_activity"`

	// ReferralCode is assigned at creation (8 hex chars) and never changes.
	ReferralCode string `json:"referral_code"`

	// ReferredBy is the id of the user whose code this user registered with.
	// Zero means no referrer. Once set it is immutable: first attribution wins.
	ReferredBy int64 `json:"referred_by"`

	// Referrals lists invited user ids in insertion order, without duplicates.
	Referrals []int64 `json:"referrals"`

	QualifiedReferrals int  `json:"qualified_referrals"`
	AvailableRewards   int  `json:"available_rewards"`
	UsedRewards        int  `json:"used_rewards"`
	IsSubscribed       bool `json:"is_subscribed"`
}

// Clone returns a deep copy of the user, safe to hand to callers while the
// original stays under a store lock.
func (u User) Clone() User {
	cp := u
	if u.Referrals != nil {
		cp.Referrals = make([]int64, len(u.Referrals))
		copy(cp.Referrals, u.Referrals)
	}
	return cp
}

// Transaction is one append-only log entry. Transactions are write-once:
// never updated or deleted, with 1-based monotonic ids.
type Transaction struct {
	ID     int64           `json:"id"`
	UserID int64           `json:"user_id"`
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

// TxTypePurchase is the only transaction type recorded by the core.
const TxTypePurchase = "purchase"
