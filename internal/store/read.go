package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maksline/lavka/internal/model"
	"github.com/maksline/lavka/internal/referral"
)

// LoadCatalog reads the categories and products tables.
// Malformed rows are rejected: the whole load fails rather than propagating a
// half-parsed record into the running system.
func (s *Store) LoadCatalog() ([]model.Category, []model.Product, error) {
	rows, err := s.db.Query("SELECT id, name FROM categories ORDER BY id")
	if err != nil {
		return nil, nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, nil, fmt.Errorf("scan category: %w", err)
		}
		if err := model.ValidateCategory(c); err != nil {
			return nil, nil, fmt.Errorf("load categories: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load categories: %w", err)
	}

	prodRows, err := s.db.Query("SELECT id, category_id, name, price, description, quantity FROM products ORDER BY id")
	if err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}
	defer prodRows.Close()

	var products []model.Product
	for prodRows.Next() {
		var p model.Product
		var price string
		if err := prodRows.Scan(&p.ID, &p.CategoryID, &p.Name, &price, &p.Description, &p.Quantity); err != nil {
			return nil, nil, fmt.Errorf("scan product: %w", err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, nil, fmt.Errorf("product %d price %q: %w", p.ID, price, err)
		}
		if err := model.ValidateProduct(p); err != nil {
			return nil, nil, fmt.Errorf("load products: %w", err)
		}
		products = append(products, p)
	}
	if err := prodRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}
	return categories, products, nil
}

// LoadUsers reads the users and transactions tables.
func (s *Store) LoadUsers() (map[int64]model.User, []model.Transaction, error) {
	rows, err := s.db.Query(`
		SELECT id, total_spent, total_orders, registration_date, last_activity,
		       referral_code, referred_by, referrals, qualified_referrals,
		       available_rewards, used_rewards, is_subscribed
		FROM users`)
	if err != nil {
		return nil, nil, fmt.Errorf("load users: %w", err)
	}
	defer rows.Close()

	users := make(map[int64]model.User)
	for rows.Next() {
		var u model.User
		var spent, registered, active, referrals string
		var subscribed int
		if err := rows.Scan(
			&u.ID, &spent, &u.TotalOrders, &registered, &active,
			&u.ReferralCode, &u.ReferredBy, &referrals, &u.QualifiedReferrals,
			&u.AvailableRewards, &u.UsedRewards, &subscribed,
		); err != nil {
			return nil, nil, fmt.Errorf("scan user: %w", err)
		}
		if u.TotalSpent, err = decimal.NewFromString(spent); err != nil {
			return nil, nil, fmt.Errorf("user %d total_spent %q: %w", u.ID, spent, err)
		}
		if u.RegistrationDate, err = parseTime(registered); err != nil {
			return nil, nil, fmt.Errorf("user %d registration_date: %w", u.ID, err)
		}
		if u.LastActivity, err = parseTime(active); err != nil {
			return nil, nil, fmt.Errorf("user %d last_activity: %w", u.ID, err)
		}
		if err := json.Unmarshal([]byte(referrals), &u.Referrals); err != nil {
			return nil, nil, fmt.Errorf("user %d referrals: %w", u.ID, err)
		}
		u.IsSubscribed = subscribed != 0
		if err := model.ValidateUser(u); err != nil {
			return nil, nil, fmt.Errorf("load users: %w", err)
		}
		users[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load users: %w", err)
	}

	txRows, err := s.db.Query("SELECT id, user_id, type, amount, date FROM transactions ORDER BY id")
	if err != nil {
		return nil, nil, fmt.Errorf("load transactions: %w", err)
	}
	defer txRows.Close()

	var transactions []model.Transaction
	for txRows.Next() {
		var t model.Transaction
		var amount, date string
		if err := txRows.Scan(&t.ID, &t.UserID, &t.Type, &amount, &date); err != nil {
			return nil, nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, nil, fmt.Errorf("transaction %d amount %q: %w", t.ID, amount, err)
		}
		if t.Date, err = parseTime(date); err != nil {
			return nil, nil, fmt.Errorf("transaction %d date: %w", t.ID, err)
		}
		transactions = append(transactions, t)
	}
	if err := txRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("load transactions: %w", err)
	}
	return users, transactions, nil
}

// LoadCarts reads the cart_items table into the per-user cart map.
func (s *Store) LoadCarts() (map[int64][]model.CartItem, error) {
	rows, err := s.db.Query("SELECT user_id, product_id, quantity, added_at FROM cart_items ORDER BY user_id, added_at")
	if err != nil {
		return nil, fmt.Errorf("load carts: %w", err)
	}
	defer rows.Close()

	carts := make(map[int64][]model.CartItem)
	for rows.Next() {
		var userID int64
		var item model.CartItem
		var added string
		if err := rows.Scan(&userID, &item.ProductID, &item.Quantity, &added); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		if item.AddedAt, err = parseTime(added); err != nil {
			return nil, fmt.Errorf("cart item for user %d: %w", userID, err)
		}
		carts[userID] = append(carts[userID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load carts: %w", err)
	}
	return carts, nil
}

// LoadPendingOrders reads the pending_orders table.
func (s *Store) LoadPendingOrders() (map[string]model.PendingOrder, error) {
	rows, err := s.db.Query("SELECT order_id, payload FROM pending_orders")
	if err != nil {
		return nil, fmt.Errorf("load pending orders: %w", err)
	}
	defer rows.Close()

	orders := make(map[string]model.PendingOrder)
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan pending order: %w", err)
		}
		var order model.PendingOrder
		if err := json.Unmarshal([]byte(payload), &order); err != nil {
			return nil, fmt.Errorf("pending order %s payload: %w", id, err)
		}
		if err := model.ValidatePendingOrder(order); err != nil {
			return nil, fmt.Errorf("load pending orders: %w", err)
		}
		orders[id] = order
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load pending orders: %w", err)
	}
	return orders, nil
}

// LoadReferralSettings reads the referral settings row. When no row exists
// yet, ok is false and the caller falls back to configured defaults.
func (s *Store) LoadReferralSettings() (referral.Settings, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", settingsKeyReferral).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return referral.Settings{}, false, nil
	}
	if err != nil {
		return referral.Settings{}, false, fmt.Errorf("load referral settings: %w", err)
	}
	var settings referral.Settings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		return referral.Settings{}, false, fmt.Errorf("referral settings payload: %w", err)
	}
	return settings, true, nil
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
