package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/maksline/lavka/internal/model"
	"github.com/maksline/lavka/internal/referral"
)

const settingsKeyReferral = "referral"

// SaveCatalog overwrites the categories and products tables in one transaction.
func (s *Store) SaveCatalog(categories []model.Category, products []model.Product) error {
	return s.overwrite(func(tx *sql.Tx) error {
		for _, c := range categories {
			if _, err := tx.Exec(
				"INSERT INTO categories (id, name) VALUES (?, ?)",
				c.ID, c.Name,
			); err != nil {
				return err
			}
		}
		for _, p := range products {
			if _, err := tx.Exec(
				"INSERT INTO products (id, category_id, name, price, description, quantity) VALUES (?, ?, ?, ?, ?, ?)",
				p.ID, p.CategoryID, p.Name, p.Price.String(), p.Description, p.Quantity,
			); err != nil {
				return err
			}
		}
		return nil
	}, "categories", "products")
}

// SaveUsers overwrites the users and transactions tables in one transaction.
func (s *Store) SaveUsers(users map[int64]model.User, transactions []model.Transaction) error {
	return s.overwrite(func(tx *sql.Tx) error {
		for _, u := range users {
			referrals, err := json.Marshal(u.Referrals)
			if err != nil {
				return err
			}
			if u.Referrals == nil {
				referrals = []byte("[]")
			}
			if _, err := tx.Exec(`
				INSERT INTO users
				(id, total_spent, total_orders, registration_date, last_activity,
				 referral_code, referred_by, referrals, qualified_referrals,
				 available_rewards, used_rewards, is_subscribed)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				u.ID,
				u.TotalSpent.String(),
				u.TotalOrders,
				u.RegistrationDate.UTC().Format(time.RFC3339Nano),
				u.LastActivity.UTC().Format(time.RFC3339Nano),
				u.ReferralCode,
				u.ReferredBy,
				string(referrals),
				u.QualifiedReferrals,
				u.AvailableRewards,
				u.UsedRewards,
				boolToInt(u.IsSubscribed),
			); err != nil {
				return err
			}
		}
		for _, t := range transactions {
			if _, err := tx.Exec(
				"INSERT INTO transactions (id, user_id, type, amount, date) VALUES (?, ?, ?, ?, ?)",
				t.ID, t.UserID, t.Type, t.Amount.String(), t.Date.UTC().Format(time.RFC3339Nano),
			); err != nil {
				return err
			}
		}
		return nil
	}, "users", "transactions")
}

// SaveCarts overwrites the cart_items table.
func (s *Store) SaveCarts(carts map[int64][]model.CartItem) error {
	return s.overwrite(func(tx *sql.Tx) error {
		for userID, items := range carts {
			for _, item := range items {
				if _, err := tx.Exec(
					"INSERT INTO cart_items (user_id, product_id, quantity, added_at) VALUES (?, ?, ?, ?)",
					userID, item.ProductID, item.Quantity, item.AddedAt.UTC().Format(time.RFC3339Nano),
				); err != nil {
					return err
				}
			}
		}
		return nil
	}, "cart_items")
}

// SavePendingOrders overwrites the pending_orders table. Each order is stored
// as a single JSON payload; the snapshot is immutable so there is nothing to
// query inside it.
func (s *Store) SavePendingOrders(orders map[string]model.PendingOrder) error {
	return s.overwrite(func(tx *sql.Tx) error {
		for id, order := range orders {
			payload, err := json.Marshal(order)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(
				"INSERT INTO pending_orders (order_id, payload) VALUES (?, ?)",
				id, string(payload),
			); err != nil {
				return err
			}
		}
		return nil
	}, "pending_orders")
}

// SaveReferralSettings upserts the referral program settings row.
func (s *Store) SaveReferralSettings(settings referral.Settings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		settingsKeyReferral, string(payload),
	)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
