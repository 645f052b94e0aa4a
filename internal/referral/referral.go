// Package referral implements the invitation graph, qualification thresholds
// and reward balances.
//
// All balance mutations run inside the user ledger's lock, so a user earning
// a reward as referrer and redeeming one as buyer on the same purchase event
// never race each other.
package referral

import (
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/maksline/lavka/internal/fault"
	"github.com/maksline/lavka/internal/model"
)

// Users is the slice of the user ledger the engine needs.
type Users interface {
	Get(userID int64) (model.User, error)
	ByReferralCode(code string) (model.User, error)
	Update(userID int64, fn func(*model.User)) error
}

// SettingsSaver persists the program settings.
type SettingsSaver interface {
	SaveReferralSettings(s Settings) error
}

// Settings tunes the referral program at runtime.
type Settings struct {
	// Enabled gates qualification. Reward redemption stays available even
	// when new qualifications are disabled.
	Enabled bool `json:"enabled"`

	// MinPurchaseAmount is the threshold a confirmed order must meet both to
	// qualify a referral and to redeem a reward.
	MinPurchaseAmount decimal.Decimal `json:"min_purchase_amount"`
}

// Application is the outcome of a reward redemption attempt.
type Application struct {
	Applied   bool
	Remaining int
}

// Engine tracks referral attribution and reward accounting.
type Engine struct {
	mu       sync.Mutex
	settings Settings
	users    Users
	saver    SettingsSaver
}

// New creates a referral engine with the given initial settings.
func New(users Users, settings Settings, saver SettingsSaver) *Engine {
	return &Engine{settings: settings, users: users, saver: saver}
}

// Bind attributes a new user to the owner of the given referral code and
// appends the new user to the referrer's invitation list.
//
// First attribution wins and is permanent: a user with a referrer already
// set is left untouched. Self-referral and unknown codes are no-ops.
// Returns the referrer and true when a binding was made.
func (e *Engine) Bind(newUserID int64, code string) (model.User, bool) {
	if code == "" {
		return model.User{}, false
	}
	referrer, err := e.users.ByReferralCode(code)
	if err != nil {
		return model.User{}, false
	}
	if referrer.ID == newUserID {
		return model.User{}, false
	}

	bound := false
	if err := e.users.Update(newUserID, func(u *model.User) {
		if u.ReferredBy != 0 {
			return
		}
		u.ReferredBy = referrer.ID
		bound = true
	}); err != nil {
		return model.User{}, false
	}
	if !bound {
		return model.User{}, false
	}

	// Idempotent append: skip if the id is already listed.
	if err := e.users.Update(referrer.ID, func(u *model.User) {
		for _, id := range u.Referrals {
			if id == newUserID {
				return
			}
		}
		u.Referrals = append(u.Referrals, newUserID)
	}); err != nil {
		slog.Error("referral list update failed", "referrer", referrer.ID, "error", err)
	}
	return referrer, true
}

// CheckQualification is invoked once per confirmed order placed by a referred
// user. When the program is enabled and the amount meets the threshold, the
// referrer's qualified count and reward balance each grow by one.
//
// Not idempotent across repeated calls for the same order: callers invoke it
// exactly once per confirmation.
func (e *Engine) CheckQualification(referrerID int64, purchaseAmount decimal.Decimal) bool {
	e.mu.Lock()
	enabled := e.settings.Enabled
	min := e.settings.MinPurchaseAmount
	e.mu.Unlock()

	if !enabled || purchaseAmount.LessThan(min) {
		return false
	}

	err := e.users.Update(referrerID, func(u *model.User) {
		u.QualifiedReferrals++
		u.AvailableRewards++
	})
	if err != nil {
		slog.Error("referral qualification update failed", "referrer", referrerID, "error", err)
		return false
	}
	return true
}

// ApplyReward redeems one of the purchasing user's rewards against a
// qualifying purchase. The balance never goes negative: with no rewards
// available, or an amount below the threshold, nothing is applied.
func (e *Engine) ApplyReward(userID int64, purchaseAmount decimal.Decimal) Application {
	e.mu.Lock()
	min := e.settings.MinPurchaseAmount
	e.mu.Unlock()

	if purchaseAmount.LessThan(min) {
		return Application{}
	}

	app := Application{}
	err := e.users.Update(userID, func(u *model.User) {
		if u.AvailableRewards <= 0 {
			app.Remaining = u.AvailableRewards
			return
		}
		u.AvailableRewards--
		u.UsedRewards++
		app.Applied = true
		app.Remaining = u.AvailableRewards
	})
	if err != nil {
		return Application{}
	}
	return app
}

// ReferrerOf returns the id of the buyer's referrer, or 0.
func (e *Engine) ReferrerOf(userID int64) int64 {
	u, err := e.users.Get(userID)
	if err != nil {
		return 0
	}
	return u.ReferredBy
}

// Settings returns a copy of the current program settings.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// SetEnabled toggles qualification and persists the settings.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.Enabled = enabled
	e.persistLocked()
}

// SetMinPurchase replaces the qualification threshold and persists the settings.
func (e *Engine) SetMinPurchase(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fault.New(fault.CodeInvalidInput, "minimum purchase amount must not be negative")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings.MinPurchaseAmount = amount
	e.persistLocked()
	return nil
}

func (e *Engine) persistLocked() {
	if e.saver == nil {
		return
	}
	if err := e.saver.SaveReferralSettings(e.settings); err != nil {
		slog.Error("referral settings persist failed, continuing with in-memory state", "error", err)
	}
}
