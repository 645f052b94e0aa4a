// Package users implements the user ledger: aggregate spend, order counts,
// the append-only transaction log, and the referral-code index.
package users

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maksline/lavka/internal/fault"
	"github.com/maksline/lavka/internal/model"
)

// Saver persists the full user table and transaction log together.
// Each save is a whole-table overwrite.
type Saver interface {
	SaveUsers(users map[int64]model.User, transactions []model.Transaction) error
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithNow overrides the time source.
func WithNow(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithCodeGen overrides referral code generation. Tests use fixed codes.
func WithCodeGen(gen func() string) Option {
	return func(l *Ledger) { l.codeGen = gen }
}

// Ledger holds all users and the transaction log behind a single lock.
//
// The referral-code index is a secondary map maintained transactionally with
// user creation, so code lookup never scans the user table.
type Ledger struct {
	mu           sync.Mutex
	users        map[int64]model.User
	transactions []model.Transaction
	byCode       map[string]int64
	nextTxID     int64
	saver        Saver
	now          func() time.Time
	codeGen      func() string
}

// New creates an empty user ledger.
func New(saver Saver, opts ...Option) *Ledger {
	l := &Ledger{
		users:   make(map[int64]model.User),
		byCode:  make(map[string]int64),
		saver:   saver,
		now:     time.Now,
		codeGen: newReferralCode,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Init replaces in-memory state with loaded tables and rebuilds the code
// index. The transaction sequence resumes after the highest loaded id.
func (l *Ledger) Init(users map[int64]model.User, transactions []model.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.users = make(map[int64]model.User, len(users))
	l.byCode = make(map[string]int64, len(users))
	for id, u := range users {
		l.users[id] = u.Clone()
		l.byCode[u.ReferralCode] = id
	}
	l.transactions = append([]model.Transaction(nil), transactions...)
	l.nextTxID = 0
	for _, tx := range transactions {
		if tx.ID > l.nextTxID {
			l.nextTxID = tx.ID
		}
	}
}

// Ensure returns the user, creating the account on first interaction.
// A new user gets a unique referral code and zeroed stats; every call bumps
// last activity.
func (l *Ledger) Ensure(userID int64) model.User {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	u, ok := l.users[userID]
	if !ok {
		u = model.User{
			ID:               userID,
			TotalSpent:       decimal.Zero,
			RegistrationDate: now,
			ReferralCode:     l.uniqueCodeLocked(),
		}
	}
	u.LastActivity = now
	l.users[userID] = u
	if !ok {
		l.byCode[u.ReferralCode] = userID
	}
	l.persistLocked()
	return u.Clone()
}

// Get returns the user with the given id.
func (l *Ledger) Get(userID int64) (model.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[userID]
	if !ok {
		return model.User{}, fault.NotFound("user", strconv.FormatInt(userID, 10))
	}
	return u.Clone(), nil
}

// ByReferralCode resolves a referral code through the secondary index.
func (l *Ledger) ByReferralCode(code string) (model.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.byCode[code]
	if !ok {
		return model.User{}, fault.NotFound("referral code", code)
	}
	return l.users[id].Clone(), nil
}

// Update applies fn to the user's record under the ledger lock and persists
// the result. Referral mutations go through here so that reward accounting
// is race-free against concurrent confirmations.
func (l *Ledger) Update(userID int64, fn func(*model.User)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		return fault.NotFound("user", strconv.FormatInt(userID, 10))
	}
	fn(&u)
	l.users[userID] = u
	l.persistLocked()
	return nil
}

// ApplyPurchase accepts a confirmed order's amount into the user's financial
// statistics and appends a write-once transaction with the next monotonic id.
func (l *Ledger) ApplyPurchase(userID int64, amount decimal.Decimal) (model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		return model.Transaction{}, fault.NotFound("user", strconv.FormatInt(userID, 10))
	}

	now := l.now()
	u.TotalSpent = u.TotalSpent.Add(amount)
	u.TotalOrders++
	u.LastActivity = now
	l.users[userID] = u

	l.nextTxID++
	tx := model.Transaction{
		ID:     l.nextTxID,
		UserID: userID,
		Type:   model.TxTypePurchase,
		Amount: amount,
		Date:   now,
	}
	l.transactions = append(l.transactions, tx)
	l.persistLocked()
	return tx, nil
}

// All returns a copy of every user record.
func (l *Ledger) All() []model.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.User, 0, len(l.users))
	for _, u := range l.users {
		out = append(out, u.Clone())
	}
	return out
}

// Count returns the number of registered users.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

// Transactions returns a copy of the full transaction log, oldest first.
func (l *Ledger) Transactions() []model.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Transaction(nil), l.transactions...)
}

// RecentTransactions returns up to n most recent transactions, newest first.
func (l *Ledger) RecentTransactions(n int) []model.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > len(l.transactions) {
		n = len(l.transactions)
	}
	out := make([]model.Transaction, 0, n)
	for i := len(l.transactions) - 1; i >= len(l.transactions)-n; i-- {
		out = append(out, l.transactions[i])
	}
	return out
}

// SetSubscribed records the subscription-gate verdict on the user record.
func (l *Ledger) SetSubscribed(userID int64, subscribed bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u, ok := l.users[userID]
	if !ok {
		return
	}
	u.IsSubscribed = subscribed
	l.users[userID] = u
	l.persistLocked()
}

func (l *Ledger) uniqueCodeLocked() string {
	for {
		code := l.codeGen()
		if _, taken := l.byCode[code]; !taken {
			return code
		}
	}
}

func (l *Ledger) persistLocked() {
	if l.saver == nil {
		return
	}
	users := make(map[int64]model.User, len(l.users))
	for id, u := range l.users {
		users[id] = u.Clone()
	}
	txs := append([]model.Transaction(nil), l.transactions...)
	if err := l.saver.SaveUsers(users, txs); err != nil {
		slog.Error("user persist failed, continuing with in-memory state", "error", err)
	}
}

// newReferralCode returns 8 hex chars from a CSPRNG.
func newReferralCode() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		// rand.Read does not fail on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(b[:])
}
