package users

import (
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maksline/lavka/internal/fault"
	"github.com/maksline/lavka/internal/model"
)

func fixedNow() time.Time { return time.Unix(1700000000, 0).UTC() }

func TestLedger_Ensure_CreatesOnFirstInteraction(t *testing.T) {
	l := New(nil, WithNow(fixedNow))

	u := l.Ensure(42)

	assert.Equal(t, int64(42), u.ID)
	assert.Equal(t, fixedNow(), u.RegistrationDate)
	assert.Equal(t, fixedNow(), u.LastActivity)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}$`), u.ReferralCode)
	assert.True(t, u.TotalSpent.IsZero())
	assert.Equal(t, 1, l.Count())
}

func TestLedger_Ensure_CodeIsStable(t *testing.T) {
	l := New(nil, WithNow(fixedNow))

	first := l.Ensure(42)
	second := l.Ensure(42)

	assert.Equal(t, first.ReferralCode, second.ReferralCode)
	assert.Equal(t, 1, l.Count())
}

func TestLedger_Ensure_RetriesOnCodeCollision(t *testing.T) {
	codes := []string{"aaaaaaaa", "aaaaaaaa", "bbbbbbbb"}
	i := 0
	l := New(nil, WithNow(fixedNow), WithCodeGen(func() string {
		c := codes[i]
		i++
		return c
	}))

	u1 := l.Ensure(1)
	u2 := l.Ensure(2)

	assert.Equal(t, "aaaaaaaa", u1.ReferralCode)
	assert.Equal(t, "bbbbbbbb", u2.ReferralCode)
}

func TestLedger_ByReferralCode(t *testing.T) {
	l := New(nil, WithNow(fixedNow))
	u := l.Ensure(42)

	got, err := l.ByReferralCode(u.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)

	_, err = l.ByReferralCode("ffffffff")
	assert.True(t, fault.IsNotFound(err))
}

func TestLedger_ApplyPurchase(t *testing.T) {
	l := New(nil, WithNow(fixedNow))
	l.Ensure(42)

	tx, err := l.ApplyPurchase(42, decimal.NewFromInt(150))
	require.NoError(t, err)

	assert.Equal(t, int64(1), tx.ID)
	assert.Equal(t, model.TxTypePurchase, tx.Type)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(150)))

	u, err := l.Get(42)
	require.NoError(t, err)
	assert.True(t, u.TotalSpent.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, 1, u.TotalOrders)
}

func TestLedger_ApplyPurchase_UnknownUser(t *testing.T) {
	l := New(nil, WithNow(fixedNow))

	_, err := l.ApplyPurchase(42, decimal.NewFromInt(10))
	assert.True(t, fault.IsNotFound(err))
}

// Confirming purchases concurrently never loses an update: the final total
// equals the sum regardless of resolution order.
func TestLedger_ApplyPurchase_Commutative(t *testing.T) {
	l := New(nil, WithNow(fixedNow))
	l.Ensure(42)

	amounts := []int64{100, 250, 75, 10}
	var wg sync.WaitGroup
	for _, a := range amounts {
		wg.Add(1)
		go func(amount int64) {
			defer wg.Done()
			_, err := l.ApplyPurchase(42, decimal.NewFromInt(amount))
			assert.NoError(t, err)
		}(a)
	}
	wg.Wait()

	u, err := l.Get(42)
	require.NoError(t, err)
	assert.True(t, u.TotalSpent.Equal(decimal.NewFromInt(435)), "got %s", u.TotalSpent)
	assert.Equal(t, 4, u.TotalOrders)
	assert.Len(t, l.Transactions(), 4)
}

func TestLedger_TransactionIDsAreMonotonic(t *testing.T) {
	l := New(nil, WithNow(fixedNow))
	l.Ensure(42)

	for i := 0; i < 5; i++ {
		_, err := l.ApplyPurchase(42, decimal.NewFromInt(1))
		require.NoError(t, err)
	}

	txs := l.Transactions()
	for i, tx := range txs {
		assert.Equal(t, int64(i+1), tx.ID)
	}
}

func TestLedger_Init_ResumesTransactionSequence(t *testing.T) {
	l := New(nil, WithNow(fixedNow))
	l.Init(
		map[int64]model.User{
			42: {ID: 42, ReferralCode: "a1b2c3d4", TotalSpent: decimal.NewFromInt(100), TotalOrders: 1},
		},
		[]model.Transaction{
			{ID: 7, UserID: 42, Type: model.TxTypePurchase, Amount: decimal.NewFromInt(100), Date: fixedNow()},
		},
	)

	tx, err := l.ApplyPurchase(42, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.Equal(t, int64(8), tx.ID)

	// The index is rebuilt from loaded state.
	u, err := l.ByReferralCode("a1b2c3d4")
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.ID)
}

func TestLedger_Update(t *testing.T) {
	l := New(nil, WithNow(fixedNow))
	l.Ensure(42)

	err := l.Update(42, func(u *model.User) {
		u.AvailableRewards = 3
	})
	require.NoError(t, err)

	u, _ := l.Get(42)
	assert.Equal(t, 3, u.AvailableRewards)

	err = l.Update(99, func(u *model.User) {})
	assert.True(t, fault.IsNotFound(err))
}

func TestLedger_RecentTransactions(t *testing.T) {
	l := New(nil, WithNow(fixedNow))
	l.Ensure(1)
	for i := 1; i <= 3; i++ {
		_, err := l.ApplyPurchase(1, decimal.NewFromInt(int64(i)))
		require.NoError(t, err)
	}

	recent := l.RecentTransactions(2)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(3), recent[0].ID)
	assert.Equal(t, int64(2), recent[1].ID)

	all := l.RecentTransactions(10)
	assert.Len(t, all, 3)
}

func TestLedger_ConcurrentEnsure(t *testing.T) {
	l := New(nil, WithNow(fixedNow))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.Ensure(int64(n%4 + 1))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, l.Count())
	// Codes stay unique across all users.
	seen := map[string]bool{}
	for _, u := range l.All() {
		require.False(t, seen[u.ReferralCode], fmt.Sprintf("duplicate code %s", u.ReferralCode))
		seen[u.ReferralCode] = true
	}
}
