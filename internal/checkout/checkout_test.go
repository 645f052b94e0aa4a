package checkout

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maksline/lavka/internal/cart"
	"github.com/maksline/lavka/internal/catalog"
	"github.com/maksline/lavka/internal/fault"
	"github.com/maksline/lavka/internal/model"
)

type recordingLedger struct {
	orders []model.PendingOrder
}

func (l *recordingLedger) Put(order model.PendingOrder) {
	l.orders = append(l.orders, order)
}

type fixture struct {
	catalog *catalog.Store
	carts   *cart.Manager
	ledger  *recordingLedger
	mgr     *Manager
}

func fixedNow() time.Time { return time.Unix(1000, 0).UTC() }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat := catalog.New(nil)
	cat.Init(
		[]model.Category{{ID: 1, Name: "Digital services"}},
		[]model.Product{
			{ID: 1, CategoryID: 1, Name: "Logo draft", Price: decimal.NewFromInt(500), Quantity: 3},
			{ID: 2, CategoryID: 1, Name: "Sold out", Price: decimal.NewFromInt(100), Quantity: 0},
		},
	)
	carts := cart.New(cat, nil, cart.WithNow(fixedNow))
	ledger := &recordingLedger{}
	mgr := New(cat, carts, ledger, "Ozon Bank (SBP/Card)", WithNow(fixedNow))
	return &fixture{catalog: cat, carts: carts, ledger: ledger, mgr: mgr}
}

func TestStartSingleItem(t *testing.T) {
	f := newFixture(t)

	session, err := f.mgr.StartSingleItem(42, "buyer", 1)
	require.NoError(t, err)

	assert.Equal(t, "SINGLE_42_1000", session.OrderID)
	assert.Equal(t, model.ModeSingle, session.Mode)
	assert.True(t, session.Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, "Ozon Bank (SBP/Card)", session.PaymentMethod)
	require.Len(t, session.Items, 1)
	assert.Equal(t, "Logo draft", session.Items[0].Name)

	_, active := f.mgr.Active(42)
	assert.True(t, active)
}

func TestStartSingleItem_OutOfStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.StartSingleItem(42, "buyer", 2)
	assert.True(t, fault.Is(err, fault.CodeStockExceeded))

	// No session is created when the precondition fails.
	_, active := f.mgr.Active(42)
	assert.False(t, active)
}

func TestStartSingleItem_MissingIdentity(t *testing.T) {
	f := newFixture(t)

	for _, handle := range []string{"", "   ", " "} {
		_, err := f.mgr.StartSingleItem(42, handle, 1)
		assert.True(t, fault.Is(err, fault.CodeMissingIdentity), "handle %q", handle)
	}
}

func TestStartSingleItem_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.StartSingleItem(42, "buyer", 99)
	assert.True(t, fault.IsNotFound(err))
}

func TestStartCartCheckout(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.carts.Add(42, 1, 2))

	session, err := f.mgr.StartCartCheckout(42, "buyer")
	require.NoError(t, err)

	assert.Equal(t, "CART_42_1000", session.OrderID)
	assert.Equal(t, model.ModeCart, session.Mode)
	assert.True(t, session.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 2, session.TotalQuantity)
}

func TestStartCartCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.StartCartCheckout(42, "buyer")
	assert.True(t, fault.Is(err, fault.CodeInvalidInput))
}

func TestStartCheckout_LastWriteWins(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.carts.Add(42, 1, 1))

	first, err := f.mgr.StartSingleItem(42, "buyer", 1)
	require.NoError(t, err)
	second, err := f.mgr.StartCartCheckout(42, "buyer")
	require.NoError(t, err)

	active, ok := f.mgr.Active(42)
	require.True(t, ok)
	assert.Equal(t, second.OrderID, active.OrderID)
	assert.NotEqual(t, first.OrderID, active.OrderID)
}

func TestSubmitEvidence(t *testing.T) {
	f := newFixture(t)
	session, err := f.mgr.StartSingleItem(42, "buyer", 1)
	require.NoError(t, err)

	order, err := f.mgr.SubmitEvidence(42, "photo-abc")
	require.NoError(t, err)

	assert.Equal(t, session.OrderID, order.OrderID)
	assert.Equal(t, "photo-abc", order.EvidenceRef)
	assert.True(t, order.HasUsername)
	require.Len(t, f.ledger.orders, 1)
	assert.Equal(t, order.OrderID, f.ledger.orders[0].OrderID)

	// Session is back to idle.
	_, active := f.mgr.Active(42)
	assert.False(t, active)
}

func TestSubmitEvidence_SnapshotSurvivesRepricing(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.StartSingleItem(42, "buyer", 1)
	require.NoError(t, err)

	// Reprice after the session snapshot was taken.
	f.catalog.Init(
		[]model.Category{{ID: 1, Name: "Digital services"}},
		[]model.Product{{ID: 1, CategoryID: 1, Name: "Logo draft", Price: decimal.NewFromInt(999), Quantity: 3}},
	)

	order, err := f.mgr.SubmitEvidence(42, "photo-abc")
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(500)),
		"order must freeze the price at order-creation time")
}

func TestSubmitEvidence_NoActiveSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.mgr.SubmitEvidence(42, "photo-abc")
	assert.True(t, fault.Is(err, fault.CodeNoActiveSession))
	assert.Empty(t, f.ledger.orders)
}

func TestSubmitEvidence_DoesNotClearCart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.carts.Add(42, 1, 1))
	_, err := f.mgr.StartCartCheckout(42, "buyer")
	require.NoError(t, err)

	_, err = f.mgr.SubmitEvidence(42, "photo-abc")
	require.NoError(t, err)

	// Cart clearing happens only on confirmed payment.
	assert.Equal(t, 1, f.carts.Count(42))
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	_, err := f.mgr.StartSingleItem(42, "buyer", 1)
	require.NoError(t, err)

	require.NoError(t, f.mgr.Cancel(42))
	assert.Empty(t, f.ledger.orders)

	err = f.mgr.Cancel(42)
	assert.True(t, fault.Is(err, fault.CodeNoActiveSession))
}

func TestNormalizeHandle(t *testing.T) {
	// Combining sequence folds to the precomposed form.
	assert.Equal(t, "héllo", NormalizeHandle("héllo"))
	assert.Equal(t, "buyer", NormalizeHandle("  buyer "))
	assert.Equal(t, "", NormalizeHandle("   "))
}
