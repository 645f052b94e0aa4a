package render

import (
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/maksline/lavka/internal/checkout"
	"github.com/maksline/lavka/internal/ledger"
	"github.com/maksline/lavka/internal/model"
)

func fixtureOrder() model.PendingOrder {
	return model.PendingOrder{
		OrderID:  "CART_42_1700000000",
		UserID:   42,
		Username: "buyer",
		Mode:     model.ModeCart,
		Items: []model.CartLine{
			{ProductID: 1, Name: "Logo draft", Quantity: 2, UnitPrice: decimal.NewFromInt(500), LineTotal: decimal.NewFromInt(1000)},
			{ProductID: 3, Name: "Sticker pack", Quantity: 1, UnitPrice: decimal.NewFromFloat(149.5), LineTotal: decimal.NewFromFloat(149.5)},
		},
		TotalAmount:   decimal.NewFromFloat(1149.5),
		TotalQuantity: 3,
		PaymentMethod: "Ozon Bank (SBP/Card)",
		HasUsername:   true,
		CreatedAt:     time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC),
	}
}

func fixturePayment() PaymentDetails {
	return PaymentDetails{
		Name:        "Ozon Bank (SBP/Card)",
		CardNumber:  "2200 2488 7412 7581",
		PhoneNumber: "+79225739192",
		Owner:       "Ivan G.",
	}
}

func TestPaymentInstructionsGolden(t *testing.T) {
	order := fixtureOrder()
	session := checkout.Session{
		UserID:        order.UserID,
		Username:      order.Username,
		Mode:          order.Mode,
		OrderID:       order.OrderID,
		PaymentMethod: order.PaymentMethod,
		Amount:        order.TotalAmount,
		Items:         order.Items,
		TotalQuantity: order.TotalQuantity,
		CreatedAt:     order.CreatedAt,
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "payment_instructions", []byte(PaymentInstructions(session, fixturePayment())))
}

func TestChannelPostGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "channel_post", []byte(ChannelPost(fixtureOrder())))
}

func TestChannelPostDeterministic(t *testing.T) {
	// Resolution recomputes the post text, so rendering must be stable.
	assert.Equal(t, ChannelPost(fixtureOrder()), ChannelPost(fixtureOrder()))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "0.00 RUB", Money(decimal.Zero))
	assert.Equal(t, "149.50 RUB", Money(decimal.NewFromFloat(149.5)))
	assert.Equal(t, "1000.00 RUB", Money(decimal.NewFromInt(1000)))
}

func TestOrderSubmitted(t *testing.T) {
	text := OrderSubmitted(fixtureOrder())
	assert.Contains(t, text, "Order ID: CART_42_1700000000")
	assert.Contains(t, text, "Total: 1149.50 RUB")
	assert.Contains(t, text, "Payment method: Ozon Bank (SBP/Card)")
}

func TestResolvedSuffix(t *testing.T) {
	assert.Equal(t, "\n\nCONFIRMED BY @root", ResolvedSuffix(ledger.OutcomeConfirmed, "root"))
	assert.Equal(t, "\n\nREJECTED BY @root", ResolvedSuffix(ledger.OutcomeRejected, "root"))
}

func TestOrderConfirmed(t *testing.T) {
	plain := OrderConfirmed(fixtureOrder(), false, 0)
	assert.Contains(t, plain, "Your order has been confirmed!")
	assert.Contains(t, plain, "- Logo draft x2 = 1000.00 RUB")
	assert.NotContains(t, plain, "referral reward")

	rewarded := OrderConfirmed(fixtureOrder(), true, 2)
	assert.Contains(t, rewarded, "A referral reward was applied to this purchase. Rewards left: 2.")
}

func TestOrderRejected(t *testing.T) {
	text := OrderRejected(fixtureOrder(), "@lavka_support")
	assert.Contains(t, text, "Your order was declined.")
	assert.Contains(t, text, "contact support: @lavka_support")
	assert.False(t, strings.Contains(text, "confirmed"))
}

func TestReferralReward(t *testing.T) {
	text := ReferralReward(3)
	assert.Contains(t, text, "Available rewards: 3.")
}
