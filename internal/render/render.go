// Package render builds the user- and admin-facing message texts.
//
// All output is deterministic for a given input: timestamps are formatted in
// UTC and amounts with two decimal places, so rendered messages can be
// golden-tested and channel posts can be recomputed verbatim when a
// resolution suffix is appended.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maksline/lavka/internal/checkout"
	"github.com/maksline/lavka/internal/ledger"
	"github.com/maksline/lavka/internal/model"
)

// PaymentDetails is the externally configured payment routing shown to buyers.
type PaymentDetails struct {
	Name        string
	CardNumber  string
	PhoneNumber string
	Owner       string
}

// Money formats an amount with two decimal places and the currency mark.
func Money(amount decimal.Decimal) string {
	return amount.StringFixed(2) + " RUB"
}

func writeLines(b *strings.Builder, items []model.CartLine) {
	for _, line := range items {
		fmt.Fprintf(b, "- %s x%d = %s\n", line.Name, line.Quantity, Money(line.LineTotal))
	}
}

// PaymentInstructions renders the text shown when a checkout session opens:
// the priced snapshot plus where to send the payment.
func PaymentInstructions(s checkout.Session, pay PaymentDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s\n\n", s.OrderID)
	b.WriteString("Items:\n")
	writeLines(&b, s.Items)
	fmt.Fprintf(&b, "\nTotal: %s\n\n", Money(s.Amount))
	fmt.Fprintf(&b, "Pay via %s\n", pay.Name)
	fmt.Fprintf(&b, "Card: %s\n", pay.CardNumber)
	fmt.Fprintf(&b, "Phone: %s\n", pay.PhoneNumber)
	fmt.Fprintf(&b, "Recipient: %s\n\n", pay.Owner)
	b.WriteString("After paying, send a photo of the receipt to complete the order.")
	return b.String()
}

// OrderSubmitted renders the acknowledgement sent to the buyer after
// evidence submission.
func OrderSubmitted(order model.PendingOrder) string {
	var b strings.Builder
	b.WriteString("Order submitted!\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n", order.OrderID)
	fmt.Fprintf(&b, "Total: %s\n", Money(order.TotalAmount))
	fmt.Fprintf(&b, "Payment method: %s\n\n", order.PaymentMethod)
	b.WriteString("The order is being reviewed. We will contact you shortly.")
	return b.String()
}

// ChannelPost renders the admin-channel post for a newly submitted order.
// The same input always renders the same text, so the post can be recomputed
// when a resolution suffix is appended.
func ChannelPost(order model.PendingOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s\n\n", order.OrderID)
	fmt.Fprintf(&b, "From: @%s (id %d)\n", order.Username, order.UserID)
	b.WriteString("Items:\n")
	writeLines(&b, order.Items)
	fmt.Fprintf(&b, "Total: %s\n", Money(order.TotalAmount))
	fmt.Fprintf(&b, "Payment method: %s\n", order.PaymentMethod)
	fmt.Fprintf(&b, "Created: %s", order.CreatedAt.UTC().Format(time.RFC3339))
	return b.String()
}

// ResolvedSuffix is appended to the channel post when an order is resolved,
// attributing the action to the resolving administrator.
func ResolvedSuffix(outcome ledger.Outcome, adminHandle string) string {
	if outcome == ledger.OutcomeConfirmed {
		return fmt.Sprintf("\n\nCONFIRMED BY @%s", adminHandle)
	}
	return fmt.Sprintf("\n\nREJECTED BY @%s", adminHandle)
}

// OrderConfirmed renders the buyer notification for a confirmed order.
func OrderConfirmed(order model.PendingOrder, rewardApplied bool, rewardsRemaining int) string {
	var b strings.Builder
	b.WriteString("Your order has been confirmed!\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n", order.OrderID)
	b.WriteString("Items:\n")
	writeLines(&b, order.Items)
	fmt.Fprintf(&b, "Total: %s\n\n", Money(order.TotalAmount))
	b.WriteString("The items will be on their way shortly.")
	if rewardApplied {
		fmt.Fprintf(&b, "\n\nA referral reward was applied to this purchase. Rewards left: %d.", rewardsRemaining)
	}
	return b.String()
}

// OrderRejected renders the buyer notification for a rejected order.
func OrderRejected(order model.PendingOrder, supportContact string) string {
	var b strings.Builder
	b.WriteString("Your order was declined.\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n", order.OrderID)
	fmt.Fprintf(&b, "Total: %s\n\n", Money(order.TotalAmount))
	fmt.Fprintf(&b, "If you have questions, contact support: %s", supportContact)
	return b.String()
}

// ReferralReward renders the congratulation sent to a referrer whose invitee
// completed a qualifying purchase.
func ReferralReward(availableRewards int) string {
	return fmt.Sprintf(
		"Congratulations! One of your invitees completed a qualifying purchase.\nYou earned a reward. Available rewards: %d.",
		availableRewards,
	)
}
