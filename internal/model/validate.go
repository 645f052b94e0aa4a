package model

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/maksline/lavka/internal/fault"
)

var referralCodeRe = regexp.MustCompile(`^[0-9a-f]{8}$`)

// ValidateCategory rejects malformed category records at the store boundary.
func ValidateCategory(c Category) error {
	if c.ID <= 0 {
		return fault.Newf(fault.CodeInvalidInput, "category id must be positive, got %d", c.ID)
	}
	if c.Name == "" {
		return fault.New(fault.CodeInvalidInput, "category name must not be empty")
	}
	return nil
}

// ValidateProduct rejects malformed product records at the store boundary.
func ValidateProduct(p Product) error {
	if p.ID <= 0 {
		return fault.Newf(fault.CodeInvalidInput, "product id must be positive, got %d", p.ID)
	}
	if p.CategoryID <= 0 {
		return fault.Newf(fault.CodeInvalidInput, "product %d has invalid category id %d", p.ID, p.CategoryID)
	}
	if p.Name == "" {
		return fault.Newf(fault.CodeInvalidInput, "product %d has empty name", p.ID)
	}
	if p.Price.IsNegative() {
		return fault.Newf(fault.CodeInvalidInput, "product %d has negative price", p.ID)
	}
	if p.Quantity < 0 {
		return fault.Newf(fault.CodeInvalidInput, "product %d has negative quantity", p.ID)
	}
	return nil
}

// ValidateUser rejects malformed user records at the store boundary.
func ValidateUser(u User) error {
	if u.ID <= 0 {
		return fault.Newf(fault.CodeInvalidInput, "user id must be positive, got %d", u.ID)
	}
	if !referralCodeRe.MatchString(u.ReferralCode) {
		return fault.Newf(fault.CodeInvalidInput, "user %d has malformed referral code %q", u.ID, u.ReferralCode)
	}
	if u.ReferredBy == u.ID {
		return fault.Newf(fault.CodeInvalidInput, "user %d is recorded as its own referrer", u.ID)
	}
	if u.AvailableRewards < 0 || u.UsedRewards < 0 || u.QualifiedReferrals < 0 {
		return fault.Newf(fault.CodeInvalidInput, "user %d has negative referral counters", u.ID)
	}
	if u.TotalSpent.IsNegative() || u.TotalOrders < 0 {
		return fault.Newf(fault.CodeInvalidInput, "user %d has negative spending totals", u.ID)
	}
	return nil
}

// ValidatePendingOrder rejects malformed order snapshots at the store boundary.
func ValidatePendingOrder(o PendingOrder) error {
	if o.OrderID == "" {
		return fault.New(fault.CodeInvalidInput, "order id must not be empty")
	}
	if o.UserID <= 0 {
		return fault.Newf(fault.CodeInvalidInput, "order %s has invalid user id %d", o.OrderID, o.UserID)
	}
	if o.Mode != ModeSingle && o.Mode != ModeCart {
		return fault.Newf(fault.CodeInvalidInput, "order %s has unknown mode %q", o.OrderID, o.Mode)
	}
	if len(o.Items) == 0 {
		return fault.Newf(fault.CodeInvalidInput, "order %s has no line items", o.OrderID)
	}
	sum := decimal.Zero
	for _, line := range o.Items {
		if line.Quantity <= 0 {
			return fault.Newf(fault.CodeInvalidInput, "order %s line %d has non-positive quantity", o.OrderID, line.ProductID)
		}
		sum = sum.Add(line.LineTotal)
	}
	if !sum.Equal(o.TotalAmount) {
		return fault.Newf(fault.CodeInvalidInput, "order %s total %s does not match line sum %s",
			o.OrderID, o.TotalAmount.String(), sum.String())
	}
	return nil
}
