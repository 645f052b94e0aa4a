package engine

import (
	"github.com/shopspring/decimal"

	"github.com/maksline/lavka/internal/model"
)

// Stats is the admin-facing aggregate view of the storefront.
type Stats struct {
	Users              int
	Categories         int
	Products           int
	PendingOrders      int
	TotalRevenue       decimal.Decimal
	RecentTransactions []model.Transaction
}

// recentTxCount bounds the transaction tail included in Stats.
const recentTxCount = 10

// Stats returns storefront aggregates. Admin only.
func (e *Engine) Stats(adminID int64) (Stats, error) {
	if _, err := e.requireAdmin(adminID); err != nil {
		return Stats{}, err
	}

	revenue := decimal.Zero
	for _, tx := range e.users.Transactions() {
		revenue = revenue.Add(tx.Amount)
	}

	categories, products := e.catalog.Counts()
	return Stats{
		Users:              e.users.Count(),
		Categories:         categories,
		Products:           products,
		PendingOrders:      e.orders.Len(),
		TotalRevenue:       revenue,
		RecentTransactions: e.users.RecentTransactions(recentTxCount),
	}, nil
}
