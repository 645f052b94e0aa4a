package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maksline/lavka/internal/render"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stats",
		Short:         "Show storefront aggregates",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app, adminID int64, out *OutputFormatter) error {
				stats, err := a.eng.Stats(adminID)
				if err != nil {
					return faultExit(out, err)
				}
				if rootOpts.Format == "json" {
					return out.Success(stats)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Users:          %d\n", stats.Users)
				fmt.Fprintf(w, "Categories:     %d\n", stats.Categories)
				fmt.Fprintf(w, "Products:       %d\n", stats.Products)
				fmt.Fprintf(w, "Pending orders: %d\n", stats.PendingOrders)
				fmt.Fprintf(w, "Total revenue:  %s\n", render.Money(stats.TotalRevenue))
				if len(stats.RecentTransactions) > 0 {
					fmt.Fprintln(w, "Recent transactions:")
					for _, tx := range stats.RecentTransactions {
						fmt.Fprintf(w, "  #%d user %d  %s  %s\n",
							tx.ID, tx.UserID, render.Money(tx.Amount), tx.Date.Format("2006-01-02 15:04"))
					}
				}
				return nil
			})
		},
	}
}
