package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maksline/lavka/internal/ledger"
	"github.com/maksline/lavka/internal/render"
)

// NewOrdersCommand creates the orders command group.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and resolve pending orders",
	}

	cmd.AddCommand(newOrdersListCommand(rootOpts))
	cmd.AddCommand(newOrdersResolveCommand(rootOpts, "confirm", ledger.OutcomeConfirmed))
	cmd.AddCommand(newOrdersResolveCommand(rootOpts, "reject", ledger.OutcomeRejected))

	return cmd
}

func newOrdersListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List pending orders, oldest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app, adminID int64, out *OutputFormatter) error {
				orders, err := a.eng.PendingOrders(adminID)
				if err != nil {
					return faultExit(out, err)
				}
				if rootOpts.Format == "json" {
					return out.Success(orders)
				}
				if len(orders) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no pending orders")
					return nil
				}
				for _, o := range orders {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  @%s  %s  %d item(s)\n",
						o.OrderID, o.Username, render.Money(o.TotalAmount), o.TotalQuantity)
				}
				return nil
			})
		},
	}
}

func newOrdersResolveCommand(rootOpts *RootOptions, verb string, outcome ledger.Outcome) *cobra.Command {
	return &cobra.Command{
		Use:           verb + " <order-id>",
		Short:         verb + " a pending order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app, adminID int64, out *OutputFormatter) error {
				if err := a.eng.Resolve(adminID, args[0], outcome); err != nil {
					return faultExit(out, err)
				}
				// One-shot resolution: flush queued notifications before
				// the process exits.
				drainDispatcher(a)
				return out.Success(fmt.Sprintf("order %s %sed", args[0], verb))
			})
		},
	}
}
