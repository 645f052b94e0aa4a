package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// NewReferralCommand creates the referral settings command group.
func NewReferralCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "referral",
		Short: "Inspect and tune the referral program",
	}

	cmd.AddCommand(newReferralShowCommand(rootOpts))
	cmd.AddCommand(newReferralToggleCommand(rootOpts, "enable", true))
	cmd.AddCommand(newReferralToggleCommand(rootOpts, "disable", false))
	cmd.AddCommand(newReferralSetMinCommand(rootOpts))

	return cmd
}

func newReferralShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show referral program settings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app, adminID int64, out *OutputFormatter) error {
				settings, err := a.eng.ReferralSettings(adminID)
				if err != nil {
					return faultExit(out, err)
				}
				if rootOpts.Format == "json" {
					return out.Success(settings)
				}
				state := "disabled"
				if settings.Enabled {
					state = "enabled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "referral program %s, min purchase %s\n",
					state, settings.MinPurchaseAmount.StringFixed(2))
				return nil
			})
		},
	}
}

func newReferralToggleCommand(rootOpts *RootOptions, verb string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:           verb,
		Short:         verb + " referral qualification",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app, adminID int64, out *OutputFormatter) error {
				if err := a.eng.SetReferralEnabled(adminID, enabled); err != nil {
					return faultExit(out, err)
				}
				return out.Success(fmt.Sprintf("referral program %sd", verb))
			})
		},
	}
}

func newReferralSetMinCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "set-min <amount>",
		Short:         "Set the qualifying purchase threshold",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app, adminID int64, out *OutputFormatter) error {
				amount, err := decimal.NewFromString(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "malformed amount", err)
				}
				if err := a.eng.SetReferralMinPurchase(adminID, amount); err != nil {
					return faultExit(out, err)
				}
				return out.Success(fmt.Sprintf("min purchase set to %s", amount.StringFixed(2)))
			})
		},
	}
}
