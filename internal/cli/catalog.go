package cli

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/maksline/lavka/internal/fault"
	"github.com/maksline/lavka/internal/render"
)

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the product catalog",
	}

	cmd.AddCommand(newCatalogListCommand(rootOpts))
	cmd.AddCommand(newCatalogAddCategoryCommand(rootOpts))
	cmd.AddCommand(newCatalogAddProductCommand(rootOpts))
	cmd.AddCommand(newCatalogDeleteProductCommand(rootOpts))

	return cmd
}

// withApp loads config, wires the app, runs fn, and closes the store. Used
// by the one-shot admin commands.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(a *app, adminID int64, out *OutputFormatter) error) error {
	setupLogging(opts.Verbose)

	a, err := buildApp(opts, nil)
	if err != nil {
		return err
	}
	defer a.close()

	adminID, err := cliAdminID(a.cfg)
	if err != nil {
		return err
	}

	out := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
	return fn(a, adminID, out)
}

// faultExit maps an engine error to an ExitError after printing it.
func faultExit(out *OutputFormatter, err error) error {
	_ = out.Error(string(fault.CodeOf(err)), err.Error(), nil)
	return WrapExitError(ExitFailure, "operation failed", err)
}

func newCatalogListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List categories and products",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app, adminID int64, out *OutputFormatter) error {
				cats, err := a.eng.AdminCategories(adminID)
				if err != nil {
					return faultExit(out, err)
				}
				if rootOpts.Format == "json" {
					type listing struct {
						ID       int64  `json:"id"`
						Name     string `json:"name"`
						Products []any  `json:"products"`
					}
					var payload []listing
					for _, c := range cats {
						l := listing{ID: c.ID, Name: c.Name, Products: []any{}}
						page, err := a.eng.AdminProducts(adminID, c.ID)
						if err != nil {
							return faultExit(out, err)
						}
						for _, p := range page {
							l.Products = append(l.Products, p)
						}
						payload = append(payload, l)
					}
					return out.Success(payload)
				}
				for _, c := range cats {
					fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s\n", c.ID, c.Name)
					prods, err := a.eng.AdminProducts(adminID, c.ID)
					if err != nil {
						return faultExit(out, err)
					}
					for _, p := range prods {
						fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s  %s  (stock %d)\n",
							p.ID, p.Name, render.Money(p.Price), p.Quantity)
					}
				}
				return nil
			})
		},
	}
}

func newCatalogAddCategoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add-category <name>",
		Short:         "Add a catalog category",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app, adminID int64, out *OutputFormatter) error {
				id, err := a.eng.AddCategory(adminID, args[0])
				if err != nil {
					return faultExit(out, err)
				}
				return out.Success(fmt.Sprintf("category %d created", id))
			})
		},
	}
}

func newCatalogAddProductCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		categoryID  int64
		price       string
		description string
		quantity    int
	)

	cmd := &cobra.Command{
		Use:           "add-product <name>",
		Short:         "Add a product to a category",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app, adminID int64, out *OutputFormatter) error {
				p, err := decimal.NewFromString(price)
				if err != nil {
					return WrapExitError(ExitCommandError, "malformed --price", err)
				}
				id, err := a.eng.AddProduct(adminID, categoryID, args[0], p, description, quantity)
				if err != nil {
					return faultExit(out, err)
				}
				return out.Success(fmt.Sprintf("product %d created", id))
			})
		},
	}

	cmd.Flags().Int64Var(&categoryID, "category", 0, "category id (required)")
	cmd.Flags().StringVar(&price, "price", "", "price, e.g. 499.90 (required)")
	cmd.Flags().StringVar(&description, "description", "", "product description")
	cmd.Flags().IntVar(&quantity, "quantity", 0, "displayed stock quantity")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func newCatalogDeleteProductCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete-product <id>",
		Short:         "Delete a product",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app, adminID int64, out *OutputFormatter) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return WrapExitError(ExitCommandError, "malformed product id", err)
				}
				if err := a.eng.DeleteProduct(adminID, id); err != nil {
					return faultExit(out, err)
				}
				return out.Success(fmt.Sprintf("product %d deleted", id))
			})
		},
	}
}
