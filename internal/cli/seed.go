package cli

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML shape accepted by the seed command.
type seedFile struct {
	Categories []seedCategory `yaml:"categories"`
}

type seedCategory struct {
	Name     string        `yaml:"name"`
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	Name        string `yaml:"name"`
	Price       string `yaml:"price"`
	Description string `yaml:"description"`
	Quantity    int    `yaml:"quantity"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <seed-file>",
		Short: "Load categories and products from a YAML file",
		Long: `Load categories and products from a YAML file into the catalog.

The file lists categories, each with optional products:

  categories:
    - name: Design
      products:
        - name: Logo draft
          price: "500"
          quantity: 10

Existing catalog entries are kept; the file only adds.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app, adminID int64, out *OutputFormatter) error {
				raw, err := os.ReadFile(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read seed file", err)
				}
				var seed seedFile
				if err := yaml.Unmarshal(raw, &seed); err != nil {
					return WrapExitError(ExitCommandError, "failed to parse seed file", err)
				}

				var addedCategories, addedProducts int
				for _, c := range seed.Categories {
					catID, err := a.eng.AddCategory(adminID, c.Name)
					if err != nil {
						return faultExit(out, err)
					}
					addedCategories++
					for _, p := range c.Products {
						price, err := decimal.NewFromString(p.Price)
						if err != nil {
							return WrapExitError(ExitCommandError,
								fmt.Sprintf("malformed price for product %q", p.Name), err)
						}
						if _, err := a.eng.AddProduct(adminID, catID, p.Name, price, p.Description, p.Quantity); err != nil {
							return faultExit(out, err)
						}
						addedProducts++
					}
				}
				return out.Success(fmt.Sprintf("seeded %d categories, %d products", addedCategories, addedProducts))
			})
		},
	}
}
