package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mastget/internal/mast"
)

var productsCmd = &cobra.Command{
	Use:   "products OBSID...",
	Short: "List the data products of observations",
	Long: `Products lists the files attached to the given observations. Filters
combine with AND; repeated values of one filter combine with OR. Without
filters every product is listed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProducts,
}

func init() {
	f := productsCmd.Flags()
	f.StringSlice("product-type", nil, "product type (SCIENCE, AUXILIARY, PREVIEW, INFO)")
	f.StringSlice("calib", nil, "calibration level (0-4)")
	f.StringSlice("subgroup", nil, "product subgroup (e.g. CAL, I2D, X1D)")
	f.StringSlice("extension", nil, "filename ending (e.g. fits, _cal.fits)")
	f.Bool("mrp-only", false, "only minimum recommended products")
	f.Bool("json", false, "print products as JSON")

	rootCmd.AddCommand(productsCmd)
}

func runProducts(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	var filter mast.ProductFilter
	filter.ProductTypes, _ = f.GetStringSlice("product-type")
	filter.SubGroups, _ = f.GetStringSlice("subgroup")
	filter.Extensions, _ = f.GetStringSlice("extension")
	filter.MRPOnly, _ = f.GetBool("mrp-only")
	levels, _ := f.GetStringSlice("calib")
	var err error
	if filter.CalibLevels, err = mast.ParseLevels(levels); err != nil {
		return fmt.Errorf("invalid --calib: %w", err)
	}
	asJSON, _ := f.GetBool("json")

	client := mast.NewClient(cfg.Archive, nil)
	products, err := client.ListProducts(cmd.Context(), args)
	if err != nil {
		return err
	}
	selected := mast.FilterProducts(products, filter)

	if asJSON {
		return mast.FormatJSON(selected, os.Stdout)
	}
	mast.FormatProducts(selected, os.Stdout)
	if !filter.IsEmpty() {
		fmt.Printf("%d of %d listed products match the filters\n", len(selected), len(products))
	}
	return nil
}
