package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pdiddy/mastget/internal/logging"
	"github.com/pdiddy/mastget/internal/manifest"
	"github.com/pdiddy/mastget/internal/mast"
	"github.com/pdiddy/mastget/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search the archive for observations",
	Long: `Search finds observations by sky position, by resolvable object name, or by
metadata (mission, instrument, proposal, target, calibration level).

With only a position or an object name, search runs a cone search. With any
metadata filter, search runs a criteria query, optionally restricted to the
cone. Results can be saved with --save and later passed to
"mastget download --from". A saved file passed to --from re-runs its query.`,
	Args: cobra.NoArgs,
	RunE: runSearch,
}

func init() {
	addSearchFlags(searchCmd.Flags())
	rootCmd.AddCommand(searchCmd)
}

func addSearchFlags(f *pflag.FlagSet) {
	f.Float64("ra", 0, "right ascension in degrees")
	f.Float64("dec", 0, "declination in degrees")
	f.Float64("radius", 0, fmt.Sprintf("cone radius in degrees (default %g)", mast.DefaultRadius))
	f.String("object", "", "object name resolved by the archive (e.g. M101)")
	f.StringSlice("collection", nil, "mission collection (e.g. JWST, HST, TESS)")
	f.StringSlice("instrument", nil, "instrument name (e.g. NIRCAM/IMAGE)")
	f.StringSlice("proposal", nil, "proposal ID")
	f.StringSlice("product-type", nil, "observation product type (image, spectrum, timeseries)")
	f.StringSlice("target", nil, "target name")
	f.StringSlice("calib", nil, "observation calibration level (0-4)")
	f.String("from", "", "re-run the query saved in a search file")
	f.Bool("count", false, "print the number of matching observations only")
	f.Bool("json", false, "print results as JSON")
	f.String("save", "", "save query and results to a YAML file")
}

// queryFlags are the search flags that make up a query.
var queryFlags = []string{"ra", "dec", "radius", "object", "collection", "instrument", "proposal", "product-type", "target", "calib"}

// searchCriteria returns the query saved in --from, or the one built from
// the query flags. The two sources cannot be mixed.
func searchCriteria(cmd *cobra.Command) (mast.Criteria, error) {
	from, _ := cmd.Flags().GetString("from")
	if from == "" {
		return criteriaFromFlags(cmd)
	}
	for _, name := range queryFlags {
		if cmd.Flags().Changed(name) {
			return mast.Criteria{}, fmt.Errorf("--from cannot be combined with --%s", name)
		}
	}
	sf, err := manifest.ReadSearchFile(from)
	if err != nil {
		return mast.Criteria{}, err
	}
	crit, err := sf.Query.ToCriteria()
	if err != nil {
		return crit, fmt.Errorf("%s: %w", from, err)
	}
	return crit, nil
}

func criteriaFromFlags(cmd *cobra.Command) (mast.Criteria, error) {
	f := cmd.Flags()
	var crit mast.Criteria
	crit.Collections, _ = f.GetStringSlice("collection")
	crit.Instruments, _ = f.GetStringSlice("instrument")
	crit.ProposalIDs, _ = f.GetStringSlice("proposal")
	crit.ProductTypes, _ = f.GetStringSlice("product-type")
	crit.TargetNames, _ = f.GetStringSlice("target")
	crit.ObjectName, _ = f.GetString("object")
	crit.Radius, _ = f.GetFloat64("radius")

	calib, _ := f.GetStringSlice("calib")
	levels, err := mast.ParseLevels(calib)
	if err != nil {
		return crit, fmt.Errorf("invalid --calib: %w", err)
	}
	crit.CalibLevels = levels

	raSet, decSet := f.Changed("ra"), f.Changed("dec")
	switch {
	case raSet && decSet:
		ra, _ := f.GetFloat64("ra")
		dec, _ := f.GetFloat64("dec")
		crit.Coordinates = &types.Coordinates{RA: ra, Dec: dec}
	case raSet || decSet:
		return crit, fmt.Errorf("--ra and --dec must be given together")
	}
	if crit.Coordinates != nil && crit.ObjectName != "" {
		return crit, fmt.Errorf("use either --ra/--dec or --object, not both")
	}
	return crit, nil
}

func runSearch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	crit, err := searchCriteria(cmd)
	if err != nil {
		return err
	}
	countOnly, _ := cmd.Flags().GetBool("count")
	asJSON, _ := cmd.Flags().GetBool("json")
	savePath, _ := cmd.Flags().GetString("save")

	client := mast.NewClient(cfg.Archive, nil)

	if countOnly {
		n, err := client.Count(ctx, crit)
		if err != nil {
			return err
		}
		fmt.Printf("%d observations\n", n)
		return nil
	}

	obs, err := client.Search(ctx, crit)
	if err != nil {
		return err
	}

	if asJSON {
		if err := mast.FormatJSON(obs, os.Stdout); err != nil {
			return err
		}
	} else {
		mast.FormatObservations(obs, os.Stdout)
	}

	if savePath != "" {
		if err := manifest.WriteSearchFile(savePath, manifest.NewQueryParams(crit), obs); err != nil {
			return fmt.Errorf("saving search: %w", err)
		}
		logging.Named("search").Info().Str("file", savePath).Int("observations", len(obs)).Msg("saved search")
	}
	return nil
}
