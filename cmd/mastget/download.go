package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mastget/internal/ledger"
	"github.com/pdiddy/mastget/internal/logging"
	"github.com/pdiddy/mastget/internal/manifest"
	"github.com/pdiddy/mastget/internal/mast"
	"github.com/pdiddy/mastget/internal/pipeline"
	"github.com/pdiddy/mastget/internal/storage"
)

var downloadCmd = &cobra.Command{
	Use:   "download [OBSID...]",
	Short: "Download products of observations in batches",
	Long: `Download lists the products of the given observations a few observations
at a time, keeps the products that match the type and calibration filters,
and downloads them to the destination. The destination is a directory or a
bucket URL (file://, s3://, gs://, mem://).

Observation IDs come from the arguments, from a search file written by
"mastget search --save" (--from), or both. Products already present at the
destination with the expected size are skipped unless --no-cache is set.`,
	RunE: runDownload,
}

func init() {
	f := downloadCmd.Flags()
	f.String("from", "", "read observation IDs from a saved search file")
	f.Int("batch-size", 0, "observations per product listing request (default 5)")
	f.String("dest", "", "destination directory or bucket URL (default .)")
	f.StringSlice("product-type", nil, "product types to keep (default SCIENCE)")
	f.StringSlice("calib", nil, "calibration levels to keep (default 3)")
	f.Bool("mrp-only", false, "only minimum recommended products")
	f.Bool("no-cache", false, "download even when the file already exists")
	f.Duration("delay", 0, "pause between batches")
	f.String("manifest", "", "write a YAML manifest of the download records")
	f.String("ledger", "", "ledger database path (default mastget.db)")
	f.Bool("no-ledger", false, "do not record this run in the ledger")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.Named("download")

	ids, err := downloadIDs(cmd, args)
	if err != nil {
		return err
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Download.Cache = false
	}
	if noLedger, _ := cmd.Flags().GetBool("no-ledger"); noLedger {
		cfg.Ledger.Enabled = false
	}
	manifestPath, _ := cmd.Flags().GetString("manifest")

	bkt, err := storage.OpenBucket(ctx, cfg.Download.Dest)
	if err != nil {
		return err
	}
	defer bkt.Close()

	client := mast.NewClient(cfg.Archive, nil)
	dl := &mast.Downloader{Client: client, Bucket: bkt, Cache: cfg.Download.Cache}

	opts := pipeline.Options{
		BatchSize: cfg.Download.BatchSize,
		Filter: mast.ProductFilter{
			ProductTypes: cfg.Download.ProductTypes,
			CalibLevels:  cfg.Download.CalibLevels,
			MRPOnly:      cfg.Download.MRPOnly,
		},
		Delay: cfg.Download.Delay,
	}

	if cfg.Ledger.Enabled {
		store, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		run, err := store.StartRun(ctx, len(ids), cfg.Download.BatchSize, bkt.Dest())
		if err != nil {
			return err
		}
		opts.Recorder = store
		opts.RunID = run.ID
		log.Info().Str("run", run.ID).Int("observations", len(ids)).Str("dest", bkt.Dest()).Msg("starting run")
	}

	sum, runErr := pipeline.Run(ctx, ids, opts, client, dl, os.Stdout)

	if manifestPath != "" {
		m := manifest.DownloadManifest{
			RunID:   opts.RunID,
			Dest:    bkt.Dest(),
			Records: sum.Records,
			Summary: manifest.DownloadSummary{
				Batches:    sum.Batches,
				Downloaded: sum.Downloaded,
				Skipped:    sum.Skipped,
				Failed:     sum.Failed,
			},
		}
		if err := manifest.WriteDownloadManifest(manifestPath, m); err != nil {
			log.Error().Err(err).Str("file", manifestPath).Msg("writing manifest")
		}
	}

	if runErr != nil {
		return runErr
	}
	if sum.HasFailures() {
		return fmt.Errorf("%d file(s) failed download", sum.Failed)
	}
	return nil
}

// downloadIDs collects observation IDs from --from and the arguments, in
// that order.
func downloadIDs(cmd *cobra.Command, args []string) ([]string, error) {
	var ids []string
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		sf, err := manifest.ReadSearchFile(from)
		if err != nil {
			return nil, err
		}
		ids = append(ids, sf.ObsIDs()...)
	}
	ids = append(ids, args...)
	if len(ids) == 0 {
		return nil, fmt.Errorf("provide observation IDs or --from FILE")
	}
	return ids, nil
}
