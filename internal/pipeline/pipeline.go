// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the batched list, filter, and download loop over a
// list of observation identifiers. Each batch completes before the next one
// starts, which keeps every archive request small.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/mastget/internal/batch"
	"github.com/pdiddy/mastget/internal/logging"
	"github.com/pdiddy/mastget/internal/mast"
	"github.com/pdiddy/mastget/pkg/types"
)

// ProductLister lists the products attached to a set of observations.
type ProductLister interface {
	ListProducts(ctx context.Context, obsIDs []string) ([]types.Product, error)
}

// ProductDownloader fetches products and reports one record per product.
type ProductDownloader interface {
	DownloadProducts(ctx context.Context, products []types.Product, mrpOnly bool) ([]types.DownloadRecord, error)
}

// Recorder persists the records of a finished batch.
type Recorder interface {
	RecordBatch(ctx context.Context, runID string, batch int, records []types.DownloadRecord) error
}

// Options controls a pipeline run.
type Options struct {
	// BatchSize is the number of observations listed per request.
	BatchSize int

	// Filter selects which listed products are downloaded. The whole filter,
	// MRPOnly included, is applied before a batch's selection is counted.
	Filter mast.ProductFilter

	// Delay is the pause between consecutive batches.
	Delay time.Duration

	// Recorder, when set, receives each batch's records under RunID.
	Recorder Recorder
	RunID    string
}

// Summary holds counts for a run.
type Summary struct {
	Batches      int
	Observations int
	Listed       int
	Selected     int
	Downloaded   int
	Skipped      int
	Failed       int
	Records      []types.DownloadRecord
}

// HasFailures reports whether any file ended in ERROR.
func (s Summary) HasFailures() bool { return s.Failed > 0 }

func (s *Summary) add(records []types.DownloadRecord) {
	for _, r := range records {
		switch r.Status {
		case types.StatusComplete:
			s.Downloaded++
		case types.StatusSkipped:
			s.Skipped++
		default:
			s.Failed++
		}
	}
	s.Records = append(s.Records, records...)
}

// Run splits obsIDs into batches of opts.BatchSize and, for each batch in
// order, lists its products, filters them, downloads the selection, and
// prints one status line per file to w. A listing, download, or recording
// error stops the run; the summary of the batches completed so far is
// returned with it.
func Run(ctx context.Context, obsIDs []string, opts Options, lister ProductLister, dl ProductDownloader, w io.Writer) (Summary, error) {
	log := logging.Named("pipeline")

	batches, err := batch.Split(obsIDs, opts.BatchSize)
	if err != nil {
		return Summary{}, err
	}
	total := batch.Count(len(obsIDs), opts.BatchSize)

	var sum Summary
	n := 0
	for ids := range batches {
		n++
		if n > 1 && opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				return sum, fmt.Errorf("waiting before batch %d: %w", n, err)
			}
		}

		log.Debug().Int("batch", n).Int("of", total).Strs("obsids", ids).Msg("listing products")
		products, err := lister.ListProducts(ctx, ids)
		if err != nil {
			return sum, fmt.Errorf("listing products for batch %d: %w", n, err)
		}
		selected := mast.FilterProducts(products, opts.Filter)

		sum.Batches++
		sum.Observations += len(ids)
		sum.Listed += len(products)
		sum.Selected += len(selected)

		fmt.Fprintf(w, "batch %d/%d: %d observations, %d products, %d selected\n",
			n, total, len(ids), len(products), len(selected))
		if len(selected) == 0 {
			continue
		}

		records, dlErr := dl.DownloadProducts(ctx, selected, false)
		sum.add(records)
		printRecords(w, records)

		// Records of an interrupted batch are still written.
		if opts.Recorder != nil && len(records) > 0 {
			if err := opts.Recorder.RecordBatch(context.WithoutCancel(ctx), opts.RunID, n, records); err != nil {
				return sum, fmt.Errorf("recording batch %d: %w", n, err)
			}
		}
		if dlErr != nil {
			return sum, fmt.Errorf("downloading batch %d: %w", n, dlErr)
		}
	}

	fmt.Fprintf(w, "\nSummary: %d batches, %d downloaded, %d skipped, %d failed (total: %d)\n",
		sum.Batches, sum.Downloaded, sum.Skipped, sum.Failed, len(sum.Records))
	return sum, nil
}

func printRecords(w io.Writer, records []types.DownloadRecord) {
	for _, r := range records {
		switch r.Status {
		case types.StatusComplete:
			fmt.Fprintf(w, "  downloaded: %s -> %s (%s)\n", r.DataURI, r.LocalPath, mast.FormatBytes(r.Size))
		case types.StatusSkipped:
			fmt.Fprintf(w, "  skipped:    %s (%s)\n", r.DataURI, r.Message)
		default:
			fmt.Fprintf(w, "  failed:     %s (%s)\n", r.DataURI, r.Message)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
