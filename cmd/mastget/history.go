package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/mastget/internal/ledger"
	"github.com/pdiddy/mastget/internal/mast"
	"github.com/pdiddy/mastget/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded download runs and files",
	Long: `History reads the download ledger. Without flags it lists recent runs;
with --run or --status it lists the recorded files, newest first.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.String("run", "", "show files recorded by this run")
	f.String("status", "", "show files with this status (COMPLETE, SKIPPED, ERROR)")
	f.Int("limit", 50, "maximum rows to show")
	f.Bool("json", false, "print as JSON")
	f.String("ledger", "", "ledger database path (default mastget.db)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	f := cmd.Flags()
	runID, _ := f.GetString("run")
	status, _ := f.GetString("status")
	limit, _ := f.GetInt("limit")
	asJSON, _ := f.GetBool("json")

	if _, err := os.Stat(cfg.Ledger.Path); os.IsNotExist(err) {
		return fmt.Errorf("no ledger at %s; run mastget download first", cfg.Ledger.Path)
	}
	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	if runID == "" && status == "" {
		runs, err := store.Runs(ctx, limit)
		if err != nil {
			return err
		}
		if asJSON {
			return mast.FormatJSON(runs, os.Stdout)
		}
		formatRuns(runs, os.Stdout)
		return nil
	}

	entries, err := store.History(ctx, ledger.HistoryOptions{
		RunID:  runID,
		Status: types.DownloadStatus(status),
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	if asJSON {
		return mast.FormatJSON(entries, os.Stdout)
	}
	formatEntries(entries, os.Stdout)
	return nil
}

func formatRuns(runs []ledger.Run, w io.Writer) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-19s  %-5s  %-5s  %s\n", "Run", "Started", "Obs", "Batch", "Destination")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-19s  %-5d  %-5d  %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Observations, r.BatchSize, r.Dest)
	}
}

func formatEntries(entries []ledger.Entry, w io.Writer) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No files recorded.")
		return
	}
	fmt.Fprintf(w, "%-19s  %-5s  %-8s  %-10s  %s\n", "Recorded", "Batch", "Status", "Size", "File")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, e := range entries {
		where := e.LocalPath
		if e.Status == types.StatusError {
			where = e.DataURI + " (" + e.Message + ")"
		}
		fmt.Fprintf(w, "%-19s  %-5d  %-8s  %-10s  %s\n",
			e.RecordedAt.Local().Format(time.DateTime), e.Batch, e.Status, mast.FormatBytes(e.Size), where)
	}
}
