// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mast

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/mastget/pkg/types"
)

// FormatObservations writes observations as a human-readable table to w.
func FormatObservations(obs []types.Observation, w io.Writer) {
	if len(obs) == 0 {
		fmt.Fprintln(w, "No observations found.")
		return
	}

	fmt.Fprintf(w, "%-12s  %-8s  %-12s  %-8s  %-20s  %-40s  %s\n",
		"ObsID", "Mission", "Instrument", "Proposal", "Target", "Dataset", "Level")
	fmt.Fprintln(w, strings.Repeat("-", 118))

	for _, o := range obs {
		fmt.Fprintf(w, "%-12s  %-8s  %-12s  %-8s  %-20s  %-40s  %d\n",
			truncate(o.ObsID.String(), 12),
			truncate(o.Collection, 8),
			truncate(o.Instrument, 12),
			truncate(o.ProposalID, 8),
			truncate(o.TargetName, 20),
			truncate(o.ObsIDName, 40),
			o.CalibLevel)
	}
	fmt.Fprintf(w, "\n%d observations\n", len(obs))
}

// FormatProducts writes products as a human-readable table to w.
func FormatProducts(products []types.Product, w io.Writer) {
	if len(products) == 0 {
		fmt.Fprintln(w, "No products found.")
		return
	}

	fmt.Fprintf(w, "%-12s  %-10s  %-5s  %-8s  %-50s  %s\n",
		"ObsID", "Type", "Level", "SubGroup", "Filename", "Size")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	var total int64
	for _, p := range products {
		fmt.Fprintf(w, "%-12s  %-10s  %-5d  %-8s  %-50s  %s\n",
			truncate(p.ObsID.String(), 12),
			truncate(p.ProductType, 10),
			p.CalibLevel,
			truncate(p.SubGroupDescription, 8),
			truncate(p.Filename, 50),
			FormatBytes(p.Size))
		total += p.Size
	}
	fmt.Fprintf(w, "\n%d products, %s\n", len(products), FormatBytes(total))
}

// FormatJSON writes v as indented JSON to w.
func FormatJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
