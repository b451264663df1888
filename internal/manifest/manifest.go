// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest reads and writes the YAML files that carry search results
// and download outcomes between mastget invocations.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mastget/internal/mast"
	"github.com/pdiddy/mastget/pkg/types"
)

// SearchFile is the on-disk form of a search and its results. A saved search
// can be handed to `mastget download --from` without re-querying the archive.
type SearchFile struct {
	Query        QueryParams         `yaml:"query"`
	Observations []types.Observation `yaml:"observations"`
	Summary      SearchSummary       `yaml:"summary"`
}

// QueryParams stores search parameters in a serializable form.
type QueryParams struct {
	Object       string   `yaml:"object,omitempty"`
	RA           *float64 `yaml:"ra,omitempty"`
	Dec          *float64 `yaml:"dec,omitempty"`
	Radius       float64  `yaml:"radius,omitempty"`
	Collections  []string `yaml:"collections,omitempty"`
	Instruments  []string `yaml:"instruments,omitempty"`
	ProposalIDs  []string `yaml:"proposal_ids,omitempty"`
	ProductTypes []string `yaml:"product_types,omitempty"`
	TargetNames  []string `yaml:"target_names,omitempty"`
	CalibLevels  []int    `yaml:"calib_levels,omitempty"`
}

// SearchSummary stores result statistics and a timestamp.
type SearchSummary struct {
	Total     int       `yaml:"total"`
	Timestamp time.Time `yaml:"timestamp"`
}

// NewQueryParams captures crit for storage.
func NewQueryParams(crit mast.Criteria) QueryParams {
	q := QueryParams{
		Object:       crit.ObjectName,
		Radius:       crit.Radius,
		Collections:  crit.Collections,
		Instruments:  crit.Instruments,
		ProposalIDs:  crit.ProposalIDs,
		ProductTypes: crit.ProductTypes,
		TargetNames:  crit.TargetNames,
		CalibLevels:  crit.CalibLevels,
	}
	if crit.Coordinates != nil {
		ra, dec := crit.Coordinates.RA, crit.Coordinates.Dec
		q.RA, q.Dec = &ra, &dec
	}
	return q
}

// ToCriteria converts stored parameters back into search criteria.
func (q QueryParams) ToCriteria() (mast.Criteria, error) {
	crit := mast.Criteria{
		ObjectName:   q.Object,
		Radius:       q.Radius,
		Collections:  q.Collections,
		Instruments:  q.Instruments,
		ProposalIDs:  q.ProposalIDs,
		ProductTypes: q.ProductTypes,
		TargetNames:  q.TargetNames,
		CalibLevels:  q.CalibLevels,
	}
	switch {
	case q.RA != nil && q.Dec != nil:
		crit.Coordinates = &types.Coordinates{RA: *q.RA, Dec: *q.Dec}
	case q.RA != nil || q.Dec != nil:
		return crit, fmt.Errorf("query needs both ra and dec, got only one")
	}
	return crit, nil
}

// WriteSearchFile saves query parameters and observations to a YAML file.
func WriteSearchFile(path string, query QueryParams, obs []types.Observation) error {
	sf := SearchFile{
		Query:        query,
		Observations: obs,
		Summary: SearchSummary{
			Total:     len(obs),
			Timestamp: time.Now(),
		},
	}
	return writeYAML(path, &sf, "search file")
}

// ReadSearchFile loads a previously saved search file from disk.
func ReadSearchFile(path string) (*SearchFile, error) {
	var sf SearchFile
	if err := readYAML(path, &sf, "search file"); err != nil {
		return nil, err
	}
	return &sf, nil
}

// ObsIDs returns the archive identifiers of the saved observations in order,
// skipping blanks.
func (sf *SearchFile) ObsIDs() []string { return mast.ObsIDs(sf.Observations) }

// DownloadManifest records the outcome of one download run.
type DownloadManifest struct {
	RunID   string                 `yaml:"run_id,omitempty"`
	Dest    string                 `yaml:"dest"`
	Records []types.DownloadRecord `yaml:"records"`
	Summary DownloadSummary        `yaml:"summary"`
}

// DownloadSummary stores per-status counts and a timestamp.
type DownloadSummary struct {
	Batches    int       `yaml:"batches"`
	Downloaded int       `yaml:"downloaded"`
	Skipped    int       `yaml:"skipped"`
	Failed     int       `yaml:"failed"`
	Timestamp  time.Time `yaml:"timestamp"`
}

// WriteDownloadManifest saves m to path, stamping the summary time when unset.
func WriteDownloadManifest(path string, m DownloadManifest) error {
	if m.Summary.Timestamp.IsZero() {
		m.Summary.Timestamp = time.Now()
	}
	return writeYAML(path, &m, "download manifest")
}

func writeYAML(path string, v any, what string) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", what, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s directory: %w", what, err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func readYAML(path string, v any, what string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", what, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", what, err)
	}
	return nil
}
