// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared records and configuration for mastget.
// Observation and Product mirror the archive's result columns; the JSON tags
// use the archive's column names so rows decode directly.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is an archive identifier. The archive returns some identifiers as JSON
// numbers and others as JSON strings; both decode into the same value.
type ID string

// UnmarshalJSON accepts a JSON string, number, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier text.
func (id ID) String() string { return string(id) }

// Level is a calibration level. Like ID, it tolerates numbers sent as strings.
type Level int

// UnmarshalJSON accepts a JSON number, a numeric string, or null.
func (l *Level) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*l = 0
		return nil
	}
	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("calibration level %s: %w", data, err)
	}
	*l = Level(n)
	return nil
}

// Coordinates is an ICRS sky position in decimal degrees.
type Coordinates struct {
	RA  float64 `json:"ra" yaml:"ra"`
	Dec float64 `json:"dec" yaml:"dec"`
}

// String formats the position the way the archive's position parameter expects.
func (c Coordinates) String() string {
	return strconv.FormatFloat(c.RA, 'f', -1, 64) + ", " + strconv.FormatFloat(c.Dec, 'f', -1, 64)
}

// Observation is one archived exposure or visit returned by a search.
type Observation struct {
	// ObsID is the archive-internal identifier passed to product listing.
	ObsID ID `json:"obsid" yaml:"obsid"`

	// ObsIDName is the mission-level dataset name (e.g. "jw02736-o001_t001_nircam_clear-f090w").
	ObsIDName string `json:"obs_id" yaml:"obs_id"`

	// Collection is the mission (e.g. "JWST", "HST", "TESS").
	Collection  string `json:"obs_collection" yaml:"obs_collection"`
	Instrument  string `json:"instrument_name" yaml:"instrument_name"`
	Filters     string `json:"filters,omitempty" yaml:"filters,omitempty"`
	ProposalID  string `json:"proposal_id,omitempty" yaml:"proposal_id,omitempty"`
	TargetName  string `json:"target_name,omitempty" yaml:"target_name,omitempty"`
	ProductType string `json:"dataproduct_type,omitempty" yaml:"dataproduct_type,omitempty"`
	CalibLevel  Level  `json:"calib_level" yaml:"calib_level"`

	RA  float64 `json:"s_ra" yaml:"s_ra"`
	Dec float64 `json:"s_dec" yaml:"s_dec"`

	// Region is the sky footprint as an STC-S string.
	Region string `json:"s_region,omitempty" yaml:"s_region,omitempty"`

	// TMin and TMax are the exposure bounds in MJD.
	TMin    float64 `json:"t_min,omitempty" yaml:"t_min,omitempty"`
	TMax    float64 `json:"t_max,omitempty" yaml:"t_max,omitempty"`
	ExpTime float64 `json:"t_exptime,omitempty" yaml:"t_exptime,omitempty"`

	DataRights string `json:"dataRights,omitempty" yaml:"data_rights,omitempty"`

	// Distance is the separation from the search center in arcseconds (cone searches only).
	Distance float64 `json:"distance,omitempty" yaml:"distance,omitempty"`
}
