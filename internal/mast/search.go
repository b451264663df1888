// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/mastget/pkg/types"
)

// Archive services used for searching.
const (
	serviceNameLookup       = "Mast.Name.Lookup"
	serviceCone             = "Mast.Caom.Cone"
	serviceFiltered         = "Mast.Caom.Filtered"
	serviceFilteredPosition = "Mast.Caom.Filtered.Position"
)

// DefaultRadius is the cone radius in degrees used when none is given.
const DefaultRadius = 0.2

var (
	// ErrUnresolved is returned when a name lookup finds no coordinates.
	ErrUnresolved = errors.New("object name could not be resolved")

	// ErrEmptyCriteria is returned for a criteria query with no metadata constraint.
	ErrEmptyCriteria = errors.New("criteria query needs at least one non-positional constraint")

	// ErrNoCriteria is returned when a search has no position, object, or metadata constraint.
	ErrNoCriteria = errors.New("search needs a position, an object name, or a metadata constraint")
)

// Criteria constrains an observation search by metadata and, optionally, position.
// Values within a field are alternatives; fields must all match.
type Criteria struct {
	Collections  []string
	Instruments  []string
	ProposalIDs  []string
	ProductTypes []string
	TargetNames  []string
	CalibLevels  []int

	// ObjectName is resolved to coordinates when Coordinates is nil.
	ObjectName  string
	Coordinates *types.Coordinates

	// Radius is the cone radius in degrees for positional criteria.
	Radius float64
}

// IsEmpty reports whether the criteria carry no metadata constraint. The
// archive refuses purely positional criteria queries; use QueryRegion or
// QueryObject for those.
func (c Criteria) IsEmpty() bool {
	return len(c.filters()) == 0
}

type filter struct {
	ParamName string `json:"paramName"`
	Values    []any  `json:"values"`
}

func (c Criteria) filters() []filter {
	var out []filter
	addStrings := func(name string, values []string) {
		var vs []any
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				vs = append(vs, v)
			}
		}
		if len(vs) > 0 {
			out = append(out, filter{ParamName: name, Values: vs})
		}
	}
	addStrings("obs_collection", c.Collections)
	addStrings("instrument_name", c.Instruments)
	addStrings("proposal_id", c.ProposalIDs)
	addStrings("dataproduct_type", c.ProductTypes)
	addStrings("target_name", c.TargetNames)
	if len(c.CalibLevels) > 0 {
		vs := make([]any, len(c.CalibLevels))
		for i, l := range c.CalibLevels {
			vs[i] = l
		}
		out = append(out, filter{ParamName: "calib_level", Values: vs})
	}
	return out
}

type nameLookupResponse struct {
	ResolvedCoordinate []struct {
		CanonicalName string  `json:"canonicalName"`
		RA            float64 `json:"ra"`
		Dec           float64 `json:"decl"`
	} `json:"resolvedCoordinate"`
}

// ResolveObject turns an object name (e.g. "M101") into sky coordinates.
func (c *Client) ResolveObject(ctx context.Context, name string) (types.Coordinates, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Coordinates{}, fmt.Errorf("%w: empty name", ErrUnresolved)
	}
	var resp nameLookupResponse
	err := c.postService(ctx, serviceRequest{
		Service: serviceNameLookup,
		Params:  map[string]any{"input": name, "format": "json"},
		Format:  "json",
	}, &resp)
	if err != nil {
		return types.Coordinates{}, err
	}
	if len(resp.ResolvedCoordinate) == 0 {
		return types.Coordinates{}, fmt.Errorf("%w: %q", ErrUnresolved, name)
	}
	rc := resp.ResolvedCoordinate[0]
	return types.Coordinates{RA: rc.RA, Dec: rc.Dec}, nil
}

// QueryRegion returns observations within radius degrees of coords.
func (c *Client) QueryRegion(ctx context.Context, coords types.Coordinates, radius float64) ([]types.Observation, error) {
	if radius <= 0 {
		radius = DefaultRadius
	}
	rows, err := c.Invoke(ctx, serviceCone, map[string]any{
		"ra":     coords.RA,
		"dec":    coords.Dec,
		"radius": radius,
	})
	if err != nil {
		return nil, err
	}
	return decodeRows[types.Observation](serviceCone, rows)
}

// QueryObject resolves name and returns observations within radius degrees of it.
func (c *Client) QueryObject(ctx context.Context, name string, radius float64) ([]types.Observation, error) {
	coords, err := c.ResolveObject(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.QueryRegion(ctx, coords, radius)
}

// QueryCriteria returns observations matching the metadata criteria.
func (c *Client) QueryCriteria(ctx context.Context, crit Criteria) ([]types.Observation, error) {
	service, params, err := c.criteriaParams(ctx, crit, "*")
	if err != nil {
		return nil, err
	}
	rows, err := c.Invoke(ctx, service, params)
	if err != nil {
		return nil, err
	}
	return decodeRows[types.Observation](service, rows)
}

// QueryCriteriaCount returns the number of observations matching crit
// without transferring them.
func (c *Client) QueryCriteriaCount(ctx context.Context, crit Criteria) (int, error) {
	service, params, err := c.criteriaParams(ctx, crit, "COUNT_BIG(*)")
	if err != nil {
		return 0, err
	}
	rows, err := c.Invoke(ctx, service, params)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	var row map[string]json.Number
	if err := json.Unmarshal(rows[0], &row); err != nil {
		return 0, fmt.Errorf("decoding %s count: %w", service, err)
	}
	for _, v := range row {
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, fmt.Errorf("decoding %s count %q: %w", service, v, err)
		}
		return n, nil
	}
	return 0, nil
}

// Search routes crit to the matching query: a criteria query when any
// metadata constraint is set, otherwise a cone search around the coordinates
// or the resolved object.
func (c *Client) Search(ctx context.Context, crit Criteria) ([]types.Observation, error) {
	switch {
	case !crit.IsEmpty():
		return c.QueryCriteria(ctx, crit)
	case crit.Coordinates != nil:
		return c.QueryRegion(ctx, *crit.Coordinates, crit.Radius)
	case crit.ObjectName != "":
		return c.QueryObject(ctx, crit.ObjectName, crit.Radius)
	}
	return nil, ErrNoCriteria
}

// Count returns the number of observations Search would return. Criteria
// queries are counted by the archive; cone searches have no count service,
// so their results are fetched and counted.
func (c *Client) Count(ctx context.Context, crit Criteria) (int, error) {
	if !crit.IsEmpty() {
		return c.QueryCriteriaCount(ctx, crit)
	}
	obs, err := c.Search(ctx, crit)
	if err != nil {
		return 0, err
	}
	return len(obs), nil
}

func (c *Client) criteriaParams(ctx context.Context, crit Criteria, columns string) (string, map[string]any, error) {
	if crit.IsEmpty() {
		return "", nil, ErrEmptyCriteria
	}
	params := map[string]any{
		"columns": columns,
		"filters": crit.filters(),
	}
	if crit.Coordinates == nil && crit.ObjectName == "" {
		return serviceFiltered, params, nil
	}

	coords := crit.Coordinates
	if coords == nil {
		resolved, err := c.ResolveObject(ctx, crit.ObjectName)
		if err != nil {
			return "", nil, err
		}
		coords = &resolved
	}
	radius := crit.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}
	params["position"] = coords.String() + ", " + strconv.FormatFloat(radius, 'f', -1, 64)
	return serviceFilteredPosition, params, nil
}
