// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mast

import (
	"context"
	"errors"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/pdiddy/mastget/pkg/types"
)

const serviceProducts = "Mast.Caom.Products"

// ErrNoObservations is returned when a product listing is requested for no observations.
var ErrNoObservations = errors.New("no observation identifiers given")

// ListProducts returns the data products attached to the given observations.
// The archive may return the same file once per observation that shares it;
// rows are passed through as received.
func (c *Client) ListProducts(ctx context.Context, obsIDs []string) ([]types.Product, error) {
	var ids []string
	for _, id := range obsIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, ErrNoObservations
	}
	rows, err := c.Invoke(ctx, serviceProducts, map[string]any{
		"obsid": strings.Join(ids, ","),
	})
	if err != nil {
		return nil, err
	}
	return decodeRows[types.Product](serviceProducts, rows)
}

// ObsIDs returns the product-listing identifiers of observations in order,
// trimmed, skipping blanks.
func ObsIDs(obs []types.Observation) []string {
	ids := make([]string, 0, len(obs))
	for _, o := range obs {
		if id := strings.TrimSpace(o.ObsID.String()); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// ProductFilter narrows a product listing. Fields combine with AND, values
// within a field with OR. Empty fields do not constrain. String comparisons
// ignore case.
type ProductFilter struct {
	// ProductTypes matches Product.ProductType (e.g. SCIENCE).
	ProductTypes []string

	// CalibLevels matches Product.CalibLevel.
	CalibLevels []int

	// SubGroups matches Product.SubGroupDescription (e.g. CAL, I2D, X1D).
	SubGroups []string

	// Extensions matches the end of Product.Filename (e.g. "fits", "_cal.fits").
	Extensions []string

	// MRPOnly keeps only minimum recommended products.
	MRPOnly bool
}

// IsEmpty reports whether the filter keeps every product.
func (f ProductFilter) IsEmpty() bool {
	return len(f.ProductTypes) == 0 && len(f.CalibLevels) == 0 &&
		len(f.SubGroups) == 0 && len(f.Extensions) == 0 && !f.MRPOnly
}

// Match reports whether p satisfies the filter.
func (f ProductFilter) Match(p types.Product) bool {
	if f.MRPOnly && !strings.EqualFold(p.GroupDescription, types.MinimumRecommended) {
		return false
	}
	if len(f.ProductTypes) > 0 && !containsFold(f.ProductTypes, p.ProductType) {
		return false
	}
	if len(f.CalibLevels) > 0 && !slices.Contains(f.CalibLevels, int(p.CalibLevel)) {
		return false
	}
	if len(f.SubGroups) > 0 && !containsFold(f.SubGroups, p.SubGroupDescription) {
		return false
	}
	if len(f.Extensions) > 0 && !hasExtension(p.Filename, f.Extensions) {
		return false
	}
	return true
}

// FilterProducts returns the products that satisfy f, preserving order.
func FilterProducts(products []types.Product, f ProductFilter) []types.Product {
	out := make([]types.Product, 0, len(products))
	for _, p := range products {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

// ParseLevels parses calibration levels such as "2,3".
func ParseLevels(values []string) ([]int, error) {
	var levels []int
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, err
			}
			levels = append(levels, n)
		}
	}
	return levels, nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

func hasExtension(filename string, exts []string) bool {
	name := strings.ToLower(path.Base(filename))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") && !strings.HasPrefix(ext, "_") {
			ext = "." + ext
		}
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
