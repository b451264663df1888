// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mastget/pkg/types"
)

var sampleObservations = []any{
	map[string]any{
		"obsid": 87602009, "obs_id": "jw02736-o001_t001_nircam_clear-f090w",
		"obs_collection": "JWST", "instrument_name": "NIRCAM/IMAGE",
		"proposal_id": "2736", "target_name": "SMACS0723", "calib_level": 3,
		"s_ra": 110.83, "s_dec": -73.45, "dataproduct_type": "image",
	},
	map[string]any{
		"obsid": "87602010", "obs_id": "jw02736-o001_t001_nircam_clear-f150w",
		"obs_collection": "JWST", "instrument_name": "NIRCAM/IMAGE",
		"proposal_id": "2736", "target_name": "SMACS0723", "calib_level": "3",
	},
}

func TestResolveObject(t *testing.T) {
	fa := newFakeArchive(t)
	fa.handle(serviceNameLookup, func(c invokeCall) any {
		if c.Params["input"] != "M101" {
			return map[string]any{"resolvedCoordinate": []any{}}
		}
		return map[string]any{
			"resolvedCoordinate": []any{
				map[string]any{"canonicalName": "MESSIER 101", "ra": 210.80227, "decl": 54.34895},
			},
			"status": "",
		}
	})
	c := fa.client()

	coords, err := c.ResolveObject(context.Background(), "M101")
	require.NoError(t, err)
	assert.InDelta(t, 210.80227, coords.RA, 1e-9)
	assert.InDelta(t, 54.34895, coords.Dec, 1e-9)

	_, err = c.ResolveObject(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrUnresolved)

	_, err = c.ResolveObject(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestQueryRegion(t *testing.T) {
	fa := newFakeArchive(t)
	fa.handle(serviceCone, func(invokeCall) any { return complete(sampleObservations...) })

	obs, err := fa.client().QueryRegion(context.Background(), types.Coordinates{RA: 110.83, Dec: -73.45}, 0)
	require.NoError(t, err)
	require.Len(t, obs, 2)

	assert.Equal(t, types.ID("87602009"), obs[0].ObsID)
	assert.Equal(t, types.ID("87602010"), obs[1].ObsID)
	assert.Equal(t, types.Level(3), obs[1].CalibLevel)
	assert.Equal(t, "JWST", obs[0].Collection)

	calls := fa.callsFor(serviceCone)
	require.Len(t, calls, 1)
	assert.Equal(t, DefaultRadius, calls[0].Params["radius"])
	assert.Equal(t, 110.83, calls[0].Params["ra"])
}

func TestQueryObject(t *testing.T) {
	fa := newFakeArchive(t)
	fa.handle(serviceNameLookup, func(invokeCall) any {
		return map[string]any{"resolvedCoordinate": []any{map[string]any{"ra": 10.0, "decl": 20.0}}}
	})
	fa.handle(serviceCone, func(invokeCall) any { return complete(sampleObservations[0]) })

	obs, err := fa.client().QueryObject(context.Background(), "M31", 0.5)
	require.NoError(t, err)
	assert.Len(t, obs, 1)

	calls := fa.callsFor(serviceCone)
	require.Len(t, calls, 1)
	assert.Equal(t, 10.0, calls[0].Params["ra"])
	assert.Equal(t, 20.0, calls[0].Params["dec"])
	assert.Equal(t, 0.5, calls[0].Params["radius"])
}

func TestQueryCriteria_Filters(t *testing.T) {
	fa := newFakeArchive(t)
	fa.handle(serviceFiltered, func(invokeCall) any { return complete(sampleObservations...) })

	obs, err := fa.client().QueryCriteria(context.Background(), Criteria{
		Collections: []string{"JWST"},
		ProposalIDs: []string{"2736"},
		Instruments: []string{" ", "NIRCAM/IMAGE"},
		CalibLevels: []int{3},
	})
	require.NoError(t, err)
	assert.Len(t, obs, 2)

	calls := fa.callsFor(serviceFiltered)
	require.Len(t, calls, 1)
	assert.Equal(t, "*", calls[0].Params["columns"])
	assert.NotContains(t, calls[0].Params, "position")

	filters, ok := calls[0].Params["filters"].([]any)
	require.True(t, ok)
	got := map[string][]any{}
	for _, f := range filters {
		m := f.(map[string]any)
		got[m["paramName"].(string)] = m["values"].([]any)
	}
	assert.Equal(t, []any{"JWST"}, got["obs_collection"])
	assert.Equal(t, []any{"2736"}, got["proposal_id"])
	assert.Equal(t, []any{"NIRCAM/IMAGE"}, got["instrument_name"])
	assert.Equal(t, []any{float64(3)}, got["calib_level"])
}

func TestQueryCriteria_Position(t *testing.T) {
	fa := newFakeArchive(t)
	fa.handle(serviceFilteredPosition, func(invokeCall) any { return complete(sampleObservations[0]) })

	_, err := fa.client().QueryCriteria(context.Background(), Criteria{
		Collections: []string{"HST"},
		Coordinates: &types.Coordinates{RA: 210.8, Dec: 54.35},
		Radius:      0.02,
	})
	require.NoError(t, err)

	calls := fa.callsFor(serviceFilteredPosition)
	require.Len(t, calls, 1)
	assert.Equal(t, "210.8, 54.35, 0.02", calls[0].Params["position"])
}

func TestQueryCriteria_Empty(t *testing.T) {
	fa := newFakeArchive(t)
	c := fa.client()

	_, err := c.QueryCriteria(context.Background(), Criteria{})
	assert.ErrorIs(t, err, ErrEmptyCriteria)

	_, err = c.QueryCriteria(context.Background(), Criteria{ObjectName: "M101"})
	assert.ErrorIs(t, err, ErrEmptyCriteria)
	assert.Empty(t, fa.callsFor(serviceNameLookup))
}

func TestQueryCriteriaCount(t *testing.T) {
	fa := newFakeArchive(t)
	fa.handle(serviceFiltered, func(c invokeCall) any {
		if c.Params["columns"] != "COUNT_BIG(*)" {
			return map[string]any{"status": "ERROR", "msg": "wrong columns"}
		}
		return complete(map[string]any{"Column1": 1234})
	})

	n, err := fa.client().QueryCriteriaCount(context.Background(), Criteria{Collections: []string{"TESS"}})
	require.NoError(t, err)
	assert.Equal(t, 1234, n)
}

func TestSearch_Routing(t *testing.T) {
	fa := newFakeArchive(t)
	fa.handle(serviceFiltered, func(invokeCall) any { return complete(sampleObservations...) })
	fa.handle(serviceCone, func(invokeCall) any { return complete(sampleObservations[0]) })
	fa.handle(serviceNameLookup, func(invokeCall) any {
		return map[string]any{"resolvedCoordinate": []any{map[string]any{"ra": 10.0, "decl": 20.0}}}
	})
	c := fa.client()
	ctx := context.Background()

	obs, err := c.Search(ctx, Criteria{Collections: []string{"JWST"}})
	require.NoError(t, err)
	assert.Len(t, obs, 2)

	obs, err = c.Search(ctx, Criteria{Coordinates: &types.Coordinates{RA: 1, Dec: 2}})
	require.NoError(t, err)
	assert.Len(t, obs, 1)

	obs, err = c.Search(ctx, Criteria{ObjectName: "M101"})
	require.NoError(t, err)
	assert.Len(t, obs, 1)
	assert.Len(t, fa.callsFor(serviceNameLookup), 1)

	_, err = c.Search(ctx, Criteria{})
	assert.ErrorIs(t, err, ErrNoCriteria)
}

func TestCount(t *testing.T) {
	fa := newFakeArchive(t)
	fa.handle(serviceFiltered, func(invokeCall) any { return complete(map[string]any{"Column1": 77}) })
	fa.handle(serviceCone, func(invokeCall) any { return complete(sampleObservations...) })
	fa.handle(serviceNameLookup, func(invokeCall) any {
		return map[string]any{"resolvedCoordinate": []any{map[string]any{"ra": 10.0, "decl": 20.0}}}
	})
	c := fa.client()
	ctx := context.Background()

	tests := []struct {
		name string
		crit Criteria
		want int
	}{
		{"metadata uses archive count", Criteria{Collections: []string{"HST"}}, 77},
		{"position only counts cone rows", Criteria{Coordinates: &types.Coordinates{RA: 1, Dec: 2}}, 2},
		{"object only counts cone rows", Criteria{ObjectName: "M101"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := c.Count(ctx, tt.crit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	_, err := c.Count(ctx, Criteria{})
	assert.ErrorIs(t, err, ErrNoCriteria)
}

func TestCoordinatesString(t *testing.T) {
	assert.Equal(t, "210.80227, 54.34895", types.Coordinates{RA: 210.80227, Dec: 54.34895}.String())
	assert.Equal(t, "0, -5.5", types.Coordinates{RA: 0, Dec: -5.5}.String())
}
