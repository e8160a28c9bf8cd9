package pbf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmatelier/osmatelier/pkg/geo"
	"github.com/osmatelier/osmatelier/pkg/osm"
)

func TestCollectNodes(t *testing.T) {
	bounds := geo.BoundingBox{MinLat: 30.0, MinLon: -98.0, MaxLat: 30.5, MaxLon: -97.5}

	dec := &fakeDecoder{elements: []interface{}{
		node(1, 30.25, -97.75, nil),
		node(2, 45.0, 7.0, nil), // far outside bounds
		node(3, 30.40, -97.60, nil),
		way(10, []int64{1, 3}, map[string]string{"highway": "primary"}),
	}}

	coords, err := collectNodes(context.Background(), dec, bounds, nil)
	require.NoError(t, err)

	assert.Len(t, coords, 2)
	assert.Contains(t, coords, int64(1))
	assert.NotContains(t, coords, int64(2))
}

func TestClassifyWay(t *testing.T) {
	all := osm.LayerOptions{Buildings: true, Water: true, Parks: true}

	tests := []struct {
		name   string
		tags   map[string]string
		layers osm.LayerOptions
		want   string
	}{
		{"primary road", map[string]string{"highway": "primary"}, all, "road"},
		{"link road", map[string]string{"highway": "motorway_link"}, all, "road"},
		{"footway skipped", map[string]string{"highway": "footway"}, all, ""},
		{"building", map[string]string{"building": "yes"}, all, "building"},
		{"building disabled", map[string]string{"building": "yes"}, osm.LayerOptions{}, ""},
		{"lake", map[string]string{"natural": "water"}, all, "water"},
		{"stream", map[string]string{"waterway": "stream"}, all, "water"},
		{"park", map[string]string{"leisure": "park"}, all, "park"},
		{"golf course", map[string]string{"leisure": "golf_course"}, all, "park"},
		{"forest", map[string]string{"landuse": "forest"}, all, "park"},
		{"untagged", map[string]string{}, all, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyWay(tt.tags, tt.layers))
		})
	}
}

func TestCollectWays(t *testing.T) {
	coords := map[int64]osm.LatLon{
		1: {Lat: 30.25, Lon: -97.75},
		2: {Lat: 30.30, Lon: -97.70},
		3: {Lat: 30.35, Lon: -97.65},
	}

	dec := &fakeDecoder{elements: []interface{}{
		way(10, []int64{1, 2, 3}, map[string]string{"highway": "secondary", "name": "Lamar Blvd"}),
		// One ref outside the index; geometry shrinks but the way survives.
		way(11, []int64{1, 2, 99}, map[string]string{"highway": "trunk_link"}),
		// All refs outside the index; dropped.
		way(12, []int64{98, 99}, map[string]string{"highway": "primary"}),
		way(13, []int64{1, 2}, map[string]string{"leisure": "golf_course"}),
		way(14, []int64{1, 2}, map[string]string{"highway": "footway"}),
	}}

	data, err := collectWays(context.Background(), dec, coords, osm.LayerOptions{Parks: true})
	require.NoError(t, err)

	require.Len(t, data.Roads, 2)
	assert.Equal(t, "Lamar Blvd", data.Roads[0].Name())
	assert.Len(t, data.Roads[0].Geometry, 3)

	// Link roads are folded onto their parent class.
	assert.Equal(t, "trunk", data.Roads[1].Highway())
	assert.Len(t, data.Roads[1].Geometry, 2)

	require.Len(t, data.Parks, 1)
	assert.Equal(t, int64(13), data.Parks[0].ID)
}

func TestNormalizeHighway(t *testing.T) {
	assert.Equal(t, "motorway", normalizeHighway("motorway_link"))
	assert.Equal(t, "primary", normalizeHighway("primary"))
}

func TestFilterFileInvalidCenter(t *testing.T) {
	_, err := FilterFile(context.Background(), "ignored.pbf", geo.Location{Latitude: 200}, 5, FilterOptions{})
	assert.Error(t, err)
}
