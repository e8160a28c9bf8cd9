package pbf

import (
	"context"
	"io"
	"testing"

	"github.com/qedus/osmpbf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDecoder replays a fixed element stream.
type fakeDecoder struct {
	elements []interface{}
	pos      int
}

func (d *fakeDecoder) Decode() (interface{}, error) {
	if d.pos >= len(d.elements) {
		return nil, io.EOF
	}
	v := d.elements[d.pos]
	d.pos++
	return v, nil
}

func node(id int64, lat, lon float64, tags map[string]string) *osmpbf.Node {
	return &osmpbf.Node{ID: id, Lat: lat, Lon: lon, Tags: tags}
}

func way(id int64, refs []int64, tags map[string]string) *osmpbf.Way {
	return &osmpbf.Way{ID: id, NodeIDs: refs, Tags: tags}
}

func TestSummarize(t *testing.T) {
	dec := &fakeDecoder{elements: []interface{}{
		node(1, 30.10, -97.90, nil),
		node(2, 30.20, -97.80, map[string]string{"amenity": "cafe"}),
		node(3, 30.30, -97.70, map[string]string{"shop": "bakery"}),
		way(10, []int64{1, 2}, map[string]string{"highway": "primary"}),
		way(11, []int64{2, 3}, map[string]string{"highway": "primary"}),
		way(12, []int64{1, 3}, map[string]string{"building": "yes"}),
		&osmpbf.Relation{ID: 20},
	}}

	summary, err := Summarize(context.Background(), dec, Options{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.Nodes)
	assert.Equal(t, int64(3), summary.Ways)
	assert.Equal(t, int64(1), summary.Relations)

	require.NotNil(t, summary.Bounds)
	assert.InDelta(t, 30.10, summary.Bounds.MinLat, 1e-9)
	assert.InDelta(t, 30.30, summary.Bounds.MaxLat, 1e-9)
	assert.InDelta(t, -97.90, summary.Bounds.MinLon, 1e-9)
	assert.InDelta(t, -97.70, summary.Bounds.MaxLon, 1e-9)

	// Only tagged nodes are sampled.
	require.Len(t, summary.SampleNodes, 2)
	assert.Equal(t, int64(2), summary.SampleNodes[0].ID)

	assert.Equal(t, int64(2), summary.HighwayCounts["primary"])
	assert.NotContains(t, summary.HighwayCounts, "building")
}

func TestSummarizeEmpty(t *testing.T) {
	summary, err := Summarize(context.Background(), &fakeDecoder{}, Options{})
	require.NoError(t, err)

	assert.Zero(t, summary.Nodes)
	assert.Nil(t, summary.Bounds)
	assert.Empty(t, summary.SampleNodes)
}

func TestSummarizeSampleLimit(t *testing.T) {
	var elements []interface{}
	for i := 0; i < 300; i++ {
		elements = append(elements, node(int64(i), 30.0, -97.0, map[string]string{"name": "x"}))
	}

	summary, err := Summarize(context.Background(), &fakeDecoder{elements: elements}, Options{SampleLimit: 150})
	require.NoError(t, err)

	assert.Equal(t, int64(300), summary.Nodes)
	assert.Len(t, summary.SampleNodes, 150)
}

func TestSampleLimitClamping(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero means default", 0, DefaultSampleLimit},
		{"below minimum", 5, MinSampleLimit},
		{"above maximum", 100000, MaxSampleLimit},
		{"in range", 2500, 2500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Options{SampleLimit: tt.limit}.sampleLimit())
		})
	}
}

func TestSummarizeFileMissing(t *testing.T) {
	_, err := SummarizeFile(context.Background(), "/nonexistent/extract.osm.pbf", Options{})
	assert.Error(t, err)
}
