package osm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/osmatelier/osmatelier/pkg/geo"
)

func TestOverpassBuilder(t *testing.T) {
	bounds := geo.BoundingBox{MinLat: 30.0, MinLon: -98.0, MaxLat: 30.5, MaxLon: -97.5}

	tests := []struct {
		name  string
		query string
		wants []string
	}{
		{
			name:  "road query",
			query: RoadQuery(bounds),
			wants: []string{
				"[out:json][timeout:60];",
				`way[highway~"^(motorway|trunk|primary|secondary|tertiary|residential|unclassified|service)$"]`,
				"(30.000000,-98.000000,30.500000,-97.500000)",
				"out geom;",
			},
		},
		{
			name:  "building query",
			query: BuildingQuery(bounds),
			wants: []string{"way[building](30.000000"},
		},
		{
			name:  "water query has both filters",
			query: WaterQuery(bounds),
			wants: []string{"[natural=water]", "way[waterway]"},
		},
		{
			name:  "park query",
			query: ParkQuery(bounds),
			wants: []string{`[leisure~"^(park|garden|pitch|golf_course)$"]`, `[landuse~`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.wants {
				if !strings.Contains(tt.query, want) {
					t.Errorf("query missing %q:\n%s", want, tt.query)
				}
			}
		})
	}
}

func TestOverpassBuilderAround(t *testing.T) {
	query := NewOverpassBuilder().
		WithCenter(30.2672, -97.7431, 5000).
		WithWay(Tag("highway")).
		Build()

	if !strings.Contains(query, "(around:5000.0,30.267200,-97.743100)") {
		t.Errorf("query missing around filter:\n%s", query)
	}
}

func TestBuildTagFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter TagFilter
		want   string
	}{
		{"existence", Tag("building"), "[building]"},
		{"single value", Tag("natural", "water"), "[natural=water]"},
		{"multiple values", Tag("leisure", "park", "garden"), `[leisure~"park|garden"]`},
		{"regex", TagRegex("highway", "^primary$"), `[highway~"^primary$"]`},
		{"exclude existence", NotTag("access"), "[!access]"},
		{"exclude value", NotTag("access", "private"), "[access!=private]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildTagFilter(tt.filter); got != tt.want {
				t.Errorf("buildTagFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func overpassFixture(roadName string) string {
	return fmt.Sprintf(`{"version":0.6,"generator":"test","elements":[
		{"type":"way","id":1,"tags":{"highway":"primary","name":%q},
		 "geometry":[{"lat":30.1,"lon":-97.9},{"lat":30.2,"lon":-97.8}]}
	]}`, roadName)
}

func TestFetchMapData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("bad form: %v", err)
		}
		data := r.Form.Get("data")
		if data == "" {
			t.Error("missing data parameter")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, overpassFixture("Congress Avenue"))
	}))
	defer server.Close()

	oldURL := OverpassBaseURL
	OverpassBaseURL = server.URL
	defer func() { OverpassBaseURL = oldURL }()

	c := NewClient(nil)
	defer c.Close()

	bounds := geo.BoundingBox{MinLat: 30.0, MinLon: -98.0, MaxLat: 30.5, MaxLon: -97.5}
	data, err := c.FetchMapData(context.Background(), bounds, LayerOptions{Water: true, Parks: true})
	if err != nil {
		t.Fatalf("FetchMapData() error = %v", err)
	}

	if len(data.Roads) != 1 {
		t.Fatalf("roads = %d, want 1", len(data.Roads))
	}
	road := data.Roads[0]
	if road.Highway() != "primary" {
		t.Errorf("highway = %q, want primary", road.Highway())
	}
	if road.Name() != "Congress Avenue" {
		t.Errorf("name = %q", road.Name())
	}
	if len(road.Geometry) != 2 {
		t.Errorf("geometry points = %d, want 2", len(road.Geometry))
	}
	if len(data.Buildings) != 0 {
		t.Errorf("buildings fetched without being requested")
	}
}

func TestFetchMapDataCaches(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		fmt.Fprint(w, overpassFixture("Main St"))
	}))
	defer server.Close()

	oldURL := OverpassBaseURL
	OverpassBaseURL = server.URL
	defer func() { OverpassBaseURL = oldURL }()

	c := NewClient(nil)
	defer c.Close()

	bounds := geo.BoundingBox{MinLat: 30.0, MinLon: -98.0, MaxLat: 30.5, MaxLon: -97.5}
	for i := 0; i < 2; i++ {
		if _, err := c.FetchMapData(context.Background(), bounds, LayerOptions{}); err != nil {
			t.Fatalf("FetchMapData() error = %v", err)
		}
	}

	if n := requests.Load(); n != 1 {
		t.Errorf("server saw %d requests, want 1 (second fetch should hit cache)", n)
	}
}

func TestFetchMapDataRetriesTransientFailures(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, overpassFixture("Main St"))
	}))
	defer server.Close()

	oldURL := OverpassBaseURL
	OverpassBaseURL = server.URL
	defer func() { OverpassBaseURL = oldURL }()

	c := NewClient(nil)
	defer c.Close()

	bounds := geo.BoundingBox{MinLat: 30.0, MinLon: -98.0, MaxLat: 30.5, MaxLon: -97.5}
	data, err := c.FetchMapData(context.Background(), bounds, LayerOptions{})
	if err != nil {
		t.Fatalf("FetchMapData() error = %v", err)
	}
	if len(data.Roads) != 1 {
		t.Errorf("roads = %d, want 1", len(data.Roads))
	}
	if n := requests.Load(); n != 3 {
		t.Errorf("server saw %d requests, want 3", n)
	}
}

func TestFetchMapDataRoadsRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too busy", http.StatusTooManyRequests)
	}))
	defer server.Close()

	oldURL := OverpassBaseURL
	OverpassBaseURL = server.URL
	defer func() { OverpassBaseURL = oldURL }()

	c := NewClient(nil)
	defer c.Close()

	bounds := geo.BoundingBox{MinLat: 30.0, MinLon: -98.0, MaxLat: 30.5, MaxLon: -97.5}
	if _, err := c.FetchMapData(context.Background(), bounds, LayerOptions{}); err == nil {
		t.Error("expected error when road layer fails")
	}
}
