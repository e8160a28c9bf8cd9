package geo

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

func TestValidateCoords(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{name: "valid city center", lat: 30.2672, lon: -97.7431, wantErr: false},
		{name: "equator prime meridian", lat: 0, lon: 0, wantErr: false},
		{name: "extreme valid", lat: 90, lon: 180, wantErr: false},
		{name: "latitude too high", lat: 90.01, lon: 0, wantErr: true},
		{name: "latitude too low", lat: -91, lon: 0, wantErr: true},
		{name: "longitude too high", lat: 0, lon: 180.5, wantErr: true},
		{name: "longitude too low", lat: 0, lon: -181, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoords(tt.lat, tt.lon)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoords(%f, %f) error = %v, wantErr %v", tt.lat, tt.lon, err, tt.wantErr)
			}
		})
	}
}

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		want       float64 // meters
		tol        float64
	}{
		{name: "same point", lat1: 48.8566, lon1: 2.3522, lat2: 48.8566, lon2: 2.3522, want: 0, tol: 0.001},
		{name: "Paris to London", lat1: 48.8566, lon1: 2.3522, lat2: 51.5074, lon2: -0.1278, want: 343500, tol: 1500},
		{name: "one degree latitude", lat1: 0, lon1: 0, lat2: 1, lon2: 0, want: 111195, tol: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineDistance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if !almostEqual(got, tt.want, tt.tol) {
				t.Errorf("HaversineDistance() = %f, want %f +/- %f", got, tt.want, tt.tol)
			}
		})
	}
}

func TestBoundingBoxExtend(t *testing.T) {
	bbox := NewBoundingBox()
	if !bbox.IsEmpty() {
		t.Fatal("new bounding box should be empty")
	}

	bbox.ExtendWithPoint(30.0, -97.0)
	bbox.ExtendWithPoint(30.5, -97.8)
	bbox.ExtendWithPoint(29.9, -97.2)

	if bbox.IsEmpty() {
		t.Fatal("extended bounding box should not be empty")
	}
	if bbox.MinLat != 29.9 || bbox.MaxLat != 30.5 {
		t.Errorf("latitude range = [%f, %f], want [29.9, 30.5]", bbox.MinLat, bbox.MaxLat)
	}
	if bbox.MinLon != -97.8 || bbox.MaxLon != -97.0 {
		t.Errorf("longitude range = [%f, %f], want [-97.8, -97.0]", bbox.MinLon, bbox.MaxLon)
	}

	center := bbox.Center()
	if !almostEqual(center.Latitude, 30.2, 1e-9) || !almostEqual(center.Longitude, -97.4, 1e-9) {
		t.Errorf("center = %+v, want (30.2, -97.4)", center)
	}
}

func TestBoundsAround(t *testing.T) {
	center := Location{Latitude: 30.2672, Longitude: -97.7431}
	bounds := BoundsAround(center, 5)

	// 5km is about 0.045 degrees of latitude.
	latSpan := bounds.MaxLat - bounds.MinLat
	if !almostEqual(latSpan, 2*5/111.0, 1e-9) {
		t.Errorf("latitude span = %f, want %f", latSpan, 2*5/111.0)
	}

	// Longitude span must be wider than latitude span away from the equator.
	lonSpan := bounds.MaxLon - bounds.MinLon
	if lonSpan <= latSpan {
		t.Errorf("longitude span %f should exceed latitude span %f at lat %f", lonSpan, latSpan, center.Latitude)
	}

	if !bounds.Contains(center.Latitude, center.Longitude) {
		t.Error("bounds should contain the center point")
	}

	t.Run("equator is square", func(t *testing.T) {
		b := BoundsAround(Location{}, 2)
		if !almostEqual(b.MaxLat-b.MinLat, b.MaxLon-b.MinLon, 1e-9) {
			t.Errorf("spans differ at equator: lat %f lon %f", b.MaxLat-b.MinLat, b.MaxLon-b.MinLon)
		}
	})
}
