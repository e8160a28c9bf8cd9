package osm

// LatLon is a coordinate pair as returned inside Overpass geometry arrays.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// OverpassElement represents an element returned from the Overpass API
type OverpassElement struct {
	ID     int64   `json:"id"`
	Type   string  `json:"type"`
	Lat    float64 `json:"lat,omitempty"`
	Lon    float64 `json:"lon,omitempty"`
	Center *LatLon `json:"center,omitempty"`
	// Geometry holds the way's node coordinates when queried with "out geom".
	Geometry []LatLon          `json:"geometry,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
	Nodes    []int64           `json:"nodes,omitempty"`
}

// OverpassResponse is the top-level Overpass JSON document.
type OverpassResponse struct {
	Version   float64           `json:"version"`
	Generator string            `json:"generator"`
	Elements  []OverpassElement `json:"elements"`
}

// Highway returns the element's highway tag, or "" if it has none.
func (e *OverpassElement) Highway() string {
	return e.Tags["highway"]
}

// Name returns the element's name tag, or "" if it has none.
func (e *OverpassElement) Name() string {
	return e.Tags["name"]
}

// MapData holds the layered map features for one render: roads plus the
// optional context layers underneath them.
type MapData struct {
	Roads     []OverpassElement
	Buildings []OverpassElement
	Water     []OverpassElement
	Parks     []OverpassElement
}

// WayCount returns the total number of ways across all layers.
func (d *MapData) WayCount() int {
	return len(d.Roads) + len(d.Buildings) + len(d.Water) + len(d.Parks)
}
