package render

import (
	"github.com/osmatelier/osmatelier/pkg/geo"
)

// paddingFraction is the margin added around the data on each side.
const paddingFraction = 0.05

// Projection maps geographic coordinates onto the canvas in millimeters,
// preserving aspect ratio and centering the content. The canvas origin is
// bottom-left with y increasing upward, matching latitude, so no flip is
// needed.
type Projection struct {
	minLat, minLon float64
	scale          float64
	offsetX        float64
	offsetY        float64
}

// NewProjection fits the padded bounds into a canvas of the given size.
func NewProjection(bounds geo.BoundingBox, widthMM, heightMM float64) Projection {
	latRange := bounds.MaxLat - bounds.MinLat
	lonRange := bounds.MaxLon - bounds.MinLon

	// Degenerate bounds still need a usable projection.
	if latRange <= 0 {
		latRange = 1e-6
	}
	if lonRange <= 0 {
		lonRange = 1e-6
	}

	minLat := bounds.MinLat - latRange*paddingFraction
	minLon := bounds.MinLon - lonRange*paddingFraction
	latRange *= 1 + 2*paddingFraction
	lonRange *= 1 + 2*paddingFraction

	scaleX := widthMM / lonRange
	scaleY := heightMM / latRange
	scale := scaleX
	if scaleY < scale {
		scale = scaleY
	}

	return Projection{
		minLat:  minLat,
		minLon:  minLon,
		scale:   scale,
		offsetX: (widthMM - lonRange*scale) / 2,
		offsetY: (heightMM - latRange*scale) / 2,
	}
}

// Project converts a coordinate to canvas millimeters.
func (p Projection) Project(lat, lon float64) (x, y float64) {
	x = (lon-p.minLon)*p.scale + p.offsetX
	y = (lat-p.minLat)*p.scale + p.offsetY
	return x, y
}
