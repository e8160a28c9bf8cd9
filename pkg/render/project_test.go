package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osmatelier/osmatelier/pkg/geo"
)

func TestProjectionCornersStayInside(t *testing.T) {
	bounds := geo.BoundingBox{MinLat: 30.0, MinLon: -98.0, MaxLat: 30.5, MaxLon: -97.5}
	proj := NewProjection(bounds, 200, 300)

	corners := [][2]float64{
		{bounds.MinLat, bounds.MinLon},
		{bounds.MinLat, bounds.MaxLon},
		{bounds.MaxLat, bounds.MinLon},
		{bounds.MaxLat, bounds.MaxLon},
	}
	for _, c := range corners {
		x, y := proj.Project(c[0], c[1])
		assert.GreaterOrEqual(t, x, 0.0)
		assert.LessOrEqual(t, x, 200.0)
		assert.GreaterOrEqual(t, y, 0.0)
		assert.LessOrEqual(t, y, 300.0)
	}
}

func TestProjectionPreservesAspect(t *testing.T) {
	// A square degree region on a tall canvas must scale x and y equally.
	bounds := geo.BoundingBox{MinLat: 0, MinLon: 0, MaxLat: 1, MaxLon: 1}
	proj := NewProjection(bounds, 100, 200)

	x0, y0 := proj.Project(0, 0)
	x1, y1 := proj.Project(1, 1)

	assert.InDelta(t, x1-x0, y1-y0, 1e-9)
}

func TestProjectionCentersContent(t *testing.T) {
	bounds := geo.BoundingBox{MinLat: 0, MinLon: 0, MaxLat: 1, MaxLon: 1}
	proj := NewProjection(bounds, 100, 200)

	// The square content should sit centered in the tall canvas.
	_, yMin := proj.Project(bounds.MinLat, 0)
	_, yMax := proj.Project(bounds.MaxLat, 0)
	assert.InDelta(t, yMin-0, 200-yMax, 1e-9)
}

func TestProjectionNorthIsUp(t *testing.T) {
	bounds := geo.BoundingBox{MinLat: 30.0, MinLon: -98.0, MaxLat: 30.5, MaxLon: -97.5}
	proj := NewProjection(bounds, 200, 300)

	_, ySouth := proj.Project(30.0, -97.75)
	_, yNorth := proj.Project(30.5, -97.75)
	assert.Greater(t, yNorth, ySouth)
}

func TestProjectionPadding(t *testing.T) {
	bounds := geo.BoundingBox{MinLat: 0, MinLon: 0, MaxLat: 1, MaxLon: 1}
	proj := NewProjection(bounds, 100, 100)

	// With 5% padding on each side, a square region spans 100/1.1 of a
	// square canvas.
	x0, _ := proj.Project(0, 0)
	x1, _ := proj.Project(0, 1)
	assert.InDelta(t, 100.0/1.1, x1-x0, 1e-9)
}

func TestProjectionDegenerateBounds(t *testing.T) {
	bounds := geo.BoundingBox{MinLat: 30.0, MinLon: -97.0, MaxLat: 30.0, MaxLon: -97.0}
	proj := NewProjection(bounds, 100, 100)

	x, y := proj.Project(30.0, -97.0)
	assert.False(t, x != x || y != y, "projection produced NaN")
}
