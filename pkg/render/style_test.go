package render

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"dark gray", "#333333", color.RGBA{0x33, 0x33, 0x33, 0xFF}, false},
		{"white", "#FFFFFF", color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}, false},
		{"lowercase", "#a5bfdd", color.RGBA{0xA5, 0xBF, 0xDD, 0xFF}, false},
		{"missing hash", "333333", color.RGBA{}, true},
		{"too short", "#333", color.RGBA{}, true},
		{"not hex", "#GGGGGG", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStyleByName(t *testing.T) {
	s, err := StyleByName("Minimalist")
	require.NoError(t, err)
	assert.Equal(t, "minimalist", s.Name)

	_, err = StyleByName("vaporwave")
	assert.Error(t, err)
}

func TestMinimalistRoadTiers(t *testing.T) {
	s, err := StyleByName("minimalist")
	require.NoError(t, err)

	motorway := s.RoadStyle("motorway")
	service := s.RoadStyle("service")

	// The hierarchy is darker and wider at the top.
	assert.Equal(t, 4.0, motorway.Width)
	assert.Equal(t, 1.0, service.Width)
	assert.Equal(t, color.RGBA{0x33, 0x33, 0x33, 0xFF}, motorway.Stroke)
	assert.Equal(t, color.RGBA{0xAA, 0xAA, 0xAA, 0xFF}, service.Stroke)

	// Unknown classes use the fallback.
	assert.Equal(t, s.Fallback, s.RoadStyle("living_street"))
}

func TestAllPresetsComplete(t *testing.T) {
	for _, name := range StyleNames() {
		t.Run(name, func(t *testing.T) {
			s, err := StyleByName(name)
			require.NoError(t, err)

			assert.Equal(t, name, s.Name)
			assert.NotEmpty(t, s.Roads)
			assert.NotZero(t, s.Fallback.Width)
			for class, ls := range s.Roads {
				assert.NotZero(t, ls.Width, "class %s has zero width", class)
			}
		})
	}
}
