// Package render turns filtered OpenStreetMap ways into print-quality
// vector posters.
package render

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
)

// LineStyle describes how one road class is stroked. Width is a relative
// weight; the renderer scales it to the physical canvas size.
type LineStyle struct {
	Stroke color.RGBA
	Width  float64
}

// FillStyle describes how an area layer is painted.
type FillStyle struct {
	Fill        color.RGBA
	Stroke      color.RGBA
	StrokeWidth float64
}

// Style is a complete poster color scheme.
type Style struct {
	Name       string
	Background color.RGBA

	// Roads maps highway tag values to line styles. Classes not present
	// fall back to Fallback.
	Roads    map[string]LineStyle
	Fallback LineStyle

	Building FillStyle
	Water    FillStyle
	Park     FillStyle

	TextColor color.RGBA
}

// RoadStyle returns the line style for a highway class.
func (s *Style) RoadStyle(highway string) LineStyle {
	if ls, ok := s.Roads[highway]; ok {
		return ls
	}
	return s.Fallback
}

// ParseHexColor parses a #RRGGBB color string.
func ParseHexColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

func hex(s string) color.RGBA {
	c, err := ParseHexColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

var white = color.RGBA{255, 255, 255, 255}

// grayRoadTiers is the four-tier grayscale ramp used by the minimalist look:
// darker and wider for major roads, lighter and thinner for minor ones.
func grayRoadTiers() map[string]LineStyle {
	return map[string]LineStyle{
		"motorway":     {hex("#333333"), 4},
		"trunk":        {hex("#333333"), 3.5},
		"primary":      {hex("#666666"), 3},
		"secondary":    {hex("#888888"), 2.5},
		"tertiary":     {hex("#888888"), 2},
		"residential":  {hex("#AAAAAA"), 1.5},
		"unclassified": {hex("#AAAAAA"), 1},
		"service":      {hex("#AAAAAA"), 1},
	}
}

func monoRoadTiers(c color.RGBA) map[string]LineStyle {
	tiers := grayRoadTiers()
	for k, ls := range tiers {
		ls.Stroke = c
		tiers[k] = ls
	}
	return tiers
}

var presets = map[string]Style{
	"minimalist": {
		Name:       "minimalist",
		Background: white,
		Roads:      grayRoadTiers(),
		Fallback:   LineStyle{hex("#AAAAAA"), 1},
		Building:   FillStyle{Fill: hex("#CCCCCC")},
		Water:      FillStyle{Fill: hex("#A5BFDD")},
		Park:       FillStyle{Fill: hex("#B8D6B8")},
		TextColor:  hex("#666666"),
	},
	"detailed": {
		Name:       "detailed",
		Background: white,
		Roads:      monoRoadTiers(hex("#000000")),
		Fallback:   LineStyle{hex("#000000"), 1.5},
		Building:   FillStyle{Fill: hex("#BC9B7A"), Stroke: hex("#8B7355"), StrokeWidth: 0.5},
		Water:      FillStyle{Fill: hex("#A5BFDD"), Stroke: hex("#7FA1C7"), StrokeWidth: 0.5},
		Park:       FillStyle{Fill: hex("#B8D6B8"), Stroke: hex("#98B698"), StrokeWidth: 0.5},
		TextColor:  hex("#333333"),
	},
	"artistic": {
		Name:       "artistic",
		Background: white,
		Roads:      monoRoadTiers(hex("#2F4F4F")),
		Fallback:   LineStyle{hex("#2F4F4F"), 2},
		Building:   FillStyle{Fill: hex("#DEB887"), Stroke: hex("#8B7355"), StrokeWidth: 0.5},
		Water:      FillStyle{Fill: hex("#B0E0E6"), Stroke: hex("#87CEEB"), StrokeWidth: 0.5},
		Park:       FillStyle{Fill: hex("#90EE90"), Stroke: hex("#228B22"), StrokeWidth: 0.5},
		TextColor:  hex("#2F4F4F"),
	},
	"high-contrast": {
		Name:       "high-contrast",
		Background: white,
		Roads:      monoRoadTiers(hex("#000000")),
		Fallback:   LineStyle{hex("#000000"), 1},
		Building:   FillStyle{Fill: hex("#222222")},
		Water:      FillStyle{Fill: hex("#DDDDDD")},
		Park:       FillStyle{Fill: hex("#EEEEEE")},
		TextColor:  hex("#000000"),
	},
	"blueprint": {
		Name:       "blueprint",
		Background: hex("#1E3A5F"),
		Roads:      monoRoadTiers(white),
		Fallback:   LineStyle{white, 1},
		Building:   FillStyle{Stroke: hex("#9DB8D9"), StrokeWidth: 0.5},
		Water:      FillStyle{Fill: hex("#16293F")},
		Park:       FillStyle{Fill: hex("#27476B")},
		TextColor:  hex("#C8D8EC"),
	},
}

// StyleByName looks up a preset case-insensitively.
func StyleByName(name string) (Style, error) {
	s, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Style{}, fmt.Errorf("unknown style %q (available: %s)",
			name, strings.Join(StyleNames(), ", "))
	}
	return s, nil
}

// StyleNames returns the available preset names, sorted.
func StyleNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
