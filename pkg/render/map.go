package render

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/tdewolff/canvas"

	"github.com/osmatelier/osmatelier/pkg/geo"
	"github.com/osmatelier/osmatelier/pkg/osm"
)

const mmPerInch = 25.4

// strokeMMPerWeight converts a style weight to millimeters. Weights are
// calibrated as pixels at 300 DPI so the line hierarchy prints the same at
// any paper size.
const strokeMMPerWeight = mmPerInch / 300

// Paper is a named output size.
type Paper struct {
	Name     string
	WidthIn  float64
	HeightIn float64
}

// WidthMM returns the paper width in millimeters.
func (p Paper) WidthMM() float64 { return p.WidthIn * mmPerInch }

// HeightMM returns the paper height in millimeters.
func (p Paper) HeightMM() float64 { return p.HeightIn * mmPerInch }

var papers = map[string]Paper{
	"8x10":  {"8x10", 8, 10},
	"11x14": {"11x14", 11, 14},
	"16x20": {"16x20", 16, 20},
	"18x24": {"18x24", 18, 24},
	"24x36": {"24x36", 24, 36},
	"a4":    {"A4", 8.27, 11.69},
	"a3":    {"A3", 11.69, 16.54},
}

// DefaultPaper is the size used when none is requested.
var DefaultPaper = papers["11x14"]

// PaperByName looks up a paper size case-insensitively.
func PaperByName(name string) (Paper, error) {
	p, ok := papers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Paper{}, fmt.Errorf("unknown paper size %q (available: %s)",
			name, strings.Join(PaperNames(), ", "))
	}
	return p, nil
}

// PaperNames returns the available paper size names, sorted.
func PaperNames() []string {
	names := make([]string, 0, len(papers))
	for name := range papers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// roadDrawOrder lists highway classes minor to major so important roads are
// drawn on top.
var roadDrawOrder = []string{
	"service", "unclassified", "residential",
	"tertiary", "secondary", "primary", "trunk", "motorway",
}

// Options configures a render.
type Options struct {
	Style     Style
	Paper     Paper
	ShowNames bool
}

// Renderer draws map data onto a vector canvas.
type Renderer struct {
	logger *slog.Logger
	opts   Options
}

// NewRenderer creates a renderer for the given options.
func NewRenderer(logger *slog.Logger, opts Options) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Paper.WidthIn == 0 {
		opts.Paper = DefaultPaper
	}
	return &Renderer{logger: logger, opts: opts}
}

// Render draws the layered map data within bounds and returns the canvas.
// Layers stack bottom-up: background, water, parks, buildings, roads.
func (r *Renderer) Render(data *osm.MapData, bounds geo.BoundingBox) *canvas.Canvas {
	width := r.opts.Paper.WidthMM()
	height := r.opts.Paper.HeightMM()

	c := canvas.New(width, height)
	ctx := canvas.NewContext(c)

	style := r.opts.Style

	ctx.SetFillColor(style.Background)
	ctx.DrawPath(0, 0, canvas.Rectangle(width, height))

	proj := NewProjection(bounds, width, height)

	r.drawAreaLayer(ctx, proj, data.Water, style.Water)
	r.drawAreaLayer(ctx, proj, data.Parks, style.Park)
	r.drawAreaLayer(ctx, proj, data.Buildings, style.Building)
	r.drawRoads(ctx, proj, data.Roads, style)

	if r.opts.ShowNames {
		r.drawStreetNames(ctx, proj, data.Roads, style)
	}

	return c
}

// wayPath converts a way's geometry to a canvas path.
func wayPath(proj Projection, way *osm.OverpassElement) *canvas.Path {
	p := &canvas.Path{}
	for i, pt := range way.Geometry {
		x, y := proj.Project(pt.Lat, pt.Lon)
		if i == 0 {
			p.MoveTo(x, y)
		} else {
			p.LineTo(x, y)
		}
	}
	return p
}

// isClosed reports whether a way's geometry forms a ring.
func isClosed(way *osm.OverpassElement) bool {
	n := len(way.Geometry)
	return n > 2 && way.Geometry[0] == way.Geometry[n-1]
}

// drawAreaLayer fills closed ways and strokes open ones (rivers, streams)
// in the layer's fill color.
func (r *Renderer) drawAreaLayer(ctx *canvas.Context, proj Projection, ways []osm.OverpassElement, fs FillStyle) {
	if len(ways) == 0 {
		return
	}

	rings := &canvas.Path{}
	lines := &canvas.Path{}
	for i := range ways {
		way := &ways[i]
		if len(way.Geometry) < 2 {
			continue
		}
		p := wayPath(proj, way)
		if isClosed(way) {
			p.Close()
			rings = rings.Append(p)
		} else {
			lines = lines.Append(p)
		}
	}

	if !rings.Empty() {
		ctx.SetFillColor(fs.Fill)
		if fs.StrokeWidth > 0 {
			ctx.SetStrokeColor(fs.Stroke)
			ctx.SetStrokeWidth(fs.StrokeWidth * strokeMMPerWeight)
		} else {
			ctx.SetStrokeColor(canvas.Transparent)
		}
		ctx.DrawPath(0, 0, rings)
	}

	if !lines.Empty() {
		stroked := lines.Stroke(1.5*strokeMMPerWeight, canvas.RoundCap, canvas.RoundJoin, 0.01)
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.SetFillColor(fs.Fill)
		ctx.DrawPath(0, 0, stroked)
	}
}

// drawRoads strokes the road network grouped by highway class.
func (r *Renderer) drawRoads(ctx *canvas.Context, proj Projection, roads []osm.OverpassElement, style Style) {
	byClass := make(map[string]*canvas.Path)
	for i := range roads {
		way := &roads[i]
		if len(way.Geometry) < 2 {
			continue
		}
		class := way.Highway()
		if _, ok := style.Roads[class]; !ok {
			class = ""
		}
		p := wayPath(proj, way)
		if existing, ok := byClass[class]; ok {
			byClass[class] = existing.Append(p)
		} else {
			byClass[class] = p
		}
	}

	ctx.SetStrokeColor(canvas.Transparent)

	// Unknown classes first, in the fallback style, then the tiers.
	if p, ok := byClass[""]; ok {
		r.strokeClass(ctx, p, style.Fallback)
	}
	for _, class := range roadDrawOrder {
		if p, ok := byClass[class]; ok {
			r.strokeClass(ctx, p, style.RoadStyle(class))
		}
	}
}

func (r *Renderer) strokeClass(ctx *canvas.Context, p *canvas.Path, ls LineStyle) {
	stroked := p.Stroke(ls.Width*strokeMMPerWeight, canvas.RoundCap, canvas.RoundJoin, 0.01)
	ctx.SetFillColor(ls.Stroke)
	ctx.DrawPath(0, 0, stroked)
}

// drawStreetNames labels each distinct road name once, rotated along the
// road at its midpoint. Missing system fonts downgrade to an unlabeled map.
func (r *Renderer) drawStreetNames(ctx *canvas.Context, proj Projection, roads []osm.OverpassElement, style Style) {
	family := canvas.NewFontFamily("sans")
	if err := family.LoadSystemFont("sans-serif", canvas.FontRegular); err != nil {
		r.logger.Warn("no system font available, skipping street names", "error", err)
		return
	}
	face := family.Face(6, style.TextColor, canvas.FontRegular, canvas.FontNormal)

	seen := make(map[string]bool)
	for i := range roads {
		way := &roads[i]
		name := way.Name()
		if name == "" || seen[name] || len(way.Geometry) < 2 {
			continue
		}
		seen[name] = true

		mid := len(way.Geometry) / 2
		x, y := proj.Project(way.Geometry[mid].Lat, way.Geometry[mid].Lon)
		px, py := proj.Project(way.Geometry[mid-1].Lat, way.Geometry[mid-1].Lon)

		angle := math.Atan2(y-py, x-px) * 180 / math.Pi
		// Keep text upright.
		if angle > 90 {
			angle -= 180
		} else if angle < -90 {
			angle += 180
		}

		ctx.Push()
		ctx.ComposeView(canvas.Identity.Translate(x, y).Rotate(angle))
		ctx.DrawText(0, 0, canvas.NewTextLine(face, name, canvas.Center))
		ctx.Pop()
	}
}
