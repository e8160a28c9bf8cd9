package pbf

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/qedus/osmpbf"
	"go.opentelemetry.io/otel/attribute"

	"github.com/osmatelier/osmatelier/pkg/geo"
	"github.com/osmatelier/osmatelier/pkg/osm"
	"github.com/osmatelier/osmatelier/pkg/tracing"
)

// drawableHighways are the road classes kept when filtering an extract,
// including link roads so interchanges do not leave gaps.
var drawableHighways = map[string]bool{
	"motorway":       true,
	"trunk":          true,
	"primary":        true,
	"secondary":      true,
	"tertiary":       true,
	"residential":    true,
	"unclassified":   true,
	"service":        true,
	"motorway_link":  true,
	"trunk_link":     true,
	"primary_link":   true,
	"secondary_link": true,
	"tertiary_link":  true,
}

var parkLeisure = map[string]bool{
	"park":        true,
	"garden":      true,
	"pitch":       true,
	"golf_course": true,
}

var parkLanduse = map[string]bool{
	"grass":             true,
	"forest":            true,
	"meadow":            true,
	"recreation_ground": true,
}

// FilterOptions controls a radius extraction from a local extract.
type FilterOptions struct {
	Layers osm.LayerOptions

	// Progress, if set, is called with the running node count every
	// million nodes on the first pass.
	Progress func(nodes int64)
}

// collectNodes is the first pass: remember the coordinates of every node
// inside bounds so the second pass can reconstruct way geometry.
func collectNodes(ctx context.Context, dec Decoder, bounds geo.BoundingBox, progress func(int64)) (map[int64]osm.LatLon, error) {
	coords := make(map[int64]osm.LatLon)

	var nodes int64
	for {
		v, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode failed: %w", err)
		}

		n, ok := v.(*osmpbf.Node)
		if !ok {
			// Ways and relations follow all nodes in a PBF, so the
			// coordinate index is complete at this point.
			break
		}

		nodes++
		if nodes%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if progress != nil && nodes%progressInterval == 0 {
			progress(nodes)
		}

		if bounds.Contains(n.Lat, n.Lon) {
			coords[n.ID] = osm.LatLon{Lat: n.Lat, Lon: n.Lon}
		}
	}

	return coords, nil
}

// classifyWay assigns a way to a render layer, or "" to skip it.
func classifyWay(tags map[string]string, layers osm.LayerOptions) string {
	if hw, ok := tags["highway"]; ok && drawableHighways[hw] {
		return "road"
	}
	if layers.Buildings {
		if _, ok := tags["building"]; ok {
			return "building"
		}
	}
	if layers.Water {
		if tags["natural"] == "water" {
			return "water"
		}
		if _, ok := tags["waterway"]; ok {
			return "water"
		}
	}
	if layers.Parks {
		if parkLeisure[tags["leisure"]] || parkLanduse[tags["landuse"]] {
			return "park"
		}
	}
	return ""
}

// normalizeHighway folds link roads onto their parent class so styling does
// not need separate entries for them.
func normalizeHighway(hw string) string {
	return strings.TrimSuffix(hw, "_link")
}

// collectWays is the second pass: keep ways that touch the indexed area and
// rebuild their geometry from the coordinate index.
func collectWays(ctx context.Context, dec Decoder, coords map[int64]osm.LatLon, layers osm.LayerOptions) (*osm.MapData, error) {
	data := &osm.MapData{}

	var elements int64
	for {
		v, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode failed: %w", err)
		}

		elements++
		if elements%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		w, ok := v.(*osmpbf.Way)
		if !ok {
			continue
		}

		layer := classifyWay(w.Tags, layers)
		if layer == "" {
			continue
		}

		geometry := make([]osm.LatLon, 0, len(w.NodeIDs))
		for _, ref := range w.NodeIDs {
			if pt, ok := coords[ref]; ok {
				geometry = append(geometry, pt)
			}
		}
		if len(geometry) < 2 {
			continue
		}

		tags := w.Tags
		if layer == "road" {
			if hw := normalizeHighway(tags["highway"]); hw != tags["highway"] {
				tags = copyTags(tags)
				tags["highway"] = hw
			}
		}

		element := osm.OverpassElement{
			ID:       w.ID,
			Type:     "way",
			Geometry: geometry,
			Tags:     tags,
		}

		switch layer {
		case "road":
			data.Roads = append(data.Roads, element)
		case "building":
			data.Buildings = append(data.Buildings, element)
		case "water":
			data.Water = append(data.Water, element)
		case "park":
			data.Parks = append(data.Parks, element)
		}
	}

	return data, nil
}

func copyTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

// FilterFile extracts drawable ways around a center point from a local PBF
// extract. The file is decoded twice: once to index node coordinates inside
// the bounds, once to assemble way geometry from that index.
func FilterFile(ctx context.Context, path string, center geo.Location, radiusKm float64, opts FilterOptions) (*osm.MapData, error) {
	ctx, span := tracing.StartSpan(ctx, "pbf.FilterFile")
	defer span.End()

	if err := center.Validate(); err != nil {
		return nil, err
	}
	bounds := geo.BoundsAround(center, radiusKm)

	coords, err := decodePass(ctx, path, func(ctx context.Context, dec Decoder) (map[int64]osm.LatLon, error) {
		return collectNodes(ctx, dec, bounds, opts.Progress)
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	data, err := decodePass(ctx, path, func(ctx context.Context, dec Decoder) (*osm.MapData, error) {
		return collectWays(ctx, dec, coords, opts.Layers)
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	tracing.SetAttributes(ctx,
		attribute.Int(tracing.AttrRenderWays, data.WayCount()),
	)

	return data, nil
}

// decodePass opens the extract and runs one decoding pass over it.
func decodePass[T any](ctx context.Context, path string, pass func(context.Context, Decoder) (T, error)) (T, error) {
	var zero T

	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("failed to open extract: %w", err)
	}
	defer f.Close()

	dec := osmpbf.NewDecoder(f)
	dec.SetBufferSize(osmpbf.MaxBlobSize)
	if err := dec.Start(runtime.GOMAXPROCS(-1)); err != nil {
		return zero, fmt.Errorf("failed to start decoder: %w", err)
	}

	return pass(ctx, dec)
}
