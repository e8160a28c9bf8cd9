// Package pbf decodes OpenStreetMap PBF extracts: whole-file summaries for
// the viewer and radius-filtered road extraction for offline rendering.
package pbf

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/qedus/osmpbf"
	"go.opentelemetry.io/otel/attribute"

	"github.com/osmatelier/osmatelier/pkg/geo"
	"github.com/osmatelier/osmatelier/pkg/tracing"
)

const (
	// DefaultSampleLimit is how many tagged nodes a summary keeps for display.
	DefaultSampleLimit = 1000

	// MinSampleLimit and MaxSampleLimit bound the configurable sample size.
	MinSampleLimit = 100
	MaxSampleLimit = 5000

	// progressInterval is how many nodes pass between progress callbacks.
	progressInterval = 1_000_000

	// ctxCheckInterval is how many elements pass between cancellation checks.
	ctxCheckInterval = 100_000
)

// Decoder yields OSM elements one at a time, returning io.EOF when done.
// *osmpbf.Decoder satisfies it; tests substitute an in-memory fake.
type Decoder interface {
	Decode() (interface{}, error)
}

// SampleNode is a tagged node kept for map display.
type SampleNode struct {
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// Summary is the result of a full pass over an extract.
type Summary struct {
	Nodes     int64 `json:"nodes"`
	Ways      int64 `json:"ways"`
	Relations int64 `json:"relations"`

	// Bounds covers every node in the extract, nil if it has none.
	Bounds *geo.BoundingBox `json:"bounds,omitempty"`

	// SampleNodes holds up to SampleLimit tagged nodes in file order.
	SampleNodes []SampleNode `json:"sample_nodes"`

	// HighwayCounts tallies ways per highway tag value.
	HighwayCounts map[string]int64 `json:"highway_counts"`

	Duration time.Duration `json:"duration"`
}

// Options controls a summary pass.
type Options struct {
	// SampleLimit caps SampleNodes. Zero means DefaultSampleLimit;
	// other values are clamped to [MinSampleLimit, MaxSampleLimit].
	SampleLimit int

	// Progress, if set, is called with the running node count every
	// million nodes.
	Progress func(nodes int64)
}

// sampleLimit resolves the effective sample cap.
func (o Options) sampleLimit() int {
	switch {
	case o.SampleLimit == 0:
		return DefaultSampleLimit
	case o.SampleLimit < MinSampleLimit:
		return MinSampleLimit
	case o.SampleLimit > MaxSampleLimit:
		return MaxSampleLimit
	default:
		return o.SampleLimit
	}
}

// Summarize runs one pass over the decoder and tallies the extract.
func Summarize(ctx context.Context, dec Decoder, opts Options) (*Summary, error) {
	start := time.Now()
	limit := opts.sampleLimit()

	summary := &Summary{
		HighwayCounts: make(map[string]int64),
	}
	bounds := geo.NewBoundingBox()

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

		switch v := v.(type) {
		case *osmpbf.Node:
			summary.Nodes++
			bounds.ExtendWithPoint(v.Lat, v.Lon)

			if len(v.Tags) > 0 && len(summary.SampleNodes) < limit {
				summary.SampleNodes = append(summary.SampleNodes, SampleNode{
					ID:   v.ID,
					Lat:  v.Lat,
					Lon:  v.Lon,
					Tags: v.Tags,
				})
			}

			if opts.Progress != nil && summary.Nodes%progressInterval == 0 {
				opts.Progress(summary.Nodes)
			}

		case *osmpbf.Way:
			summary.Ways++
			if hw, ok := v.Tags["highway"]; ok {
				summary.HighwayCounts[hw]++
			}

		case *osmpbf.Relation:
			summary.Relations++
		}
	}

	if !bounds.IsEmpty() {
		summary.Bounds = bounds
	}
	summary.Duration = time.Since(start)

	return summary, nil
}

// SummarizeFile opens and summarizes a PBF extract on disk.
func SummarizeFile(ctx context.Context, path string, opts Options) (*Summary, error) {
	ctx, span := tracing.StartSpan(ctx, "pbf.SummarizeFile")
	defer span.End()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open extract: %w", err)
	}
	defer f.Close()

	dec := osmpbf.NewDecoder(f)
	dec.SetBufferSize(osmpbf.MaxBlobSize)
	if err := dec.Start(runtime.GOMAXPROCS(-1)); err != nil {
		return nil, fmt.Errorf("failed to start decoder: %w", err)
	}

	summary, err := Summarize(ctx, dec, opts)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	tracing.SetAttributes(ctx,
		attribute.Int64(tracing.AttrPBFNodes, summary.Nodes),
		attribute.Int64(tracing.AttrPBFWays, summary.Ways),
		attribute.Int64(tracing.AttrPBFRelations, summary.Relations),
	)

	return summary, nil
}
