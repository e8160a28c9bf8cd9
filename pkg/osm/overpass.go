package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/osmatelier/osmatelier/pkg/cache"
	"github.com/osmatelier/osmatelier/pkg/geo"
	"github.com/osmatelier/osmatelier/pkg/tracing"
)

// roadHighwayPattern matches the highway classes worth drawing on a poster.
const roadHighwayPattern = "^(motorway|trunk|primary|secondary|tertiary|residential|unclassified|service)$"

// OverpassBuilder provides a fluent interface for building Overpass API queries
type OverpassBuilder struct {
	outFormat      string
	outVerb        string
	timeout        int
	bbox           *geo.BoundingBox
	center         *LocationRadius
	elementFilters []ElementFilter
}

// LocationRadius represents a center point with a radius in meters
type LocationRadius struct {
	Lat    float64
	Lon    float64
	Radius float64
}

// TagFilter represents a tag filter for Overpass queries
type TagFilter struct {
	Key     string
	Values  []string
	Regex   string
	Exclude bool
}

// ElementFilter represents a filter with tags for a specific element type
type ElementFilter struct {
	ElementType string // "node", "way", "relation"
	Tags        []TagFilter
	BBox        *geo.BoundingBox
	Around      *LocationRadius
}

// NewOverpassBuilder creates a new builder with default settings
func NewOverpassBuilder() *OverpassBuilder {
	return &OverpassBuilder{
		outFormat: "json",
		outVerb:   "geom",
		timeout:   60,
	}
}

// WithTimeout sets the query timeout in seconds
func (b *OverpassBuilder) WithTimeout(seconds int) *OverpassBuilder {
	b.timeout = seconds
	return b
}

// WithOut sets the output directive verb ("geom", "body", "center")
func (b *OverpassBuilder) WithOut(verb string) *OverpassBuilder {
	b.outVerb = verb
	return b
}

// WithBoundingBox sets a bounding box filter for subsequent element filters
func (b *OverpassBuilder) WithBoundingBox(bbox geo.BoundingBox) *OverpassBuilder {
	b.bbox = &bbox
	return b
}

// WithCenter sets a center point and radius for subsequent element filters
func (b *OverpassBuilder) WithCenter(lat, lon, radiusMeters float64) *OverpassBuilder {
	b.center = &LocationRadius{Lat: lat, Lon: lon, Radius: radiusMeters}
	return b
}

// WithNode adds a node filter
func (b *OverpassBuilder) WithNode(tags ...TagFilter) *OverpassBuilder {
	return b.withElement("node", tags)
}

// WithWay adds a way filter
func (b *OverpassBuilder) WithWay(tags ...TagFilter) *OverpassBuilder {
	return b.withElement("way", tags)
}

// WithRelation adds a relation filter
func (b *OverpassBuilder) WithRelation(tags ...TagFilter) *OverpassBuilder {
	return b.withElement("relation", tags)
}

func (b *OverpassBuilder) withElement(elementType string, tags []TagFilter) *OverpassBuilder {
	b.elementFilters = append(b.elementFilters, ElementFilter{
		ElementType: elementType,
		Tags:        tags,
		BBox:        b.bbox,
		Around:      b.center,
	})
	return b
}

// Tag creates a TagFilter for a key with optional values
func Tag(key string, values ...string) TagFilter {
	return TagFilter{Key: key, Values: values}
}

// TagRegex creates a TagFilter matching values against a regex
func TagRegex(key, pattern string) TagFilter {
	return TagFilter{Key: key, Regex: pattern}
}

// NotTag creates an excluding TagFilter
func NotTag(key string, values ...string) TagFilter {
	return TagFilter{Key: key, Values: values, Exclude: true}
}

// Build generates the Overpass query string
func (b *OverpassBuilder) Build() string {
	var query strings.Builder

	query.WriteString(fmt.Sprintf("[out:%s][timeout:%d];", b.outFormat, b.timeout))
	query.WriteString("(")

	for _, filter := range b.elementFilters {
		query.WriteString(b.buildElementFilter(filter))
	}

	query.WriteString(fmt.Sprintf(");out %s;", b.outVerb))

	return query.String()
}

// buildElementFilter generates the query part for a specific element filter
func (b *OverpassBuilder) buildElementFilter(filter ElementFilter) string {
	var elementQuery strings.Builder

	elementQuery.WriteString(filter.ElementType)

	for _, tag := range filter.Tags {
		elementQuery.WriteString(buildTagFilter(tag))
	}

	// Spatial filter comes after tags so [highway](bbox) reads naturally.
	if filter.Around != nil {
		elementQuery.WriteString(fmt.Sprintf("(around:%.1f,%.6f,%.6f)",
			filter.Around.Radius, filter.Around.Lat, filter.Around.Lon))
	} else if filter.BBox != nil {
		elementQuery.WriteString(fmt.Sprintf("(%.6f,%.6f,%.6f,%.6f)",
			filter.BBox.MinLat, filter.BBox.MinLon, filter.BBox.MaxLat, filter.BBox.MaxLon))
	}

	elementQuery.WriteString(";")
	return elementQuery.String()
}

// buildTagFilter generates the query part for a tag filter
func buildTagFilter(filter TagFilter) string {
	if filter.Regex != "" {
		return fmt.Sprintf("[%s~%q]", filter.Key, filter.Regex)
	}

	if len(filter.Values) == 0 {
		if filter.Exclude {
			return fmt.Sprintf("[!%s]", filter.Key)
		}
		return fmt.Sprintf("[%s]", filter.Key)
	}

	if len(filter.Values) == 1 {
		if filter.Values[0] == "*" {
			if filter.Exclude {
				return fmt.Sprintf("[!%s]", filter.Key)
			}
			return fmt.Sprintf("[%s]", filter.Key)
		}
		if filter.Exclude {
			return fmt.Sprintf("[%s!=%s]", filter.Key, filter.Values[0])
		}
		return fmt.Sprintf("[%s=%s]", filter.Key, filter.Values[0])
	}

	values := strings.Join(filter.Values, "|")
	if filter.Exclude {
		return fmt.Sprintf("[%s!~%q]", filter.Key, values)
	}
	return fmt.Sprintf("[%s~%q]", filter.Key, values)
}

// RoadQuery builds the query for drawable roads within bounds.
func RoadQuery(bounds geo.BoundingBox) string {
	return NewOverpassBuilder().
		WithBoundingBox(bounds).
		WithWay(TagRegex("highway", roadHighwayPattern)).
		Build()
}

// BuildingQuery builds the query for building footprints within bounds.
func BuildingQuery(bounds geo.BoundingBox) string {
	return NewOverpassBuilder().
		WithBoundingBox(bounds).
		WithWay(Tag("building")).
		Build()
}

// WaterQuery builds the query for water features within bounds.
func WaterQuery(bounds geo.BoundingBox) string {
	return NewOverpassBuilder().
		WithBoundingBox(bounds).
		WithWay(Tag("natural", "water")).
		WithWay(Tag("waterway")).
		Build()
}

// ParkQuery builds the query for parks and green space within bounds.
func ParkQuery(bounds geo.BoundingBox) string {
	return NewOverpassBuilder().
		WithBoundingBox(bounds).
		WithWay(TagRegex("leisure", "^(park|garden|pitch|golf_course)$")).
		WithWay(TagRegex("landuse", "^(grass|forest|meadow|recreation_ground)$")).
		Build()
}

// LayerOptions selects which context layers to fetch alongside roads.
type LayerOptions struct {
	Buildings bool
	Water     bool
	Parks     bool
}

// Client fetches map data from the Overpass API with response caching.
type Client struct {
	logger *slog.Logger
	cache  *cache.TTLCache
}

// NewClient creates an Overpass client. Responses are cached for an hour so
// iterating on styles for the same city does not re-query the API.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		logger: logger,
		cache:  cache.NewTTLCache(time.Hour, 10*time.Minute, 64),
	}
}

// Close releases the client's background resources.
func (c *Client) Close() {
	c.cache.Stop()
}

// FetchMapData fetches the road layer plus the requested context layers for
// the given bounds. The road layer is mandatory; a failed context layer is
// logged and left empty rather than failing the whole fetch.
func (c *Client) FetchMapData(ctx context.Context, bounds geo.BoundingBox, opts LayerOptions) (*MapData, error) {
	ctx, span := tracing.StartSpan(ctx, "osm.FetchMapData")
	defer span.End()

	data := &MapData{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		elements, err := c.query(gctx, RoadQuery(bounds), "roads")
		if err != nil {
			return fmt.Errorf("failed to fetch roads: %w", err)
		}
		data.Roads = elements
		return nil
	})

	if opts.Buildings {
		g.Go(func() error {
			data.Buildings = c.queryOptional(gctx, BuildingQuery(bounds), "buildings")
			return nil
		})
	}
	if opts.Water {
		g.Go(func() error {
			data.Water = c.queryOptional(gctx, WaterQuery(bounds), "water")
			return nil
		})
	}
	if opts.Parks {
		g.Go(func() error {
			data.Parks = c.queryOptional(gctx, ParkQuery(bounds), "parks")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}

	tracing.SetAttributes(ctx, attribute.Int(tracing.AttrRenderWays, data.WayCount()))
	c.logger.Info("fetched map data",
		"roads", len(data.Roads),
		"buildings", len(data.Buildings),
		"water", len(data.Water),
		"parks", len(data.Parks))

	return data, nil
}

// queryOptional runs a context-layer query, returning nil on failure.
func (c *Client) queryOptional(ctx context.Context, query, layer string) []OverpassElement {
	elements, err := c.query(ctx, query, layer)
	if err != nil {
		c.logger.Warn("context layer fetch failed, rendering without it",
			"layer", layer, "error", err)
		return nil
	}
	return elements
}

const (
	maxQueryAttempts  = 3
	queryRetryBackoff = 500 * time.Millisecond
)

// query executes one Overpass query, consulting the cache first. Transient
// failures are retried with exponential backoff, bounded at maxQueryAttempts.
func (c *Client) query(ctx context.Context, query, operation string) ([]OverpassElement, error) {
	if cached, ok := c.cache.Get(query); ok {
		notifyCacheHit(tracing.CacheTypeOverpass)
		return cached.([]OverpassElement), nil
	}
	notifyCacheMiss(tracing.CacheTypeOverpass)

	form := url.Values{}
	form.Set("data", query)
	payload := form.Encode()

	var lastErr error
	for attempt := 0; attempt < maxQueryAttempts; attempt++ {
		if attempt > 0 {
			backoff := queryRetryBackoff << (attempt - 1)
			c.logger.Debug("retrying overpass query",
				"operation", operation, "attempt", attempt+1, "backoff", backoff)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		elements, retryable, err := c.queryOnce(ctx, payload, operation)
		if err == nil {
			c.cache.Set(query, elements)
			return elements, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, lastErr
}

// queryOnce performs a single Overpass request. The second return value
// reports whether the failure is worth retrying.
func (c *Client) queryOnce(ctx context.Context, payload, operation string) ([]OverpassElement, bool, error) {
	req, err := NewRequestWithUserAgent(ctx, http.MethodPost, OverpassBaseURL,
		strings.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := MonitoredDoRequest(ctx, req, operation)
	if err != nil {
		return nil, true, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, ServiceError("overpass", resp.StatusCode,
			fmt.Sprintf("returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256<<20))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read overpass response: %w", err)
	}

	var parsed OverpassResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, false, fmt.Errorf("failed to parse overpass response: %w", err)
	}

	return parsed.Elements, false, nil
}
