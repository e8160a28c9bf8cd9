package osm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/attribute"

	"github.com/osmatelier/osmatelier/pkg/geo"
	"github.com/osmatelier/osmatelier/pkg/tracing"
)

const (
	geocodeCacheSize = 256
	geocodeCacheTTL  = 24 * time.Hour
)

// nominatimPlace is one result from the Nominatim search endpoint.
// Nominatim returns coordinates as strings.
type nominatimPlace struct {
	PlaceID     int64   `json:"place_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

// Place is a geocoded location.
type Place struct {
	Location    geo.Location
	DisplayName string
}

// Geocoder resolves free-form place names to coordinates via Nominatim.
// Results are cached so repeated renders of the same city skip the network.
type Geocoder struct {
	logger *slog.Logger
	cache  *lru.LRU[string, Place]
}

// NewGeocoder creates a geocoder with a bounded result cache.
func NewGeocoder(logger *slog.Logger) *Geocoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Geocoder{
		logger: logger,
		cache:  lru.NewLRU[string, Place](geocodeCacheSize, nil, geocodeCacheTTL),
	}
}

// Geocode resolves a place name to a Place. The query is matched
// case-insensitively against the cache.
func (g *Geocoder) Geocode(ctx context.Context, query string) (Place, error) {
	ctx, span := tracing.StartSpan(ctx, "osm.Geocode")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return Place{}, fmt.Errorf("empty place name")
	}

	key := strings.ToLower(query)
	if place, ok := g.cache.Get(key); ok {
		g.logger.Debug("geocode cache hit", "query", query)
		tracing.SetAttributes(ctx, tracing.CacheAttributes(tracing.CacheTypeGeocode, true, key)...)
		notifyCacheHit(tracing.CacheTypeGeocode)
		return place, nil
	}
	notifyCacheMiss(tracing.CacheTypeGeocode)

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	reqURL := NominatimBaseURL + "/search?" + params.Encode()
	tracing.SetAttributes(ctx,
		attribute.String(tracing.AttrServiceName, tracing.ServiceNominatim),
		attribute.String(tracing.AttrServiceURL, reqURL),
	)

	req, err := NewRequestWithUserAgent(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Place{}, fmt.Errorf("failed to create geocode request: %w", err)
	}

	resp, err := MonitoredDoRequest(ctx, req, "geocode")
	if err != nil {
		tracing.RecordError(ctx, err)
		return Place{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := ServiceError("nominatim", resp.StatusCode,
			fmt.Sprintf("returned status %d", resp.StatusCode))
		tracing.RecordError(ctx, err)
		return Place{}, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Place{}, fmt.Errorf("failed to read geocode response: %w", err)
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return Place{}, fmt.Errorf("failed to parse geocode response: %w", err)
	}

	if len(places) == 0 {
		return Place{}, NewError(ErrNoResults, fmt.Sprintf("no results for %q", query)).
			WithQuery(query).
			WithGuidance("Try a more specific name, such as \"Portland, Oregon\".")
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("invalid latitude in geocode response: %w", err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("invalid longitude in geocode response: %w", err)
	}

	if err := geo.ValidateCoords(lat, lon); err != nil {
		return Place{}, fmt.Errorf("geocode response out of range: %w", err)
	}

	place := Place{
		Location:    geo.Location{Latitude: lat, Longitude: lon},
		DisplayName: places[0].DisplayName,
	}

	g.cache.Add(key, place)
	g.logger.Info("geocoded place",
		"query", query,
		"display_name", place.DisplayName,
		"lat", lat,
		"lon", lon)

	return place, nil
}

// notifyCacheHit reports a cache hit through the monitoring hooks if set.
func notifyCacheHit(cacheType string) {
	hooks := getMonitoringHooks()
	if hooks != nil && hooks.OnCacheHit != nil {
		hooks.OnCacheHit(cacheType)
	}
}

// notifyCacheMiss reports a cache miss through the monitoring hooks if set.
func notifyCacheMiss(cacheType string) {
	hooks := getMonitoringHooks()
	if hooks != nil && hooks.OnCacheMiss != nil {
		hooks.OnCacheMiss(cacheType)
	}
}
