// Command mapart renders a minimalist road map poster for a city: geocode
// the name, fetch the surrounding road network, and export a print-ready
// vector file.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/osmatelier/osmatelier/pkg/geo"
	"github.com/osmatelier/osmatelier/pkg/monitoring"
	"github.com/osmatelier/osmatelier/pkg/osm"
	"github.com/osmatelier/osmatelier/pkg/pbf"
	"github.com/osmatelier/osmatelier/pkg/render"
	"github.com/osmatelier/osmatelier/pkg/tracing"
	"github.com/osmatelier/osmatelier/pkg/tui"
	ver "github.com/osmatelier/osmatelier/pkg/version"
)

const maxRadiusKm = 50.0

var (
	showVersionFlag bool
	debug           bool

	city      string
	radiusKm  float64
	output    string
	styleName string
	paperName string
	showNames bool
	pbfPath   string
	tuiMode   bool

	withBuildings bool
	withWater     bool
	withParks     bool

	userAgent      string
	nominatimRPS   float64
	nominatimBurst int
	overpassRPS    float64
	overpassBurst  int
)

func init() {
	flag.BoolVar(&showVersionFlag, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")

	flag.StringVar(&city, "city", "", "City or place name to render (prompted for if empty)")
	flag.Float64Var(&radiusKm, "radius", 1.0, "Radius around the city center in kilometers (max 50)")
	flag.StringVar(&output, "o", "", "Output file; extension selects the format (default <city>.svg)")
	flag.StringVar(&styleName, "style", "minimalist", "Style preset: "+strings.Join(render.StyleNames(), ", "))
	flag.StringVar(&paperName, "paper", "11x14", "Paper size: "+strings.Join(render.PaperNames(), ", "))
	flag.BoolVar(&showNames, "show-names", false, "Label each distinct street name once")
	flag.StringVar(&pbfPath, "pbf", "", "Read road data from a local .osm.pbf extract instead of the Overpass API")
	flag.BoolVar(&tuiMode, "tui", false, "Collect the options in a full-screen form instead of flags")

	flag.BoolVar(&withBuildings, "buildings", false, "Include building footprints")
	flag.BoolVar(&withWater, "water", false, "Include water features")
	flag.BoolVar(&withParks, "parks", false, "Include parks and green space")

	flag.StringVar(&userAgent, "user-agent", osm.DefaultUserAgent, "User-Agent string for OSM API requests")
	flag.Float64Var(&nominatimRPS, "nominatim-rps", 1.0, "Nominatim rate limit in requests per second")
	flag.IntVar(&nominatimBurst, "nominatim-burst", 1, "Nominatim rate limit burst size")
	flag.Float64Var(&overpassRPS, "overpass-rps", 1.0, "Overpass rate limit in requests per second")
	flag.IntVar(&overpassBurst, "overpass-burst", 2, "Overpass rate limit burst size")
}

func main() {
	flag.Parse()

	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if showVersionFlag {
		showVersion()
		return
	}

	if err := run(logger); err != nil {
		logger.Error("render failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracing(ctx, ver.BuildVersion)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("error shutting down tracing", "error", err)
			}
		}()
	}

	if tuiMode {
		params, err := collectFormParams()
		if err != nil {
			return err
		}
		if params == nil {
			return nil
		}
		applyParams(*params)
	} else if city == "" {
		if err := promptForInputs(os.Stdin); err != nil {
			return err
		}
	}

	if radiusKm <= 0 || radiusKm > maxRadiusKm {
		return fmt.Errorf("radius must be between 0 and %.0f km, got %.1f", maxRadiusKm, radiusKm)
	}

	style, err := render.StyleByName(styleName)
	if err != nil {
		return err
	}
	paper, err := render.PaperByName(paperName)
	if err != nil {
		return err
	}

	if output == "" {
		output = defaultOutputName(city)
	}

	if userAgent != osm.DefaultUserAgent {
		osm.SetUserAgent(userAgent)
	}
	if nominatimRPS != 1.0 || nominatimBurst != 1 {
		osm.UpdateNominatimRateLimits(nominatimRPS, nominatimBurst)
	}
	if overpassRPS != 1.0 || overpassBurst != 2 {
		osm.UpdateOverpassRateLimits(overpassRPS, overpassBurst)
	}

	osm.SetMonitoringHooks(&osm.MonitoringHooks{
		OnResponse: func(service, operation string, duration time.Duration, success bool) {
			monitoring.RecordExternalServiceRequest(service, operation, duration, success)
		},
		OnRateLimit: func(service string, waitTime time.Duration) {
			monitoring.RecordRateLimitWait(service, waitTime)
		},
		OnError: func(service, errorType string) {
			monitoring.RecordError(service, errorType)
		},
		OnCacheHit:  monitoring.RecordCacheHit,
		OnCacheMiss: monitoring.RecordCacheMiss,
	})

	layers := osm.LayerOptions{
		Buildings: withBuildings,
		Water:     withWater,
		Parks:     withParks,
	}

	if err := preflight(logger, pbfPath == ""); err != nil {
		return err
	}

	geocoder := osm.NewGeocoder(logger)
	place, err := geocoder.Geocode(ctx, city)
	if err != nil {
		return fmt.Errorf("could not find coordinates for %q: %w", city, err)
	}
	fmt.Printf("Found %s (%.4f, %.4f)\n", place.DisplayName,
		place.Location.Latitude, place.Location.Longitude)

	bounds := geo.BoundsAround(place.Location, radiusKm)

	var data *osm.MapData
	if pbfPath != "" {
		fmt.Printf("Scanning %s within %.1f km...\n", pbfPath, radiusKm)
		data, err = pbf.FilterFile(ctx, pbfPath, place.Location, radiusKm, pbf.FilterOptions{
			Layers: layers,
			Progress: func(nodes int64) {
				fmt.Printf("  processed %d nodes...\n", nodes)
			},
		})
	} else {
		fmt.Printf("Fetching road data within %.1f km...\n", radiusKm)
		client := osm.NewClient(logger)
		defer client.Close()
		data, err = client.FetchMapData(ctx, bounds, layers)
	}
	if err != nil {
		return err
	}
	if len(data.Roads) == 0 {
		return fmt.Errorf("no roads found within %.1f km of %s", radiusKm, city)
	}

	fmt.Printf("Rendering %d ways in %s style on %s paper...\n",
		data.WayCount(), style.Name, paper.Name)

	renderer := render.NewRenderer(logger, render.Options{
		Style:     style,
		Paper:     paper,
		ShowNames: showNames,
	})
	canvas := renderer.Render(data, bounds)

	if err := render.Export(canvas, output); err != nil {
		return err
	}

	fmt.Printf("Wrote %s\n", output)
	return nil
}

// defaultOutputName derives the output filename from the city name.
func defaultOutputName(city string) string {
	name := strings.ToLower(strings.ReplaceAll(city, " ", "_"))
	return strings.ReplaceAll(name, ",", "") + ".svg"
}

// promptForInputs asks for the essentials when no -city flag was given.
func promptForInputs(in io.Reader) error {
	reader := bufio.NewReader(in)

	fmt.Print("City name: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read city name: %w", err)
	}
	city = strings.TrimSpace(line)
	if city == "" {
		return fmt.Errorf("a city name is required")
	}

	fmt.Printf("Radius in km [%.1f]: ", radiusKm)
	line, err = reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read radius: %w", err)
	}
	if line = strings.TrimSpace(line); line != "" {
		r, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return fmt.Errorf("invalid radius %q", line)
		}
		radiusKm = r
	}

	fmt.Printf("Output file [%s]: ", defaultOutputName(city))
	line, err = reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read output file: %w", err)
	}
	if line = strings.TrimSpace(line); line != "" {
		output = line
	}

	fmt.Printf("Style (%s) [%s]: ", strings.Join(render.StyleNames(), ", "), styleName)
	line, err = reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read style: %w", err)
	}
	if line = strings.TrimSpace(line); line != "" {
		styleName = line
	}

	return nil
}

// collectFormParams runs the full-screen form and returns nil when the user
// backed out of it.
func collectFormParams() (*tui.Params, error) {
	form := tui.NewForm(tui.Params{
		City:      city,
		RadiusKm:  radiusKm,
		Style:     styleName,
		Paper:     paperName,
		Output:    output,
		ShowNames: showNames,
		Layers: osm.LayerOptions{
			Buildings: withBuildings,
			Water:     withWater,
			Parks:     withParks,
		},
	})

	final, err := tea.NewProgram(form, tea.WithAltScreen()).Run()
	if err != nil {
		return nil, fmt.Errorf("interactive form failed: %w", err)
	}

	m := final.(tui.Form)
	if m.Canceled() {
		return nil, nil
	}
	p := m.Result()
	return &p, nil
}

// applyParams copies form results onto the flag-backed settings.
func applyParams(p tui.Params) {
	city = p.City
	radiusKm = p.RadiusKm
	styleName = p.Style
	paperName = p.Paper
	output = p.Output
	showNames = p.ShowNames
	withBuildings = p.Layers.Buildings
	withWater = p.Layers.Water
	withParks = p.Layers.Parks
}

// preflight verifies the upstream services respond before starting work.
func preflight(logger *slog.Logger, needOverpass bool) error {
	if err := osm.CheckNominatimHealth(); err != nil {
		return fmt.Errorf("nominatim is unreachable: %w", err)
	}
	logger.Debug("nominatim reachable")

	if needOverpass {
		if err := osm.CheckOverpassHealth(); err != nil {
			return fmt.Errorf("overpass is unreachable: %w", err)
		}
		logger.Debug("overpass reachable")
	}

	return nil
}

func showVersion() {
	fmt.Printf("mapart %s\n", ver.BuildVersion)
	fmt.Printf("  commit: %s\n", ver.BuildCommit)
	fmt.Printf("  built:  %s\n", ver.BuildDate)
	fmt.Printf("  go:     %s\n", runtime.Version())
}
