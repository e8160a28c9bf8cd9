// Command osmviewd serves the OpenStreetMap extract viewer: upload a
// .osm.pbf file, get element counts and a map of its tagged nodes.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osmatelier/osmatelier/pkg/server"
	"github.com/osmatelier/osmatelier/pkg/tracing"
	ver "github.com/osmatelier/osmatelier/pkg/version"
)

var (
	showVersionFlag bool
	debug           bool

	addr        string
	maxUploadMB int64
	rateRPS     float64
	rateBurst   int

	enableMonitoring bool
	monitoringAddr   string
)

func init() {
	flag.BoolVar(&showVersionFlag, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")

	flag.StringVar(&addr, "addr", ":8080", "HTTP server address")
	flag.Int64Var(&maxUploadMB, "max-upload-mb", 2048, "Maximum extract upload size in MiB")
	flag.Float64Var(&rateRPS, "rate-rps", 10, "Per-client rate limit in requests per second")
	flag.IntVar(&rateBurst, "rate-burst", 20, "Per-client rate limit burst size")

	flag.BoolVar(&enableMonitoring, "enable-monitoring", true, "Enable Prometheus metrics endpoint")
	flag.StringVar(&monitoringAddr, "monitoring-addr", ":9090", "Monitoring server address")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracing(ctx, ver.BuildVersion)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		// Continue without tracing - it's not critical
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("error shutting down tracing", "error", err)
			}
		}()
	}

	logger.Info("starting extract viewer",
		"version", ver.BuildVersion,
		"addr", addr,
		"max_upload_mb", maxUploadMB,
		"monitoring_enabled", enableMonitoring,
		"monitoring_addr", monitoringAddr)

	s := server.New(server.Config{
		Addr:           addr,
		MaxUploadBytes: maxUploadMB << 20,
		RateRPS:        rateRPS,
		RateBurst:      rateBurst,
		Logger:         logger,
	})

	var monitoringServer *http.Server
	if enableMonitoring {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		monitoringServer = &http.Server{
			Addr:              monitoringAddr,
			Handler:           mux,
			ReadHeaderTimeout: 30 * time.Second,
		}

		go func() {
			logger.Info("starting Prometheus metrics server", "addr", monitoringAddr)
			if err := monitoringServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("monitoring server error", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if monitoringServer != nil {
		if err := monitoringServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown monitoring server", "error", err)
		}
	}
	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
		os.Exit(1)
	}
}

func showVersion() {
	fmt.Printf("osmviewd %s\n", ver.BuildVersion)
	fmt.Printf("  commit: %s\n", ver.BuildCommit)
	fmt.Printf("  built:  %s\n", ver.BuildDate)
	fmt.Printf("  go:     %s\n", runtime.Version())
}
