// Command vesselreport renders the energy and propulsion reports of a vessel
// sensor log tree. Settings come from the environment, see internal/config.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/couchcryptid/vessel-energy-etl/internal/adapter/chart"
	"github.com/couchcryptid/vessel-energy-etl/internal/adapter/logfile"
	"github.com/couchcryptid/vessel-energy-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/vessel-energy-etl/internal/config"
	"github.com/couchcryptid/vessel-energy-etl/internal/observability"
	"github.com/couchcryptid/vessel-energy-etl/internal/pipeline"
	"github.com/couchcryptid/vessel-energy-etl/internal/position"
	"github.com/couchcryptid/vessel-energy-etl/internal/routes"
	"github.com/couchcryptid/vessel-energy-etl/internal/selection"
)

const manifestFile = "manifest.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ok := run(ctx, cfg, logger, metrics)

	if cfg.MetricsFile != "" {
		if err := observability.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("metrics textfile error", "error", err)
			ok = false
		}
	}
	if !ok {
		stop()
		os.Exit(1)
	}
}

// run wires the adapters and executes one pipeline run. It reports whether
// every report succeeded.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) bool {
	inv, err := selection.Scan(cfg.DataDir)
	if err != nil {
		logger.Error("scan data dir failed", "data_dir", cfg.DataDir, "error", err)
		return false
	}
	logger.Info("data dir scanned", "data_dir", cfg.DataDir, "signals", len(inv.Signals()))

	catalog := routes.Default()
	if cfg.RoutesFile != "" {
		catalog, err = routes.Load(cfg.RoutesFile)
		if err != nil {
			logger.Error("load routes failed", "routes_file", cfg.RoutesFile, "error", err)
			return false
		}
	}

	renderer, err := chart.NewRenderer(cfg.OutputDir, cfg.ImageFormat, logger, metrics)
	if err != nil {
		logger.Error("create renderer failed", "error", err)
		return false
	}

	loader := logfile.NewCachedLoader(logfile.NewReader(logger, metrics), cfg.SeriesCacheSize, metrics)
	opts := []pipeline.Option{pipeline.WithRoutes(catalog)}

	if cfg.PositionFile != "" {
		track, err := position.Load(cfg.PositionFile)
		if err != nil {
			logger.Error("load position track failed", "position_file", cfg.PositionFile, "error", err)
			return false
		}
		logger.Info("position track loaded", "fixes", track.Len(), "distance_nm", track.DistanceNM())
		opts = append(opts, pipeline.WithTrack(track))
	}
	if cfg.ExportXLSX {
		opts = append(opts, pipeline.WithExporter(xlsx.NewExporter(cfg.OutputDir, logger, metrics)))
	}

	p := pipeline.New(inv, loader, renderer, logger, metrics, opts...)
	res, runErr := p.Run(ctx)

	if err := pipeline.WriteManifest(filepath.Join(cfg.OutputDir, manifestFile), res); err != nil {
		logger.Error("write manifest failed", "error", err)
		return false
	}
	if runErr != nil {
		logger.Error("run finished with failures", "failures", len(res.Failures), "error", runErr)
		return false
	}
	return true
}
