package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/vessel-energy-etl/internal/observability"
	"github.com/couchcryptid/vessel-energy-etl/internal/position"
	"github.com/couchcryptid/vessel-energy-etl/internal/report"
	"github.com/couchcryptid/vessel-energy-etl/internal/routes"
	"github.com/couchcryptid/vessel-energy-etl/internal/selection"
	"github.com/couchcryptid/vessel-energy-etl/internal/series"
)

// SeriesLoader reads the series of one classified signal.
type SeriesLoader interface {
	Load(ctx context.Context, sig selection.Signal) (*series.TimeSeries, error)
}

// ChartRenderer draws a chart and returns the path of the written image.
type ChartRenderer interface {
	Render(ctx context.Context, c report.Chart) (string, error)
}

// Exporter writes the data behind a chart and returns the artifact path.
type Exporter interface {
	Export(ctx context.Context, c report.Chart) (string, error)
}

// Artifact is one file written by a run.
type Artifact struct {
	Report string `json:"report"`
	Route  string `json:"route,omitempty"`
	Path   string `json:"path"`
}

// Failure records a report that aborted.
type Failure struct {
	Report string `json:"report"`
	Route  string `json:"route,omitempty"`
	Error  string `json:"error"`
}

// Result summarizes a run. It doubles as the run manifest.
type Result struct {
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Artifacts  []Artifact `json:"artifacts"`
	Failures   []Failure  `json:"failures,omitempty"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithExporter also exports every rendered chart.
func WithExporter(e Exporter) Option {
	return func(p *Pipeline) { p.exporter = e }
}

// WithTrack supplies the AIS track for the position report.
func WithTrack(t *position.Track) Option {
	return func(p *Pipeline) { p.track = t }
}

// WithRoutes replaces the built-in route catalog.
func WithRoutes(c routes.Catalog) Option {
	return func(p *Pipeline) { p.catalog = c }
}

// WithReports replaces the default report set.
func WithReports(reps ...Report) Option {
	return func(p *Pipeline) { p.reports = reps }
}

// Pipeline builds every report for the whole voyage and for each route, and
// hands the charts to the renderer.
type Pipeline struct {
	inv      *selection.Inventory
	loader   SeriesLoader
	renderer ChartRenderer
	exporter Exporter
	track    *position.Track
	catalog  routes.Catalog
	reports  []Report
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Pipeline over the signals in inv.
func New(inv *selection.Inventory, loader SeriesLoader, renderer ChartRenderer, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		inv:      inv,
		loader:   loader,
		renderer: renderer,
		catalog:  routes.Default(),
		logger:   logger,
		metrics:  metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.reports == nil {
		p.reports = DefaultReports(p.track != nil)
	}
	return p
}

// Run generates all reports. A failing report is logged and counted, and the
// run continues with the next one; the returned error joins every failure.
// Cancellation is checked between reports.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	res := Result{StartedAt: clock.Now().UTC()}
	p.logger.Info("pipeline started", "reports", len(p.reports), "routes", len(p.catalog))

	var errs []error
	for _, src := range p.sources() {
		for _, rep := range p.reports {
			if src.route != nil && !rep.PerRoute {
				continue
			}
			if err := ctx.Err(); err != nil {
				p.logger.Info("pipeline stopping", "reason", err)
				errs = append(errs, err)
				return p.finish(res), errors.Join(errs...)
			}

			paths, err := p.runReport(ctx, rep, src)
			routeName := ""
			if src.route != nil {
				routeName = src.route.Name
			}
			// Files written before a failure stay on disk and are listed.
			for _, path := range paths {
				res.Artifacts = append(res.Artifacts, Artifact{Report: rep.Title, Route: routeName, Path: path})
			}
			if err != nil {
				p.logger.Error("report failed", "report", rep.Title, "route", routeName, "error", err)
				p.metrics.ReportErrors.Inc()
				res.Failures = append(res.Failures, Failure{Report: rep.Title, Route: routeName, Error: err.Error()})
				errs = append(errs, fmt.Errorf("report %q %s: %w", rep.Title, scopeName(src), err))
				continue
			}
			p.metrics.ReportsRendered.Inc()
		}
	}

	res = p.finish(res)
	p.logger.Info("pipeline finished",
		"artifacts", len(res.Artifacts),
		"failures", len(res.Failures),
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	return res, errors.Join(errs...)
}

func (p *Pipeline) sources() []*Source {
	out := []*Source{p.source(nil)}
	for i := range p.catalog {
		out = append(out, p.source(&p.catalog[i]))
	}
	return out
}

func (p *Pipeline) source(r *routes.Route) *Source {
	return &Source{inv: p.inv, loader: p.loader, route: r, catalog: p.catalog, track: p.track}
}

// runReport builds one chart and writes its artifacts.
func (p *Pipeline) runReport(ctx context.Context, rep Report, src *Source) ([]string, error) {
	start := clock.Now()
	defer func() { p.metrics.ReportDuration.Observe(clock.Since(start).Seconds()) }()

	c, err := rep.Build(ctx, src)
	if err != nil {
		return nil, err
	}
	c.Title = rep.Title
	c.YAxis = rep.YAxis
	if src.route != nil {
		c.RouteDir = src.route.Dir()
	}

	img, err := p.renderer.Render(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	paths := []string{img}

	if p.exporter != nil {
		book, err := p.exporter.Export(ctx, c)
		if err != nil {
			return paths, fmt.Errorf("export: %w", err)
		}
		paths = append(paths, book)
	}

	p.logger.Debug("report written", "report", rep.Title, "route", scopeName(src), "artifacts", len(paths))
	return paths, nil
}

func (p *Pipeline) finish(res Result) Result {
	res.FinishedAt = clock.Now().UTC()
	p.metrics.RunDuration.Set(res.FinishedAt.Sub(res.StartedAt).Seconds())
	p.metrics.LastRunTimestamp.Set(float64(res.FinishedAt.Unix()))
	return res
}

func scopeName(src *Source) string {
	if src.route == nil {
		return "whole voyage"
	}
	return src.route.Name
}

// WriteManifest writes the run result as indented JSON.
func WriteManifest(path string, res Result) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
