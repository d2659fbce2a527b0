// Package chart renders report charts to PNG or SVG images with go-chart.
package chart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/couchcryptid/vessel-energy-etl/internal/observability"
	"github.com/couchcryptid/vessel-energy-etl/internal/report"
)

// ErrNothingToPlot is returned when no series of a chart has enough points
// to draw a line.
var ErrNothingToPlot = errors.New("nothing to plot")

// Image formats.
const (
	PNG = "png"
	SVG = "svg"
)

const (
	defaultWidth  = 1280
	defaultHeight = 720

	// mapSize is the edge of the square frame track maps are drawn in.
	mapSize = 720
)

// Renderer writes one image per chart below an output directory.
type Renderer struct {
	outDir  string
	format  string
	width   int
	height  int
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRenderer creates a Renderer writing format ("png" or "svg") images to outDir.
func NewRenderer(outDir, format string, logger *slog.Logger, metrics *observability.Metrics) (*Renderer, error) {
	if format != PNG && format != SVG {
		return nil, fmt.Errorf("unsupported image format %q", format)
	}
	return &Renderer{
		outDir:  outDir,
		format:  format,
		width:   defaultWidth,
		height:  defaultHeight,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Render draws c and returns the path of the written image.
func (r *Renderer) Render(_ context.Context, c report.Chart) (string, error) {
	ch, err := r.build(c)
	if err != nil {
		return "", fmt.Errorf("render %q: %w", c.Title, err)
	}

	path := c.ArtifactPath(r.outDir, r.format)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}

	provider := gochart.PNG
	if r.format == SVG {
		provider = gochart.SVG
	}
	if err := ch.Render(provider, f); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("render %q: %w", c.Title, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close image: %w", err)
	}

	r.metrics.ArtifactsWritten.WithLabelValues(r.format).Inc()
	r.logger.Debug("chart written", "title", c.Title, "path", path)
	return path, nil
}

func (r *Renderer) build(c report.Chart) (gochart.Chart, error) {
	if c.IsXY() {
		return r.buildXY(c)
	}
	return r.buildTime(c)
}

// buildTime plots every series with at least two distinct timestamps against
// time. Shorter series are skipped with a log line.
func (r *Renderer) buildTime(c report.Chart) (gochart.Chart, error) {
	var plotted []gochart.Series
	lo, hi := math.Inf(1), math.Inf(-1)

	for _, s := range c.Series {
		if s.Len() < 2 || s.Start().Equal(s.End()) {
			r.logger.Warn("series skipped, too few points", "title", c.Title, "series", s.Label, "points", s.Len())
			continue
		}
		for _, v := range s.Values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
		plotted = append(plotted, gochart.TimeSeries{
			Name:    legendName(s.Label, s.Unit),
			XValues: s.Timestamps,
			YValues: s.Values,
		})
	}
	if len(plotted) == 0 {
		return gochart.Chart{}, ErrNothingToPlot
	}

	ch := gochart.Chart{
		Title:      c.Title,
		Width:      r.width,
		Height:     r.height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis: gochart.XAxis{
			Name:           "Time (UTC)",
			ValueFormatter: gochart.TimeMinuteValueFormatter,
		},
		YAxis:  gochart.YAxis{Name: c.YAxis},
		Series: plotted,
	}
	if rng := flatRange(lo, hi); rng != nil {
		ch.YAxis.Range = rng
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	return ch, nil
}

// buildXY plots paths in chart coordinates with labeled markers on top.
func (r *Renderer) buildXY(c report.Chart) (gochart.Chart, error) {
	var plotted []gochart.Series
	for _, p := range c.Paths {
		if len(p.X) < 2 {
			r.logger.Warn("path skipped, too few points", "title", c.Title, "path", p.Name, "points", len(p.X))
			continue
		}
		plotted = append(plotted, gochart.ContinuousSeries{
			Name:    p.Name,
			XValues: p.X,
			YValues: p.Y,
			Style:   gochart.Style{StrokeWidth: 2, DotWidth: 3},
		})
	}
	if len(plotted) == 0 {
		return gochart.Chart{}, ErrNothingToPlot
	}

	if len(c.Markers) > 0 {
		marks := gochart.AnnotationSeries{
			Name:  "landmarks",
			Style: gochart.Style{FontColor: drawing.ColorBlack, StrokeColor: drawing.ColorBlack},
		}
		for _, m := range c.Markers {
			marks.Annotations = append(marks.Annotations, gochart.Value2{XValue: m.X, YValue: m.Y, Label: m.Name})
		}
		plotted = append(plotted, marks)
	}

	ch := gochart.Chart{
		Title:      c.Title,
		Width:      mapSize,
		Height:     mapSize,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      gochart.XAxis{Name: c.XAxis},
		YAxis:      gochart.YAxis{Name: c.YAxis},
		Series:     plotted,
	}
	if c.Frame != nil {
		ch.XAxis.Range = &gochart.ContinuousRange{Min: c.Frame.MinX, Max: c.Frame.MaxX}
		ch.YAxis.Range = &gochart.ContinuousRange{Min: c.Frame.MinY, Max: c.Frame.MaxY}
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	return ch, nil
}

// flatRange returns an explicit y range when every value is equal, which
// go-chart cannot auto-scale. Otherwise nil selects auto-scaling.
func flatRange(lo, hi float64) *gochart.ContinuousRange {
	if hi > lo {
		return nil
	}
	pad := math.Max(math.Abs(lo)*0.05, 1)
	return &gochart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func legendName(label, unit string) string {
	if unit == "" {
		return label
	}
	return fmt.Sprintf("%s [%s]", label, unit)
}
