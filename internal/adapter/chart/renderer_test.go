package chart

import (
	"bytes"
	"context"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/vessel-energy-etl/internal/observability"
	"github.com/couchcryptid/vessel-energy-etl/internal/report"
	"github.com/couchcryptid/vessel-energy-etl/internal/series"
)

var t0 = time.Date(2024, 9, 10, 6, 30, 0, 0, time.UTC)

func newRenderer(t *testing.T, format string) (*Renderer, *observability.Metrics, string) {
	t.Helper()
	dir := t.TempDir()
	metrics := observability.NewMetricsForTesting()
	r, err := NewRenderer(dir, format, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	require.NoError(t, err)
	return r, metrics, dir
}

func ramp(t *testing.T, label string, n int, f func(i int) float64) *series.TimeSeries {
	t.Helper()
	ts := make([]time.Time, n)
	vs := make([]float64, n)
	for i := range n {
		ts[i] = t0.Add(time.Duration(i) * time.Second)
		vs[i] = f(i)
	}
	s, err := series.New(ts, vs, label, "kW")
	require.NoError(t, err)
	return s
}

func TestNewRenderer_RejectsFormat(t *testing.T) {
	_, err := NewRenderer(t.TempDir(), "gif", slog.Default(), observability.NewMetricsForTesting())
	require.Error(t, err)
}

func TestRender_PNG(t *testing.T) {
	r, metrics, dir := newRenderer(t, PNG)
	c := report.Chart{
		Title: "Engine Loads",
		YAxis: "kW",
		Series: []*series.TimeSeries{
			ramp(t, "Engine 1 load", 10, func(i int) float64 { return float64(100 + i) }),
			ramp(t, "Engine 3 load", 10, func(i int) float64 { return float64(200 - i) }),
		},
	}

	path, err := r.Render(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "engine-loads.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "png signature")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ArtifactsWritten.WithLabelValues(PNG)))
}

func TestRender_SVGRouteNested(t *testing.T) {
	r, _, dir := newRenderer(t, SVG)
	c := report.Chart{
		Title:    "Thruster Power",
		YAxis:    "W",
		RouteDir: "load-control",
		Series:   []*series.TimeSeries{ramp(t, "Port thruster load", 5, func(i int) float64 { return float64(i * i) })},
	}

	path, err := r.Render(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "load-control", "thruster-power.svg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestRender_FlatSeries(t *testing.T) {
	r, _, _ := newRenderer(t, PNG)
	c := report.Chart{
		Title:  "Idle",
		Series: []*series.TimeSeries{ramp(t, "Port thruster load", 5, func(int) float64 { return 0 })},
	}

	_, err := r.Render(context.Background(), c)
	require.NoError(t, err)
}

func TestRender_SkipsShortSeries(t *testing.T) {
	r, _, _ := newRenderer(t, PNG)
	c := report.Chart{
		Title: "Mixed",
		Series: []*series.TimeSeries{
			ramp(t, "short", 1, func(int) float64 { return 1 }),
			ramp(t, "long", 4, func(i int) float64 { return float64(i) }),
		},
	}

	_, err := r.Render(context.Background(), c)
	require.NoError(t, err)
}

func TestRender_NothingToPlot(t *testing.T) {
	r, metrics, dir := newRenderer(t, PNG)

	tests := []struct {
		name  string
		chart report.Chart
	}{
		{"no series", report.Chart{Title: "Empty"}},
		{"only short series", report.Chart{Title: "Short", Series: []*series.TimeSeries{
			series.Empty("a", "kW"),
			ramp(t, "b", 1, func(int) float64 { return 1 }),
		}}},
		{"short paths", report.Chart{Title: "Track", Paths: []report.Path{{Name: "r", X: []float64{1}, Y: []float64{1}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Render(context.Background(), tt.chart)
			require.ErrorIs(t, err, ErrNothingToPlot)
		})
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no artifact for an empty chart")
	assert.Zero(t, testutil.ToFloat64(metrics.ArtifactsWritten.WithLabelValues(PNG)))
}

func TestRender_Track(t *testing.T) {
	r, _, dir := newRenderer(t, PNG)
	c := report.Chart{
		Title: "AIS track",
		XAxis: "Longitude",
		YAxis: "Latitude",
		Paths: []report.Path{{
			Name: "complete route",
			X:    []float64{10.395, 10.400, 10.380},
			Y:    []float64{63.437, 63.440, 63.450},
		}},
		Markers: []report.Marker{{Name: "Munkholmen", X: 10.3833, Y: 63.4511}},
		Frame:   &report.Frame{MinX: 10.37, MaxX: 10.42, MinY: 63.435, MaxY: 63.46},
	}

	path, err := r.Render(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "ais-track.png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, mapSize, cfg.Width)
	assert.Equal(t, mapSize, cfg.Height)
}
