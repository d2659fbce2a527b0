package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/vessel-energy-etl/internal/adapter/chart"
	"github.com/couchcryptid/vessel-energy-etl/internal/observability"
	"github.com/couchcryptid/vessel-energy-etl/internal/pipeline"
	"github.com/couchcryptid/vessel-energy-etl/internal/position"
	"github.com/couchcryptid/vessel-energy-etl/internal/report"
	"github.com/couchcryptid/vessel-energy-etl/internal/routes"
	"github.com/couchcryptid/vessel-energy-etl/internal/selection"
	"github.com/couchcryptid/vessel-energy-etl/internal/series"
)

var (
	voyageStart = time.Date(2024, time.September, 10, 6, 30, 0, 0, time.UTC)
	voyageEnd   = time.Date(2024, time.September, 10, 7, 44, 0, 0, time.UTC)
	errBoom     = errors.New("boom")
)

// --- mocks ---

type memLoader struct {
	data map[string]*series.TimeSeries
	errs map[string]error
}

func (m *memLoader) Load(_ context.Context, sig selection.Signal) (*series.TimeSeries, error) {
	if err := m.errs[sig.Path]; err != nil {
		return nil, err
	}
	s, ok := m.data[sig.Path]
	if !ok {
		return nil, fmt.Errorf("no data for %s", sig.Path)
	}
	out := s.Clone()
	out.Label = sig.Label
	return out, nil
}

type recordingRenderer struct {
	charts []report.Chart
	err    error
}

func (r *recordingRenderer) Render(_ context.Context, c report.Chart) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.charts = append(r.charts, c)
	return c.ArtifactPath("out", "png"), nil
}

func (r *recordingRenderer) find(title, routeDir string) (report.Chart, bool) {
	for _, c := range r.charts {
		if c.Title == title && c.RouteDir == routeDir {
			return c, true
		}
	}
	return report.Chart{}, false
}

type recordingExporter struct {
	exported int
	err      error
}

func (e *recordingExporter) Export(_ context.Context, c report.Chart) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	e.exported++
	return c.ArtifactPath("out", "xlsx"), nil
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fixture ---

// fixtureFiles maps a data tree path to a constant value and unit.
var fixtureFiles = map[string]struct {
	value float64
	unit  string
}{
	"Engine1/engine_load.csv":          {300, "kW"},
	"Engine2/engine_load.csv":          {999, "kW"},
	"Engine3/engine_load.csv":          {300, "kW"},
	"Engine1/fuel_consumption.csv":     {60, "L/h"},
	"Engine3/fuel_consumption.csv":     {60, "L/h"},
	"Engine1/coolant_temperature.csv":  {80, "C"},
	"Engine3/coolant_temperature.csv":  {82, "C"},
	"Engine1/exhaust_temperature1.csv": {350, "C"},
	"Engine3/exhaust_temperature1.csv": {355, "C"},
	"Engine1/exhaust_temperature2.csv": {340, "C"},
	"Engine3/exhaust_temperature2.csv": {345, "C"},
	"hcx_port_mp/LoadFeedback.csv":     {50, "%"},
	"hcx_stbd_mp/LoadFeedback.csv":     {50, "%"},
	"hcx_port_mp/RPMFeedback.csv":      {150, "rpm"},
	"hcx_stbd_mp/RPMFeedback.csv":      {152, "rpm"},
	"gps/SpeedKmHr.csv":                {36, "km/h"},
}

func constantSeries(t *testing.T, v float64, unit string) *series.TimeSeries {
	t.Helper()
	var ts []time.Time
	var vs []float64
	for at := voyageStart; !at.After(voyageEnd); at = at.Add(time.Minute) {
		ts = append(ts, at)
		vs = append(vs, v)
	}
	s, err := series.New(ts, vs, "", unit)
	require.NoError(t, err)
	return s
}

func newFixture(t *testing.T) (*selection.Inventory, *memLoader) {
	t.Helper()
	loader := &memLoader{data: map[string]*series.TimeSeries{}, errs: map[string]error{}}
	var sigs []selection.Signal
	for rel, f := range fixtureFiles {
		path := filepath.Join("/data", rel)
		sig, err := selection.Classify(path)
		require.NoError(t, err)
		sigs = append(sigs, sig)
		loader.data[path] = constantSeries(t, f.value, f.unit)
	}
	return selection.NewInventory(sigs...), loader
}

func fixtureTrack(t *testing.T) *position.Track {
	t.Helper()
	var b strings.Builder
	b.WriteString("[")
	i := 0
	for at := voyageStart; !at.After(voyageEnd); at = at.Add(time.Minute) {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"latitude":%f,"longitude":%f,"date_time_utc":%q}`,
			63.435+float64(i)*0.0003, 10.37+float64(i)*0.0006, at.Format(time.RFC3339))
		i++
	}
	b.WriteString("]")
	track, err := position.Decode(strings.NewReader(b.String()))
	require.NoError(t, err)
	return track
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	inv, loader := newFixture(t)
	rnd := &recordingRenderer{}
	exp := &recordingExporter{}
	metrics := newTestMetrics()

	p := pipeline.New(inv, loader, rnd, discardLogger(), metrics, pipeline.WithExporter(exp))

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	reports := len(pipeline.DefaultReports(false))
	scopes := 1 + len(routes.Default())
	assert.Len(t, rnd.charts, reports*scopes)
	assert.Equal(t, reports*scopes, exp.exported)
	assert.Len(t, res.Artifacts, 2*reports*scopes)
	assert.Empty(t, res.Failures)

	assert.Equal(t, float64(reports*scopes), testutil.ToFloat64(metrics.ReportsRendered))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ReportErrors))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))

	perDir := map[string]int{}
	for _, c := range rnd.charts {
		perDir[c.RouteDir]++
	}
	want := map[string]int{"": reports}
	for _, r := range routes.Default() {
		want[r.Dir()] = reports
	}
	if diff := cmp.Diff(want, perDir); diff != "" {
		t.Fatalf("charts per route dir mismatch (-want +got):\n%s", diff)
	}
}

func TestPipeline_Run_ReportValues(t *testing.T) {
	inv, loader := newFixture(t)
	rnd := &recordingRenderer{}

	p := pipeline.New(inv, loader, rnd, discardLogger(), newTestMetrics(), pipeline.WithRoutes(routes.Catalog{}))
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	t.Run("thruster power", func(t *testing.T) {
		c, ok := rnd.find("Thruster Power", "")
		require.True(t, ok)
		require.Len(t, c.Series, 3)
		assert.Equal(t, "Port thruster load", c.Series[0].Label)
		assert.Equal(t, "W", c.Series[0].Unit)
		assert.InDelta(t, 250000, c.Series[0].Values[0], 1e-6)
		assert.Equal(t, "Total thruster power", c.Series[2].Label)
		assert.InDelta(t, 500000, c.Series[2].Values[0], 1e-6)
	})

	t.Run("engine loads skip the excluded engine", func(t *testing.T) {
		c, ok := rnd.find("Engine Loads", "")
		require.True(t, ok)
		require.Len(t, c.Series, 3)
		assert.Equal(t, "Engine 1 load", c.Series[0].Label)
		assert.Equal(t, "Engine 3 load", c.Series[1].Label)
		assert.InDelta(t, 600, c.Series[2].Values[10], 1e-6)
	})

	t.Run("power train losses", func(t *testing.T) {
		c, ok := rnd.find("Power Train Losses", "")
		require.True(t, ok)
		require.Len(t, c.Series, 3)
		assert.InDelta(t, 100000, c.Series[2].Values[0], 1e-6)
	})

	t.Run("speed over ground", func(t *testing.T) {
		c, ok := rnd.find("Vessel Speed Over Ground", "")
		require.True(t, ok)
		require.Len(t, c.Series, 1)
		assert.Equal(t, "m/s", c.Series[0].Unit)
		assert.InDelta(t, 10, c.Series[0].Values[0], 1e-9)
	})

	t.Run("cumulative fuel", func(t *testing.T) {
		c, ok := rnd.find("Cumulative Fuel Consumed", "")
		require.True(t, ok)
		require.Len(t, c.Series, 1)
		fuel := c.Series[0]
		assert.Equal(t, "kg", fuel.Unit)
		assert.Zero(t, fuel.Values[0])
		// 120 L/h at 0.82 kg/L over 74 minutes.
		assert.InDelta(t, 120*0.82*74.0/60, fuel.Values[fuel.Len()-1], 1e-6)
	})

	t.Run("cumulative energy", func(t *testing.T) {
		c, ok := rnd.find("Cumulative Engine Energy", "")
		require.True(t, ok)
		energy := c.Series[0]
		assert.Equal(t, "kWh", energy.Unit)
		assert.InDelta(t, 600*74.0/60, energy.Values[energy.Len()-1], 1e-6)
	})

	t.Run("propulsion efficiency", func(t *testing.T) {
		c, ok := rnd.find("Propulsion Efficiency", "")
		require.True(t, ok)
		assert.InDelta(t, 500.0/600, c.Series[0].Values[0], 1e-9)
	})

	t.Run("thermal efficiency per engine", func(t *testing.T) {
		c, ok := rnd.find("Engine Thermal Efficiency", "")
		require.True(t, ok)
		require.Len(t, c.Series, 2)
		assert.Equal(t, "Engine 1 thermal efficiency", c.Series[0].Label)
		assert.Equal(t, "Engine 3 thermal efficiency", c.Series[1].Label)
	})
}

func TestPipeline_Run_RouteWindows(t *testing.T) {
	inv, loader := newFixture(t)
	rnd := &recordingRenderer{}

	p := pipeline.New(inv, loader, rnd, discardLogger(), newTestMetrics())
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	idle := routes.Default()[3]
	c, ok := rnd.find("Engine Loads", idle.Dir())
	require.True(t, ok)
	for _, s := range c.Series {
		for ts := range s.All() {
			assert.True(t, idle.Contains(ts), "%s outside %s", ts, idle)
		}
	}
}

func TestPipeline_Run_LoaderErrorFailsDependentReports(t *testing.T) {
	inv, loader := newFixture(t)
	loader.errs["/data/Engine1/fuel_consumption.csv"] = errBoom
	rnd := &recordingRenderer{}
	metrics := newTestMetrics()

	p := pipeline.New(inv, loader, rnd, discardLogger(), metrics, pipeline.WithRoutes(routes.Default()[:1]))
	res, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)

	// Fuel, cumulative fuel, thermal efficiency and SFC need the fuel signal.
	const failing = 4
	reports := len(pipeline.DefaultReports(false))
	assert.Len(t, res.Failures, failing*2)
	assert.Len(t, rnd.charts, (reports-failing)*2)
	assert.Equal(t, float64(failing*2), testutil.ToFloat64(metrics.ReportErrors))
	assert.Equal(t, float64((reports-failing)*2), testutil.ToFloat64(metrics.ReportsRendered))

	var titles []string
	for _, f := range res.Failures {
		if f.Route == "" {
			titles = append(titles, f.Report)
		}
		assert.Contains(t, f.Error, "boom")
	}
	assert.ElementsMatch(t, []string{
		"Engine Fuel Consumption",
		"Cumulative Fuel Consumed",
		"Engine Thermal Efficiency",
		"Specific Fuel Consumption",
	}, titles)
}

func TestPipeline_Run_RenderError(t *testing.T) {
	inv, loader := newFixture(t)
	rnd := &recordingRenderer{err: fmt.Errorf("engine loads: %w", chart.ErrNothingToPlot)}
	metrics := newTestMetrics()

	p := pipeline.New(inv, loader, rnd, discardLogger(), metrics, pipeline.WithRoutes(routes.Catalog{}))
	res, err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, chart.ErrNothingToPlot)
	assert.Len(t, res.Failures, len(pipeline.DefaultReports(false)))
	assert.Empty(t, res.Artifacts)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ReportsRendered))
}

func TestPipeline_Run_ExportError(t *testing.T) {
	inv, loader := newFixture(t)
	rnd := &recordingRenderer{}
	exp := &recordingExporter{err: errBoom}

	p := pipeline.New(inv, loader, rnd, discardLogger(), newTestMetrics(),
		pipeline.WithRoutes(routes.Catalog{}),
		pipeline.WithExporter(exp),
	)
	res, err := p.Run(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.Len(t, res.Failures, len(pipeline.DefaultReports(false)))
	assert.Contains(t, res.Failures[0].Error, "export")

	// Images rendered before the export failed are still listed.
	require.Len(t, res.Artifacts, len(pipeline.DefaultReports(false)))
	for _, a := range res.Artifacts {
		assert.Equal(t, ".png", filepath.Ext(a.Path))
	}
}

func TestPipeline_Run_EngineMissingPairedSignal(t *testing.T) {
	tests := []struct {
		name    string
		drop    string
		missing string
	}{
		{"load without fuel", "/data/Engine3/fuel_consumption.csv", "engine 3"},
		{"fuel without load", "/data/Engine3/engine_load.csv", "engine 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, loader := newFixture(t)
			var sigs []selection.Signal
			for path := range loader.data {
				if path == tt.drop {
					continue
				}
				sig, err := selection.Classify(path)
				require.NoError(t, err)
				sigs = append(sigs, sig)
			}
			rnd := &recordingRenderer{}

			p := pipeline.New(selection.NewInventory(sigs...), loader, rnd, discardLogger(), newTestMetrics(),
				pipeline.WithRoutes(routes.Catalog{}),
				pipeline.WithReports(reportsTitled(t, "Engine Thermal Efficiency", "Specific Fuel Consumption")...),
			)
			res, err := p.Run(context.Background())
			require.ErrorIs(t, err, pipeline.ErrMissingSignal)
			assert.Empty(t, rnd.charts)
			require.Len(t, res.Failures, 2)
			for _, f := range res.Failures {
				assert.Contains(t, f.Error, tt.missing)
			}
		})
	}
}

func reportsTitled(t *testing.T, titles ...string) []pipeline.Report {
	t.Helper()
	var out []pipeline.Report
	for _, title := range titles {
		found := false
		for _, r := range pipeline.DefaultReports(false) {
			if r.Title == title {
				out = append(out, r)
				found = true
			}
		}
		require.True(t, found, title)
	}
	return out
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	inv, loader := newFixture(t)
	rnd := &recordingRenderer{}
	metrics := newTestMetrics()

	p := pipeline.New(inv, loader, rnd, discardLogger(), metrics)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	res, err := p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rnd.charts)
	assert.Empty(t, res.Artifacts)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ReportErrors))
}

func TestPipeline_Run_Track(t *testing.T) {
	inv, loader := newFixture(t)
	rnd := &recordingRenderer{}

	p := pipeline.New(inv, loader, rnd, discardLogger(), newTestMetrics(), pipeline.WithTrack(fixtureTrack(t)))
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	scopes := 1 + len(routes.Default())
	assert.Len(t, rnd.charts, len(pipeline.DefaultReports(false))*scopes+1)

	c, ok := rnd.find("RV Gunnerus AIS Position", "")
	require.True(t, ok)
	assert.True(t, c.IsXY())
	require.Len(t, c.Paths, len(routes.Default()))
	assert.True(t, strings.HasPrefix(c.Paths[0].Name, "complete route"))
	assert.Len(t, c.Paths[0].X, 75)
	assert.Len(t, c.Markers, len(position.Landmarks))
	require.NotNil(t, c.Frame)
	assert.Less(t, c.Frame.MinY, 63.435)

	for _, dir := range []string{"complete-route", "idle"} {
		_, ok := rnd.find("RV Gunnerus AIS Position", dir)
		assert.False(t, ok, "track report is whole voyage only")
	}
}

func TestPipeline_Run_FakeClock(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.September, 11, 8, 0, 0, 0, time.UTC))
	pipeline.SetClock(fakeClock)
	t.Cleanup(func() {
		pipeline.SetClock(nil)
	})

	inv, loader := newFixture(t)
	metrics := newTestMetrics()
	p := pipeline.New(inv, loader, &recordingRenderer{}, discardLogger(), metrics, pipeline.WithRoutes(routes.Catalog{}))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fakeClock.Now(), res.StartedAt)
	assert.Equal(t, fakeClock.Now(), res.FinishedAt)
	assert.Equal(t, float64(fakeClock.Now().Unix()), testutil.ToFloat64(metrics.LastRunTimestamp))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.RunDuration))
}

func TestPipeline_WithReports(t *testing.T) {
	inv, loader := newFixture(t)
	rnd := &recordingRenderer{}

	only := pipeline.Report{
		Title: "Voyage Only",
		YAxis: "kW",
		Build: func(ctx context.Context, src *pipeline.Source) (report.Chart, error) {
			loads, err := src.Engines(ctx, selection.EngineLoad)
			return report.Chart{Series: loads}, err
		},
	}
	p := pipeline.New(inv, loader, rnd, discardLogger(), newTestMetrics(), pipeline.WithReports(only))
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rnd.charts, 1)
	assert.Equal(t, "Voyage Only", rnd.charts[0].Title)
	assert.Equal(t, "kW", rnd.charts[0].YAxis)
	assert.Empty(t, rnd.charts[0].RouteDir)
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "manifest.json")
	want := pipeline.Result{
		StartedAt:  voyageStart,
		FinishedAt: voyageEnd,
		Artifacts:  []pipeline.Artifact{{Report: "Engine Loads", Route: "idle", Path: "plots/idle/engine-loads.png"}},
		Failures:   []pipeline.Failure{{Report: "Thruster RPM", Error: "boom"}},
	}
	require.NoError(t, pipeline.WriteManifest(path, want))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got pipeline.Result
	require.NoError(t, json.Unmarshal(data, &got))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("manifest mismatch (-want +got):\n%s", diff)
	}
}
