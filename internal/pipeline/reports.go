package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/couchcryptid/vessel-energy-etl/internal/convert"
	"github.com/couchcryptid/vessel-energy-etl/internal/position"
	"github.com/couchcryptid/vessel-energy-etl/internal/report"
	"github.com/couchcryptid/vessel-energy-etl/internal/selection"
	"github.com/couchcryptid/vessel-energy-etl/internal/series"
)

// ErrMissingSignal is returned when a report needs a signal an engine in
// service does not log.
var ErrMissingSignal = errors.New("missing signal")

// Report is one chart definition. Build assembles the chart data from a
// source; the pipeline fills in title, axis and output nesting.
type Report struct {
	Title    string
	YAxis    string
	PerRoute bool // also run once per route window
	Build    func(ctx context.Context, src *Source) (report.Chart, error)
}

// DefaultReports returns the standard report set. The AIS track report is
// included when withTrack is set.
func DefaultReports(withTrack bool) []Report {
	reps := []Report{
		{Title: "Engine Loads", YAxis: "Load (kW)", PerRoute: true, Build: engineLoads},
		{Title: "Thruster Power", YAxis: "Power (W)", PerRoute: true, Build: thrusterPower},
		{Title: "Engine Fuel Consumption", YAxis: "Fuel (kg/h)", PerRoute: true, Build: engineFuel},
		{Title: "Cumulative Fuel Consumed", YAxis: "Fuel (kg)", PerRoute: true, Build: cumulativeFuel},
		{Title: "Cumulative Engine Energy", YAxis: "Energy (kWh)", PerRoute: true, Build: cumulativeEnergy},
		{Title: "Engine Efficiency Estimate", YAxis: "Efficiency (%)", PerRoute: true, Build: efficiencyEstimate},
		{Title: "Engine Thermal Efficiency", YAxis: "Efficiency (%)", PerRoute: true, Build: thermalEfficiency},
		{Title: "Power Train Losses", YAxis: "Power (W)", PerRoute: true, Build: powerTrainLosses},
		{Title: "Vessel Speed Over Ground", YAxis: "Speed (m/s)", PerRoute: true, Build: speedOverGround},
		{Title: "Engine Temperatures", YAxis: "Temperature", PerRoute: true, Build: engineTemperatures},
		{Title: "Thruster RPM", YAxis: "RPM", PerRoute: true, Build: thrusterRPM},
		{Title: "Specific Fuel Consumption", YAxis: "SFC (g/kWh)", PerRoute: true, Build: specificFuel},
		{Title: "Engine BMEP", YAxis: "Pressure (Pa)", PerRoute: true, Build: engineBMEP},
		{Title: "Propulsion Efficiency", YAxis: "Thruster / engine power", PerRoute: true, Build: propulsionEfficiency},
	}
	if withTrack {
		reps = append(reps, Report{Title: "RV Gunnerus AIS Position", YAxis: "Latitude", Build: aisTrack})
	}
	return reps
}

func chartOf(list ...*series.TimeSeries) report.Chart {
	return report.Chart{Series: list}
}

func transformAll(list []*series.TimeSeries, f func(float64) float64, unit string) []*series.TimeSeries {
	out := make([]*series.TimeSeries, len(list))
	for i, s := range list {
		out[i] = series.Transform(s, f, unit)
	}
	return out
}

func total(label string, list []*series.TimeSeries) (*series.TimeSeries, error) {
	sum, err := series.Sum(list...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	sum.Label = label
	return sum, nil
}

func engineLoads(ctx context.Context, src *Source) (report.Chart, error) {
	loads, err := src.Engines(ctx, selection.EngineLoad)
	if err != nil {
		return report.Chart{}, err
	}
	sum, err := total("Total engine load", loads)
	if err != nil {
		return report.Chart{}, err
	}
	return chartOf(append(loads, sum)...), nil
}

func engineWatts(ctx context.Context, src *Source) (*series.TimeSeries, error) {
	loads, err := src.Engines(ctx, selection.EngineLoad)
	if err != nil {
		return nil, err
	}
	return total("Total engine power", transformAll(loads, convert.EngineLoadKWToWatts, convert.Watt))
}

func thrusterWatts(ctx context.Context, src *Source) ([]*series.TimeSeries, *series.TimeSeries, error) {
	loads, err := src.Thrusters(ctx, selection.ThrusterLoad)
	if err != nil {
		return nil, nil, err
	}
	watts := transformAll(loads, convert.ThrusterLoadToWatts, convert.Watt)
	sum, err := total("Total thruster power", watts)
	if err != nil {
		return nil, nil, err
	}
	return watts, sum, nil
}

func thrusterPower(ctx context.Context, src *Source) (report.Chart, error) {
	watts, sum, err := thrusterWatts(ctx, src)
	if err != nil {
		return report.Chart{}, err
	}
	return chartOf(append(watts, sum)...), nil
}

func engineFuel(ctx context.Context, src *Source) (report.Chart, error) {
	flows, err := src.Engines(ctx, selection.EngineFuelConsumption)
	if err != nil {
		return report.Chart{}, err
	}
	mass := transformAll(flows, convert.FuelFlowLPHToKgPerHour, convert.KgPerHour)
	sum, err := total("Total fuel consumption", mass)
	if err != nil {
		return report.Chart{}, err
	}
	return chartOf(append(mass, sum)...), nil
}

func cumulativeFuel(ctx context.Context, src *Source) (report.Chart, error) {
	flows, err := src.Engines(ctx, selection.EngineFuelConsumption)
	if err != nil {
		return report.Chart{}, err
	}
	sum, err := total("Fuel consumed", transformAll(flows, convert.FuelFlowLPHToKgPerSecond, convert.KgPerSecond))
	if err != nil {
		return report.Chart{}, err
	}
	return chartOf(series.Accumulate(sum, convert.Kilogram)), nil
}

func cumulativeEnergy(ctx context.Context, src *Source) (report.Chart, error) {
	watts, err := engineWatts(ctx, src)
	if err != nil {
		return report.Chart{}, err
	}
	joules := series.Accumulate(watts, convert.Joule)
	kwh := series.Transform(joules, convert.JoulesToKWh, convert.KilowattHour)
	kwh.Label = "Engine energy"
	return chartOf(kwh), nil
}

func efficiencyEstimate(ctx context.Context, src *Source) (report.Chart, error) {
	watts, err := engineWatts(ctx, src)
	if err != nil {
		return report.Chart{}, err
	}
	share := series.Transform(watts, convert.EnginePowerToPercentTotal, convert.Percent)
	engine := series.Transform(share, convert.EmpiricalEngineEfficiency, convert.Percent)
	engine.Label = "Engine efficiency"
	delivered := series.Transform(engine, convert.PowerTrainEfficiencyToThruster, convert.Percent)
	delivered.Label = "Delivered to thruster"
	return chartOf(engine, delivered), nil
}

func thermalEfficiency(ctx context.Context, src *Source) (report.Chart, error) {
	pairs, err := enginePairs(ctx, src, selection.EngineLoad, selection.EngineFuelConsumption)
	if err != nil {
		return report.Chart{}, err
	}

	out := make([]*series.TimeSeries, 0, len(pairs))
	for _, p := range pairs {
		eff, err := series.Combine(p.a, p.b, convert.ThermalEfficiency, convert.Percent)
		if err != nil {
			return report.Chart{}, fmt.Errorf("engine %d: %w", p.engine, err)
		}
		eff.Label = fmt.Sprintf("Engine %d thermal efficiency", p.engine)
		out = append(out, eff)
	}
	return chartOf(out...), nil
}

func powerTrainLosses(ctx context.Context, src *Source) (report.Chart, error) {
	engine, err := engineWatts(ctx, src)
	if err != nil {
		return report.Chart{}, err
	}
	_, thrusters, err := thrusterWatts(ctx, src)
	if err != nil {
		return report.Chart{}, err
	}
	losses, err := series.Subtract(engine, thrusters)
	if err != nil {
		return report.Chart{}, err
	}
	losses.Label = "Power train losses"
	return chartOf(engine, thrusters, losses), nil
}

func speedOverGround(ctx context.Context, src *Source) (report.Chart, error) {
	sog, err := src.Vessel(ctx, selection.VesselSOG)
	if err != nil {
		return report.Chart{}, err
	}
	return chartOf(transformAll(sog, convert.KmPerHourToMetersPerSecond, convert.MetersPerSec)...), nil
}

func engineTemperatures(ctx context.Context, src *Source) (report.Chart, error) {
	var out []*series.TimeSeries
	for _, kind := range []selection.Kind{selection.EngineCoolantTemp, selection.EngineExhaustTemp1, selection.EngineExhaustTemp2} {
		temps, err := src.Engines(ctx, kind)
		if err != nil {
			return report.Chart{}, err
		}
		out = append(out, temps...)
	}
	return chartOf(out...), nil
}

func thrusterRPM(ctx context.Context, src *Source) (report.Chart, error) {
	rpm, err := src.Thrusters(ctx, selection.ThrusterRPM)
	if err != nil {
		return report.Chart{}, err
	}
	return chartOf(rpm...), nil
}

func specificFuel(ctx context.Context, src *Source) (report.Chart, error) {
	pairs, err := enginePairs(ctx, src, selection.EngineFuelConsumption, selection.EngineLoad)
	if err != nil {
		return report.Chart{}, err
	}

	out := make([]*series.TimeSeries, 0, len(pairs))
	for _, p := range pairs {
		mass := series.Transform(p.a, convert.FuelFlowLPHToKgPerHour, convert.KgPerHour)
		sfc, err := series.Combine(mass, p.b, convert.SpecificFuelConsumption, convert.GramsPerKWh)
		if err != nil {
			return report.Chart{}, fmt.Errorf("engine %d: %w", p.engine, err)
		}
		sfc.Label = fmt.Sprintf("Engine %d SFC", p.engine)
		out = append(out, sfc)
	}
	return chartOf(out...), nil
}

func engineBMEP(ctx context.Context, src *Source) (report.Chart, error) {
	loads, err := src.Engines(ctx, selection.EngineLoad)
	if err != nil {
		return report.Chart{}, err
	}
	out := make([]*series.TimeSeries, len(loads))
	for i, load := range loads {
		w := series.Transform(load, convert.EngineLoadKWToWatts, convert.Watt)
		out[i] = series.Transform(w, convert.BMEP, convert.Pascal)
	}
	return chartOf(out...), nil
}

func propulsionEfficiency(ctx context.Context, src *Source) (report.Chart, error) {
	engine, err := engineWatts(ctx, src)
	if err != nil {
		return report.Chart{}, err
	}
	_, thrusters, err := thrusterWatts(ctx, src)
	if err != nil {
		return report.Chart{}, err
	}
	ratio, err := series.Combine(thrusters, engine, convert.PowerEfficiency, convert.Fraction)
	if err != nil {
		return report.Chart{}, err
	}
	ratio.Label = "Propulsion efficiency"
	return chartOf(ratio), nil
}

// aisTrack draws one path per route over the whole track frame, with the
// fjord landmarks.
func aisTrack(_ context.Context, src *Source) (report.Chart, error) {
	track := src.Track()
	if track == nil {
		return report.Chart{}, fmt.Errorf("ais track: %w", position.ErrEmptyTrack)
	}
	b, err := track.Bounds()
	if err != nil {
		return report.Chart{}, fmt.Errorf("ais track: %w", err)
	}

	c := report.Chart{
		XAxis: "Longitude",
		Frame: &report.Frame{MinX: b.MinLon, MaxX: b.MaxLon, MinY: b.MinLat, MaxY: b.MaxLat},
	}
	for _, r := range src.Catalog() {
		w := track.Window(r)
		lons, lats := w.Coordinates()
		c.Paths = append(c.Paths, report.Path{
			Name: fmt.Sprintf("%s (%.1f nm)", r.Name, w.DistanceNM()),
			X:    lons,
			Y:    lats,
		})
	}
	for _, lm := range position.Landmarks {
		c.Markers = append(c.Markers, report.Marker{Name: lm.Name, X: lm.Lon, Y: lm.Lat})
	}
	return c, nil
}

// enginePair holds two signals of the same engine.
type enginePair struct {
	engine int
	a, b   *series.TimeSeries
}

// enginePairs loads kinds a and b for every engine in service and pairs them
// by engine index. An engine logging one kind but not the other fails with
// ErrMissingSignal.
func enginePairs(ctx context.Context, src *Source, a, b selection.Kind) ([]enginePair, error) {
	as, err := src.EnginesByIndex(ctx, a)
	if err != nil {
		return nil, err
	}
	bs, err := src.EnginesByIndex(ctx, b)
	if err != nil {
		return nil, err
	}

	for n := range bs {
		if _, ok := as[n]; !ok {
			return nil, fmt.Errorf("engine %d: %w: %s", n, ErrMissingSignal, a)
		}
	}

	pairs := make([]enginePair, 0, len(as))
	for _, n := range sortedKeys(as) {
		other, ok := bs[n]
		if !ok {
			return nil, fmt.Errorf("engine %d: %w: %s", n, ErrMissingSignal, b)
		}
		pairs = append(pairs, enginePair{engine: n, a: as[n], b: other})
	}
	return pairs, nil
}

func sortedKeys(m map[int]*series.TimeSeries) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
