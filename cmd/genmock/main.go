// Command genmock writes a synthetic sea trial in the layout of the vessel
// logger: one directory per source, one log file per signal. The load profile
// follows the 2024-09-10 route catalog, so every route window has data and
// the reports show recognizable phases (RPM sweep, load steps, idle).
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out-dir data/mock/RVG_mqtt \
//	  -position-out data/mock/ais.json \
//	  -compress
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/vessel-energy-etl/internal/adapter/logfile"
	"github.com/couchcryptid/vessel-energy-etl/internal/convert"
	"github.com/couchcryptid/vessel-energy-etl/internal/routes"
	"github.com/couchcryptid/vessel-energy-etl/internal/series"
)

var (
	trialStart = time.Date(2024, time.September, 10, 6, 30, 0, 0, time.UTC)
	trialEnd   = time.Date(2024, time.September, 10, 7, 44, 0, 0, time.UTC)
)

// hotelLoadKW is the auxiliary consumption on top of propulsion.
const hotelLoadKW = 40

// sfcKgPerKWh is the specific fuel consumption used to derive fuel flow.
const sfcKgPerKWh = 0.215

type options struct {
	outDir      string
	positionOut string
	step        time.Duration
	compress    bool
	seed        uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.outDir, "out-dir", "", "root of the generated log tree")
	flag.StringVar(&opts.positionOut, "position-out", "", "optional output path for an AIS position JSON file")
	flag.DurationVar(&opts.step, "step", time.Second, "sample period")
	flag.BoolVar(&opts.compress, "compress", false, "write zstd compressed .csv.zst files")
	flag.Uint64Var(&opts.seed, "seed", 1, "noise seed")
	flag.Parse()

	if opts.outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}

	files, err := generate(opts)
	if err != nil {
		return err
	}
	log.Printf("wrote %d log files below %s", files, opts.outDir)

	if opts.positionOut != "" {
		n, err := writeTrack(opts.positionOut, opts.step*10)
		if err != nil {
			return fmt.Errorf("writing position track: %w", err)
		}
		log.Printf("wrote %d AIS fixes to %s", n, opts.positionOut)
	}
	return nil
}

// sample is the plant state at one instant.
type sample struct {
	thrusterPct float64 // per thruster
	engineKW    float64 // per running engine
	speedKmh    float64
}

// thrusterPercent is the commanded thruster load over the trial.
func thrusterPercent(t time.Time) float64 {
	cat := routes.Default()
	rpm, load, idle := cat[1], cat[2], cat[3]

	switch {
	case rpm.Contains(t):
		frac := t.Sub(rpm.Start).Seconds() / rpm.End.Sub(rpm.Start).Seconds()
		return 10 + 50*frac
	case load.Contains(t):
		step := int(t.Sub(load.Start) / (2 * time.Minute))
		return []float64{20, 40, 60, 40, 20}[step%5]
	case idle.Contains(t):
		return 5
	case t.Before(rpm.Start):
		return 20
	case t.Before(idle.Start):
		return 45
	default:
		return 30
	}
}

func plantAt(t time.Time) sample {
	pct := thrusterPercent(t)
	propW := 2 * convert.ThrusterLoadToWatts(pct)
	chain := convert.GeneratorEfficiency * convert.ConverterEfficiency * convert.SwitchboardEfficiency * convert.PropulsionEfficiency
	totalKW := propW/chain/1e3 + hotelLoadKW
	return sample{
		thrusterPct: pct,
		engineKW:    totalKW / 2,
		speedKmh:    2 + 0.2*pct,
	}
}

// signalDef describes one generated log file.
type signalDef struct {
	dir, name, unit string
	value           func(s sample) float64
	noise           float64
}

func signalDefs() []signalDef {
	var defs []signalDef
	for n := 1; n <= 3; n++ {
		running := n != 2
		load := func(s sample) float64 {
			if !running {
				return 0
			}
			return s.engineKW
		}
		dir := fmt.Sprintf("Engine%d", n)
		defs = append(defs,
			signalDef{dir, "engine_load", "kW", load, 2},
			signalDef{dir, "engine_speed", "rpm", func(s sample) float64 {
				if !running {
					return 0
				}
				return 1800
			}, 3},
			signalDef{dir, "fuel_consumption", "L/h", func(s sample) float64 {
				return load(s) * sfcKgPerKWh / convert.FuelFlowLPHToKgPerHour(1)
			}, 0.5},
			signalDef{dir, "boost_pressure", "bar", func(s sample) float64 { return 1 + load(s)/300 }, 0.01},
			signalDef{dir, "coolant_temperature", "C", func(s sample) float64 { return 75 + 0.02*load(s) }, 0.2},
			signalDef{dir, "exhaust_temperature1", "C", func(s sample) float64 { return 250 + 0.4*load(s) }, 2},
			signalDef{dir, "exhaust_temperature2", "C", func(s sample) float64 { return 245 + 0.4*load(s) }, 2},
		)
	}
	for _, dir := range []string{"hcx_port_mp", "hcx_stbd_mp"} {
		defs = append(defs,
			signalDef{dir, "LoadFeedback", "%", func(s sample) float64 { return s.thrusterPct }, 0.3},
			signalDef{dir, "RPMFeedback", "rpm", func(s sample) float64 { return 20 + 2.5*s.thrusterPct }, 1},
		)
	}
	defs = append(defs, signalDef{"gps", "SpeedKmHr", "km/h", func(s sample) float64 { return s.speedKmh }, 0.1})
	return defs
}

// generate writes every signal of the trial and returns the number of files.
func generate(opts options) (int, error) {
	if opts.step <= 0 {
		return 0, fmt.Errorf("invalid step %s", opts.step)
	}
	rng := rand.New(rand.NewPCG(opts.seed, opts.seed))

	var ts []time.Time
	var plant []sample
	for t := trialStart; !t.After(trialEnd); t = t.Add(opts.step) {
		ts = append(ts, t)
		plant = append(plant, plantAt(t))
	}

	ext := ".csv"
	if opts.compress {
		ext += ".zst"
	}

	defs := signalDefs()
	for _, d := range defs {
		vs := make([]float64, len(plant))
		for i, s := range plant {
			vs[i] = math.Max(0, d.value(s)+rng.NormFloat64()*d.noise)
		}
		s, err := series.New(ts, vs, d.dir+"/"+d.name, d.unit)
		if err != nil {
			return 0, err
		}

		path := filepath.Join(opts.outDir, d.dir, d.name+ext)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return 0, err
		}
		if err := logfile.WriteFile(path, s); err != nil {
			return 0, fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return len(defs), nil
}

type aisFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Time      string  `json:"date_time_utc"`
}

// writeTrack writes a loop from the SeaLab out past Munkholmen and back.
func writeTrack(path string, step time.Duration) (int, error) {
	const (
		baseLat, baseLon = 63.4371, 10.3972
		spanLat, spanLon = 0.025, 0.03
	)
	total := trialEnd.Sub(trialStart).Seconds()

	var fixes []aisFix
	for t := trialStart; !t.After(trialEnd); t = t.Add(step) {
		phase := 2 * math.Pi * t.Sub(trialStart).Seconds() / total
		fixes = append(fixes, aisFix{
			Latitude:  baseLat + spanLat*(1-math.Cos(phase))/2,
			Longitude: baseLon - spanLon*math.Sin(phase),
			Time:      t.Format(time.RFC3339),
		})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	data, err := json.MarshalIndent(fixes, "", "  ")
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')
	return len(fixes), os.WriteFile(path, data, 0o600)
}
