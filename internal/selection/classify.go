// Package selection maps sensor log files to the signal they carry. A file is
// identified by its last two path segments: the source directory (an engine,
// a thruster drive, or the GPS) and the signal file name.
package selection

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ErrClassification is returned for a path that matches no naming convention.
var ErrClassification = errors.New("unrecognized signal path")

// ExcludedEngine is the generator set left out of every engine aggregate. It
// was not running during the logged voyages.
const ExcludedEngine = 2

// Kind is the closed set of signals the reports know how to use.
type Kind int

const (
	Unrecognized Kind = iota
	EngineLoad
	EngineSpeed
	EngineFuelConsumption
	EngineBoostPressure
	EngineCoolantTemp
	EngineExhaustTemp1
	EngineExhaustTemp2
	ThrusterRPM
	ThrusterLoad
	VesselSOG
)

var kindNames = [...]string{
	Unrecognized:          "unrecognized",
	EngineLoad:            "engine load",
	EngineSpeed:           "engine speed",
	EngineFuelConsumption: "engine fuel consumption",
	EngineBoostPressure:   "engine boost pressure",
	EngineCoolantTemp:     "engine coolant temperature",
	EngineExhaustTemp1:    "engine exhaust temperature 1",
	EngineExhaustTemp2:    "engine exhaust temperature 2",
	ThrusterRPM:           "thruster RPM",
	ThrusterLoad:          "thruster load",
	VesselSOG:             "vessel speed over ground",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Side identifies an azimuth thruster.
type Side string

const (
	Port      Side = "port"
	Starboard Side = "starboard"
)

// Signal is a classified log file.
type Signal struct {
	Path     string
	Kind     Kind
	Source   string // source directory name, e.g. "Engine1" or "hcx_port_mp"
	Engine   int    // engine index, 0 for non-engine signals
	Side     Side   // thruster side, empty for non-thruster signals
	Excluded bool
	Label    string
}

// engineFiles maps an engine signal file name to its kind and label suffix.
var engineFiles = map[string]struct {
	kind  Kind
	label string
}{
	"engine_load":          {EngineLoad, "load"},
	"engine_speed":         {EngineSpeed, "speed"},
	"fuel_consumption":     {EngineFuelConsumption, "fuel consumption"},
	"boost_pressure":       {EngineBoostPressure, "boost pressure"},
	"coolant_temperature":  {EngineCoolantTemp, "coolant temperature"},
	"exhaust_temperature1": {EngineExhaustTemp1, "exhaust temperature 1"},
	"exhaust_temperature2": {EngineExhaustTemp2, "exhaust temperature 2"},
}

var thrusterFiles = map[string]struct {
	kind  Kind
	label string
}{
	"LoadFeedback": {ThrusterLoad, "load"},
	"RPMFeedback":  {ThrusterRPM, "RPM"},
}

// gpsSignalFile is the speed-over-ground log of the vessel's GPS receiver.
const gpsSignalFile = "SpeedKmHr"

// engineDirRe matches an engine source directory, e.g. "Engine1".
var engineDirRe = regexp.MustCompile(`^Engine(\d+)$`)

// Classify identifies the signal stored at path.
func Classify(path string) (Signal, error) {
	source := filepath.Base(filepath.Dir(path))
	name := signalName(filepath.Base(path))
	sig := Signal{Path: path, Source: source}

	if m := engineDirRe.FindStringSubmatch(source); m != nil {
		f, ok := engineFiles[name]
		if !ok {
			return Signal{}, fmt.Errorf("classify %s: %w: engine signal %q", path, ErrClassification, name)
		}
		n, _ := strconv.Atoi(m[1])
		sig.Kind = f.kind
		sig.Engine = n
		sig.Excluded = n == ExcludedEngine
		sig.Label = fmt.Sprintf("Engine %d %s", n, f.label)
		return sig, nil
	}

	if strings.Contains(source, "hcx") {
		f, ok := thrusterFiles[name]
		if !ok {
			return Signal{}, fmt.Errorf("classify %s: %w: thruster signal %q", path, ErrClassification, name)
		}
		side, ok := thrusterSide(source)
		if !ok {
			return Signal{}, fmt.Errorf("classify %s: %w: thruster side of %q", path, ErrClassification, source)
		}
		sig.Kind = f.kind
		sig.Side = side
		sig.Label = fmt.Sprintf("%s thruster %s", titleSide(side), f.label)
		return sig, nil
	}

	if name == gpsSignalFile {
		sig.Kind = VesselSOG
		sig.Label = "GPS speed over ground"
		return sig, nil
	}

	return Signal{}, fmt.Errorf("classify %s: %w", path, ErrClassification)
}

// Label returns the display label of the signal stored at path.
func Label(path string) (string, error) {
	sig, err := Classify(path)
	if err != nil {
		return "", err
	}
	return sig.Label, nil
}

// IsLogFile reports whether name has a sensor log extension.
func IsLogFile(name string) bool {
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".csv.zst")
}

func signalName(base string) string {
	base = strings.TrimSuffix(base, ".zst")
	return strings.TrimSuffix(base, ".csv")
}

func thrusterSide(source string) (Side, bool) {
	s := strings.ToLower(source)
	switch {
	case strings.Contains(s, "port"):
		return Port, true
	case strings.Contains(s, "stbd"), strings.Contains(s, "starboard"):
		return Starboard, true
	default:
		return "", false
	}
}

func titleSide(s Side) string {
	if s == Port {
		return "Port"
	}
	return "Starboard"
}
