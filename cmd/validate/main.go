// Command validate performs integrity checks on a vessel sensor log tree
// before it is handed to the report pipeline. It verifies that every file is
// a recognized signal, every file parses, units agree across signals of the
// same kind, and every signal has data inside each route window.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -data-dir data/gunnerus/RVG_mqtt \
//	  -routes-file routes.yaml
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/vessel-energy-etl/internal/adapter/logfile"
	"github.com/couchcryptid/vessel-energy-etl/internal/routes"
	"github.com/couchcryptid/vessel-energy-etl/internal/selection"
	"github.com/couchcryptid/vessel-energy-etl/internal/series"
)

// minRouteSamples is the fewest samples a signal needs inside a route window
// for its route charts to draw a line.
const minRouteSamples = 2

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// loaded is a classified signal together with its parsed series.
type loaded struct {
	sig selection.Signal
	ts  *series.TimeSeries
}

func main() {
	dataDir := flag.String("data-dir", "data/gunnerus/RVG_mqtt", "root of the sensor log tree")
	routesFile := flag.String("routes-file", "", "YAML route catalog (default: built-in catalog)")
	flag.Parse()

	if *dataDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dataDir, *routesFile); code != 0 {
		os.Exit(code)
	}
}

func run(dataDir, routesFile string) int {
	fmt.Println("=== Vessel Log Integrity Validation ===")
	fmt.Println()

	catalog := routes.Default()
	if routesFile != "" {
		var err error
		catalog, err = routes.Load(routesFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load routes: %v\n", err)
			return 1
		}
	}

	paths, err := listLogFiles(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: list log files: %v\n", err)
		return 1
	}
	if len(paths) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no log files below %s\n", dataDir)
		return 1
	}

	// ── Run validation phases ──
	classify, sigs := validateClassification(paths)
	parse, data := validateParsing(sigs)
	phases := []*phase{
		classify,
		parse,
		validateUnits(data),
		validateRouteCoverage(data, catalog),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Files: %d found, %d classified, %d parsed, %d records, %d routes\n",
		len(paths), len(sigs), len(data), countRecords(data), len(catalog))

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// listLogFiles returns every sensor log below root in lexical order.
func listLogFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && selection.IsLogFile(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths, err
}

func countRecords(data []loaded) int {
	n := 0
	for _, l := range data {
		n += l.ts.Len()
	}
	return n
}

// ── Phase 1: Classification ──
// Every file must map to a known signal.

func validateClassification(paths []string) (*phase, []selection.Signal) {
	p := &phase{name: "Phase 1: Classification (signal names)"}

	sigs := make([]selection.Signal, 0, len(paths))
	for _, path := range paths {
		sig, err := selection.Classify(path)
		if err != nil {
			p.errorf("%v", err)
			continue
		}
		sigs = append(sigs, sig)
	}

	inv := selection.NewInventory(sigs...)
	if len(inv.Engines(selection.EngineLoad)) == 0 {
		p.errorf("no engine load signal in service")
	}
	if len(inv.Thrusters(selection.ThrusterLoad)) == 0 {
		p.errorf("no thruster load signal")
	}
	return p, sigs
}

// ── Phase 2: Parsing ──
// Every classified file must decode into a non-empty series.

func validateParsing(sigs []selection.Signal) (*phase, []loaded) {
	p := &phase{name: "Phase 2: Parsing (record format)"}

	data := make([]loaded, 0, len(sigs))
	for _, sig := range sigs {
		ts, err := logfile.ReadFile(sig.Path, sig.Label)
		if err != nil {
			p.errorf("%v", err)
			continue
		}
		if ts.Len() == 0 {
			p.errorf("%s: no records", sig.Path)
			continue
		}
		data = append(data, loaded{sig: sig, ts: ts})
	}
	return p, data
}

// ── Phase 3: Unit Consistency ──
// Signals of one kind are summed together, so they must share a unit.

func validateUnits(data []loaded) *phase {
	p := &phase{name: "Phase 3: Unit Consistency (per kind)"}

	units := map[selection.Kind]map[string][]string{}
	for _, l := range data {
		if units[l.sig.Kind] == nil {
			units[l.sig.Kind] = map[string][]string{}
		}
		units[l.sig.Kind][l.ts.Unit] = append(units[l.sig.Kind][l.ts.Unit], l.sig.Label)
	}

	kinds := make([]selection.Kind, 0, len(units))
	for k := range units {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	for _, k := range kinds {
		if len(units[k]) < 2 {
			continue
		}
		for unit, labels := range units[k] {
			p.errorf("%s: unit %q used by %v", k, unit, labels)
		}
	}
	return p
}

// ── Phase 4: Route Coverage ──
// Every signal must have samples inside each route window.

func validateRouteCoverage(data []loaded, catalog routes.Catalog) *phase {
	p := &phase{name: "Phase 4: Route Coverage (timestamps)"}

	for _, l := range data {
		for _, r := range catalog {
			if n := r.Apply(l.ts).Len(); n < minRouteSamples {
				p.errorf("%s: %d samples in route %s (data spans %s to %s)",
					l.sig.Label, n, r, l.ts.Start().Format("15:04:05"), l.ts.End().Format("15:04:05"))
			}
		}
	}
	return p
}
