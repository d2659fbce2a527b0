package selection

import (
	"cmp"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
)

// Inventory is the classified content of a data tree.
type Inventory struct {
	signals []Signal
}

// NewInventory builds an inventory from already classified signals.
func NewInventory(signals ...Signal) *Inventory {
	return &Inventory{signals: slices.Clone(signals)}
}

// Scan walks root and classifies every sensor log below it. The first file
// that cannot be classified aborts the scan.
func Scan(root string) (*Inventory, error) {
	inv := &Inventory{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsLogFile(d.Name()) {
			return nil
		}
		sig, err := Classify(path)
		if err != nil {
			return err
		}
		inv.signals = append(inv.signals, sig)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return inv, nil
}

// Signals returns every classified file, excluded engines included.
func (inv *Inventory) Signals() []Signal {
	return slices.Clone(inv.signals)
}

// Engines returns the engine signals of kind ordered by engine index. The
// excluded engine is never returned.
func (inv *Inventory) Engines(kind Kind) []Signal {
	out := inv.filter(func(s Signal) bool { return s.Engine > 0 && !s.Excluded && s.Kind == kind })
	slices.SortStableFunc(out, func(a, b Signal) int { return cmp.Compare(a.Engine, b.Engine) })
	return out
}

// Thrusters returns the thruster signals of kind, port side first.
func (inv *Inventory) Thrusters(kind Kind) []Signal {
	out := inv.filter(func(s Signal) bool { return s.Side != "" && s.Kind == kind })
	slices.SortStableFunc(out, func(a, b Signal) int { return cmp.Compare(sideOrder(a.Side), sideOrder(b.Side)) })
	return out
}

// Vessel returns the vessel level signals of kind.
func (inv *Inventory) Vessel(kind Kind) []Signal {
	return inv.filter(func(s Signal) bool { return s.Engine == 0 && s.Side == "" && s.Kind == kind })
}

func (inv *Inventory) filter(keep func(Signal) bool) []Signal {
	var out []Signal
	for _, s := range inv.signals {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func sideOrder(s Side) int {
	if s == Port {
		return 0
	}
	return 1
}
