package series

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Add aligns a and b and returns their element-wise sum. Both operands need a
// label and the same unit. The result takes a's label and unit.
func Add(a, b *TimeSeries) (*TimeSeries, error) {
	return combineSameUnit("add", a, b, floats.AddTo)
}

// Subtract aligns a and b and returns a minus b element-wise. Both operands
// need a label and the same unit. The result takes a's label and unit.
func Subtract(a, b *TimeSeries) (*TimeSeries, error) {
	return combineSameUnit("subtract", a, b, floats.SubTo)
}

// Sum folds Add over list from the left. A single series is returned as a
// copy but still needs a label. An empty list fails with ErrEmptySum.
func Sum(list ...*TimeSeries) (*TimeSeries, error) {
	if len(list) == 0 {
		return nil, ErrEmptySum
	}
	if list[0].Label == "" {
		return nil, fmt.Errorf("sum: first operand: %w", ErrMissingLabel)
	}

	acc := list[0].Clone()
	for _, s := range list[1:] {
		next, err := Add(acc, s)
		if err != nil {
			return nil, fmt.Errorf("sum %q: %w", s.Label, err)
		}
		acc = next
	}
	return acc, nil
}

// Scale multiplies every value by factor. The unit is cleared because the
// unit of a scaled quantity depends on what the factor means.
func Scale(a *TimeSeries, factor float64) *TimeSeries {
	out := a.Clone()
	floats.Scale(factor, out.Values)
	out.Unit = ""
	return out
}

// Combine aligns a and b and applies f to each pair of aligned values. The
// result takes a's label and is tagged with unit. Units of the operands may
// differ; both need a label.
//
// Combine is how ratios such as efficiencies are computed: f is responsible
// for guarding its own denominator.
func Combine(a, b *TimeSeries, f func(x, y float64) float64, unit string) (*TimeSeries, error) {
	if err := checkLabels("combine", a, b); err != nil {
		return nil, err
	}

	aa, bb, err := InterpolatePair(a, b)
	if err != nil {
		return nil, fmt.Errorf("combine %q and %q: %w", a.Label, b.Label, err)
	}

	for i, y := range bb.Values {
		aa.Values[i] = f(aa.Values[i], y)
	}
	aa.Unit = unit
	return aa, nil
}

func combineSameUnit(op string, a, b *TimeSeries, apply func(dst, s, t []float64) []float64) (*TimeSeries, error) {
	if err := checkLabels(op, a, b); err != nil {
		return nil, err
	}
	if a.Unit != b.Unit {
		return nil, fmt.Errorf("%s %q and %q: %w: %q and %q", op, a.Label, b.Label, ErrUnitMismatch, a.Unit, b.Unit)
	}

	aa, bb, err := InterpolatePair(a, b)
	if err != nil {
		return nil, fmt.Errorf("%s %q and %q: %w", op, a.Label, b.Label, err)
	}

	apply(aa.Values, aa.Values, bb.Values)
	return aa, nil
}

func checkLabels(op string, a, b *TimeSeries) error {
	if a.Label == "" {
		return fmt.Errorf("%s: left operand: %w", op, ErrMissingLabel)
	}
	if b.Label == "" {
		return fmt.Errorf("%s %q: right operand: %w", op, a.Label, ErrMissingLabel)
	}
	return nil
}
