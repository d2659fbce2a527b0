package series

import (
	"fmt"
	"slices"
	"time"

	"gonum.org/v1/gonum/interp"
)

// InterpolatePair aligns a and b onto the sorted, de-duplicated union of their
// timestamps and returns the two aligned series. Labels and units are kept.
//
// Each series is interpolated piecewise-linearly against its own samples; the
// nearest endpoint value is held outside its own time range. Both inputs are
// left untouched.
//
// It fails with ErrEmptySeriesInterpolation if either series has no samples.
func InterpolatePair(a, b *TimeSeries) (*TimeSeries, *TimeSeries, error) {
	if a.Len() == 0 || b.Len() == 0 {
		return nil, nil, fmt.Errorf("%w: %q has %d samples, %q has %d",
			ErrEmptySeriesInterpolation, a.Label, a.Len(), b.Label, b.Len())
	}

	grid := unionTimestamps(a.Timestamps, b.Timestamps)
	origin := grid[0]
	xs := epochSeconds(grid, origin)

	av, err := interpolateOnto(a, origin, xs)
	if err != nil {
		return nil, nil, err
	}
	bv, err := interpolateOnto(b, origin, xs)
	if err != nil {
		return nil, nil, err
	}

	return &TimeSeries{Timestamps: grid, Values: av, Label: a.Label, Unit: a.Unit},
		&TimeSeries{Timestamps: slices.Clone(grid), Values: bv, Label: b.Label, Unit: b.Unit},
		nil
}

// unionTimestamps merges two sorted timestamp slices into one sorted slice
// without duplicates.
func unionTimestamps(a, b []time.Time) []time.Time {
	all := slices.Concat(a, b)
	slices.SortFunc(all, time.Time.Compare)
	return slices.CompactFunc(all, time.Time.Equal)
}

// epochSeconds converts timestamps to seconds relative to origin. The same
// conversion is used for knots and grid points so that interpolation is exact
// at a series' own samples.
func epochSeconds(ts []time.Time, origin time.Time) []float64 {
	xs := make([]float64, len(ts))
	for i, t := range ts {
		xs[i] = t.Sub(origin).Seconds()
	}
	return xs
}

// interpolateOnto evaluates s at every grid point xs.
func interpolateOnto(s *TimeSeries, origin time.Time, xs []float64) ([]float64, error) {
	kx, ky := knots(s, origin)
	out := make([]float64, len(xs))

	if len(kx) == 1 {
		for i := range out {
			out[i] = ky[0]
		}
		return out, nil
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(kx, ky); err != nil {
		return nil, fmt.Errorf("fit %q: %w", s.Label, err)
	}

	first, last := kx[0], kx[len(kx)-1]
	for i, x := range xs {
		switch {
		case x <= first:
			out[i] = ky[0]
		case x >= last:
			out[i] = ky[len(ky)-1]
		default:
			out[i] = pl.Predict(x)
		}
	}
	return out, nil
}

// knots returns the interpolation knots of s. Samples sharing a timestamp
// collapse to the last one, since the fit needs strictly increasing x.
func knots(s *TimeSeries, origin time.Time) ([]float64, []float64) {
	kx := make([]float64, 0, s.Len())
	ky := make([]float64, 0, s.Len())
	for i, t := range s.Timestamps {
		x := t.Sub(origin).Seconds()
		if n := len(kx); n > 0 && x <= kx[n-1] {
			ky[n-1] = s.Values[i]
			continue
		}
		kx = append(kx, x)
		ky = append(ky, s.Values[i])
	}
	return kx, ky
}
