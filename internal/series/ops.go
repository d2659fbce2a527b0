package series

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FilterDate returns the samples with start <= timestamp <= end. Label and
// unit are kept. No match yields an empty series, not an error.
func FilterDate(s *TimeSeries, start, end time.Time) *TimeSeries {
	lo := sort.Search(s.Len(), func(i int) bool { return !s.Timestamps[i].Before(start) })
	hi := sort.Search(s.Len(), func(i int) bool { return s.Timestamps[i].After(end) })
	if hi <= lo {
		return Empty(s.Label, s.Unit)
	}

	out := &TimeSeries{
		Timestamps: make([]time.Time, hi-lo),
		Values:     make([]float64, hi-lo),
		Label:      s.Label,
		Unit:       s.Unit,
	}
	copy(out.Timestamps, s.Timestamps[lo:hi])
	copy(out.Values, s.Values[lo:hi])
	return out
}

// Transform applies f to every value independently and tags the result with
// unit. Label and timestamps are kept.
func Transform(s *TimeSeries, f func(float64) float64, unit string) *TimeSeries {
	out := s.Clone()
	for i, v := range out.Values {
		out.Values[i] = f(v)
	}
	out.Unit = unit
	return out
}

// TimeDiffs returns the len-1 gaps between consecutive timestamps, or nil for
// a series with fewer than two samples.
func TimeDiffs(s *TimeSeries) []time.Duration {
	if s.Len() < 2 {
		return nil
	}
	diffs := make([]time.Duration, s.Len()-1)
	for i := range diffs {
		diffs[i] = s.Timestamps[i+1].Sub(s.Timestamps[i])
	}
	return diffs
}

// Cumulative returns the running prefix sum of the values.
func Cumulative(s *TimeSeries) []float64 {
	out := make([]float64, s.Len())
	if s.Len() == 0 {
		return out
	}
	return floats.CumSum(out, s.Values)
}

// SamplePeriod returns the mean spacing between samples.
func SamplePeriod(s *TimeSeries) (time.Duration, error) {
	if s.Len() < 2 {
		return 0, fmt.Errorf("sample period of %q: %w: %d", s.Label, ErrTooFewSamples, s.Len())
	}
	return s.End().Sub(s.Start()) / time.Duration(s.Len()-1), nil
}

// Integrate sums values[from:to] multiplied by the sample period in seconds
// (rectangle rule). Sampling is assumed uniform; irregular spacing is not
// detected and shows up as approximation error.
func Integrate(s *TimeSeries, from, to int) (float64, error) {
	if from < 0 || to > s.Len() || from > to {
		return 0, fmt.Errorf("integrate %q [%d:%d]: %w: length %d", s.Label, from, to, ErrIndexRange, s.Len())
	}
	period, err := SamplePeriod(s)
	if err != nil {
		return 0, fmt.Errorf("integrate: %w", err)
	}
	return floats.Sum(s.Values[from:to]) * period.Seconds(), nil
}

// Accumulate returns the running trapezoidal integral of s over time, in
// value-seconds, tagged with unit. The first sample is zero.
func Accumulate(s *TimeSeries, unit string) *TimeSeries {
	out := s.Clone()
	out.Unit = unit
	if out.Len() == 0 {
		return out
	}

	out.Values[0] = 0
	for i := 1; i < len(s.Values); i++ {
		dt := s.Timestamps[i].Sub(s.Timestamps[i-1]).Seconds()
		out.Values[i] = out.Values[i-1] + (s.Values[i-1]+s.Values[i])/2*dt
	}
	return out
}

// Summary holds descriptive statistics of a series.
type Summary struct {
	Label  string
	Unit   string
	Count  int
	Start  time.Time
	End    time.Time
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Describe computes summary statistics. The numeric fields are zero for an
// empty series, and StdDev is zero for a single sample.
func Describe(s *TimeSeries) Summary {
	sum := Summary{Label: s.Label, Unit: s.Unit, Count: s.Len()}
	if s.Len() == 0 {
		return sum
	}

	sum.Start, sum.End = s.Start(), s.End()
	sum.Min = floats.Min(s.Values)
	sum.Max = floats.Max(s.Values)
	mean, std := stat.MeanStdDev(s.Values, nil)
	sum.Mean = mean
	if s.Len() > 1 && !math.IsNaN(std) {
		sum.StdDev = std
	}
	return sum
}
