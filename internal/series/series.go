package series

import (
	"fmt"
	"iter"
	"time"
)

// TimeSeries is an ordered sequence of (timestamp, value) samples.
//
// Timestamps are UTC and non-decreasing; duplicates are allowed. Values is
// index-aligned with Timestamps. A zero-length series is valid.
type TimeSeries struct {
	Timestamps []time.Time
	Values     []float64
	Label      string
	Unit       string
}

// New builds a series from parallel timestamp and value slices. The inputs are
// copied and timestamps are normalized to UTC. It fails if the slices differ in
// length or the timestamps are not sorted ascending.
func New(timestamps []time.Time, values []float64, label, unit string) (*TimeSeries, error) {
	if len(timestamps) != len(values) {
		return nil, fmt.Errorf("%w: %d timestamps but %d values", ErrInvalidSeries, len(timestamps), len(values))
	}

	ts := make([]time.Time, len(timestamps))
	for i, t := range timestamps {
		ts[i] = t.UTC()
		if i > 0 && ts[i].Before(ts[i-1]) {
			return nil, fmt.Errorf("%w: timestamp %d (%s) precedes timestamp %d (%s)",
				ErrInvalidSeries, i, ts[i].Format(time.RFC3339Nano), i-1, ts[i-1].Format(time.RFC3339Nano))
		}
	}

	vs := make([]float64, len(values))
	copy(vs, values)

	return &TimeSeries{Timestamps: ts, Values: vs, Label: label, Unit: unit}, nil
}

// Empty returns a zero-length series with the given label and unit.
func Empty(label, unit string) *TimeSeries {
	return &TimeSeries{
		Timestamps: []time.Time{},
		Values:     []float64{},
		Label:      label,
		Unit:       unit,
	}
}

// Len returns the number of samples.
func (s *TimeSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Timestamps)
}

// Clone returns a deep copy.
func (s *TimeSeries) Clone() *TimeSeries {
	c := &TimeSeries{
		Timestamps: make([]time.Time, len(s.Timestamps)),
		Values:     make([]float64, len(s.Values)),
		Label:      s.Label,
		Unit:       s.Unit,
	}
	copy(c.Timestamps, s.Timestamps)
	copy(c.Values, s.Values)
	return c
}

// All yields every (timestamp, value) sample in order.
func (s *TimeSeries) All() iter.Seq2[time.Time, float64] {
	return func(yield func(time.Time, float64) bool) {
		for i, t := range s.Timestamps {
			if !yield(t, s.Values[i]) {
				return
			}
		}
	}
}

// Start returns the first timestamp, or the zero time for an empty series.
func (s *TimeSeries) Start() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Timestamps[0]
}

// End returns the last timestamp, or the zero time for an empty series.
func (s *TimeSeries) End() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Timestamps[len(s.Timestamps)-1]
}

func (s *TimeSeries) String() string {
	return fmt.Sprintf("TimeSeries(label=%s, unit=%s, length=%d)", s.Label, s.Unit, s.Len())
}
