package series

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"
)

// recordFields is the number of comma-separated fields per log line:
// timestamp, value, unit.
const recordFields = 3

// timestampLayouts are the ISO-8601 shapes found in the vessel logs, tried in
// order. Layouts without an offset are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FromRecords builds a series from (timestamp, value, unit) rows.
//
// The unit is taken from the first row only; later rows' unit fields are
// ignored. Any row that does not have exactly three fields, or whose timestamp
// or value does not parse, aborts the load with ErrMalformedRecord. Rows are
// stably sorted by timestamp. An empty input yields an empty series with no
// unit.
func FromRecords(rows [][]string, label string) (*TimeSeries, error) {
	s := &TimeSeries{
		Timestamps: make([]time.Time, 0, len(rows)),
		Values:     make([]float64, 0, len(rows)),
		Label:      label,
	}

	for i, row := range rows {
		line := i + 1
		if len(row) != recordFields {
			return nil, fmt.Errorf("%w: line %d: expected %d fields, got %d",
				ErrMalformedRecord, line, recordFields, len(row))
		}

		ts, err := ParseTimestamp(row[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformedRecord, line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: parse value: %w", ErrMalformedRecord, line, err)
		}

		if i == 0 {
			s.Unit = strings.TrimSpace(row[2])
		}
		s.Timestamps = append(s.Timestamps, ts)
		s.Values = append(s.Values, v)
	}

	sortByTime(s)
	return s, nil
}

// Decode reads a log in the "<timestamp>,<value>,<unit>" line format, without
// a header, and builds a series from it. Fields are split on every comma; no
// quoting is recognized.
func Decode(r io.Reader, label string) (*TimeSeries, error) {
	var rows [][]string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		rows = append(rows, strings.Split(line, ","))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	return FromRecords(rows, label)
}

// Encode writes s in the format read by Decode, one record per sample.
func Encode(w io.Writer, s *TimeSeries) error {
	bw := bufio.NewWriter(w)
	for i, t := range s.Timestamps {
		line := t.UTC().Format(time.RFC3339Nano) + "," +
			strconv.FormatFloat(s.Values[i], 'g', -1, 64) + "," +
			s.Unit + "\n"
		if _, err := bw.WriteString(line); err != nil {
			return fmt.Errorf("write record %d: %w", i+1, err)
		}
	}
	return bw.Flush()
}

// ParseTimestamp parses an ISO-8601 timestamp as written by the vessel loggers
// and returns it in UTC. Timestamps without an offset are taken as UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: not ISO-8601", raw)
}

// sortByTime orders samples by timestamp, keeping the file order of equal
// timestamps.
func sortByTime(s *TimeSeries) {
	if slices.IsSortedFunc(s.Timestamps, time.Time.Compare) {
		return
	}

	idx := make([]int, len(s.Timestamps))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return s.Timestamps[a].Compare(s.Timestamps[b])
	})

	ts := make([]time.Time, len(idx))
	vs := make([]float64, len(idx))
	for i, j := range idx {
		ts[i] = s.Timestamps[j]
		vs[i] = s.Values[j]
	}
	s.Timestamps = ts
	s.Values = vs
}
