package series

import "errors"

var (
	// ErrMalformedRecord means a log line could not be parsed. The whole load
	// is aborted; no partial series is returned.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnitMismatch means arithmetic was requested between series whose
	// unit tags differ.
	ErrUnitMismatch = errors.New("unit mismatch")

	// ErrMissingLabel means an arithmetic operand has no label.
	ErrMissingLabel = errors.New("missing label")

	// ErrEmptySeriesInterpolation means one of the operands of an alignment
	// has no samples to interpolate from.
	ErrEmptySeriesInterpolation = errors.New("cannot interpolate empty series")

	// ErrEmptySum means Sum was called without any series, so there is no
	// unit to assign to the result.
	ErrEmptySum = errors.New("sum of no series")

	// ErrTooFewSamples means an operation needing at least two samples got fewer.
	ErrTooFewSamples = errors.New("too few samples")

	// ErrIndexRange means a sample index range is outside the series.
	ErrIndexRange = errors.New("index out of range")

	// ErrInvalidSeries means constructor input violates the series invariants.
	ErrInvalidSeries = errors.New("invalid series")
)
