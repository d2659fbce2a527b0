// Package series implements the aligned time-series value type used by every
// report: an irregularly sampled sequence of float64 values, each stamped
// with a UTC instant, carrying a display label and a physical unit tag.
//
// # Alignment
//
// Logged signals are sampled independently, so two series almost never share
// timestamps. Binary operations ([Add], [Subtract], [Combine]) first align
// both operands onto the union of their timestamps with [InterpolatePair]:
//
//	A: t0=10        t1=20
//	B: t0=5                 t2=15
//	grid:  t0       t1      t2
//
// Each operand is interpolated piecewise-linearly against its own samples.
// Outside an operand's own time range the nearest endpoint value is held
// (no extrapolation). Interpolation is exact at an operand's own samples.
//
// Alignment never mutates its inputs; both aligned series are fresh values.
//
// # Units
//
// The unit tag is a plain string compared for equality. Raw series take the
// unit of the first log record. [Transform] and [Combine] retag the unit,
// [Scale] clears it, and [Add]/[Subtract] refuse operands whose units differ.
//
// # Integration
//
// [Integrate] uses the rectangle rule with the mean sample spacing and so
// assumes near-uniform sampling; this is not validated. [Accumulate] is a
// running trapezoidal integral over the actual timestamps and is preferred
// for cumulative energy and fuel figures.
package series
