// Package report defines the charts produced by a run, independent of how
// they are rendered or exported.
package report

import (
	"path/filepath"

	"github.com/gosimple/slug"

	"github.com/couchcryptid/vessel-energy-etl/internal/series"
)

// Chart is one report: either time series against time, or XY paths (a
// position track) against a fixed frame.
type Chart struct {
	Title string
	YAxis string
	// RouteDir nests the artifact under a route subdirectory. Empty for
	// whole-voyage reports.
	RouteDir string

	Series []*series.TimeSeries

	XAxis   string
	Paths   []Path
	Markers []Marker
	Frame   *Frame
}

// Path is a named polyline in chart coordinates.
type Path struct {
	Name string
	X, Y []float64
}

// Marker is a labeled fixed point.
type Marker struct {
	Name string
	X, Y float64
}

// Frame bounds the axes of an XY chart.
type Frame struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// IsXY reports whether the chart plots paths rather than time series.
func (c Chart) IsXY() bool {
	return len(c.Paths) > 0
}

// Slug is the file name stem of the chart's artifacts.
func (c Chart) Slug() string {
	return slug.Make(c.Title)
}

// ArtifactPath returns where the chart's artifact with extension ext lives
// below dir: <dir>/<route>/<title slug>.<ext>.
func (c Chart) ArtifactPath(dir, ext string) string {
	return filepath.Join(dir, c.RouteDir, c.Slug()+"."+ext)
}
