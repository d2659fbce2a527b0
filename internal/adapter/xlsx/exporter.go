// Package xlsx exports the data behind a report chart to an Excel workbook.
package xlsx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/vessel-energy-etl/internal/observability"
	"github.com/couchcryptid/vessel-energy-etl/internal/report"
	"github.com/couchcryptid/vessel-energy-etl/internal/series"
)

// SummarySheet is the first sheet of every workbook.
const SummarySheet = "Sheet1"

// maxSheetName is the sheet name length limit of the format.
const maxSheetName = 31

var summaryHeader = []any{"series", "unit", "count", "start", "end", "min", "max", "mean", "stddev"}

// Exporter writes one workbook per chart below an output directory.
type Exporter struct {
	outDir  string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewExporter creates an Exporter writing to outDir.
func NewExporter(outDir string, logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	return &Exporter{outDir: outDir, logger: logger, metrics: metrics}
}

// Export writes the chart's series to <out>/<route>/<title>.xlsx: a summary
// sheet with one row per series, then one sheet of samples per series (or
// per path for XY charts).
func (e *Exporter) Export(_ context.Context, c report.Chart) (path string, err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetRow(SummarySheet, "A1", &[]any{c.Title}); err != nil {
		return "", fmt.Errorf("write title: %w", err)
	}
	if err := f.SetSheetRow(SummarySheet, "A2", &summaryHeader); err != nil {
		return "", fmt.Errorf("write summary header: %w", err)
	}

	for i, s := range c.Series {
		if err := writeSummaryRow(f, i+3, s); err != nil {
			return "", err
		}
		if err := writeSeriesSheet(f, sheetName(i+1, s.Label), s); err != nil {
			return "", err
		}
	}
	for i, p := range c.Paths {
		if err := writePathSheet(f, sheetName(i+1, p.Name), p); err != nil {
			return "", err
		}
	}

	path = c.ArtifactPath(e.outDir, "xlsx")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	e.metrics.ArtifactsWritten.WithLabelValues("xlsx").Inc()
	e.logger.Debug("workbook written", "title", c.Title, "path", path)
	return path, nil
}

func writeSummaryRow(f *excelize.File, row int, s *series.TimeSeries) error {
	sum := series.Describe(s)
	vals := []any{sum.Label, sum.Unit, sum.Count}
	if sum.Count > 0 {
		vals = append(vals, sum.Start, sum.End, sum.Min, sum.Max, sum.Mean, sum.StdDev)
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SummarySheet, cell, &vals); err != nil {
		return fmt.Errorf("write summary of %q: %w", s.Label, err)
	}
	return nil
}

func writeSeriesSheet(f *excelize.File, name string, s *series.TimeSeries) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	header := []any{"timestamp", valueHeader(s.Unit)}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write sheet %q: %w", name, err)
	}
	for i, v := range s.Values {
		row := []any{s.Timestamps[i], v}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write sheet %q row %d: %w", name, i+2, err)
		}
	}
	return nil
}

func writePathSheet(f *excelize.File, name string, p report.Path) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	header := []any{"x", "y"}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write sheet %q: %w", name, err)
	}
	for i := range p.X {
		row := []any{p.X[i], p.Y[i]}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write sheet %q row %d: %w", name, i+2, err)
		}
	}
	return nil
}

// sheetName derives a unique, format-safe sheet name from a series label.
func sheetName(n int, label string) string {
	name := fmt.Sprintf("%d-%s", n, slug.Make(label))
	if len(name) > maxSheetName {
		name = strings.TrimRight(name[:maxSheetName], "-")
	}
	return name
}

func valueHeader(unit string) string {
	if unit == "" {
		return "value"
	}
	return "value [" + unit + "]"
}
