// Package logfile loads sensor log files from disk into series. Plain
// ".csv" files and zstd compressed ".csv.zst" files are supported.
package logfile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/couchcryptid/vessel-energy-etl/internal/observability"
	"github.com/couchcryptid/vessel-energy-etl/internal/selection"
	"github.com/couchcryptid/vessel-energy-etl/internal/series"
)

// Loader loads the series stored in a classified log file.
type Loader interface {
	Load(ctx context.Context, sig selection.Signal) (*series.TimeSeries, error)
}

// Reader reads log files straight from disk.
type Reader struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewReader creates a Reader.
func NewReader(logger *slog.Logger, metrics *observability.Metrics) *Reader {
	return &Reader{logger: logger, metrics: metrics}
}

// Load parses the file behind sig and labels the series with sig.Label.
func (r *Reader) Load(_ context.Context, sig selection.Signal) (*series.TimeSeries, error) {
	s, err := ReadFile(sig.Path, sig.Label)
	if err != nil {
		return nil, err
	}
	r.metrics.FilesLoaded.Inc()
	r.metrics.RecordsLoaded.Add(float64(s.Len()))
	r.logger.Debug("log file loaded", "path", sig.Path, "label", sig.Label, "unit", s.Unit, "records", s.Len())
	return s, nil
}

// ReadFile opens path, decompressing it when it ends in ".zst", and decodes
// the records into a series labeled label.
func ReadFile(path, label string) (*series.TimeSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var src io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open zstd stream %s: %w", path, err)
		}
		defer dec.Close()
		src = dec
	}

	s, err := series.Decode(src, label)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s, nil
}

// WriteFile encodes s to path, zstd compressing it when path ends in ".zst".
func WriteFile(path string, s *series.TimeSeries) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create log file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close log file: %w", cerr)
		}
	}()

	if !strings.HasSuffix(path, ".zst") {
		return series.Encode(f, s)
	}

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("open zstd writer %s: %w", path, err)
	}
	if err := series.Encode(enc, s); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
