package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Image formats the chart renderer can write.
const (
	FormatPNG = "png"
	FormatSVG = "svg"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	DataDir      string
	OutputDir    string
	RoutesFile   string // empty selects the built-in catalog
	PositionFile string // empty disables the AIS track report
	ImageFormat  string
	ExportXLSX   bool
	MetricsFile  string // empty disables the metrics textfile
	LogLevel     string
	LogFormat    string

	SeriesCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	exportXLSX, err := parseBool("EXPORT_XLSX", false)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseSeriesCacheSize()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:         sharedcfg.EnvOrDefault("DATA_DIR", "data/gunnerus/RVG_mqtt"),
		OutputDir:       sharedcfg.EnvOrDefault("OUTPUT_DIR", "plots"),
		RoutesFile:      os.Getenv("ROUTES_FILE"),
		PositionFile:    os.Getenv("POSITION_FILE"),
		ImageFormat:     sharedcfg.EnvOrDefault("IMAGE_FORMAT", FormatPNG),
		ExportXLSX:      exportXLSX,
		MetricsFile:     os.Getenv("METRICS_FILE"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		SeriesCacheSize: cacheSize,
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.ImageFormat != FormatPNG && cfg.ImageFormat != FormatSVG {
		return nil, fmt.Errorf("invalid IMAGE_FORMAT %q: want %s or %s", cfg.ImageFormat, FormatPNG, FormatSVG)
	}

	return cfg, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseSeriesCacheSize() (int, error) {
	s := sharedcfg.EnvOrDefault("SERIES_CACHE_SIZE", "64")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("invalid SERIES_CACHE_SIZE")
	}
	return n, nil
}
