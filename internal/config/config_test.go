package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/gunnerus/RVG_mqtt", cfg.DataDir)
	assert.Equal(t, "plots", cfg.OutputDir)
	assert.Empty(t, cfg.RoutesFile)
	assert.Empty(t, cfg.PositionFile)
	assert.Equal(t, FormatPNG, cfg.ImageFormat)
	assert.False(t, cfg.ExportXLSX)
	assert.Empty(t, cfg.MetricsFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 64, cfg.SeriesCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/gunnerus")
	t.Setenv("OUTPUT_DIR", "/tmp/plots")
	t.Setenv("ROUTES_FILE", "routes.yaml")
	t.Setenv("POSITION_FILE", "ais.json")
	t.Setenv("IMAGE_FORMAT", "svg")
	t.Setenv("EXPORT_XLSX", "true")
	t.Setenv("METRICS_FILE", "/var/lib/node_exporter/vessel.prom")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("SERIES_CACHE_SIZE", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/gunnerus", cfg.DataDir)
	assert.Equal(t, "/tmp/plots", cfg.OutputDir)
	assert.Equal(t, "routes.yaml", cfg.RoutesFile)
	assert.Equal(t, "ais.json", cfg.PositionFile)
	assert.Equal(t, FormatSVG, cfg.ImageFormat)
	assert.True(t, cfg.ExportXLSX)
	assert.Equal(t, "/var/lib/node_exporter/vessel.prom", cfg.MetricsFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 8, cfg.SeriesCacheSize)
}

func TestLoad_InvalidImageFormat(t *testing.T) {
	t.Setenv("IMAGE_FORMAT", "gif")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IMAGE_FORMAT")
}

func TestLoad_InvalidExportXLSX(t *testing.T) {
	t.Setenv("EXPORT_XLSX", "maybe")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXPORT_XLSX")
}

func TestLoad_InvalidSeriesCacheSize(t *testing.T) {
	for _, v := range []string{"0", "-3", "lots"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("SERIES_CACHE_SIZE", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "SERIES_CACHE_SIZE")
		})
	}
}
