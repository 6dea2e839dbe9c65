package configs

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/echo-guard/pkg/audio/echo"
	"github.com/RyanBlaney/echo-guard/pkg/audio/fingerprint/extractors"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFrom(viper.New())
	require.NoError(t, err)

	assert.Equal(t, GetDefaultConfig(), cfg)
	require.NoError(t, ValidateConfig(cfg))

	detection, err := cfg.DetectionConfig()
	require.NoError(t, err)
	assert.Equal(t, echo.DefaultConfig(), detection)
}

func TestLoadConfigFromYAML(t *testing.T) {
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
log_level: debug
output_format: json
audio:
  window_size: 2048
detection:
  echo_threshold: 0.65
  mfcc_mode: cepstral
worker:
  queue_size: 4
metrics:
  exporter: prometheus
`)))

	cfg, err := LoadConfigFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.OutputFormat)
	assert.Equal(t, 2048, cfg.Audio.WindowSize)
	assert.Equal(t, 512, cfg.Audio.HopSize)
	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, 0.65, cfg.Detection.EchoThreshold)
	assert.Equal(t, 0.8, cfg.Detection.RealSpeechThreshold)
	assert.Equal(t, 4, cfg.Worker.QueueSize)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrency)
	assert.Equal(t, "prometheus", cfg.Metrics.Exporter)
	assert.Equal(t, ":9464", cfg.Metrics.Listen)

	detection, err := cfg.DetectionConfig()
	require.NoError(t, err)
	assert.Equal(t, extractors.MFCCCepstral, detection.MFCCMode)
	assert.Equal(t, 2048, detection.WindowSize)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	v := viper.New()
	v.Set("output.precision", 5)
	v.Set("batch.max_concurrency", 1)

	ApplyDefaults(v)

	assert.Equal(t, 5, v.GetInt("output.precision"))
	assert.Equal(t, 1, v.GetInt("batch.max_concurrency"))
	assert.Equal(t, 0.85, v.GetFloat64("detection.max_echo_reduction"))
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad output format", func(c *Config) { c.OutputFormat = "xml" }, "output format"},
		{"bad metrics exporter", func(c *Config) { c.Metrics.Exporter = "datadog" }, "metrics exporter"},
		{"zero queue", func(c *Config) { c.Worker.QueueSize = 0 }, "queue size"},
		{"zero concurrency", func(c *Config) { c.Batch.MaxConcurrency = 0 }, "concurrency"},
		{"negative precision", func(c *Config) { c.Output.Precision = -1 }, "precision"},
		{"bad window", func(c *Config) { c.Audio.WindowSize = 1000 }, "window size"},
		{"bad threshold", func(c *Config) { c.Detection.RealSpeechThreshold = 2 }, "real speech threshold"},
		{"bad mfcc mode", func(c *Config) { c.Detection.MFCCMode = "lpc" }, "lpc"},
	}

	for _, format := range []string{"table", "json", "yaml", "csv"} {
		cfg := GetDefaultConfig()
		cfg.OutputFormat = format
		assert.NoError(t, ValidateConfig(cfg), format)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
