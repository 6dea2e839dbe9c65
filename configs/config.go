package configs

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/echo-guard/internal/telemetry"
	"github.com/RyanBlaney/echo-guard/pkg/audio/echo"
	"github.com/RyanBlaney/echo-guard/pkg/audio/fingerprint/extractors"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat    string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format" json:"output_format"`

	// Audio input and framing
	Audio AudioConfig `mapstructure:"audio" yaml:"audio" json:"audio"`

	// Detection thresholds and fusion weights
	Detection DetectionConfig `mapstructure:"detection" yaml:"detection" json:"detection"`

	// Background worker
	Worker WorkerConfig `mapstructure:"worker" yaml:"worker" json:"worker"`

	// Batch runs
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Metrics export
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// AudioConfig contains audio processing settings
type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate" yaml:"sample_rate" json:"sample_rate"`
	WindowSize int `mapstructure:"window_size" yaml:"window_size" json:"window_size"`
	HopSize    int `mapstructure:"hop_size" yaml:"hop_size" json:"hop_size"`
}

// DetectionConfig contains echo detection settings
type DetectionConfig struct {
	EchoThreshold        float64 `mapstructure:"echo_threshold" yaml:"echo_threshold" json:"echo_threshold"`
	RealSpeechThreshold  float64 `mapstructure:"real_speech_threshold" yaml:"real_speech_threshold" json:"real_speech_threshold"`
	MinVoicePreservation float64 `mapstructure:"min_voice_preservation" yaml:"min_voice_preservation" json:"min_voice_preservation"`
	MaxEchoReduction     float64 `mapstructure:"max_echo_reduction" yaml:"max_echo_reduction" json:"max_echo_reduction"`
	MLWeight             float64 `mapstructure:"ml_weight" yaml:"ml_weight" json:"ml_weight"`
	TraditionalWeight    float64 `mapstructure:"traditional_weight" yaml:"traditional_weight" json:"traditional_weight"`
	MFCCMode             string  `mapstructure:"mfcc_mode" yaml:"mfcc_mode" json:"mfcc_mode"`
}

// WorkerConfig contains background worker settings
type WorkerConfig struct {
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size" json:"queue_size"`
}

// BatchConfig contains batch execution settings
type BatchConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency" yaml:"max_concurrency" json:"max_concurrency"`
}

// OutputConfig contains output formatting settings
type OutputConfig struct {
	Precision int  `mapstructure:"precision" yaml:"precision" json:"precision"`
	Detailed  bool `mapstructure:"detailed" yaml:"detailed" json:"detailed"`
	Colors    bool `mapstructure:"colors" yaml:"colors" json:"colors"`
}

// MetricsConfig selects where detection metrics are exported
type MetricsConfig struct {
	// Exporter is none, stdout (written to stderr when the run ends) or prometheus
	Exporter string `mapstructure:"exporter" yaml:"exporter" json:"exporter"`
	Listen   string `mapstructure:"listen" yaml:"listen" json:"listen"`
}

// LoadConfig loads configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom fills unset keys with defaults and decodes v
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	ApplyDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// DetectionConfig converts the file and flag settings into the detector configuration
func (c *Config) DetectionConfig() (echo.Config, error) {
	mode, err := extractors.ParseMFCCMode(c.Detection.MFCCMode)
	if err != nil {
		return echo.Config{}, err
	}

	cfg := echo.Config{
		SampleRate:           c.Audio.SampleRate,
		WindowSize:           c.Audio.WindowSize,
		HopSize:              c.Audio.HopSize,
		EchoThreshold:        c.Detection.EchoThreshold,
		RealSpeechThreshold:  c.Detection.RealSpeechThreshold,
		MinVoicePreservation: c.Detection.MinVoicePreservation,
		MaxEchoReduction:     c.Detection.MaxEchoReduction,
		MLWeight:             c.Detection.MLWeight,
		TraditionalWeight:    c.Detection.TraditionalWeight,
		MFCCMode:             mode,
	}

	if err := cfg.Validate(); err != nil {
		return echo.Config{}, fmt.Errorf("invalid detection configuration: %w", err)
	}

	return cfg, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	switch config.OutputFormat {
	case "table", "json", "yaml", "csv":
	default:
		return fmt.Errorf("unsupported output format %q (want table, json, yaml or csv)", config.OutputFormat)
	}

	if config.Worker.QueueSize <= 0 {
		return fmt.Errorf("worker queue size must be positive")
	}

	if config.Batch.MaxConcurrency <= 0 {
		return fmt.Errorf("batch max concurrency must be positive")
	}

	if config.Output.Precision < 0 || config.Output.Precision > 12 {
		return fmt.Errorf("output precision must be between 0 and 12")
	}

	if err := telemetry.ValidateExporter(config.Metrics.Exporter); err != nil {
		return err
	}

	if _, err := config.DetectionConfig(); err != nil {
		return err
	}

	return nil
}
