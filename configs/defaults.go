package configs

import (
	"github.com/spf13/viper"

	"github.com/RyanBlaney/echo-guard/internal/telemetry"
	"github.com/RyanBlaney/echo-guard/pkg/audio/echo"
)

// ApplyDefaults sets default configuration values for every key not already set
func ApplyDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	// Application defaults
	if !v.IsSet("verbose") {
		v.Set("verbose", d.Verbose)
	}
	if !v.IsSet("log_level") {
		v.Set("log_level", d.LogLevel)
	}
	if !v.IsSet("log_format") {
		v.Set("log_format", d.LogFormat)
	}
	if !v.IsSet("output_format") {
		v.Set("output_format", d.OutputFormat)
	}

	// Audio defaults
	if !v.IsSet("audio.sample_rate") {
		v.Set("audio.sample_rate", d.Audio.SampleRate)
	}
	if !v.IsSet("audio.window_size") {
		v.Set("audio.window_size", d.Audio.WindowSize)
	}
	if !v.IsSet("audio.hop_size") {
		v.Set("audio.hop_size", d.Audio.HopSize)
	}

	// Detection defaults
	if !v.IsSet("detection.echo_threshold") {
		v.Set("detection.echo_threshold", d.Detection.EchoThreshold)
	}
	if !v.IsSet("detection.real_speech_threshold") {
		v.Set("detection.real_speech_threshold", d.Detection.RealSpeechThreshold)
	}
	if !v.IsSet("detection.min_voice_preservation") {
		v.Set("detection.min_voice_preservation", d.Detection.MinVoicePreservation)
	}
	if !v.IsSet("detection.max_echo_reduction") {
		v.Set("detection.max_echo_reduction", d.Detection.MaxEchoReduction)
	}
	if !v.IsSet("detection.ml_weight") {
		v.Set("detection.ml_weight", d.Detection.MLWeight)
	}
	if !v.IsSet("detection.traditional_weight") {
		v.Set("detection.traditional_weight", d.Detection.TraditionalWeight)
	}
	if !v.IsSet("detection.mfcc_mode") {
		v.Set("detection.mfcc_mode", d.Detection.MFCCMode)
	}

	// Worker and batch defaults
	if !v.IsSet("worker.queue_size") {
		v.Set("worker.queue_size", d.Worker.QueueSize)
	}
	if !v.IsSet("batch.max_concurrency") {
		v.Set("batch.max_concurrency", d.Batch.MaxConcurrency)
	}

	// Output defaults
	if !v.IsSet("output.precision") {
		v.Set("output.precision", d.Output.Precision)
	}
	if !v.IsSet("output.detailed") {
		v.Set("output.detailed", d.Output.Detailed)
	}
	if !v.IsSet("output.colors") {
		v.Set("output.colors", d.Output.Colors)
	}

	// Metrics defaults
	if !v.IsSet("metrics.exporter") {
		v.Set("metrics.exporter", d.Metrics.Exporter)
	}
	if !v.IsSet("metrics.listen") {
		v.Set("metrics.listen", d.Metrics.Listen)
	}
}

// GetDefaultConfig returns the default configuration
func GetDefaultConfig() *Config {
	return &Config{
		Verbose:      false,
		LogLevel:     "info",
		LogFormat:    "console",
		OutputFormat: "table",

		Audio:     GetDefaultAudioConfig(),
		Detection: GetDefaultDetectionConfig(),
		Worker:    WorkerConfig{QueueSize: echo.DefaultQueueSize},
		Batch:     BatchConfig{MaxConcurrency: 4},
		Output:    GetDefaultOutputConfig(),
		Metrics: MetricsConfig{
			Exporter: telemetry.ExporterNone,
			Listen:   telemetry.DefaultListenAddr,
		},
	}
}

// GetDefaultAudioConfig returns the default audio settings for 16 kHz capture
func GetDefaultAudioConfig() AudioConfig {
	d := echo.DefaultConfig()
	return AudioConfig{
		SampleRate: d.SampleRate,
		WindowSize: d.WindowSize,
		HopSize:    d.HopSize,
	}
}

// GetDefaultDetectionConfig returns the tuned detection thresholds
func GetDefaultDetectionConfig() DetectionConfig {
	d := echo.DefaultConfig()
	return DetectionConfig{
		EchoThreshold:        d.EchoThreshold,
		RealSpeechThreshold:  d.RealSpeechThreshold,
		MinVoicePreservation: d.MinVoicePreservation,
		MaxEchoReduction:     d.MaxEchoReduction,
		MLWeight:             d.MLWeight,
		TraditionalWeight:    d.TraditionalWeight,
		MFCCMode:             string(d.MFCCMode),
	}
}

// GetDefaultOutputConfig returns default output settings
func GetDefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Precision: 3,
		Detailed:  false,
		Colors:    true,
	}
}
