package echo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/echo-guard/pkg/audio/fingerprint/extractors"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 16000, cfg.SampleRate)
	assert.Equal(t, 0.7, cfg.EchoThreshold)
	assert.Equal(t, 0.8, cfg.RealSpeechThreshold)
	assert.Equal(t, 0.15, cfg.MinVoicePreservation)
	assert.Equal(t, 0.85, cfg.MaxEchoReduction)
	assert.Equal(t, 0.6, cfg.MLWeight)
	assert.Equal(t, 0.4, cfg.TraditionalWeight)
	assert.Equal(t, extractors.MFCCPlaceholder, cfg.MFCCMode)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }, "sample rate"},
		{"window not power of two", func(c *Config) { c.WindowSize = 1000 }, "window size"},
		{"window too small", func(c *Config) { c.WindowSize = 1 }, "window size"},
		{"hop larger than window", func(c *Config) { c.HopSize = 2048 }, "hop size"},
		{"zero hop", func(c *Config) { c.HopSize = 0 }, "hop size"},
		{"echo threshold above one", func(c *Config) { c.EchoThreshold = 1.5 }, "echo threshold"},
		{"negative weight", func(c *Config) { c.MLWeight = -0.1 }, "ml weight"},
		{"unknown mfcc mode", func(c *Config) { c.MFCCMode = "wavelet" }, "wavelet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)

			_, err = NewDetector(cfg)
			assert.Error(t, err)
		})
	}
}

func TestEmptyMFCCModeMeansPlaceholder(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MFCCMode = ""

	d, err := NewDetector(cfg)
	require.NoError(t, err)
	assert.Equal(t, extractors.MFCCPlaceholder, d.Config().MFCCMode)
}
