package echo

import (
	"fmt"

	"github.com/RyanBlaney/echo-guard/pkg/audio/fingerprint/extractors"
)

// Config is the read-only configuration of a Detector. It is copied at
// construction and never changes afterwards.
type Config struct {
	SampleRate int `json:"sample_rate"`
	WindowSize int `json:"window_size"`
	HopSize    int `json:"hop_size"`

	EchoThreshold        float64 `json:"echo_threshold"`
	RealSpeechThreshold  float64 `json:"real_speech_threshold"`
	MinVoicePreservation float64 `json:"min_voice_preservation"`
	MaxEchoReduction     float64 `json:"max_echo_reduction"`

	MLWeight          float64 `json:"ml_weight"`
	TraditionalWeight float64 `json:"traditional_weight"`

	MFCCMode extractors.MFCCMode `json:"mfcc_mode"`
}

// DefaultConfig returns the tuned defaults for 16 kHz capture
func DefaultConfig() Config {
	return Config{
		SampleRate:           16000,
		WindowSize:           1024,
		HopSize:              512,
		EchoThreshold:        0.7,
		RealSpeechThreshold:  0.8,
		MinVoicePreservation: 0.15,
		MaxEchoReduction:     0.85,
		MLWeight:             0.6,
		TraditionalWeight:    0.4,
		MFCCMode:             extractors.MFCCPlaceholder,
	}
}

// Validate checks that every field is usable
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.WindowSize < 2 || c.WindowSize&(c.WindowSize-1) != 0 {
		return fmt.Errorf("window size must be a power of two >= 2, got %d", c.WindowSize)
	}
	if c.HopSize <= 0 || c.HopSize > c.WindowSize {
		return fmt.Errorf("hop size must be in (0, %d], got %d", c.WindowSize, c.HopSize)
	}

	unit := []struct {
		name  string
		value float64
	}{
		{"echo threshold", c.EchoThreshold},
		{"real speech threshold", c.RealSpeechThreshold},
		{"min voice preservation", c.MinVoicePreservation},
		{"max echo reduction", c.MaxEchoReduction},
		{"ml weight", c.MLWeight},
		{"traditional weight", c.TraditionalWeight},
	}
	for _, u := range unit {
		if u.value < 0 || u.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %g", u.name, u.value)
		}
	}

	if _, err := extractors.ParseMFCCMode(string(c.MFCCMode)); err != nil {
		return err
	}

	return nil
}
