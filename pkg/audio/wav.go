package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// LoadWAV reads a PCM WAV file into mono float32 samples in [-1, 1].
// Multi-channel audio is downmixed by averaging. When expectedRate is positive
// the file must already be at that rate; resampling is left to the caller.
func LoadWAV(path string, expectedRate int) ([]float32, error) {
	logger := logging.WithFields(logging.Fields{
		"function": "LoadWAV",
		"path":     path,
	})

	f, err := os.Open(path)
	if err != nil {
		return nil, NewLoadError(path, ErrCodeDecoding, "failed to open audio file", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, NewLoadError(path, ErrCodeInvalidFormat, "not a valid WAV file", nil)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, NewLoadError(path, ErrCodeDecoding, "failed to read PCM buffer", err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, NewLoadError(path, ErrCodeInvalidFormat, "missing channel layout", nil)
	}

	if expectedRate > 0 && buf.Format.SampleRate != expectedRate {
		return nil, NewLoadError(path, ErrCodeUnsupportedRate,
			fmt.Sprintf("expected %d Hz, got %d Hz", expectedRate, buf.Format.SampleRate), nil)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = int(decoder.BitDepth)
	}
	if bitDepth < 8 || bitDepth > 32 {
		return nil, NewLoadError(path, ErrCodeInvalidFormat,
			fmt.Sprintf("unsupported bit depth %d", bitDepth), nil)
	}

	samples := toMono(buf, bitDepth)

	logger.Debug("WAV file loaded", logging.Fields{
		"sample_rate": buf.Format.SampleRate,
		"channels":    buf.Format.NumChannels,
		"bit_depth":   bitDepth,
		"samples":     len(samples),
	})

	return samples, nil
}

// toMono scales integer PCM to [-1, 1] and averages interleaved channels
func toMono(buf *goaudio.IntBuffer, bitDepth int) []float32 {
	channels := buf.Format.NumChannels
	// 8-bit WAV is unsigned and go-audio leaves it unshifted
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}
	scale := float64(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	out := make([]float32, frames)
	for i := range frames {
		sum := 0.0
		for ch := range channels {
			sum += float64(buf.Data[i*channels+ch]-offset) / scale
		}
		out[i] = float32(sum / float64(channels))
	}
	return out
}

// WriteWAV stores mono float32 samples as 16-bit PCM
func WriteWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		v := float64(s)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		data[i] = int(v * 32767)
	}

	encoder := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return encoder.Close()
}
