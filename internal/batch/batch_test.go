package batch

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/echo-guard/pkg/audio"
	"github.com/RyanBlaney/echo-guard/pkg/audio/echo"
)

func tone(n int, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/16000))
	}
	return out
}

func newTestWorker(t *testing.T) *echo.Worker {
	t.Helper()

	d, err := echo.NewDetector(echo.DefaultConfig())
	require.NoError(t, err)

	w := echo.NewWorker(d)
	t.Cleanup(w.Close)
	return w
}

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(`
pairs:
  - name: loopback
    primary: mic.wav
    secondary: speaker.wav
  - name: talk
    primary: /data/mic2.wav
    secondary: /data/speaker2.wav
`))
	require.NoError(t, err)
	require.Len(t, m.Pairs, 2)
	assert.Equal(t, Pair{Name: "loopback", Primary: "mic.wav", Secondary: "speaker.wav"}, m.Pairs[0])
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name   string
		yaml   string
		errMsg string
	}{
		{"empty", "pairs: []", "no pairs"},
		{"missing name", "pairs:\n  - primary: a.wav\n    secondary: b.wav", "no name"},
		{"missing secondary", "pairs:\n  - name: x\n    primary: a.wav", "both primary and secondary"},
		{"duplicate", "pairs:\n  - {name: x, primary: a, secondary: b}\n  - {name: x, primary: c, secondary: d}", "used by entries 0 and 1"},
		{"bad yaml", "pairs: [", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadManifestResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pairs:
  - name: one
    primary: audio/mic.wav
    secondary: /abs/speaker.wav
`), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "audio", "mic.wav"), m.Pairs[0].Primary)
	assert.Equal(t, "/abs/speaker.wav", m.Pairs[0].Secondary)
}

func TestPercentile(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}

	assert.Equal(t, 3.0, percentile(data, 50))
	assert.InDelta(t, 4.8, percentile(data, 95), 1e-12)
	assert.Equal(t, 1.0, percentile(data, 0))
	assert.Equal(t, 5.0, percentile(data, 100))
	assert.Equal(t, 7.0, percentile([]float64{7}, 95))
	assert.Zero(t, percentile(nil, 50))
}

func TestCalculateStats(t *testing.T) {
	stats := calculateStats([]float64{4, 2, 8, 6})

	assert.Equal(t, 4, stats.Count)
	assert.Equal(t, 2.0, stats.Min)
	assert.Equal(t, 8.0, stats.Max)
	assert.Equal(t, 5.0, stats.Mean)
	assert.Equal(t, 5.0, stats.Median)
	assert.InDelta(t, math.Sqrt(5), stats.StdDev, 1e-12)

	assert.Equal(t, &Stats{}, calculateStats(nil))
}

func TestSummarize(t *testing.T) {
	results := []*PairResult{
		{Name: "a", Result: &echo.EchoDetectionResult{IsEcho: true, EchoConfidence: 0.85, RealSpeechConfidence: 0.2, OverallConfidence: 0.85}, Elapsed: 2 * time.Millisecond},
		{Name: "b", Result: &echo.EchoDetectionResult{IsRealSpeech: true, EchoConfidence: 0, RealSpeechConfidence: 1, OverallConfidence: 1}, Elapsed: 4 * time.Millisecond},
		{Name: "c", Result: &echo.EchoDetectionResult{EchoConfidence: 0.5, RealSpeechConfidence: 0.5, OverallConfidence: 0.5}},
		{Name: "d", Error: errors.New("boom")},
	}

	s := Summarize(results)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Echo)
	assert.Equal(t, 1, s.RealSpeech)
	assert.Equal(t, 1, s.Uncertain)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 1.0/3, s.EchoRate, 1e-12)
	assert.InDelta(t, 1.0/3, s.RealSpeechRate, 1e-12)
	assert.Equal(t, 3, s.OverallConfidence.Count)
	assert.Equal(t, 1.0, s.OverallConfidence.Max)
	assert.Equal(t, 0.85, s.OverallConfidence.Median)
	assert.InDelta(t, 2.0, s.DetectionTimeMs.Mean, 1e-12)
}

func TestOrchestratorRun(t *testing.T) {
	dir := t.TempDir()
	mic := filepath.Join(dir, "mic.wav")
	speaker := filepath.Join(dir, "speaker.wav")
	silence := filepath.Join(dir, "silence.wav")

	require.NoError(t, audio.WriteWAV(mic, tone(4096, 440), 16000))
	require.NoError(t, audio.WriteWAV(speaker, tone(4096, 440), 16000))
	require.NoError(t, audio.WriteWAV(silence, make([]float32, 4096), 16000))

	manifest := &Manifest{Pairs: []Pair{
		{Name: "echo", Primary: mic, Secondary: speaker},
		{Name: "talk", Primary: mic, Secondary: silence},
		{Name: "missing", Primary: mic, Secondary: filepath.Join(dir, "nope.wav")},
	}}

	o := NewOrchestrator(newTestWorker(t), 16000, 2)
	report, err := o.Run(context.Background(), manifest)
	require.NoError(t, err)
	require.Len(t, report.Results, 3)

	assert.Equal(t, "echo", report.Results[0].Name)
	require.NotNil(t, report.Results[0].Result)
	assert.Equal(t, echo.VerdictEcho, report.Results[0].Result.Verdict())

	require.NotNil(t, report.Results[1].Result)
	assert.Equal(t, echo.VerdictRealSpeech, report.Results[1].Result.Verdict())

	assert.Nil(t, report.Results[2].Result)
	var loadErr *audio.LoadError
	assert.ErrorAs(t, report.Results[2].Error, &loadErr)
	assert.Contains(t, report.Results[2].ErrorText, "failed to load secondary")

	assert.Equal(t, 1, report.Summary.Echo)
	assert.Equal(t, 1, report.Summary.RealSpeech)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.False(t, report.EndTime.Before(report.StartTime))
}

func TestOrchestratorCustomLoader(t *testing.T) {
	samples := map[string][]float32{
		"a": tone(2048, 300),
		"b": tone(2048, 300),
	}
	load := func(path string, _ int) ([]float32, error) {
		return samples[path], nil
	}

	o := NewOrchestrator(newTestWorker(t), 16000, 1, WithLoader(load))
	report, err := o.Run(context.Background(), &Manifest{Pairs: []Pair{{Name: "x", Primary: "a", Secondary: "b"}}})
	require.NoError(t, err)
	assert.True(t, report.Results[0].Result.IsEcho)
}

func TestOrchestratorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	load := func(string, int) ([]float32, error) {
		return tone(1024, 300), nil
	}

	o := NewOrchestrator(newTestWorker(t), 16000, 1, WithLoader(load))
	_, err := o.Run(ctx, &Manifest{Pairs: []Pair{{Name: "x", Primary: "a", Secondary: "b"}}})
	assert.ErrorIs(t, err, context.Canceled)
}
