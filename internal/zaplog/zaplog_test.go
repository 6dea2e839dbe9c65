package zaplog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithFieldsCarriesContext(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core)).WithFields(logging.Fields{
		"component": "spectral_analyzer",
	})

	logger.Debug("Computing spectrum", logging.Fields{"fft_size": 1024})

	require.Equal(t, 1, logs.Len())
	ctx := logs.All()[0].ContextMap()
	assert.Equal(t, "spectral_analyzer", ctx["component"])
	assert.EqualValues(t, 1024, ctx["fft_size"])
}

func TestErrorAttachesCause(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := NewFromZap(zap.New(core))

	logger.Error(errors.New("boom"), "Failed to load WAV")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "boom", entry.ContextMap()["error"])
}

func TestWithContextReadsLoggerFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewFromZap(zap.New(core))

	ctx := context.WithValue(context.Background(), "logger_fields", logging.Fields{"pair": "loopback"})
	logger.WithContext(ctx).Info("Pair loaded")
	logger.WithContext(context.Background()).Info("No fields")

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "loopback", logs.All()[0].ContextMap()["pair"])
	assert.Empty(t, logs.All()[1].ContextMap())
}

func TestSetLevelIsSharedWithChildren(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "json", logging.InfoLevel)
	child := logger.WithFields(logging.Fields{"component": "echo_worker"})

	child.Debug("hidden")
	assert.Zero(t, buf.Len())

	logger.SetLevel(logging.DebugLevel)
	child.Debug("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "echo_worker", entry["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logging.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logging.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, logging.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, logging.FatalLevel, ParseLevel("fatal"))
	assert.Equal(t, logging.InfoLevel, ParseLevel("nonsense"))
}

func TestInstallSetsGlobalLogger(t *testing.T) {
	previous := logging.GetGlobalLogger()
	t.Cleanup(func() { logging.SetGlobalLogger(previous) })

	installed := Install("json", "warn", true)

	assert.Same(t, installed, logging.GetGlobalLogger())
	assert.Equal(t, zapcore.DebugLevel, installed.(*Logger).level.Level())
}

func TestNewFromZapNil(t *testing.T) {
	assert.NotPanics(t, func() {
		NewFromZap(nil).Info("dropped")
	})
}
