// Package zaplog backs the latency-benchmark-common logging interface with zap.
package zaplog

import (
	"context"
	"io"
	"os"
	"sort"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger implements logging.Logger on top of a zap logger.
// Loggers derived through WithFields share the level of their parent.
type Logger struct {
	base  *zap.Logger
	level zap.AtomicLevel
}

var _ logging.Logger = (*Logger)(nil)

// New builds a logger writing "json" or "console" encoded entries to w
func New(w io.Writer, format string, level logging.Level) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	atomicLevel := zap.NewAtomicLevelAt(toZapLevel(level))
	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), atomicLevel)

	return &Logger{base: zap.New(core), level: atomicLevel}
}

// NewFromZap wraps an existing zap logger, mainly for tests with zaptest/observer.
// SetLevel has no effect on loggers built this way beyond the core's own level.
func NewFromZap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{base: z, level: zap.NewAtomicLevelAt(zapcore.DebugLevel)}
}

// Install builds a stderr logger from configuration values and makes it the
// global logger returned by logging.WithFields and friends.
func Install(format, level string, verbose bool) logging.Logger {
	lvl := ParseLevel(level)
	if verbose {
		lvl = logging.DebugLevel
	}

	logger := New(os.Stderr, format, lvl)
	logging.SetGlobalLogger(logger)
	return logger
}

// ParseLevel maps "debug", "info", "warn", "error" and "fatal" to a level, defaulting to info
func ParseLevel(s string) logging.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return logging.InfoLevel
	}

	switch {
	case l <= zapcore.DebugLevel:
		return logging.DebugLevel
	case l == zapcore.InfoLevel:
		return logging.InfoLevel
	case l == zapcore.WarnLevel:
		return logging.WarnLevel
	case l == zapcore.ErrorLevel:
		return logging.ErrorLevel
	default:
		return logging.FatalLevel
	}
}

func toZapLevel(level logging.Level) zapcore.Level {
	switch level {
	case logging.DebugLevel:
		return zapcore.DebugLevel
	case logging.WarnLevel:
		return zapcore.WarnLevel
	case logging.ErrorLevel:
		return zapcore.ErrorLevel
	case logging.FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) Debug(msg string, fields ...logging.Fields) {
	l.base.Debug(msg, toZap(fields)...)
}

func (l *Logger) Info(msg string, fields ...logging.Fields) {
	l.base.Info(msg, toZap(fields)...)
}

func (l *Logger) Warn(msg string, fields ...logging.Fields) {
	l.base.Warn(msg, toZap(fields)...)
}

func (l *Logger) Error(err error, msg string, fields ...logging.Fields) {
	l.base.Error(msg, withError(err, fields)...)
}

// Fatal logs and exits the process
func (l *Logger) Fatal(err error, msg string, fields ...logging.Fields) {
	l.base.Fatal(msg, withError(err, fields)...)
}

func (l *Logger) WithFields(fields logging.Fields) logging.Logger {
	return &Logger{base: l.base.With(toZap([]logging.Fields{fields})...), level: l.level}
}

// WithContext adds the fields stored under "logger_fields", the key the
// common logging package reads
func (l *Logger) WithContext(ctx context.Context) logging.Logger {
	if fields, ok := ctx.Value("logger_fields").(logging.Fields); ok {
		return l.WithFields(fields)
	}
	return l
}

func (l *Logger) SetLevel(level logging.Level) {
	l.level.SetLevel(toZapLevel(level))
}

func withError(err error, fields []logging.Fields) []zap.Field {
	zf := toZap(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	return zf
}

// toZap flattens field sets into zap fields with keys sorted for stable output
func toZap(sets []logging.Fields) []zap.Field {
	n := 0
	for _, f := range sets {
		n += len(f)
	}
	if n == 0 {
		return nil
	}

	out := make([]zap.Field, 0, n)
	for _, f := range sets {
		keys := make([]string, 0, len(f))
		for k := range f {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out = append(out, zap.Any(k, f[k]))
		}
	}
	return out
}
