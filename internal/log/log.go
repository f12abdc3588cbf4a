// Package log provides structured logging for colortrack.
// It wraps zap with console/JSON output, optional file rotation and an
// in-memory ring that feeds the dashboard.
package log

import (
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the global logger.
type Options struct {
	Level      string `mapstructure:"level" json:"level"`   // debug, info, warn, error
	Format     string `mapstructure:"format" json:"format"` // console or json
	File       string `mapstructure:"file" json:"file"`     // Optional rotated log file
	MaxSizeMB  int    `mapstructure:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" json:"max_age_days"`
	Compress   bool   `mapstructure:"compress" json:"compress"`
	RingSize   int    `mapstructure:"ring_size" json:"ring_size"` // Entries kept for the dashboard
}

// DefaultOptions returns console logging at info level.
func DefaultOptions() Options {
	return Options{
		Level:      "info",
		Format:     "console",
		MaxSizeMB:  20,
		MaxBackups: 3,
		MaxAgeDays: 7,
		RingSize:   500,
	}
}

var (
	logger atomic.Pointer[zap.Logger]
	ring   atomic.Pointer[Ring]
	once   sync.Once
)

// Init initializes the global logger. Only the first call has an effect.
func Init(opts Options) {
	once.Do(func() {
		l, r := build(opts, zapcore.Lock(os.Stdout))
		logger.Store(l)
		ring.Store(r)
		zap.ReplaceGlobals(l)
	})
}

// New builds a standalone logger writing to out, plus the ring it feeds.
func New(opts Options, out zapcore.WriteSyncer) (*zap.Logger, *Ring) {
	return build(opts, out)
}

func build(opts Options, out zapcore.WriteSyncer) (*zap.Logger, *Ring) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder(opts.Format), out, level)}
	if opts.File != "" {
		cores = append(cores, zapcore.NewCore(encoder("json"), zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}), level))
	}

	r := NewRing(opts.RingSize, level)
	cores = append(cores, r)

	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel)), r
}

func encoder(format string) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	if format == "json" {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

// L returns the global logger instance.
func L() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	Init(DefaultOptions())
	return logger.Load()
}

// Logs returns the ring of recent entries.
func Logs() *Ring {
	L()
	return ring.Load()
}

// Sync flushes buffered entries.
func Sync() {
	if l := logger.Load(); l != nil {
		_ = l.Sync()
	}
}

// Debug logs at debug level with key/value pairs.
func Debug(msg string, kv ...any) {
	L().Sugar().Debugw(msg, kv...)
}

// Info logs at info level with key/value pairs.
func Info(msg string, kv ...any) {
	L().Sugar().Infow(msg, kv...)
}

// Warn logs at warn level with key/value pairs.
func Warn(msg string, kv ...any) {
	L().Sugar().Warnw(msg, kv...)
}

// Error logs at error level with key/value pairs.
func Error(msg string, kv ...any) {
	L().Sugar().Errorw(msg, kv...)
}

// With returns a logger with the given fields.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}
