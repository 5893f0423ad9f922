package logger

import (
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zap so call sites stay terse and the sink can change
// without touching them.
type Logger struct {
	z *zap.Logger
}

func (l *Logger) Debug(message string, fields ...zap.Field) {
	l.z.Debug(message, fields...)
}

func (l *Logger) Info(message string, fields ...zap.Field) {
	l.z.Info(message, fields...)
}

func (l *Logger) Warn(message string, fields ...zap.Field) {
	l.z.Warn(message, fields...)
}

func (l *Logger) Error(message string, fields ...zap.Field) {
	l.z.Error(message, fields...)
}

func (l *Logger) Fatal(message string, fields ...zap.Field) {
	l.z.Fatal(message, fields...)
}

func (l *Logger) Close() {
	_ = l.z.Sync()
}

// New creates a Logger writing to stderr, and additionally to a rotated
// file when path is not empty.
func New(level, path string) (*Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "logger: unknown level %q", level)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleConfig := encoderConfig
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleConfig),
			zapcore.Lock(os.Stderr),
			lvl,
		),
	}

	if path != "" {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   path,
				MaxSize:    100,
				MaxBackups: 10,
				MaxAge:     30,
				Compress:   true,
			}),
			lvl,
		))
	}

	return &Logger{z: zap.New(zapcore.NewTee(cores...))}, nil
}

// NewNop returns a Logger that discards everything. Used in tests.
func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}
