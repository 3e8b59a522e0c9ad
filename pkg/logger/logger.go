package logger

import (
	"os"
	"path/filepath"

	"ytthumb/internal/model"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger. It is a no-op until Init runs.
var Logger = zap.NewNop()

// Init initializes the logger
func Init(cfg *model.LoggingConfig) error {
	outputs := []string{"stdout"}
	errOutputs := []string{"stderr"}
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}
		outputs = append(outputs, cfg.FilePath)
		errOutputs = append(errOutputs, cfg.FilePath)
	}

	var logLevel zapcore.Level
	if err := logLevel.UnmarshalText([]byte(cfg.Level)); err != nil {
		logLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(logLevel),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      outputs,
		ErrorOutputPaths: errOutputs,
	}

	built, err := config.Build()
	if err != nil {
		return err
	}
	Logger = built

	return nil
}

// Named returns a child of the process logger for a component
func Named(name string) *zap.Logger {
	return Logger.Named(name)
}

// Sync flushes the logger
func Sync() error {
	if Logger != nil {
		return Logger.Sync()
	}
	return nil
}
