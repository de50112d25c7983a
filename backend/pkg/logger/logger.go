package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger instance.
var Logger *zap.Logger

// Init builds the global logger for the given environment.
func Init(env string) error {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var err error
	Logger, err = config.Build()
	return err
}

// Sync flushes any buffered log entries.
func Sync() {
	if Logger != nil {
		_ = Logger.Sync()
	}
}

// Get returns the global logger, falling back to a development logger
// when Init has not been called (tests, mostly).
func Get() *zap.Logger {
	if Logger == nil {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	return Logger
}

// Named returns a child of the global logger with the given name.
func Named(name string) *zap.Logger {
	return Get().Named(name)
}
