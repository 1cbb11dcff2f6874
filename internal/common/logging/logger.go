// Package logging provides structured logging using zap
package logging

import (
	"context"
	"fmt"
	"os"
)

// NewDefaultLogger creates a logger with default configuration using zap
func NewDefaultLogger() Logger {
	logger, err := NewZapLogger(DefaultLogConfig())
	if err != nil {
		panic(fmt.Sprintf("failed to initialize default zap logger: %v", err))
	}
	return logger
}

// InitGlobalLogger configures the global logger from a level name and an
// optional log file. An empty file name logs to stderr.
func InitGlobalLogger(levelName, fileName string) (func() error, error) {
	config := LogConfig{
		Level: ParseLevel(levelName),
		Name:  "erbgo",
	}

	closer := func() error { return nil }
	if fileName != "" {
		file, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file %s: %w", fileName, err)
		}
		config.Output = file
		config.JSON = true
		closer = file.Close
	}

	logger, err := NewZapLogger(config)
	if err != nil {
		return nil, err
	}
	SetGlobalLogger(logger)

	logger.Debug("Logger initialized",
		String("level", config.Level.String()),
		String("log_file", fileName),
	)

	return func() error {
		MustSync()
		return closer()
	}, nil
}

// MustSync flushes any buffered log entries for zap loggers
func MustSync() {
	if zapLogger, ok := GetGlobalLogger().(*ZapAdapter); ok {
		_ = zapLogger.Sync()
	}
}

// WithContext is a convenience function to add context to the global logger
func WithContext(ctx context.Context) Logger {
	return GetGlobalLogger().WithContext(ctx)
}

// ContextWithRequestID returns ctx carrying a request id for WithContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// ContextWithTemplate returns ctx carrying a template name for WithContext.
func ContextWithTemplate(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, TemplateKey, name)
}
