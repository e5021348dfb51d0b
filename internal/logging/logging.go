// Package logging builds the zap logger used across the engine and adds the
// CRITICAL and FATAL severities the settlement audit trail needs.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment selects the encoder profile.
type Environment string

const (
	EnvironmentProduction  Environment = "production"
	EnvironmentDevelopment Environment = "development"
)

// Severity values carried in the "severity" field for conditions zap has no
// level for. Both are emitted at error level and never exit the process.
const (
	SeverityCritical = "CRITICAL"
	SeverityFatal    = "FATAL"
)

// Config holds logger construction inputs.
type Config struct {
	Environment Environment
	Level       string
}

// New creates a logger for cfg.
func New(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	switch cfg.Environment {
	case EnvironmentProduction:
		zc = zap.NewProductionConfig()
	case EnvironmentDevelopment, "":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid environment %q", cfg.Environment)
	}

	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.DisableStacktrace = true

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("not a valid level: %q", s)
	}
}

// Critical logs a condition the engine recovered from but an operator must see.
func Critical(l *zap.Logger, msg string, fields ...zap.Field) {
	l.Error(msg, append(fields, zap.String("severity", SeverityCritical))...)
}

// Fatal logs an unrecoverable integrity defect. It does not exit.
func Fatal(l *zap.Logger, msg string, fields ...zap.Field) {
	l.Error(msg, append(fields, zap.String("severity", SeverityFatal))...)
}
