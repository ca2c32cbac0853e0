// Package telemetry wires the ambient observability stack: structured
// logging, Prometheus metrics, and an OpenTelemetry tracer provider.
// Only cmd/api's composition root constructs these collaborators; nothing
// under internal/ reads environment variables or global state directly
// (§6.4).
package telemetry

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap.Logger for the given level ("debug", "info",
// "warn", "error") and environment ("production" uses JSON encoding and
// ISO8601 timestamps; anything else uses zap's human-readable console
// encoding).
func NewLogger(level, environment string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
