package observability

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the shared production logger: JSON output, ISO8601
// timestamps, level from LOG_LEVEL (info by default). Components receive it as
// an explicit handle; there is no package-level logger.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = parseLogLevel(os.Getenv("LOG_LEVEL"))
	return cfg.Build(zap.Fields(zap.String("service", "temperature-monitor")))
}

func parseLogLevel(s string) zap.AtomicLevel {
	var level zapcore.Level
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		level = zap.DebugLevel
	case "WARN":
		level = zap.WarnLevel
	case "ERROR":
		level = zap.ErrorLevel
	default:
		level = zap.InfoLevel
	}
	return zap.NewAtomicLevelAt(level)
}
