package logging

import (
	"fmt"

	"github.com/mikey/vertretungsanalyse/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes a logger based on configuration. Logs go to stderr
// so that analysis output on stdout stays clean.
func InitLogger(cfg *config.Config) (*zap.Logger, error) {
	return NewLogger(cfg.GetString("logging.level"), cfg.GetString("logging.format"))
}

// NewLogger builds a JSON logger for format "json" and a colored console
// logger otherwise. Unknown levels fall back to info.
func NewLogger(levelName, format string) (*zap.Logger, error) {
	var logConfig zap.Config
	if format == "json" {
		logConfig = zap.NewProductionConfig()
	} else {
		logConfig = zap.NewDevelopmentConfig()
		logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	logConfig.Level = zap.NewAtomicLevelAt(parseLevel(levelName))
	logConfig.OutputPaths = []string{"stderr"}
	logConfig.ErrorOutputPaths = []string{"stderr"}

	logger, err := logConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return logger, nil
}

func parseLevel(name string) zapcore.Level {
	switch name {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
