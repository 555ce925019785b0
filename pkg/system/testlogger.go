package system

import (
	"go.uber.org/zap"
)

// NewTestLogger is the sugared form of NewTestZapLogger.
func NewTestLogger() *zap.SugaredLogger {
	return NewTestZapLogger().Sugar()
}

// NewTestZapLogger logs at debug level to stderr without stack traces, so
// failing handlers stay readable in test output.
func NewTestZapLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
