package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/skuportal/inventory/config"
)

// New builds the application logger. Development mode forces console output
// at debug level.
func New(cfg config.LoggerConfig, isDevelopment bool) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level.SetLevel(zapcore.InfoLevel)
	}

	zc := zap.NewProductionConfig()
	if isDevelopment {
		zc = zap.NewDevelopmentConfig()
		level.SetLevel(zapcore.DebugLevel)
	}
	zc.Level = level
	if cfg.Encoding != "" && !isDevelopment {
		zc.Encoding = cfg.Encoding
	}
	zc.DisableCaller = cfg.DisableCaller
	zc.DisableStacktrace = cfg.DisableStacktrace
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}
