package utils

import (
	"log"
	"sync"

	"fastaid/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "fastaid"

// Logger is the process-wide logger. Use GetLogger, which builds it on first use.
var (
	Logger     *zap.Logger
	loggerOnce sync.Once
)

// LoggerOptions selects the encoder and level for a logger.
type LoggerOptions struct {
	Production bool
	Level      string
	Env        string
}

// loggerConfig is JSON with sampling in production and a colored console
// otherwise. Every entry carries the service and environment.
func loggerConfig(opts LoggerOptions) zap.Config {
	var cfg zap.Config
	if opts.Production {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(opts.Level, zap.InfoLevel))
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(opts.Level, zap.DebugLevel))
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.InitialFields = map[string]interface{}{"service": serviceName}
	if opts.Env != "" {
		cfg.InitialFields["env"] = opts.Env
	}
	return cfg
}

// NewLogger builds a logger from opts.
func NewLogger(opts LoggerOptions) (*zap.Logger, error) {
	return loggerConfig(opts).Build()
}

// InitializeLogger builds the process logger from the loaded config.
func InitializeLogger() {
	logger, err := NewLogger(LoggerOptions{
		Production: config.IsProduction(),
		Level:      config.AppConfig.LogLevel,
		Env:        config.AppConfig.Env,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	Logger = logger
	zap.ReplaceGlobals(Logger)
}

func GetLogger() *zap.Logger {
	loggerOnce.Do(func() {
		if Logger == nil {
			InitializeLogger()
		}
	})
	return Logger
}

// Component returns the process logger named for one subsystem, so entries
// can be filtered by their "logger" field.
func Component(name string) *zap.Logger {
	return GetLogger().Named(name)
}

func parseLevel(level string, fallback zapcore.Level) zapcore.Level {
	if level == "" {
		return fallback
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fallback
	}
	return l
}
