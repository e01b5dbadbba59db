package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logger configuration
type LogConfig struct {
	Level       string
	Environment string
	ServiceName string
	// File enables a rotated JSON log file next to stdout when set
	File string
}

var log = zap.NewNop()

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger builds the global logger. Production uses JSON output, everything else the
// colored console encoder.
func InitLogger(config *LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(parseLevel(config.Level))
	fields := zap.Fields(
		zap.String("service", config.ServiceName),
		zap.String("environment", config.Environment),
	)

	var zapConfig zap.Config
	if config.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.TimeKey = "timestamp"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapConfig.Level = level

	var built *zap.Logger
	if config.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     14,
		}
		fileEncoder := zap.NewProductionEncoderConfig()
		fileEncoder.TimeKey = "timestamp"
		fileEncoder.EncodeTime = zapcore.ISO8601TimeEncoder

		var consoleEncoder zapcore.Encoder
		if config.Environment == "production" {
			consoleEncoder = zapcore.NewJSONEncoder(zapConfig.EncoderConfig)
		} else {
			consoleEncoder = zapcore.NewConsoleEncoder(zapConfig.EncoderConfig)
		}

		core := zapcore.NewTee(
			zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoder), zapcore.AddSync(rotated), level),
			zapcore.NewCore(consoleEncoder, zapcore.AddSync(os.Stdout), level),
		)
		built = zap.New(core, zap.AddCaller(), fields)
	} else {
		var err error
		built, err = zapConfig.Build(fields)
		if err != nil {
			return nil, err
		}
	}

	log = built
	zap.ReplaceGlobals(log)
	return log, nil
}

// GetLogger returns the global logger instance. Before InitLogger it is a no-op logger.
func GetLogger() *zap.Logger {
	return log
}

// SetLogger replaces the global logger (tests use zaptest/observer loggers)
func SetLogger(l *zap.Logger) {
	log = l
}
