package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ZapOptions configures the production zap backend.
type ZapOptions struct {
	Level      string // debug, info, warn, error
	File       string // empty means stdout only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewZapLogger builds a Logger backed by a sugared zap logger writing to
// stdout and, when a file is configured, a size-rotated log file.
func NewZapLogger(prefix string, options ZapOptions) (Logger, func(), error) {
	level := zapcore.InfoLevel
	if err := level.Set(options.Level); options.Level != "" && err != nil {
		return nil, nil, err
	}

	var sink io.Writer = os.Stdout
	var rotator *lumberjack.Logger
	if options.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   options.File,
			MaxSize:    options.MaxSizeMB,
			MaxBackups: options.MaxBackups,
			MaxAge:     options.MaxAgeDays,
			Compress:   true,
		}
		sink = io.MultiWriter(os.Stdout, rotator)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(sink),
		level,
	)

	zapLogger := zap.New(core)
	sugar := zapLogger.Sugar()

	cleanup := func() {
		_ = zapLogger.Sync()
		if rotator != nil {
			_ = rotator.Close()
		}
	}

	logger := NewLogger(prefix, LogFuncs{
		Debugf: sugar.Debugf,
		Infof:  sugar.Infof,
		Warnf:  sugar.Warnf,
		Errorf: sugar.Errorf,
	})

	return logger, cleanup, nil
}
