// Package logging wraps a zap sugared logger with the level switches the
// benchmark's quiet/debug flags need: quiet raises the level so only
// warnings and errors print, debug lowers it to include per-request
// tracing.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the facade the engine and driver log through. The zero value
// is not usable; construct one with New.
type Logger struct {
	z *zap.SugaredLogger
}

// Config selects the logger's verbosity. Debug takes priority over Quiet
// if both are set, since "show me everything" is the more specific ask.
type Config struct {
	Quiet bool
	Debug bool
}

// New builds a Logger writing human-readable, colorless lines to stderr,
// matching the rest of the pack's preference for a development-style
// console encoder over JSON when there's no log-aggregation pipeline in
// scope.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	switch {
	case cfg.Debug:
		level = zapcore.DebugLevel
	case cfg.Quiet:
		level = zapcore.WarnLevel
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	z, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z.Sugar()}, nil
}

// Debugf logs at debug level, visible only with the debug option.
func (l *Logger) Debugf(format string, args ...interface{}) { l.z.Debugf(format, args...) }

// Infof logs at info level, hidden by the quiet option.
func (l *Logger) Infof(format string, args ...interface{}) { l.z.Infof(format, args...) }

// Warnf logs at warn level, visible even under the quiet option.
func (l *Logger) Warnf(format string, args ...interface{}) { l.z.Warnf(format, args...) }

// Errorf logs at error level for a non-fatal, per-client failure.
func (l *Logger) Errorf(format string, args ...interface{}) { l.z.Errorf(format, args...) }

// Fatal logs at error level with structured fields before the caller
// converts the condition into a process exit code. It deliberately does
// not call os.Exit itself: the driver owns the exit-code contract.
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.z.Errorw(msg, keysAndValues...)
}

// Sync flushes buffered log entries. Call before process exit.
func (l *Logger) Sync() error {
	return l.z.Sync()
}
