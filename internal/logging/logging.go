// Package logging builds the diagnostic logger handed to pipeline
// components. User-facing output goes through internal/ui instead.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level picks the minimum level: debug wins over quiet.
func Level(debug, quiet bool) zapcore.Level {
	switch {
	case debug:
		return zapcore.DebugLevel
	case quiet:
		return zapcore.ErrorLevel
	}
	return zapcore.WarnLevel
}

// New returns a console logger on stderr. The returned logger is also
// installed as zap's global so zap.L() callers share it.
func New(debug, quiet bool) *zap.Logger {
	return newLogger(zapcore.Lock(os.Stderr), Level(debug, quiet))
}

func newLogger(w zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), w, level)

	log := zap.New(core)
	if level == zapcore.DebugLevel {
		log = log.WithOptions(zap.AddCaller())
	}
	zap.ReplaceGlobals(log)
	return log.Named("aebs")
}
