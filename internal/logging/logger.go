package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const FileName = "healthwatch.log"

// NewLogger writes JSON logs to a rotated file under logDir and, when
// stderr is set, a console copy to stderr. An unknown level means info.
func NewLogger(logDir, level string, stderr bool) (*zap.Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	if level != "" {
		if l, err := zapcore.ParseLevel(level); err == nil {
			lvl.SetLevel(l)
		}
	}

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, FileName),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), w, lvl)
	if stderr {
		con := zap.NewDevelopmentEncoderConfig()
		core = zapcore.NewTee(core, zapcore.NewCore(zapcore.NewConsoleEncoder(con), zapcore.Lock(os.Stderr), lvl))
	}
	return zap.New(core, zap.AddCaller()), nil
}
