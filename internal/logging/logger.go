package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the log file created inside the log directory.
const FileName = "urlmonitor.log"

// NewLogger writes JSON lines to a rotating file in logDir and a readable
// copy to stderr, colored when stderr is a terminal.
func NewLogger(logDir, level string) (*zap.Logger, error) {
	fd := os.Stderr.Fd()
	color := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return newLogger(logDir, level, zapcore.Lock(os.Stderr), color)
}

func newLogger(logDir, level string, console zapcore.WriteSyncer, color bool) (*zap.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, FileName),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, lvl)

	if console == nil {
		return zap.New(fileCore), nil
	}
	ccfg := zap.NewDevelopmentEncoderConfig()
	ccfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	if color {
		ccfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(ccfg), console, lvl)

	return zap.New(zapcore.NewTee(fileCore, consoleCore)), nil
}

// ParseLevel accepts debug, info, warn and error. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zap.InfoLevel, nil
	case "debug":
		return zap.DebugLevel, nil
	case "warn", "warning":
		return zap.WarnLevel, nil
	case "error":
		return zap.ErrorLevel, nil
	default:
		return zap.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
