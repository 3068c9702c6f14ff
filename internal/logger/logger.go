package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// levels mirrors the config vocabulary; verbose is debug with caller info
var levels = map[string]zapcore.Level{
	"error":   zapcore.ErrorLevel,
	"warn":    zapcore.WarnLevel,
	"info":    zapcore.InfoLevel,
	"debug":   zapcore.DebugLevel,
	"verbose": zapcore.DebugLevel,
}

func Init() error {
	return InitWithLevel("info")
}

func InitWithLevel(logLevel string) error {
	return InitWithConfig(logLevel, "optionlab.log")
}

// InitWithConfig writes JSON logs at logLevel to logFilePath and mirrors
// warnings and errors to stderr. An empty path logs to stderr only.
func InitWithConfig(logLevel, logFilePath string) error {
	l, err := New(logLevel, logFilePath)
	if err != nil {
		return err
	}
	mu.Lock()
	global = l
	mu.Unlock()
	return nil
}

// New builds a logger without touching the global one
func New(logLevel, logFilePath string) (*zap.Logger, error) {
	level := ParseLevel(logLevel)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	stderr := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.WarnLevel && l >= level }),
	)
	cores := []zapcore.Core{stderr}

	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level))
	}

	opts := []zap.Option{}
	if strings.EqualFold(logLevel, "verbose") {
		opts = append(opts, zap.AddCaller())
	}
	return zap.New(zapcore.NewTee(cores...), opts...), nil
}

// ParseLevel maps a config level name to a zap level, defaulting to info
func ParseLevel(logLevel string) zapcore.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(logLevel))]; ok {
		return l
	}
	return zapcore.InfoLevel
}

// L returns the process logger. Before Init it discards everything.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync flushes buffered entries
func Sync() {
	_ = L().Sync()
}
