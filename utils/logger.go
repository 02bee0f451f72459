package utils

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/aclio/aclio/config"
)

var (
	// Logger is the process-wide structured logger of the proxy.
	Logger *zap.Logger
	// Sugar is Logger's sugared form, for printf-style call sites.
	Sugar *zap.SugaredLogger
)

// InitLogger tees stdout and an optional rolling file, both at cfg.LogLevel.
// Stdout is human-readable in gin debug mode and JSON otherwise.
func InitLogger(cfg config.AppConfig) error {
	level := parseLevel(cfg.LogLevel)
	enc := encoderConfig()

	stdoutEnc := zapcore.NewJSONEncoder(enc)
	if strings.EqualFold(cfg.GinMode, "debug") {
		dev := enc
		dev.EncodeLevel = zapcore.CapitalColorLevelEncoder
		stdoutEnc = zapcore.NewConsoleEncoder(dev)
	}
	cores := []zapcore.Core{zapcore.NewCore(stdoutEnc, zapcore.Lock(os.Stdout), level)}

	if cfg.LogPath != "" {
		ws, err := rollingWriter(cfg.LogPath, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err != nil {
			return err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, level))
	}

	opts := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service", "aclio-proxy")),
	}
	if level == zapcore.DebugLevel {
		opts = append(opts, zap.Development())
	}
	Logger = zap.New(zapcore.NewTee(cores...), opts...)
	Sugar = Logger.Sugar()
	return nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     timeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// rollingWriter creates the parent directory and returns a lumberjack sink.
// Zero sizes fall back to 100 MB, 3 backups and 7 days.
func rollingWriter(path string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) (zapcore.WriteSyncer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    nz(maxSizeMB, 100),
		MaxBackups: nz(maxBackups, 3),
		MaxAge:     nz(maxAgeDays, 7),
		Compress:   compress,
	}), nil
}

func timeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

// parseLevel maps unknown or empty names to info.
func parseLevel(s string) zapcore.Level {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func nz(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
