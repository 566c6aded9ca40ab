package obslog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Global logger; console and file cores may run side by side.
var globalLogger atomic.Pointer[zap.Logger]

func init() { globalLogger.Store(zap.NewNop()) }

// L returns the global logger.
func L() *zap.Logger { return globalLogger.Load() }

// Named returns the global logger scoped to one component.
func Named(component string) *zap.Logger { return L().Named(component) }

// Set replaces the global logger and returns a function restoring the previous one.
func Set(l *zap.Logger) (restore func()) {
	if l == nil {
		l = zap.NewNop()
	}
	prev := globalLogger.Swap(l)
	return func() { globalLogger.Store(prev) }
}

// Sync flushes buffered entries.
func Sync() { _ = L().Sync() }

// Settings mirrors the LOG_* environment.
type Settings struct {
	Level   zapcore.Level
	Format  string // legacy|json|console
	Console bool
	File    string // empty disables the file core
	Caller  bool
	Color   bool
}

// SettingsFromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_TO_CONSOLE, LOG_TO_FILE, LOG_FILE,
// LOG_CALLER and LOG_COLOR.
func SettingsFromEnv() Settings {
	s := Settings{
		Level:   parseLevel(getenvDefault("LOG_LEVEL", "info")),
		Format:  strings.ToLower(strings.TrimSpace(getenvDefault("LOG_FORMAT", "legacy"))),
		Console: strings.EqualFold(getenvDefault("LOG_TO_CONSOLE", "true"), "true"),
		Caller:  strings.EqualFold(getenvDefault("LOG_CALLER", "false"), "true"),
		Color:   strings.EqualFold(getenvDefault("LOG_COLOR", "false"), "true"),
	}
	if s.Format != "legacy" && s.Format != "json" && s.Format != "console" {
		s.Format = "legacy"
	}
	if strings.EqualFold(getenvDefault("LOG_TO_FILE", "true"), "true") {
		s.File = strings.TrimSpace(getenvDefault("LOG_FILE", filepath.Join("logs", "chess-arena.log")))
	}
	return s
}

// InitFromEnv builds the global logger from the environment.
func InitFromEnv() error {
	l, err := Build(SettingsFromEnv())
	if err != nil {
		return err
	}
	globalLogger.Store(l)
	return nil
}

// Build constructs a logger without installing it.
func Build(s Settings) (*zap.Logger, error) {
	var cores []zapcore.Core

	if s.Console {
		cores = append(cores, zapcore.NewCore(encoderFor(s.Format, s.Color), zapcore.AddSync(os.Stdout), s.Level))
	}

	if s.File != "" {
		if err := ensureDir(filepath.Dir(s.File)); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(s.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		// no ANSI colors in files
		cores = append(cores, zapcore.NewCore(encoderFor(s.Format, false), zapcore.AddSync(f), s.Level))
	}

	if len(cores) == 0 {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(os.Stdout), s.Level))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	if s.Caller || s.Format == "legacy" {
		logger = logger.WithOptions(zap.AddCaller())
	}
	return logger.WithOptions(zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func encoderFor(format string, color bool) zapcore.Encoder {
	switch format {
	case "json":
		return zapcore.NewJSONEncoder(jsonEncoderConfig())
	case "console":
		return zapcore.NewConsoleEncoder(consoleEncoderConfig(color))
	default:
		return zapcore.NewConsoleEncoder(legacyEncoderConfig())
	}
}

func ensureDir(dir string) error {
	if strings.TrimSpace(dir) == "" || dir == "." {
		return nil
	}
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "dpanic":
		return zapcore.DPanicLevel
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func legacyEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " | "
	return cfg
}

func consoleEncoderConfig(color bool) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return cfg
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}
