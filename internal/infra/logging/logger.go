package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Constants for log levels that match slog.Level values.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Type aliases for commonly used slog types.
type (
	Logger  = *slog.Logger
	Handler = slog.Handler
	Level   = slog.Level
)

//nolint:gochecknoglobals
var logLevelStrToLevel = map[string]Level{
	"debug": LevelDebug,
	"info":  LevelInfo,
	"warn":  LevelWarn,
	"error": LevelError,
}

// LoggerConfig holds configuration parameters for logging.
type LoggerConfig struct {
	// AppName is the application identifier added to all log entries
	AppName string

	// Output specifies where logs are written ("stdout", "stderr", "discard" or a file path)
	Output string `env:"OUTPUT" default:"stderr"`

	// Level sets the minimum log level ("debug", "info", "warn", "error")
	Level string `env:"LEVEL" default:"info"`

	// Filter specifies logger-name level overrides ("svc.authui:debug,infra:warn")
	Filter string `env:"FILTER" default:""`

	// JSON enables JSON-formatted output instead of human-readable console output
	JSON bool `env:"JSON" default:"false"`

	OutputHandle io.Writer
}

//nolint:gochecknoglobals
var (
	Group      = slog.Group
	GroupValue = slog.GroupValue

	config     LoggerConfig
	configLock sync.Mutex
)

// Configure sets up global logging configuration for the application.
// Loggers obtained before Configure keep their old handler.
func Configure(ctx context.Context, cfg LoggerConfig, appName string) {
	if err := configure(cfg, appName); err != nil {
		panic(err)
	}

	GetLogger("infra.logging").With(Group("config",
		"appName", appName,
		"output", cfg.Output,
		"level", cfg.Level,
		"filter", cfg.Filter,
		"json", cfg.JSON,
	)).DebugContext(ctx, "logging configured")
}

func configure(cfg LoggerConfig, appName string) error {
	configLock.Lock()
	defer configLock.Unlock()

	cfg.AppName = appName

	if cfg.OutputHandle == nil {
		switch cfg.Output {
		case "", "discard":
			cfg.OutputHandle = io.Discard
		case "stdout":
			cfg.OutputHandle = os.Stdout
		case "stderr":
			cfg.OutputHandle = os.Stderr
		default:
			file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}

			cfg.OutputHandle = file
		}
	}

	config = cfg

	slog.SetLogLoggerLevel(parseLogLevel(config.Level, LevelInfo))

	return nil
}

// GetLogLogger creates a standard library *log.Logger that writes through a slog.Logger.
// The HTTP server uses it as its ErrorLog.
func GetLogLogger(logger Logger, level Level) *log.Logger {
	handler := logger.With("stdlog", true).Handler()

	return slog.NewLogLogger(handler, level)
}

// GetLogger creates a new logger with the given dotted name using the global
// configuration. The name is attached as the "logger" attribute.
func GetLogger(name string) Logger {
	cfg := snapshot()

	if cfg.OutputHandle == nil || cfg.OutputHandle == io.Discard {
		return NewNopLogger()
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(parseLogLevel(cfg.Level, LevelInfo))

	var handler slog.Handler

	if cfg.JSON {
		//nolint:exhaustruct
		handler = slog.NewJSONHandler(cfg.OutputHandle, &slog.HandlerOptions{
			AddSource: true,
			Level:     levelVar,
		})
	} else {
		//nolint:exhaustruct
		handler = &ConsoleHandler{
			Output:    cfg.OutputHandle,
			Level:     levelVar,
			PkgLevels: cfg.getPkgLevels(),
		}
	}

	logger := slog.New(NewTracingHandler(handler))

	if cfg.AppName != "" {
		logger = logger.With("app", cfg.AppName)
	}

	return logger.With(loggerAttrKey, name)
}

func (cfg LoggerConfig) getPkgLevels() map[string]slog.Level {
	levels := make(map[string]slog.Level)

	for _, pkgLevel := range strings.Split(cfg.Filter, ",") {
		name, level, ok := strings.Cut(pkgLevel, ":")
		if !ok {
			continue
		}

		levels[strings.TrimSpace(name)] = parseLogLevel(level, LevelDebug)
	}

	return levels
}

func snapshot() LoggerConfig {
	configLock.Lock()
	defer configLock.Unlock()

	return config
}

func parseLogLevel(levelStr string, fallback Level) Level {
	levelStr = strings.TrimSpace(levelStr)
	levelStr = strings.ToLower(levelStr)

	level, ok := logLevelStrToLevel[levelStr]
	if !ok {
		return fallback
	}

	return level
}
