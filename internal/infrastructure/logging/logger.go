package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-iot/internal/infrastructure/config"
)

// serviceName is attached to every entry as the "service" field.
const serviceName = "graylogic-iot"

// Logger is a slog.Logger carrying the coordinator's default fields.
// It is safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New creates a Logger from the logging section of config.yaml.
// Unknown formats fall back to JSON, unknown outputs to stdout.
func New(cfg config.LoggingConfig, version string) *Logger {
	return &Logger{Logger: slog.New(newHandler(outputFor(cfg.Output), cfg, version))}
}

// newHandler builds the slog handler writing to w.
func newHandler(w io.Writer, cfg config.LoggingConfig, version string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})
}

func outputFor(name string) io.Writer {
	if strings.EqualFold(name, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel maps debug, info, warn (or warning) and error to slog levels.
// Anything else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child Logger with extra default attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component returns a child Logger tagged with the subsystem name, e.g.
// logger.Component("mqtt").
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default is the logger used before configuration is loaded: JSON on
// stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
