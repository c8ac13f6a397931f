package logger

import (
	"io"
	"log/slog"
	"os"
)

// Format represents logger output format.
type Format string

const (
	// FormatJSON outputs structured logs for log aggregation systems.
	FormatJSON Format = "json"
	// FormatText outputs human-readable logs for development.
	FormatText Format = "text"
)

// Option configures logger creation.
type Option func(*config)

type config struct {
	level  slog.Level
	format Format
	output io.Writer
	attrs  []slog.Attr
}

// WithLevel sets the minimum level.
func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithFormat sets the output format; unknown formats fall back to JSON.
func WithFormat(f Format) Option {
	return func(c *config) {
		if f == FormatText {
			c.format = FormatText
		} else {
			c.format = FormatJSON
		}
	}
}

// WithOutput sets a custom output destination, ignoring nil writers.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

// WithAttr adds static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// WithDevelopment configures text output at debug level for the service.
func WithDevelopment(service string) Option {
	return func(c *config) {
		c.level = slog.LevelDebug
		c.format = FormatText
		if service != "" {
			c.attrs = append(c.attrs, slog.String("service", service))
		}
	}
}

// WithProduction configures JSON output at info level for the service.
func WithProduction(service string) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		c.format = FormatJSON
		if service != "" {
			c.attrs = append(c.attrs, slog.String("service", service))
		}
	}
}

// New creates a configured slog.Logger. Defaults are production-safe: JSON
// format at info level on stdout.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.level}

	var handler slog.Handler
	if cfg.format == FormatText {
		handler = slog.NewTextHandler(cfg.output, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(cfg.output, handlerOpts)
	}

	if len(cfg.attrs) > 0 {
		handler = handler.WithAttrs(cfg.attrs)
	}

	return slog.New(handler)
}

// SetAsDefault installs the logger as the process default.
func SetAsDefault(l *slog.Logger) {
	slog.SetDefault(l)
}
