// Package logger builds configured slog.Logger instances with JSON output
// for production aggregation or text output for development, plus shared
// attribute helpers so log fields stay consistently named across packages.
package logger
