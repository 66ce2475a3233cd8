// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package: text output while developing, JSON
// in production, with the deployment environment attached to every record.
package logger
