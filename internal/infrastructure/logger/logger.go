package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // json, console
	Output io.Writer // defaults to stdout
}

// New creates a new zerolog logger based on config.
func New(cfg Config) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(output).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Caller().
		Logger()
}

// RequestFields identify the caller of a request in every log line.
type RequestFields struct {
	RequestID      string
	OrganizationID string
	UserID         string
}

// WithRequest attaches a child of base carrying fields to ctx.
func WithRequest(ctx context.Context, base zerolog.Logger, fields RequestFields) context.Context {
	lc := base.With()
	if fields.RequestID != "" {
		lc = lc.Str("request_id", fields.RequestID)
	}
	if fields.OrganizationID != "" {
		lc = lc.Str("organization_id", fields.OrganizationID)
	}
	if fields.UserID != "" {
		lc = lc.Str("user_id", fields.UserID)
	}
	l := lc.Logger()
	return l.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, or a disabled logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
