// Package logctx carries a zerolog logger through context.Context so that
// per-command fields (run_id, path, phase) follow the call stack.
//
//	ctx = logctx.WithRunID(logctx.WithLogger(ctx, base))
//	logctx.FromContext(ctx).Info().Msg("encoding")
package logctx

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
)

type loggerKey struct{}

type runIDKey struct{}

var (
	defaultLogger     zerolog.Logger
	defaultLoggerOnce sync.Once
)

func initDefaultLogger() {
	defaultLoggerOnce.Do(func() {
		defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	})
}

// DefaultLogger returns the logger used when a context carries none.
func DefaultLogger() zerolog.Logger {
	initDefaultLogger()
	return defaultLogger
}

// SetDefaultLogger overrides the default logger. Call it during startup only;
// it is not safe concurrently with FromContext.
func SetDefaultLogger(l zerolog.Logger) {
	initDefaultLogger()
	defaultLogger = l
}

// WithLogger returns a new context with the given logger attached.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext extracts the logger from the context, falling back to the
// default logger. It never returns a zero-value logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return DefaultLogger()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return DefaultLogger()
}

// WithStr returns a new context whose logger has the string field added.
func WithStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithUint32 returns a new context whose logger has the uint32 field added.
func WithUint32(ctx context.Context, key string, value uint32) context.Context {
	logger := FromContext(ctx).With().Uint32(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithRunID tags the context and its logger with a fresh KSUID. Run IDs sort
// by creation time, so log lines from one invocation group together.
func WithRunID(ctx context.Context) context.Context {
	id := ksuid.New().String()
	ctx = WithStr(ctx, "run_id", id)
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run ID set by WithRunID, or "" if none.
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
