// Package observability provides logging and metrics for gh-lazyqa.
package observability

import (
	"context"
	"regexp"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type loggerKey struct{}

// NewLogger builds a zap logger writing to stderr. encoding is "json" or
// "console"; an unknown level falls back to info.
//
// Level conventions:
//   - error: transport failures the operator must act on
//   - warn:  degraded operation (partial catalog, unreadable definition)
//   - info:  dispatches, located runs, mining summaries
//   - debug: dropped inputs, tier decisions, per-run log fetches
func NewLogger(levelName, encoding string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if encoding != "json" {
		encoding = "console"
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	if encoding == "console" {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderCfg.CallerKey = zapcore.OmitKey
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg.Build()
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the logger stored in the context, or fallback.
func LoggerFrom(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}

// TokenRedactionPlaceholder replaces credentials in logged strings.
const TokenRedactionPlaceholder = "[REDACTED]"

var (
	githubTokenPattern = regexp.MustCompile(`\b(gh[pousr]_[A-Za-z0-9]{20,}|github_pat_[A-Za-z0-9_]{20,})`)
	bearerPattern      = regexp.MustCompile(`(?i)\b(bearer|authorization:\s*token)\s+[A-Za-z0-9_\-.]+`)
	urlCredPattern     = regexp.MustCompile(`://[^/:@\s]+:[^@\s]+@`)
)

// RedactToken removes GitHub tokens and URL credentials from s.
func RedactToken(s string) string {
	s = githubTokenPattern.ReplaceAllString(s, TokenRedactionPlaceholder)
	s = bearerPattern.ReplaceAllStringFunc(s, func(m string) string {
		return bearerPattern.FindStringSubmatch(m)[1] + " " + TokenRedactionPlaceholder
	})
	return urlCredPattern.ReplaceAllString(s, "://"+TokenRedactionPlaceholder+"@")
}

// RedactedError is a zap field carrying err with credentials removed.
func RedactedError(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.String("error", RedactToken(err.Error()))
}
