package logging

import (
	"context"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type requestIDKey struct{}

// WithRequestID stores the request id so every log line of the request carries it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// KitLogger adapts a go-kit logger to Logger.
type KitLogger struct {
	l log.Logger
}

// New builds a logger writing to w. format is "json" or "logfmt"; lvl is one of
// debug, info, warn, error (unknown values fall back to info).
func New(w io.Writer, format, lvl string) *KitLogger {
	var l log.Logger
	if strings.EqualFold(format, "json") {
		l = log.NewJSONLogger(log.NewSyncWriter(w))
	} else {
		l = log.NewLogfmtLogger(log.NewSyncWriter(w))
	}
	l = level.NewFilter(l, levelOption(lvl))
	l = log.With(l, "ts", log.DefaultTimestampUTC, "caller", log.Caller(4))
	return &KitLogger{l: l}
}

// NewKitLogger wraps an already configured go-kit logger.
func NewKitLogger(l log.Logger) *KitLogger {
	return &KitLogger{l: l}
}

// Nop returns a logger that discards everything.
func Nop() *KitLogger {
	return &KitLogger{l: log.NewNopLogger()}
}

func levelOption(lvl string) level.Option {
	switch strings.ToLower(lvl) {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

func keyvals(ctx context.Context, msg string, args []any) []any {
	kv := make([]any, 0, len(args)+4)
	kv = append(kv, "msg", msg)
	if ctx != nil {
		if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
			kv = append(kv, "request_id", id)
		}
	}
	return append(kv, args...)
}

func (k *KitLogger) Debug(ctx context.Context, msg string, args ...any) {
	_ = level.Debug(k.l).Log(keyvals(ctx, msg, args)...)
}

func (k *KitLogger) Info(ctx context.Context, msg string, args ...any) {
	_ = level.Info(k.l).Log(keyvals(ctx, msg, args)...)
}

func (k *KitLogger) Warn(ctx context.Context, msg string, args ...any) {
	_ = level.Warn(k.l).Log(keyvals(ctx, msg, args)...)
}

func (k *KitLogger) Error(ctx context.Context, msg string, args ...any) {
	_ = level.Error(k.l).Log(keyvals(ctx, msg, args)...)
}

func (k *KitLogger) With(args ...any) Logger {
	return &KitLogger{l: log.With(k.l, args...)}
}
