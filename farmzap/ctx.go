package farmzap

import (
	"context"

	"go.uber.org/zap"
)

// ctxKey holds the context key under which the logger will be stored.
type ctxKey string

// Log retrieves a zap logger from the context. Returns a no-op logger if none is defined.
func Log(ctx context.Context) *zap.Logger {
	logs, ok := ctx.Value(ctxKey("farmzap.logger")).(*zap.Logger)
	if !ok {
		logs = zap.NewNop()
	}

	return logs
}

// WithLogger returns a context with the provided logger embedded.
func WithLogger(ctx context.Context, logs *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey("farmzap.logger"), logs)
}
