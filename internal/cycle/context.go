package cycle

import (
	"context"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// WithID returns a context carrying the cycle correlation id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// ID returns the cycle correlation id carried by ctx, or "".
func ID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Logger annotates log with the cycle id carried by ctx.
func Logger(ctx context.Context, log logrus.FieldLogger) logrus.FieldLogger {
	if id := ID(ctx); id != "" {
		return log.WithField("cycle_id", id)
	}
	return log
}
