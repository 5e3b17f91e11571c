package compass

import "context"

type ctxKey int

const ctxKeyVerbose ctxKey = iota

// WithVerbose marks the context so that bus adapters dump raw frames.
func WithVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxKeyVerbose, value)
}

func IsVerbose(ctx context.Context) bool {
	v, ok := ctx.Value(ctxKeyVerbose).(bool)
	return ok && v
}
