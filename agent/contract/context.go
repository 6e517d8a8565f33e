package contract

import "context"

// RequestMeta identifies the caller behind one agent execution. Tools
// that write on the caller's behalf read it from the context instead
// of trusting model-produced arguments.
type RequestMeta struct {
	SessionID string
	UserID    string
}

type requestMetaKey struct{}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}
