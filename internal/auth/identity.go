package auth

import "context"

// Identity is the resolved caller. The zero value means unauthenticated.
type Identity struct {
	UserID string
	Email  string
	Admin  bool
}

func (id Identity) IsZero() bool {
	return id.UserID == ""
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller identity, zero when absent.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(ctxKey{}).(Identity)
	return id
}
