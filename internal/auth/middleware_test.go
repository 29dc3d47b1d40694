package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type staticVerifier struct {
	id  Identity
	err error
}

func (v staticVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	return v.id, v.err
}

func captureIdentity(dst *Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*dst = FromContext(r.Context())
	})
}

func TestMiddleware_ResolvesBearerToken(t *testing.T) {
	var got Identity
	mw := Middleware(slog.Default(), staticVerifier{id: Identity{UserID: "user_1", Email: "a@b.test"}})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer tok")
	mw(captureIdentity(&got)).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "user_1", got.UserID)
	assert.Equal(t, "a@b.test", got.Email)
}

func TestMiddleware_NoHeaderLeavesIdentityZero(t *testing.T) {
	var got Identity
	mw := Middleware(slog.Default(), staticVerifier{id: Identity{UserID: "user_1"}})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	mw(captureIdentity(&got)).ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, got.IsZero())
}

func TestMiddleware_InvalidTokenLeavesIdentityZero(t *testing.T) {
	var got Identity
	mw := Middleware(slog.Default(), staticVerifier{err: ErrInvalidToken})

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer bad")
	mw(captureIdentity(&got)).ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, got.IsZero())
}
