package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Middleware resolves the Authorization header into a request identity.
// Resolution failures leave the identity zero; handlers decide whether the
// operation requires authentication.
func Middleware(log *slog.Logger, verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrInvalidToken) {
					log.Error("identity resolution failed", "err", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return "", false
	}
	return strings.TrimPrefix(h, prefix), true
}
