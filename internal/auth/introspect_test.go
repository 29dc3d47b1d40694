package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntrospectionClient_ActiveToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sess_abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"active":true,"user_id":"user_1","email":"a@b.test","admin":true}`))
	}))
	defer srv.Close()

	id, err := NewIntrospectionClient(srv.URL).Verify(context.Background(), "sess_abc")
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "user_1", Email: "a@b.test", Admin: true}, id)
}

func TestIntrospectionClient_InactiveToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"active":false}`))
	}))
	defer srv.Close()

	_, err := NewIntrospectionClient(srv.URL).Verify(context.Background(), "sess_expired")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIntrospectionClient_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewIntrospectionClient(srv.URL).Verify(context.Background(), "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
