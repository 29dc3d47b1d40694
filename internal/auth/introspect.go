package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrInvalidToken = errors.New("invalid token")

// Verifier resolves a bearer token to an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// IntrospectionClient asks the managed auth provider who a session token
// belongs to.
type IntrospectionClient struct {
	url    string
	client *http.Client
}

func NewIntrospectionClient(url string) *IntrospectionClient {
	return &IntrospectionClient{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type introspectionResponse struct {
	Active bool   `json:"active"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Admin  bool   `json:"admin"`
}

func (c *IntrospectionClient) Verify(ctx context.Context, token string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("auth introspection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Identity{}, ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("auth introspection: status %d", resp.StatusCode)
	}

	var body introspectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Identity{}, fmt.Errorf("auth introspection: %w", err)
	}
	if !body.Active {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: body.UserID, Email: body.Email, Admin: body.Admin}, nil
}
