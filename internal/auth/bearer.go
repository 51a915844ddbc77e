package auth

import (
	"context"
	"errors"
	"net/http"
)

// ErrEmptyToken is returned when a bearer provider has no token to inject.
var ErrEmptyToken = errors.New("bearer token is empty")

// BearerTokenProvider returns a token issued by the match service login
// endpoint. One provider belongs to exactly one client run.
type BearerTokenProvider struct {
	token string
}

// NewBearerTokenProvider wraps a login token.
func NewBearerTokenProvider(token string) *BearerTokenProvider {
	return &BearerTokenProvider{token: token}
}

// Token returns the login token without any network calls.
func (p *BearerTokenProvider) Token(ctx context.Context) (string, error) {
	if p.token == "" {
		return "", ErrEmptyToken
	}
	return p.token, nil
}

// InjectHeader sets "Authorization: Bearer <token>".
func (p *BearerTokenProvider) InjectHeader(ctx context.Context, req *http.Request) error {
	token, err := p.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// Close is a no-op for bearer providers.
func (p *BearerTokenProvider) Close() error {
	return nil
}
