// Package auth carries the bearer credential a client obtains at login into
// the requests and stream handshake that follow.
package auth

import (
	"context"
	"net/http"
)

// Provider supplies an authentication token and injects it into outbound requests.
type Provider interface {
	// Token returns the current token.
	Token(ctx context.Context) (string, error)

	// InjectHeader sets the Authorization header on req.
	InjectHeader(ctx context.Context, req *http.Request) error

	// Close releases any resources held by the provider.
	Close() error
}

// Header builds a fresh header set carrying the provider's Authorization value,
// for transports such as the WebSocket dialer that take headers rather than a request.
func Header(ctx context.Context, p Provider) (http.Header, error) {
	req := &http.Request{Header: http.Header{}}
	if err := p.InjectHeader(ctx, req); err != nil {
		return nil, err
	}
	return req.Header, nil
}
