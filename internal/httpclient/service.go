package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/torosent/matchload/internal/auth"
	"github.com/torosent/matchload/internal/tracing"
)

const (
	registerPath  = "/api/auth/register"
	loginPath     = "/api/auth/login"
	queueJoinPath = "/api/queue/join"

	tokenPath = "data.token"

	maxLoggedBodyBytes = 1024
	maxResponseBytes   = 1 << 20
)

// ErrTokenMissing is returned when a successful login carries no token.
var ErrTokenMissing = errors.New("login response has no data.token")

// Credentials identify one synthetic user.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// JoinRequest is the queue admission body.
type JoinRequest struct {
	Mode           string `json:"mode"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// Service calls the match service's HTTP API.
type Service struct {
	client    *http.Client
	base      string
	propagate bool
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithTracePropagation injects W3C trace context into every request.
func WithTracePropagation(enabled bool) ServiceOption {
	return func(s *Service) {
		s.propagate = enabled
	}
}

// NewService validates baseURL and returns a Service that issues requests through client.
func NewService(client *http.Client, baseURL string, opts ...ServiceOption) (*Service, error) {
	if client == nil {
		return nil, errors.New("http client cannot be nil")
	}
	trimmed := strings.TrimSpace(baseURL)
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid http base %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid http base %q: scheme must be http or https", baseURL)
	}
	s := &Service{
		client: client,
		base:   strings.TrimRight(trimmed, "/"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates the user. Any HTTP status is reported as *HTTPError;
// callers decide whether it matters.
func (s *Service) Register(ctx context.Context, creds Credentials) error {
	resp, err := s.post(ctx, registerPath, creds, nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPError("register", resp)
	}
	return nil
}

// Login exchanges credentials for a bearer token. Only 200 counts as success.
func (s *Service) Login(ctx context.Context, creds Credentials) (string, error) {
	resp, err := s.post(ctx, loginPath, creds, nil)
	if err != nil {
		return "", err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return "", newHTTPError("login", resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read login response: %w", err)
	}
	token := gjson.GetBytes(body, tokenPath)
	if !token.Exists() || token.String() == "" {
		return "", ErrTokenMissing
	}
	return token.String(), nil
}

// JoinQueue asks for queue admission using the client's bearer credential.
// Only 200 counts as success.
func (s *Service) JoinQueue(ctx context.Context, creds auth.Provider, req JoinRequest) error {
	resp, err := s.post(ctx, queueJoinPath, req, creds)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return newHTTPError("queue join", resp)
	}
	return nil
}

func (s *Service) post(ctx context.Context, path string, body any, creds auth.Provider) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %s body: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if creds != nil {
		if err := creds.InjectHeader(ctx, req); err != nil {
			return nil, fmt.Errorf("auth provider inject header: %w", err)
		}
	}
	if s.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}
	return s.client.Do(req)
}

func newHTTPError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBodyBytes))
	return &HTTPError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(snippet)),
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
}
