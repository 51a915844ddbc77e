package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/torosent/matchload/internal/auth"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	svc, err := NewService(NewClient(time.Second), server.URL+"/")
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return svc
}

func TestServiceLoginReturnsToken(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != loginPath || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var creds Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if creds.Username != "perf-1" || creds.Password != "pw" {
			t.Errorf("unexpected credentials %+v", creds)
		}
		w.Write([]byte(`{"data":{"token":"tok-1"},"error":null}`))
	})

	token, err := svc.Login(context.Background(), Credentials{Username: "perf-1", Password: "pw"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token != "tok-1" {
		t.Errorf("expected tok-1, got %q", token)
	}
}

func TestServiceLoginNonOK(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":"unauthorized"}}`))
	})

	_, err := svc.Login(context.Background(), Credentials{Username: "u", Password: "p"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.StatusCode)
	}
	if !strings.Contains(httpErr.Body, "unauthorized") {
		t.Errorf("expected body snippet, got %q", httpErr.Body)
	}
}

func TestServiceLoginCreatedIsNotSuccess(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"token":"tok"}}`))
	})

	_, err := svc.Login(context.Background(), Credentials{})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusCreated {
		t.Fatalf("expected HTTPError 201, got %v", err)
	}
}

func TestServiceLoginMissingToken(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	})

	if _, err := svc.Login(context.Background(), Credentials{}); !errors.Is(err, ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}

func TestServiceRegisterReportsStatus(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != registerPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusConflict)
	})

	err := svc.Register(context.Background(), Credentials{Username: "u"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected HTTPError 409, got %v", err)
	}
}

func TestServiceJoinQueueSendsBearerAndBody(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != queueJoinPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-9" {
			t.Errorf("expected bearer header, got %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["mode"] != "normal" || body["timeoutSeconds"] != float64(5) {
			t.Errorf("unexpected join body %v", body)
		}
		w.Write([]byte(`{"data":{"status":"queued"}}`))
	})

	err := svc.JoinQueue(context.Background(), auth.NewBearerTokenProvider("tok-9"), JoinRequest{Mode: "normal", TimeoutSeconds: 5})
	if err != nil {
		t.Fatalf("JoinQueue failed: %v", err)
	}
}

func TestServiceJoinQueueNonOK(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	err := svc.JoinQueue(context.Background(), auth.NewBearerTokenProvider("t"), JoinRequest{Mode: "normal"})
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusConflict {
		t.Fatalf("expected HTTPError 409, got %v", err)
	}
	if !strings.HasPrefix(httpErr.Error(), "queue join: HTTP 409") {
		t.Errorf("unexpected message %q", httpErr.Error())
	}
}

func TestClientTimeoutApplied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	svc, err := NewService(NewClient(20*time.Millisecond), server.URL)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	start := time.Now()
	if _, err := svc.Login(context.Background(), Credentials{}); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("timeout not enforced, took %s", elapsed)
	}
}

func TestNewServiceRejectsBadBase(t *testing.T) {
	for _, base := range []string{"", "ftp://example.com", "://bad"} {
		if _, err := NewService(NewClient(time.Second), base); err == nil {
			t.Errorf("expected error for base %q", base)
		}
	}
	if _, err := NewService(nil, "http://example.com"); err == nil {
		t.Error("expected error for nil client")
	}
}
