package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/matchload/internal/config"
)

func TestParseFlagsDefaults(t *testing.T) {
	loader := config.NewLoader()

	cfg, err := loader.Load([]string{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPBase != "http://127.0.0.1:8080" {
		t.Errorf("HTTPBase = %q", cfg.HTTPBase)
	}
	if cfg.StreamURL != "ws://127.0.0.1:8080/ws" {
		t.Errorf("StreamURL = %q", cfg.StreamURL)
	}
	if cfg.Clients != 10 {
		t.Errorf("Clients = %d, want 10", cfg.Clients)
	}
	if cfg.QueueTimeout != 5 {
		t.Errorf("QueueTimeout = %d, want 5", cfg.QueueTimeout)
	}
	if cfg.SessionTimeout != 15*time.Second {
		t.Errorf("SessionTimeout = %s, want 15s", cfg.SessionTimeout)
	}
	if cfg.HTTPTimeout != 5*time.Second || cfg.StreamConnectTimeout != 5*time.Second {
		t.Errorf("timeouts = %s/%s, want 5s/5s", cfg.HTTPTimeout, cfg.StreamConnectTimeout)
	}
	if cfg.Password != "perfpass" || cfg.UserPrefix != "perf" {
		t.Errorf("credentials = %q/%q", cfg.UserPrefix, cfg.Password)
	}
	if cfg.RampDelay != 50*time.Millisecond {
		t.Errorf("RampDelay = %s, want 50ms", cfg.RampDelay)
	}
	if cfg.QueueMode != "normal" {
		t.Errorf("QueueMode = %q, want normal", cfg.QueueMode)
	}
	if cfg.JSONOutput || cfg.LogErrors || cfg.Progress || cfg.FailOnError {
		t.Errorf("output toggles should default to off: %+v", cfg)
	}
	if cfg.Tracing.Enabled() || cfg.Tracing.Propagate != nil {
		t.Errorf("tracing should default to disabled: %+v", cfg.Tracing)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadFlags(t *testing.T) {
	cfg, err := config.NewLoader().Load([]string{
		"-c", "25",
		"--http-base", "https://match.example.com",
		"--ws-url", "wss://match.example.com/ws",
		"--session-timeout", "30s",
		"--ramp-delay", "0s",
		"--queue-timeout", "8",
		"--tracing-propagate=false",
		"--log-errors",
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Clients != 25 {
		t.Errorf("Clients = %d, want 25", cfg.Clients)
	}
	if cfg.HTTPBase != "https://match.example.com" || cfg.StreamURL != "wss://match.example.com/ws" {
		t.Errorf("urls = %q %q", cfg.HTTPBase, cfg.StreamURL)
	}
	if cfg.SessionTimeout != 30*time.Second || cfg.RampDelay != 0 || cfg.QueueTimeout != 8 {
		t.Errorf("unexpected timing config %+v", cfg)
	}
	if cfg.Tracing.Propagate == nil || *cfg.Tracing.Propagate {
		t.Errorf("Propagate = %v, want explicit false", cfg.Tracing.Propagate)
	}
	if !cfg.LogErrors {
		t.Error("LogErrors = false, want true")
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"http_base": "http://10.0.0.5:8080",
		"wsUrl": "ws://10.0.0.5:8080/ws",
		"clients": 200,
		"session_timeout": 20,
		"ramp_delay": 0.01,
		"http-timeout": "2s",
		"queue_mode": "ranked",
		"json_output": true,
		"tracing": {"endpoint": "otel:4317", "sample_rate": 0.25, "insecure": true}
	}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path, "--clients", "3"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
	if cfg.HTTPBase != "http://10.0.0.5:8080" || cfg.StreamURL != "ws://10.0.0.5:8080/ws" {
		t.Errorf("urls = %q %q", cfg.HTTPBase, cfg.StreamURL)
	}
	if cfg.Clients != 3 {
		t.Errorf("Clients = %d, want flag override 3", cfg.Clients)
	}
	if cfg.SessionTimeout != 20*time.Second {
		t.Errorf("SessionTimeout = %s, want 20s", cfg.SessionTimeout)
	}
	if cfg.RampDelay != 10*time.Millisecond {
		t.Errorf("RampDelay = %s, want 10ms", cfg.RampDelay)
	}
	if cfg.HTTPTimeout != 2*time.Second {
		t.Errorf("HTTPTimeout = %s, want 2s", cfg.HTTPTimeout)
	}
	if cfg.QueueMode != "ranked" || !cfg.JSONOutput {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Tracing.Endpoint != "otel:4317" || cfg.Tracing.SampleRate != 0.25 || !cfg.Tracing.Insecure {
		t.Errorf("unexpected tracing %+v", cfg.Tracing)
	}
	if !cfg.Tracing.ShouldPropagate() {
		t.Error("ShouldPropagate() = false, want true with endpoint set")
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"clients: 4",
		"user-prefix: soak",
		"ws-connect-timeout: 750ms",
		"log_level: DEBUG",
		"tracing_protocol: HTTP",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Clients != 4 || cfg.UserPrefix != "soak" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.StreamConnectTimeout != 750*time.Millisecond {
		t.Errorf("StreamConnectTimeout = %s, want 750ms", cfg.StreamConnectTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Tracing.Protocol != "http" {
		t.Errorf("Tracing.Protocol = %q, want http", cfg.Tracing.Protocol)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"clients": 50, "password": "from-file"}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("MATCHLOAD_CLIENTS", "75")
	t.Setenv("MATCHLOAD_SESSION_TIMEOUT", "2.5")
	t.Setenv("MATCHLOAD_FAIL_ON_ERROR", "true")

	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Clients != 75 {
		t.Errorf("Clients = %d, want env override 75", cfg.Clients)
	}
	if cfg.Password != "from-file" {
		t.Errorf("Password = %q, want from-file", cfg.Password)
	}
	if cfg.SessionTimeout != 2500*time.Millisecond {
		t.Errorf("SessionTimeout = %s, want 2.5s", cfg.SessionTimeout)
	}
	if !cfg.FailOnError {
		t.Error("FailOnError = false, want true")
	}

	// Explicit flags beat the environment.
	cfg, err = config.NewLoader().Load([]string{"--clients", "2"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Clients != 2 {
		t.Errorf("Clients = %d, want flag override 2", cfg.Clients)
	}
}

func TestLoadRejectsBadEnvironmentValue(t *testing.T) {
	t.Setenv("MATCHLOAD_CLIENTS", "many")
	_, err := config.NewLoader().Load(nil)
	if err == nil || !strings.Contains(err.Error(), "MATCHLOAD_CLIENTS") {
		t.Fatalf("expected env error, got %v", err)
	}
}

func TestLoadHelp(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {"-h"}} {
		if _, err := config.NewLoader().Load(args); !errors.Is(err, config.ErrHelpRequested) {
			t.Errorf("Load(%v) error = %v, want ErrHelpRequested", args, err)
		}
	}
}

func TestLoadRejectsPositionalArguments(t *testing.T) {
	if _, err := config.NewLoader().Load([]string{"extra"}); err == nil {
		t.Fatal("expected error for positional argument")
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	if _, err := config.NewLoader().Load([]string{"--config", filepath.Join(t.TempDir(), "absent.json")}); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidationErrors(t *testing.T) {
	valid := config.Default()

	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   []string
	}{
		{
			name: "bad urls",
			mutate: func(c *config.Config) {
				c.HTTPBase = "ws://wrong"
				c.StreamURL = ""
			},
			want: []string{"http-base", "ws-url"},
		},
		{
			name: "non-positive values",
			mutate: func(c *config.Config) {
				c.Clients = 0
				c.QueueTimeout = 0
				c.SessionTimeout = 0
				c.HTTPTimeout = -1
				c.StreamConnectTimeout = 0
				c.RampDelay = -time.Millisecond
			},
			want: []string{"clients", "queue-timeout", "session-timeout", "http-timeout", "ws-connect-timeout", "ramp-delay"},
		},
		{
			name: "identity and mode",
			mutate: func(c *config.Config) {
				c.UserPrefix = " "
				c.QueueMode = ""
				c.LogLevel = "chatty"
			},
			want: []string{"user-prefix", "queue-mode", "log-level"},
		},
		{
			name: "tracing",
			mutate: func(c *config.Config) {
				c.Tracing.Protocol = "udp"
				c.Tracing.SampleRate = 2
			},
			want: []string{"tracing protocol", "sample rate"},
		},
		{
			name: "thresholds",
			mutate: func(c *config.Config) {
				c.Thresholds = []string{"start_to_end:p95 < 2", "latency:p95 < 1", "clients:avg > 1"}
			},
			want: []string{"threshold[1]"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() error = nil, want error")
			}
			var vErr config.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if len(vErr.Issues()) != len(tc.want) {
				t.Errorf("expected %d issues, got %q", len(tc.want), vErr.Issues())
			}
			for _, want := range tc.want {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() error %q missing %q", err.Error(), want)
				}
			}
		})
	}
}

func TestTracingShouldPropagate(t *testing.T) {
	on, off := true, false
	cases := []struct {
		cfg  config.TracingConfig
		want bool
	}{
		{config.TracingConfig{}, false},
		{config.TracingConfig{Endpoint: "otel:4317"}, true},
		{config.TracingConfig{Endpoint: "otel:4317", Propagate: &off}, false},
		{config.TracingConfig{Propagate: &on}, true},
	}
	for _, tc := range cases {
		if got := tc.cfg.ShouldPropagate(); got != tc.want {
			t.Errorf("ShouldPropagate(%+v) = %v, want %v", tc.cfg, got, tc.want)
		}
	}
}
