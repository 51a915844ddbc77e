package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/torosent/matchload/internal/threshold"
)

// Defaults applied before the config file, environment and flags.
const (
	DefaultHTTPBase             = "http://127.0.0.1:8080"
	DefaultStreamURL            = "ws://127.0.0.1:8080/ws"
	DefaultClients              = 10
	DefaultQueueTimeout         = 5
	DefaultSessionTimeout       = 15 * time.Second
	DefaultHTTPTimeout          = 5 * time.Second
	DefaultStreamConnectTimeout = 5 * time.Second
	DefaultPassword             = "perfpass"
	DefaultUserPrefix           = "perf"
	DefaultRampDelay            = 50 * time.Millisecond
	DefaultQueueMode            = "normal"
	DefaultLogLevel             = "info"
	DefaultTracingProtocol      = "grpc"
	DefaultTracingSampleRate    = 1.0

	highClientWarning = 500
)

// Config is the harness configuration for one invocation.
type Config struct {
	HTTPBase             string        `mapstructure:"http_base"`
	StreamURL            string        `mapstructure:"ws_url"`
	Clients              int           `mapstructure:"clients"`
	QueueTimeout         int           `mapstructure:"queue_timeout"` // whole seconds, sent in the join body
	SessionTimeout       time.Duration `mapstructure:"session_timeout"`
	HTTPTimeout          time.Duration `mapstructure:"http_timeout"`
	StreamConnectTimeout time.Duration `mapstructure:"ws_connect_timeout"`
	Password             string        `mapstructure:"password"`
	UserPrefix           string        `mapstructure:"user_prefix"`
	RampDelay            time.Duration `mapstructure:"ramp_delay"`
	QueueMode            string        `mapstructure:"queue_mode"`
	JSONOutput           bool          `mapstructure:"json_output"`
	LogErrors            bool          `mapstructure:"log_errors"`
	LogLevel             string        `mapstructure:"log_level"`
	Progress             bool          `mapstructure:"progress"`
	FailOnError          bool          `mapstructure:"fail_on_error"`
	Thresholds           []string      `mapstructure:"thresholds"`
	ConfigFile           string        `mapstructure:"-"`
	Tracing              TracingConfig `mapstructure:"tracing"`
}

// TracingConfig controls OTLP span export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // grpc or http
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	// Propagate overrides whether trace context is injected into outbound
	// requests. Nil means "propagate when tracing is enabled".
	Propagate *bool `mapstructure:"propagate"`
}

// Enabled reports whether an exporter endpoint is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate != nil {
		return *t.Propagate
	}
	return t.Enabled()
}

// Default returns a Config populated with the built-in defaults.
func Default() Config {
	return Config{
		HTTPBase:             DefaultHTTPBase,
		StreamURL:            DefaultStreamURL,
		Clients:              DefaultClients,
		QueueTimeout:         DefaultQueueTimeout,
		SessionTimeout:       DefaultSessionTimeout,
		HTTPTimeout:          DefaultHTTPTimeout,
		StreamConnectTimeout: DefaultStreamConnectTimeout,
		Password:             DefaultPassword,
		UserPrefix:           DefaultUserPrefix,
		RampDelay:            DefaultRampDelay,
		QueueMode:            DefaultQueueMode,
		LogLevel:             DefaultLogLevel,
		Tracing: TracingConfig{
			Protocol:   DefaultTracingProtocol,
			SampleRate: DefaultTracingSampleRate,
		},
	}
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

// Validate checks every field and reports all problems at once.
func (c Config) Validate() error {
	var issues []string

	if c.Clients > highClientWarning {
		fmt.Fprintf(os.Stderr, "WARNING: High client count configured (%d). Ensure you have authorization to test the target service.\n", c.Clients)
	}

	if err := checkURL(c.HTTPBase, "http", "https"); err != nil {
		issues = append(issues, fmt.Sprintf("http-base %v", err))
	}
	if err := checkURL(c.StreamURL, "ws", "wss"); err != nil {
		issues = append(issues, fmt.Sprintf("ws-url %v", err))
	}
	if c.Clients < 1 {
		issues = append(issues, "clients must be at least 1")
	}
	if c.QueueTimeout < 1 {
		issues = append(issues, "queue-timeout must be at least 1 second")
	}
	if c.SessionTimeout <= 0 {
		issues = append(issues, "session-timeout must be positive")
	}
	if c.HTTPTimeout <= 0 {
		issues = append(issues, "http-timeout must be positive")
	}
	if c.StreamConnectTimeout <= 0 {
		issues = append(issues, "ws-connect-timeout must be positive")
	}
	if c.RampDelay < 0 {
		issues = append(issues, "ramp-delay must be non-negative")
	}
	if strings.TrimSpace(c.UserPrefix) == "" {
		issues = append(issues, "user-prefix is required")
	}
	if strings.TrimSpace(c.QueueMode) == "" {
		issues = append(issues, "queue-mode is required")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		issues = append(issues, fmt.Sprintf("log-level %q is not a known level", c.LogLevel))
	}

	switch strings.ToLower(c.Tracing.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol %q must be grpc or http", c.Tracing.Protocol))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing sample rate must be between 0 and 1")
	}
	if _, err := threshold.ParseMultiple(c.Thresholds); err != nil {
		issues = append(issues, err.Error())
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is invalid: %v", err)
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			if u.Host == "" {
				return fmt.Errorf("must include a host")
			}
			return nil
		}
	}
	return fmt.Errorf("must use %s scheme", strings.Join(schemes, " or "))
}
