package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "matchload",
		Short:         "Drive synthetic clients through register, login, queue and one match session",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

func configureFlags(flags *pflag.FlagSet) {
	// Target service
	flags.String("http-base", DefaultHTTPBase, "HTTP base URL of the match service")
	flags.String("ws-url", DefaultStreamURL, "WebSocket URL of the event stream")

	// Load shape
	flags.IntP("clients", "c", DefaultClients, "Number of concurrent synthetic clients")
	flags.Duration("ramp-delay", DefaultRampDelay, "Start delay step between clients (client i waits i*delay)")

	// Per-client protocol
	flags.Int("queue-timeout", DefaultQueueTimeout, "Queue timeout in seconds sent with the join request")
	flags.String("queue-mode", DefaultQueueMode, "Queue mode sent with the join request")
	flags.Duration("session-timeout", DefaultSessionTimeout, "Max wait for each stream event while queued or in session")
	flags.Duration("http-timeout", DefaultHTTPTimeout, "Per-request HTTP timeout")
	flags.Duration("ws-connect-timeout", DefaultStreamConnectTimeout, "WebSocket handshake and welcome event timeout")
	flags.String("password", DefaultPassword, "Password used for every synthetic account")
	flags.String("user-prefix", DefaultUserPrefix, "Username prefix for synthetic accounts")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("log-errors", false, "Log each failed client to stderr")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.Bool("progress", false, "Print a live progress line to stderr")
	flags.Bool("fail-on-error", false, "Exit non-zero when any client fails")
	flags.String("config", "", "Path to configuration file (JSON, YAML or TOML)")

	// Threshold flags
	flags.StringArray("threshold", nil, "Pass/fail assertion on the summary (repeatable, e.g. 'start_to_end:p95 < 2')")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", DefaultTracingProtocol, "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("tracing-sample-rate", DefaultTracingSampleRate, "Fraction of client runs to sample (0-1)")
	flags.String("tracing-service-name", "", "Service name reported to the collector")
	flags.Bool("tracing-propagate", false, "Inject W3C trace context into outbound requests (defaults to on when tracing is enabled)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies explicitly set flag values to the config,
// overriding values from the config file and environment.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if f.Name == "threshold" {
			values, getErr := fs.GetStringArray(f.Name)
			if getErr != nil {
				err = fmt.Errorf("--%s: %w", f.Name, getErr)
				return
			}
			cfg.Thresholds = values
			return
		}
		s, ok := settingByName[f.Name]
		if !ok {
			return
		}
		if applyErr := s.apply(cfg, f.Value.String()); applyErr != nil {
			err = fmt.Errorf("--%s: %w", f.Name, applyErr)
		}
	})
	return err
}
