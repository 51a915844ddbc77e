package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. MATCHLOAD_CLIENTS.
const EnvPrefix = "MATCHLOAD"

// Loader handles loading configuration from files, the environment and
// command-line arguments. Precedence, lowest first: defaults, config file,
// environment, explicit flags.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
	}

	cfg := Default()
	configPath := flagSet.Lookup("config").Value.String()
	cfg.ConfigFile = configPath

	if configPath != "" {
		fileViper := viper.New()
		fileViper.SetConfigFile(configPath)
		if err := fileViper.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := applyConfigSettings(&cfg, fileViper.AllSettings()); err != nil {
			return nil, err
		}
	}

	envViper := viper.New()
	envViper.SetEnvPrefix(EnvPrefix)
	envViper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	envViper.AutomaticEnv()
	if err := applyEnvOverrides(&cfg, envViper); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(&cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.HTTPBase = strings.TrimSpace(cfg.HTTPBase)
	cfg.StreamURL = strings.TrimSpace(cfg.StreamURL)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(cfg.Tracing.Protocol))

	return &cfg, nil
}

// setting binds one dashed key to a Config field. The same binding serves
// file keys, environment variables and flags.
type setting struct {
	name  string
	apply func(cfg *Config, raw interface{}) error
}

var settingTable = []setting{
	{"http-base", stringSetting(func(c *Config, v string) { c.HTTPBase = v })},
	{"ws-url", stringSetting(func(c *Config, v string) { c.StreamURL = v })},
	{"clients", intSetting(func(c *Config, v int) { c.Clients = v })},
	{"queue-timeout", intSetting(func(c *Config, v int) { c.QueueTimeout = v })},
	{"queue-mode", stringSetting(func(c *Config, v string) { c.QueueMode = strings.TrimSpace(v) })},
	{"session-timeout", durationSetting(func(c *Config, v time.Duration) { c.SessionTimeout = v })},
	{"http-timeout", durationSetting(func(c *Config, v time.Duration) { c.HTTPTimeout = v })},
	{"ws-connect-timeout", durationSetting(func(c *Config, v time.Duration) { c.StreamConnectTimeout = v })},
	{"password", stringSetting(func(c *Config, v string) { c.Password = v })},
	{"user-prefix", stringSetting(func(c *Config, v string) { c.UserPrefix = strings.TrimSpace(v) })},
	{"ramp-delay", durationSetting(func(c *Config, v time.Duration) { c.RampDelay = v })},
	{"json-output", boolSetting(func(c *Config, v bool) { c.JSONOutput = v })},
	{"log-errors", boolSetting(func(c *Config, v bool) { c.LogErrors = v })},
	{"log-level", stringSetting(func(c *Config, v string) { c.LogLevel = v })},
	{"progress", boolSetting(func(c *Config, v bool) { c.Progress = v })},
	{"fail-on-error", boolSetting(func(c *Config, v bool) { c.FailOnError = v })},
	{"tracing-endpoint", stringSetting(func(c *Config, v string) { c.Tracing.Endpoint = strings.TrimSpace(v) })},
	{"tracing-protocol", stringSetting(func(c *Config, v string) { c.Tracing.Protocol = v })},
	{"tracing-insecure", boolSetting(func(c *Config, v bool) { c.Tracing.Insecure = v })},
	{"tracing-sample-rate", floatSetting(func(c *Config, v float64) { c.Tracing.SampleRate = v })},
	{"tracing-service-name", stringSetting(func(c *Config, v string) { c.Tracing.ServiceName = strings.TrimSpace(v) })},
	{"tracing-propagate", boolSetting(func(c *Config, v bool) { c.Tracing.Propagate = &v })},
}

var settingByName = func() map[string]setting {
	m := make(map[string]setting, len(settingTable))
	for _, s := range settingTable {
		m[s.name] = s
	}
	return m
}()

const tracingPrefix = "tracing-"

// applyConfigSettings applies settings from a config file to the Config struct.
// Tracing options may be given flat (tracing_endpoint) or nested under a
// "tracing" section.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		nested, err := toStringKeyMap(raw)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		for _, s := range settingTable {
			if !strings.HasPrefix(s.name, tracingPrefix) {
				continue
			}
			key := strings.TrimPrefix(s.name, tracingPrefix)
			if val, ok := lookupSetting(nested, settingAliases(key)...); ok {
				if err := s.apply(cfg, val); err != nil {
					return fmt.Errorf("tracing.%s: %w", key, err)
				}
			}
		}
	}

	for _, s := range settingTable {
		if val, ok := lookupSetting(settings, settingAliases(s.name)...); ok {
			if err := s.apply(cfg, val); err != nil {
				return fmt.Errorf("%s: %w", s.name, err)
			}
		}
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}
	return nil
}

// applyEnvOverrides applies MATCHLOAD_* variables. Empty variables are ignored.
func applyEnvOverrides(cfg *Config, env *viper.Viper) error {
	for _, s := range settingTable {
		val := env.Get(s.name)
		if val == nil {
			continue
		}
		if err := s.apply(cfg, val); err != nil {
			envName := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(s.name, "-", "_"))
			return fmt.Errorf("%s: %w", envName, err)
		}
	}

	// Thresholds contain spaces and operators, so the variable holds one
	// assertion per line or separated by semicolons.
	if raw := strings.TrimSpace(env.GetString("thresholds")); raw != "" {
		cfg.Thresholds = splitThresholds(raw)
	}
	return nil
}

func splitThresholds(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '\n' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func stringSetting(set func(*Config, string)) func(*Config, interface{}) error {
	return func(c *Config, raw interface{}) error {
		v, err := asString(raw)
		if err != nil {
			return err
		}
		set(c, v)
		return nil
	}
}

func intSetting(set func(*Config, int)) func(*Config, interface{}) error {
	return func(c *Config, raw interface{}) error {
		v, err := asInt(raw)
		if err != nil {
			return err
		}
		set(c, v)
		return nil
	}
}

func durationSetting(set func(*Config, time.Duration)) func(*Config, interface{}) error {
	return func(c *Config, raw interface{}) error {
		v, err := asDuration(raw)
		if err != nil {
			return err
		}
		set(c, v)
		return nil
	}
}

func boolSetting(set func(*Config, bool)) func(*Config, interface{}) error {
	return func(c *Config, raw interface{}) error {
		v, err := asBool(raw)
		if err != nil {
			return err
		}
		set(c, v)
		return nil
	}
}

func floatSetting(set func(*Config, float64)) func(*Config, interface{}) error {
	return func(c *Config, raw interface{}) error {
		v, err := asFloat64(raw)
		if err != nil {
			return err
		}
		set(c, v)
		return nil
	}
}
