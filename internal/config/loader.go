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

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a
// Config. Flags the user set explicitly win over config file values.
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

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Run: RunConfig{
			GracePeriod: 5 * time.Second,
		},
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1.0,
		},
		ConfigFile: configPath,
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.ScenarioFile = strings.TrimSpace(cfg.ScenarioFile)
	cfg.Run.Host = strings.TrimSpace(cfg.Run.Host)
	cfg.LockFile = strings.TrimSpace(cfg.LockFile)

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "scenarios", "scenario_file", "scenario-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("scenarios: %w", err)
		}
		cfg.ScenarioFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "run"); ok {
		names, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		cfg.RunOnly = names
	}

	if raw, ok := lookupSetting(settings, "host"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("host: %w", err)
		}
		cfg.Run.Host = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "users", "user_count", "user-count"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("users: %w", err)
		}
		cfg.Run.Users = val
	}

	if raw, ok := lookupSetting(settings, "spawnrate", "spawn_rate", "spawn-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("spawnRate: %w", err)
		}
		cfg.Run.SpawnRate = val
	}

	if raw, ok := lookupSetting(settings, "duration", "duration_seconds", "duration-seconds"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		cfg.Run.Duration = dur
	}

	if raw, ok := lookupSetting(settings, "grace", "grace_period", "grace-period"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("gracePeriod: %w", err)
		}
		cfg.Run.GracePeriod = dur
	}

	if raw, ok := lookupSetting(settings, "waitmin", "wait_min", "wait-min"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("waitMin: %w", err)
		}
		cfg.Run.WaitMin = dur
	}

	if raw, ok := lookupSetting(settings, "waitmax", "wait_max", "wait-max"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("waitMax: %w", err)
		}
		cfg.Run.WaitMax = dur
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("jsonOutput: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "htmlreport", "html_report", "html-report"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("htmlReport: %w", err)
		}
		cfg.HTMLReport = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "logerrors", "log_errors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("logErrors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		thresholds, err := asStringSlice(raw)
		if err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if raw, ok := lookupSetting(settings, "lockfile", "lock_file", "lock-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("lockFile: %w", err)
		}
		cfg.LockFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracing(raw, cfg.Tracing)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		cfg.Tracing = tracing
	}

	return nil
}

func parseTracing(value interface{}, base TracingConfig) (TracingConfig, error) {
	if value == nil {
		return base, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}

	tracing := base
	if raw, ok := lookupSetting(entry, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
		tracing.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		tracing.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		if val != "" {
			tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
		}
	}
	if raw, ok := lookupSetting(entry, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tracing.Insecure = val
	}
	if raw, ok := lookupSetting(entry, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		tracing.SampleRate = val
	}
	if raw, ok := lookupSetting(entry, "propagate"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("propagate: %w", err)
		}
		tracing.Propagate = val
	}
	return tracing, nil
}

// applyFlagOverrides copies explicitly set flags over file-derived settings.
func applyFlagOverrides(cfg *Config, flags *pflag.FlagSet) error {
	var err error

	setString := func(name string, dst *string) {
		if err != nil || !flags.Changed(name) {
			return
		}
		var val string
		if val, err = flags.GetString(name); err == nil {
			*dst = strings.TrimSpace(val)
		}
	}
	setInt := func(name string, dst *int) {
		if err != nil || !flags.Changed(name) {
			return
		}
		var val int
		if val, err = flags.GetInt(name); err == nil {
			*dst = val
		}
	}
	setFloat := func(name string, dst *float64) {
		if err != nil || !flags.Changed(name) {
			return
		}
		var val float64
		if val, err = flags.GetFloat64(name); err == nil {
			*dst = val
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if err != nil || !flags.Changed(name) {
			return
		}
		var val time.Duration
		if val, err = flags.GetDuration(name); err == nil {
			*dst = val
		}
	}
	setBool := func(name string, dst *bool) {
		if err != nil || !flags.Changed(name) {
			return
		}
		var val bool
		if val, err = flags.GetBool(name); err == nil {
			*dst = val
		}
	}
	setSlice := func(name string, dst *[]string) {
		if err != nil || !flags.Changed(name) {
			return
		}
		var val []string
		if val, err = flags.GetStringSlice(name); err == nil {
			*dst = val
		}
	}

	setString("scenarios", &cfg.ScenarioFile)
	setSlice("run", &cfg.RunOnly)
	setString("host", &cfg.Run.Host)
	setInt("users", &cfg.Run.Users)
	setFloat("spawn-rate", &cfg.Run.SpawnRate)
	setDuration("duration", &cfg.Run.Duration)
	setDuration("grace", &cfg.Run.GracePeriod)
	setDuration("wait-min", &cfg.Run.WaitMin)
	setDuration("wait-max", &cfg.Run.WaitMax)
	setBool("json-output", &cfg.JSONOutput)
	setString("html-report", &cfg.HTMLReport)
	setBool("log-errors", &cfg.LogErrors)
	setSlice("threshold", &cfg.Thresholds)
	setString("lock-file", &cfg.LockFile)
	setString("trace-endpoint", &cfg.Tracing.Endpoint)
	setString("trace-protocol", &cfg.Tracing.Protocol)
	setBool("trace-insecure", &cfg.Tracing.Insecure)
	setFloat("trace-sample-rate", &cfg.Tracing.SampleRate)
	setBool("trace-propagate", &cfg.Tracing.Propagate)
	setString("trace-service", &cfg.Tracing.ServiceName)

	return err
}
