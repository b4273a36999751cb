package config

import (
	"fmt"
	"strings"
	"time"
)

// Defaults applied when neither the caller nor the environment supplies a
// value.
const (
	DefaultDuration  = 60 * time.Second
	DefaultUsers     = 1
	DefaultSpawnRate = 1.0
)

// RunConfig are the immutable parameters for one load run.
type RunConfig struct {
	Duration    time.Duration `mapstructure:"duration"`
	Users       int           `mapstructure:"users"`
	SpawnRate   float64       `mapstructure:"spawn_rate"`
	Host        string        `mapstructure:"host"`
	Credential  string        `mapstructure:"-"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
	WaitMin     time.Duration `mapstructure:"wait_min"`
	WaitMax     time.Duration `mapstructure:"wait_max"`
}

// Config is the full CLI configuration: run parameters plus everything the
// boundary layers need (scenario selection, output, thresholds, tracing).
type Config struct {
	Run          RunConfig
	ScenarioFile string
	RunOnly      []string // scenario names to run; empty means all
	JSONOutput   bool
	HTMLReport   string // path for a standalone HTML report; empty disables it
	LogErrors    bool
	Thresholds   []string
	Tracing      TracingConfig
	LockFile     string
	ConfigFile   string
}

// TracingConfig controls OTLP span export.
type TracingConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether W3C trace headers are injected into
// outgoing requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Propagate
}

// ValidationError accumulates every config issue found in one pass.
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

// Validate rejects a RunConfig before any virtual user is spawned.
func (c RunConfig) Validate() error {
	var issues []string

	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Users < 1 {
		issues = append(issues, "users must be >= 1")
	}
	if c.SpawnRate <= 0 {
		issues = append(issues, "spawn rate must be > 0")
	}
	if c.GracePeriod < 0 {
		issues = append(issues, "grace period must be >= 0")
	}
	if c.WaitMin < 0 || c.WaitMax < 0 {
		issues = append(issues, "wait times must be >= 0")
	}
	if c.WaitMax > 0 && c.WaitMax < c.WaitMin {
		issues = append(issues, "wait max must be >= wait min")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func (c Config) Validate() error {
	var issues []string

	if err := c.Run.Validate(); err != nil {
		var verr ValidationError
		if ok := asValidationError(err, &verr); ok {
			issues = append(issues, verr.Issues()...)
		} else {
			issues = append(issues, err.Error())
		}
	}

	if strings.TrimSpace(c.ScenarioFile) == "" {
		issues = append(issues, "scenario file is required (use --help for usage information)")
	}

	switch strings.ToLower(strings.TrimSpace(c.Tracing.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol %q is not supported", c.Tracing.Protocol))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing sample rate must be between 0.0 and 1.0")
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func asValidationError(err error, target *ValidationError) bool {
	verr, ok := err.(ValidationError)
	if ok {
		*target = verr
	}
	return ok
}
