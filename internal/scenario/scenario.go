// Package scenario defines the YAML scenario format and compiles scenario
// definitions into behaviors that virtual users execute against the target.
package scenario

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/loadworks/swarmload/internal/config"
)

// Duration parses either Go duration strings ("90s", "5m") or bare numbers,
// which are treated as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(v) * time.Second)
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// OverheadSource describes where per-response processing overhead is reported,
// either a JSON path into the response body or a response header. The value is
// read as milliseconds. At most one source may be set.
type OverheadSource struct {
	JSONPath string `yaml:"json_path"`
	Header   string `yaml:"header"`
}

func (o OverheadSource) enabled() bool {
	return o.JSONPath != "" || o.Header != ""
}

// Scenario is one named interaction definition from a scenario file.
// Run parameters (users, spawn rate, duration, host, think time) are optional
// and override the run-wide settings for this scenario only.
type Scenario struct {
	Name     string            `yaml:"name"`
	Method   string            `yaml:"method"`
	Path     string            `yaml:"path"`
	Headers  map[string]string `yaml:"headers"`
	Body     string            `yaml:"body"`
	BodyFile string            `yaml:"body_file"`
	Overhead OverheadSource    `yaml:"overhead"`

	Users     int      `yaml:"users"`
	SpawnRate float64  `yaml:"spawn_rate"`
	Duration  Duration `yaml:"duration"`
	Host      string   `yaml:"host"`
	WaitMin   Duration `yaml:"wait_min"`
	WaitMax   Duration `yaml:"wait_max"`
}

// Override maps the scenario's optional run parameters onto the config
// override chain. Unset fields stay nil so environment fallbacks apply.
func (s Scenario) Override() *config.Override {
	o := &config.Override{}
	if s.Duration > 0 {
		d := time.Duration(s.Duration)
		o.Duration = &d
	}
	if s.Users > 0 {
		u := s.Users
		o.Users = &u
	}
	if s.SpawnRate > 0 {
		r := s.SpawnRate
		o.SpawnRate = &r
	}
	if s.Host != "" {
		h := s.Host
		o.Host = &h
	}
	return o
}

type file struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Load reads and validates a scenario file.
func Load(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("scenario file %s: %w", path, err)
	}
	if len(f.Scenarios) == 0 {
		return nil, fmt.Errorf("scenario file %s defines no scenarios", path)
	}

	seen := make(map[string]struct{}, len(f.Scenarios))
	for i := range f.Scenarios {
		sc := &f.Scenarios[i]
		if err := normalize(sc); err != nil {
			return nil, fmt.Errorf("scenario file %s: %w", path, err)
		}
		if _, dup := seen[sc.Name]; dup {
			return nil, fmt.Errorf("scenario file %s: duplicate scenario name %q", path, sc.Name)
		}
		seen[sc.Name] = struct{}{}
	}
	return f.Scenarios, nil
}

func normalize(sc *Scenario) error {
	sc.Name = strings.TrimSpace(sc.Name)
	if sc.Name == "" {
		return fmt.Errorf("scenario name is required")
	}

	sc.Method = strings.ToUpper(strings.TrimSpace(sc.Method))
	if sc.Method == "" {
		sc.Method = "GET"
	}

	sc.Path = strings.TrimSpace(sc.Path)
	if sc.Path == "" {
		return fmt.Errorf("scenario %q: path is required", sc.Name)
	}
	if !strings.HasPrefix(sc.Path, "/") {
		sc.Path = "/" + sc.Path
	}

	if sc.Body != "" && strings.TrimSpace(sc.BodyFile) != "" {
		return fmt.Errorf("scenario %q: body and body_file cannot both be provided", sc.Name)
	}
	if sc.Overhead.JSONPath != "" && sc.Overhead.Header != "" {
		return fmt.Errorf("scenario %q: overhead json_path and header cannot both be provided", sc.Name)
	}
	if sc.WaitMax != 0 && sc.WaitMax < sc.WaitMin {
		return fmt.Errorf("scenario %q: wait_max must be >= wait_min", sc.Name)
	}

	for key := range sc.Headers {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" || strings.ContainsAny(trimmed, "\r\n") {
			return fmt.Errorf("scenario %q: invalid header key %q", sc.Name, key)
		}
	}
	return nil
}
