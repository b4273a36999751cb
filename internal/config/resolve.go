package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by the boundary layer. Per-scenario variables
// substitute the upper-cased scenario name for %s.
const (
	EnvAPIKey     = "SWARMLOAD_API_KEY"
	EnvGlobalHost = "SWARMLOAD_HOST"

	envScenarioDuration  = "SWARMLOAD_%s_DURATION_SECONDS"
	envScenarioUsers     = "SWARMLOAD_%s_USERS"
	envScenarioSpawnRate = "SWARMLOAD_%s_SPAWN_RATE"
	envScenarioHost      = "SWARMLOAD_%s_HOST"
)

// Override carries optional per-run parameter overrides supplied by the
// caller. Nil fields fall through to environment variables, then defaults.
type Override struct {
	Duration  *time.Duration
	Users     *int
	SpawnRate *float64
	Host      *string
}

// Resolve produces the effective RunConfig for one named scenario.
// Precedence per field: scenario override, then an explicitly set base value
// (flag or config file), then environment, then default. The host
// additionally honors the global host variable ahead of the per-scenario
// one.
func Resolve(scenario string, o *Override, base RunConfig) (RunConfig, error) {
	cfg := base
	key := envKey(scenario)

	if o != nil && o.Duration != nil {
		cfg.Duration = *o.Duration
	} else if cfg.Duration == 0 {
		if raw, ok := scenarioEnv(envScenarioDuration, key); ok {
			secs, err := strconv.Atoi(raw)
			if err != nil {
				return RunConfig{}, fmt.Errorf("invalid duration for scenario %s: %q", scenario, raw)
			}
			cfg.Duration = time.Duration(secs) * time.Second
		} else {
			cfg.Duration = DefaultDuration
		}
	}

	if o != nil && o.Users != nil {
		cfg.Users = *o.Users
	} else if cfg.Users == 0 {
		if raw, ok := scenarioEnv(envScenarioUsers, key); ok {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return RunConfig{}, fmt.Errorf("invalid user count for scenario %s: %q", scenario, raw)
			}
			cfg.Users = n
		} else {
			cfg.Users = DefaultUsers
		}
	}

	if o != nil && o.SpawnRate != nil {
		cfg.SpawnRate = *o.SpawnRate
	} else if cfg.SpawnRate == 0 {
		if raw, ok := scenarioEnv(envScenarioSpawnRate, key); ok {
			r, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return RunConfig{}, fmt.Errorf("invalid spawn rate for scenario %s: %q", scenario, raw)
			}
			cfg.SpawnRate = r
		} else {
			cfg.SpawnRate = DefaultSpawnRate
		}
	}

	cfg.Host = resolveHost(o, key, cfg.Host)

	if cfg.Credential == "" {
		cfg.Credential = os.Getenv(EnvAPIKey)
	}

	return cfg, nil
}

func resolveHost(o *Override, key, explicit string) string {
	if o != nil && o.Host != nil && *o.Host != "" {
		return *o.Host
	}
	if explicit != "" {
		return explicit
	}
	if host := os.Getenv(EnvGlobalHost); host != "" {
		return host
	}
	if host, ok := scenarioEnv(envScenarioHost, key); ok {
		return host
	}
	return ""
}

func scenarioEnv(pattern, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	val := os.Getenv(fmt.Sprintf(pattern, key))
	if val == "" {
		return "", false
	}
	return val, true
}

// envKey normalizes a scenario name into an environment variable fragment:
// upper-cased with runs of non-alphanumerics collapsed to underscores.
func envKey(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToUpper(strings.TrimSpace(name)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
