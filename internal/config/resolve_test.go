package config

import (
	"testing"
	"time"
)

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve("chat", nil, RunConfig{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Duration != DefaultDuration {
		t.Errorf("expected default duration, got %s", cfg.Duration)
	}
	if cfg.Users != DefaultUsers {
		t.Errorf("expected default users, got %d", cfg.Users)
	}
	if cfg.SpawnRate != DefaultSpawnRate {
		t.Errorf("expected default spawn rate, got %g", cfg.SpawnRate)
	}
}

func TestResolveEnvironmentFallback(t *testing.T) {
	t.Setenv("SWARMLOAD_CHAT_DURATION_SECONDS", "120")
	t.Setenv("SWARMLOAD_CHAT_USERS", "50")
	t.Setenv("SWARMLOAD_CHAT_SPAWN_RATE", "12.5")
	t.Setenv("SWARMLOAD_CHAT_HOST", "https://chat.internal")

	cfg, err := Resolve("chat", nil, RunConfig{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Duration != 120*time.Second {
		t.Errorf("duration env ignored: %s", cfg.Duration)
	}
	if cfg.Users != 50 {
		t.Errorf("users env ignored: %d", cfg.Users)
	}
	if cfg.SpawnRate != 12.5 {
		t.Errorf("spawn rate env ignored: %g", cfg.SpawnRate)
	}
	if cfg.Host != "https://chat.internal" {
		t.Errorf("host env ignored: %q", cfg.Host)
	}
}

func TestResolveOverrideBeatsEnvironment(t *testing.T) {
	t.Setenv("SWARMLOAD_CHAT_DURATION_SECONDS", "120")
	t.Setenv("SWARMLOAD_HOST", "https://global.internal")
	t.Setenv("SWARMLOAD_CHAT_HOST", "https://chat.internal")

	dur := 10 * time.Second
	host := "https://explicit.internal"
	cfg, err := Resolve("chat", &Override{Duration: &dur, Host: &host}, RunConfig{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Duration != dur {
		t.Errorf("explicit duration lost: %s", cfg.Duration)
	}
	if cfg.Host != host {
		t.Errorf("explicit host lost: %q", cfg.Host)
	}
}

func TestResolveExplicitValuesBeatEnvironment(t *testing.T) {
	t.Setenv("SWARMLOAD_CHAT_DURATION_SECONDS", "120")
	t.Setenv("SWARMLOAD_CHAT_USERS", "50")
	t.Setenv("SWARMLOAD_HOST", "https://global.internal")

	base := RunConfig{
		Duration: 10 * time.Second,
		Users:    5,
		Host:     "https://flag.internal",
	}
	cfg, err := Resolve("chat", nil, base)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Duration != 10*time.Second {
		t.Errorf("env duration overrode explicit value: %s", cfg.Duration)
	}
	if cfg.Users != 5 {
		t.Errorf("env users overrode explicit value: %d", cfg.Users)
	}
	if cfg.Host != "https://flag.internal" {
		t.Errorf("env host overrode explicit value: %q", cfg.Host)
	}
}

func TestResolveGlobalHostBeatsScenarioHost(t *testing.T) {
	t.Setenv("SWARMLOAD_HOST", "https://global.internal")
	t.Setenv("SWARMLOAD_CHAT_HOST", "https://chat.internal")

	cfg, err := Resolve("chat", nil, RunConfig{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Host != "https://global.internal" {
		t.Errorf("expected global host to win, got %q", cfg.Host)
	}
}

func TestResolveCredentialFromEnvironment(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-test-123")
	cfg, err := Resolve("chat", nil, RunConfig{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Credential != "sk-test-123" {
		t.Errorf("credential not picked up from environment")
	}
}

func TestResolveRejectsMalformedEnvironment(t *testing.T) {
	t.Setenv("SWARMLOAD_CHAT_DURATION_SECONDS", "ninety")
	if _, err := Resolve("chat", nil, RunConfig{}); err == nil {
		t.Fatal("expected error for malformed duration env")
	}
}

func TestEnvKeyNormalization(t *testing.T) {
	cases := map[string]string{
		"chat":            "CHAT",
		"chat-completion": "CHAT_COMPLETION",
		"  batch calls ":  "BATCH_CALLS",
		"v2/embeddings":   "V2_EMBEDDINGS",
	}
	for in, want := range cases {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
