package config

import "testing"

func validTestConfig() *Config {
	return &Config{
		Environment: "development",
		ServerHost:  "0.0.0.0",
		ServerPort:  8001,
		Database:    DatabaseConfig{DSN: "file:test.db"},
		LogLevel:    "info",
		LogFormat:   "json",
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	if err := validTestConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cfg := validTestConfig()
	cfg.Environment = "qa"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid environment to fail")
	}

	cfg = validTestConfig()
	cfg.ServerPort = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid port to fail")
	}

	cfg = validTestConfig()
	cfg.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid log level to fail")
	}

	cfg = validTestConfig()
	cfg.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected invalid log format to fail")
	}
}

func TestListenAddr(t *testing.T) {
	t.Parallel()

	cfg := validTestConfig()
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 9001
	if got := cfg.ListenAddr(); got != "127.0.0.1:9001" {
		t.Fatalf("expected 127.0.0.1:9001, got %q", got)
	}
}

func TestKeyNamespace(t *testing.T) {
	t.Parallel()

	for env, want := range map[string]string{
		"production":  "prod",
		"development": "dev",
		"staging":     "staging",
		"test":        "test",
	} {
		cfg := validTestConfig()
		cfg.Environment = env
		if got := cfg.KeyNamespace(); got != want {
			t.Fatalf("environment %s: expected namespace %q, got %q", env, want, got)
		}
	}
}
