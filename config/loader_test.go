package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Strings(t *testing.T) {
	t.Setenv("ICBD_USER", "icb")
	t.Setenv("ICBD_WORKDIR", "var")
	t.Setenv("ICBD_LOG_PREFIX", "logs/chat")
	t.Setenv("ICBD_MODTAB", "/etc/icbd/modtab")
	t.Setenv("ICBD_SERVER_NAME", "icb.example.net")
	t.Setenv("ICBD_METRICS_ADDR", "127.0.0.1:9326")

	cfg := &Config{}
	LoadFromEnv(cfg)

	checks := []struct {
		name, got, want string
	}{
		{"User", cfg.User, "icb"},
		{"WorkDir", cfg.WorkDir, "var"},
		{"LogPrefix", cfg.LogPrefix, "logs/chat"},
		{"ModTab", cfg.ModTab, "/etc/icbd/modtab"},
		{"ServerName", cfg.ServerName, "icb.example.net"},
		{"MetricsAddr", cfg.MetricsAddr, "127.0.0.1:9326"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	tests := []struct {
		key    string
		values []string
		get    func(*Config) bool
	}{
		{"ICBD_NO_DNS", []string{"1", "true", "yes", "TRUE", "Yes"}, func(c *Config) bool { return c.NoDNS }},
		{"ICBD_CREATE_GROUPS", []string{"1", "true"}, func(c *Config) bool { return c.CreateGroups }},
		{"ICBD_FOREGROUND", []string{"yes"}, func(c *Config) bool { return c.Foreground }},
	}

	for _, tt := range tests {
		for _, v := range tt.values {
			t.Run(tt.key+"="+v, func(t *testing.T) {
				t.Setenv(tt.key, v)
				cfg := &Config{}
				LoadFromEnv(cfg)
				if !tt.get(cfg) {
					t.Errorf("%s=%s should set the flag", tt.key, v)
				}
			})
		}
	}
}

func TestLoadFromEnv_Groups(t *testing.T) {
	t.Setenv("ICBD_GROUPS", "lobby,dev")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if len(cfg.Groups) != 2 || cfg.Groups[0] != "lobby" || cfg.Groups[1] != "dev" {
		t.Errorf("Groups = %v", cfg.Groups)
	}
}

func TestLoadFromEnv_Timeout(t *testing.T) {
	t.Setenv("ICBD_TIMEOUT", "300")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.IdleTimeout != 300*time.Second {
		t.Errorf("IdleTimeout = %v, want 5m", cfg.IdleTimeout)
	}
}

func TestLoadFromEnv_NoOverrideWhenEmpty(t *testing.T) {
	cfg := &Config{User: "keep", Verbose: 2}
	LoadFromEnv(cfg)
	if cfg.User != "keep" {
		t.Errorf("User overridden: %q", cfg.User)
	}
	if cfg.Verbose != 2 {
		t.Errorf("Verbose overridden: %d", cfg.Verbose)
	}
}

func TestLoadFromEnv_InvalidIntIgnored(t *testing.T) {
	t.Setenv("ICBD_VERBOSE", "lots")
	cfg := &Config{Verbose: 1}
	LoadFromEnv(cfg)
	if cfg.Verbose != 1 {
		t.Errorf("Verbose = %d, want 1", cfg.Verbose)
	}
}

func TestLoadFromEnv_Verbose(t *testing.T) {
	t.Setenv("ICBD_VERBOSE", "3")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.Verbose != 3 {
		t.Errorf("Verbose = %d, want 3", cfg.Verbose)
	}
}
