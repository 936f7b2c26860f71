package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the ICBD_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("ICBD_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("ICBD_WORKDIR"); v != "" {
		cfg.WorkDir = v
	}
	if v := os.Getenv("ICBD_LOG_PREFIX"); v != "" {
		cfg.LogPrefix = v
	}
	if v := os.Getenv("ICBD_MODTAB"); v != "" {
		cfg.ModTab = v
	}
	if v := os.Getenv("ICBD_SERVER_NAME"); v != "" {
		cfg.ServerName = v
	}
	if v := os.Getenv("ICBD_GROUPS"); v != "" {
		cfg.Groups = ParseGroupList(v)
	}
	if envBool("ICBD_NO_DNS") {
		cfg.NoDNS = true
	}
	if envBool("ICBD_CREATE_GROUPS") {
		cfg.CreateGroups = true
	}
	if envBool("ICBD_FOREGROUND") {
		cfg.Foreground = true
	}
	if v := envInt("ICBD_TIMEOUT"); v > 0 {
		cfg.IdleTimeout = secondsDuration(v)
	}
	if v := os.Getenv("ICBD_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}

	// Output
	if v := envInt("ICBD_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
