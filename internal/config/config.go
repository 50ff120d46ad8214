// Package config loads courier-server's runtime configuration: listen
// address, storage backends, cache, rate limiting, and script timeouts.
package config

import "time"

// Config holds courier-server's runtime configuration.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`

	// PostgresDSN selects the shared, multi-instance repository backend
	// for Collections/Folders/Requests/Environments/GlobalVariables. When
	// empty, the in-memory repository/memory store is used instead.
	PostgresDSN string `mapstructure:"postgres_dsn"`

	// SQLitePath is the single-file history/runs store. ":memory:" is
	// valid and used by tests.
	SQLitePath string `mapstructure:"sqlite_path"`

	// RedisAddr enables the L2 tier of internal/cache in front of
	// GlobalVariables/Environments reads. Empty disables Redis; the L1
	// in-process cache is still used on its own.
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`

	// RateLimitRPS and RateLimitBurst configure the per-process token
	// bucket guarding the proxy/runner routes. Zero RPS disables limiting.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`

	// PreScriptTimeout and PostScriptTimeout bound PRE_REQUEST and
	// POST_RESPONSE script execution respectively (spec §4.E).
	PreScriptTimeout  time.Duration `mapstructure:"pre_script_timeout"`
	PostScriptTimeout time.Duration `mapstructure:"post_script_timeout"`

	MetricsNamespace string `mapstructure:"metrics_namespace"`
	LogLevel         string `mapstructure:"log_level"`

	// OrphanRunThreshold bounds how old a RUNNING run must be, at
	// startup, before it's treated as orphaned by a prior crash and
	// reaped to FAILED (spec.md §9 "Run state across restarts").
	OrphanRunThreshold time.Duration `mapstructure:"orphan_run_threshold"`
}

// DefaultConfig returns the configuration used when no file, env var, or
// flag overrides a field.
func DefaultConfig() Config {
	return Config{
		ListenAddr:         ":8080",
		SQLitePath:         "courier.db",
		CacheTTL:           30 * time.Second,
		RateLimitRPS:       50,
		RateLimitBurst:     100,
		PreScriptTimeout:   5 * time.Second,
		PostScriptTimeout:  10 * time.Second,
		MetricsNamespace:   "courier",
		LogLevel:           "info",
		OrphanRunThreshold: time.Hour,
	}
}
