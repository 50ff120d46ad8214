package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads courier.yaml from the working directory or
// $HOME/.config/courier/, overlays COURIER_-prefixed environment
// variables, and falls back to DefaultConfig for anything neither sets.
func Load() (Config, error) {
	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("listen_addr", defaults.ListenAddr)
	v.SetDefault("sqlite_path", defaults.SQLitePath)
	v.SetDefault("cache_ttl", defaults.CacheTTL)
	v.SetDefault("rate_limit_rps", defaults.RateLimitRPS)
	v.SetDefault("rate_limit_burst", defaults.RateLimitBurst)
	v.SetDefault("pre_script_timeout", defaults.PreScriptTimeout)
	v.SetDefault("post_script_timeout", defaults.PostScriptTimeout)
	v.SetDefault("metrics_namespace", defaults.MetricsNamespace)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("orphan_run_threshold", defaults.OrphanRunThreshold)

	v.SetConfigName("courier")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/courier")

	v.SetEnvPrefix("COURIER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("config: reading courier.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshaling: %w", err)
	}
	return cfg, nil
}
