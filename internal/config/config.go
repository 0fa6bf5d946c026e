// Package config loads the handful of process-level settings that
// legitimately vary per deployment: listen address, CORS origins, log
// level, and a tick-rate override for testing. Game-rule constants
// (avatar speed, bonus tables, room timings) are not here — they stay as
// Go consts in internal/game and internal/room, matching spec.md §9's
// framing of them as invariants of the simulation rather than deployment
// config. Grounded on the teacher's config/config.go ServerConfig shape,
// layered with github.com/spf13/viper the way niceyeti-tabular loads its
// settings.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig is the process-level configuration for cmd/modaltron,
// generalizing the teacher's ServerConfig{Host, Port, RedisURL,
// EnableCORS} to this server's transport and observability needs.
type ServerConfig struct {
	Host string
	Port int

	EnableCORS  bool
	CORSOrigins []string

	LogLevel string
	LogJSON  bool

	// TickRateOverride, when non-zero, replaces the game package's default
	// tick interval. Exists for tests that want a faster or slower loop;
	// zero means "use the simulation's built-in default."
	TickRateOverride time.Duration
}

// DefaultServerConfig returns the defaults used when no environment
// variable or config file overrides them.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:        "0.0.0.0",
		Port:        8080,
		EnableCORS:  true,
		CORSOrigins: []string{"*"},
		LogLevel:    "info",
		LogJSON:     true,
	}
}

// Load builds a ServerConfig from defaults, an optional config file, and
// MODALTRON_-prefixed environment variables, in that order of increasing
// precedence.
func Load() (*ServerConfig, error) {
	v := viper.New()
	d := DefaultServerConfig()

	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("enable_cors", d.EnableCORS)
	v.SetDefault("cors_origins", d.CORSOrigins)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_json", d.LogJSON)
	v.SetDefault("tick_rate_override_ms", 0)

	v.SetEnvPrefix("modaltron")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("modaltron")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/modaltron")
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	cfg := &ServerConfig{
		Host:        v.GetString("host"),
		Port:        v.GetInt("port"),
		EnableCORS:  v.GetBool("enable_cors"),
		CORSOrigins: v.GetStringSlice("cors_origins"),
		LogLevel:    v.GetString("log_level"),
		LogJSON:     v.GetBool("log_json"),
	}
	if ms := v.GetInt("tick_rate_override_ms"); ms > 0 {
		cfg.TickRateOverride = time.Duration(ms) * time.Millisecond
	}
	return cfg, nil
}
