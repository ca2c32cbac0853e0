// Package config loads the typed Config the composition root (cmd/api)
// wires into every collaborator. Nothing under internal/ besides this
// package reads an environment variable or config file directly (§6.4:
// "Core does not read environment variables; composition root passes
// configuration values in").
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full set of values cmd/api needs to build the core.
type Config struct {
	// HTTP server
	ListenAddr      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	CORSAllowOrigins []string

	// Observability
	LogLevel    string
	Environment string
	MetricsNamespace string

	// Rate limiting
	DefaultRateLimit int

	// Worker pool (internal/taskpool)
	PoolWorkers   int
	PoolQueueSize int

	// Vector search collaborator
	VectorSearchURL     string
	VectorSearchTimeout time.Duration

	// Tenant routing
	DefaultNamespace string
}

// Load reads configuration from environment variables prefixed ENGRAM_ and,
// if present, a config file named by ENGRAM_CONFIG_FILE or ./engram.yaml,
// applying the defaults below first (grounded on untoldecay-BeadsLog's
// internal/config.Initialize: SetEnvPrefix + SetEnvKeyReplacer +
// AutomaticEnv + SetDefault, adapted from that package's singleton-viper
// shape to a value returned per call since the core has no process-wide
// config singleton).
func Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("ENGRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("request_timeout", "25s")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("cors_allow_origins", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("environment", "development")
	v.SetDefault("metrics_namespace", "engram")
	v.SetDefault("default_rate_limit", 60)
	v.SetDefault("pool_workers", 8)
	v.SetDefault("pool_queue_size", 256)
	v.SetDefault("vector_search_url", "")
	v.SetDefault("vector_search_timeout", "2s")
	v.SetDefault("default_namespace", "engram_default")

	v.SetConfigName("engram")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if cf := v.GetString("config_file"); cf != "" {
		v.SetConfigFile(cf)
	}
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	requestTimeout, err := time.ParseDuration(v.GetString("request_timeout"))
	if err != nil {
		return nil, fmt.Errorf("config: request_timeout: %w", err)
	}
	shutdownTimeout, err := time.ParseDuration(v.GetString("shutdown_timeout"))
	if err != nil {
		return nil, fmt.Errorf("config: shutdown_timeout: %w", err)
	}
	vectorTimeout, err := time.ParseDuration(v.GetString("vector_search_timeout"))
	if err != nil {
		return nil, fmt.Errorf("config: vector_search_timeout: %w", err)
	}

	return &Config{
		ListenAddr:          v.GetString("listen_addr"),
		RequestTimeout:      requestTimeout,
		ShutdownTimeout:     shutdownTimeout,
		CORSAllowOrigins:    v.GetStringSlice("cors_allow_origins"),
		LogLevel:            v.GetString("log_level"),
		Environment:         v.GetString("environment"),
		MetricsNamespace:    v.GetString("metrics_namespace"),
		DefaultRateLimit:    v.GetInt("default_rate_limit"),
		PoolWorkers:         v.GetInt("pool_workers"),
		PoolQueueSize:       v.GetInt("pool_queue_size"),
		VectorSearchURL:     v.GetString("vector_search_url"),
		VectorSearchTimeout: vectorTimeout,
		DefaultNamespace:    v.GetString("default_namespace"),
	}, nil
}
