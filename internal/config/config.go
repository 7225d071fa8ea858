// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 MachineNativeOps Contributors

// Package config loads sentinel configuration from defaults, an optional
// YAML file, and command-line flags, in ascending precedence.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/machinenativeops/sentinel/internal/auth"
)

// Config holds the full sentinel configuration.
type Config struct {
	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log_format"`

	// MetricsAddr is the listen address for the metrics/health HTTP
	// server. Empty disables the server.
	MetricsAddr string `koanf:"metrics_addr"`

	// DatabaseURL selects the PostgreSQL persistence backend. Empty
	// selects the in-memory stores.
	DatabaseURL string `koanf:"database_url"`

	// HashIterations is the PBKDF2 iteration count.
	HashIterations int `koanf:"hash_iterations"`

	// SessionTTL is the session lifetime as a Go duration string.
	SessionTTL string `koanf:"session_ttl"`

	// BootstrapUsername and BootstrapEmail shape the default identity
	// provisioned on an empty store.
	BootstrapUsername string `koanf:"bootstrap_username"`
	BootstrapEmail    string `koanf:"bootstrap_email"`

	sessionTTL time.Duration
}

// defaults returns the built-in configuration keys. Seeding these into the
// koanf instance before the flag overlay means unchanged flags never
// clobber them.
func defaults() map[string]any {
	return map[string]any{
		"log_format":         "json",
		"metrics_addr":       "127.0.0.1:9100",
		"database_url":       "",
		"hash_iterations":    auth.DefaultHashIterations,
		"session_ttl":        auth.DefaultSessionTTL.String(),
		"bootstrap_username": auth.DefaultBootstrapUsername,
		"bootstrap_email":    auth.DefaultBootstrapEmail,
	}
}

// Load builds a Config from defaults, then the YAML file at path (if path
// is non-empty), then any changed flags. Flag names use dashes and map to
// underscore config keys ("session-ttl" overrides "session_ttl").
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("key", key).
				Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "merge flags").
				Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").
			With("operation", "unmarshal").
			Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration and resolves derived fields.
func (c *Config) Validate() error {
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.HashIterations < 1 {
		return oops.Code("CONFIG_INVALID").
			With("hash_iterations", c.HashIterations).
			Errorf("hash_iterations must be at least 1")
	}
	if c.BootstrapUsername == "" {
		return oops.Code("CONFIG_INVALID").Errorf("bootstrap_username cannot be empty")
	}

	ttl, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return oops.Code("CONFIG_INVALID").
			With("session_ttl", c.SessionTTL).
			Wrap(err)
	}
	if ttl <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("session_ttl", c.SessionTTL).
			Errorf("session_ttl must be positive")
	}
	c.sessionTTL = ttl
	return nil
}

// SessionTTLDuration returns the parsed session lifetime. Validate must
// have succeeded first.
func (c *Config) SessionTTLDuration() time.Duration {
	return c.sessionTTL
}
