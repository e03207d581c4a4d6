// Package config loads Eidetica's instance-level bootstrap settings:
// storage path, default height strategy, sync listen addresses, and
// telemetry toggles. It mirrors beads' layered approach (internal/config's
// YAML settings plus a TOML-based formula/profile loader) by pairing
// spf13/viper for the primary YAML/ENV-backed settings file with
// BurntSushi/toml for an optional secondary profile file aimed at
// CLI-less embedding.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/eidetica/eidetica/height"
)

// Config is the fully resolved bootstrap configuration for one Instance.
type Config struct {
	// StoragePath is the backend's on-disk location (a directory for the
	// SQL backend's DSN, or a single file for the in-memory backend's
	// save file).
	StoragePath string `mapstructure:"storage_path" toml:"storage_path"`
	// HeightStrategy is the default height.Strategy new databases are
	// created with.
	HeightStrategy string `mapstructure:"height_strategy" toml:"height_strategy"`
	// SyncListenAddresses maps transport name ("http", "quic") to the
	// address sync.Engine should bind for that transport.
	SyncListenAddresses map[string]string `mapstructure:"sync_listen_addresses" toml:"sync_listen_addresses"`
	// TelemetryEnabled toggles whether internal/telemetry installs its
	// stdout exporters; disabled builds use a no-op provider.
	TelemetryEnabled bool `mapstructure:"telemetry_enabled" toml:"telemetry_enabled"`
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	return &Config{
		StoragePath:         "./eidetica-data",
		HeightStrategy:      string(height.Incremental),
		SyncListenAddresses: map[string]string{},
		TelemetryEnabled:    false,
	}
}

// Load reads configPath (a YAML file) through viper, with EIDETICA_*
// environment variables overriding file values, and returns the merged
// result layered on top of Default(). A missing configPath is not an
// error: Default() values apply.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("EIDETICA")
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: read %s: %w", configPath, err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// LoadTOMLProfile decodes an additional TOML profile file and overlays its
// non-zero fields onto cfg, for embedding scenarios with no YAML/viper
// bootstrap file at all (e.g. a single eidetica.toml shipped alongside a
// binary).
func LoadTOMLProfile(cfg *Config, path string) error {
	var profile Config
	if _, err := toml.DecodeFile(path, &profile); err != nil {
		return fmt.Errorf("config: decode toml profile %s: %w", path, err)
	}
	overlay(cfg, &profile)
	return nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("storage_path", cfg.StoragePath)
	v.SetDefault("height_strategy", cfg.HeightStrategy)
	v.SetDefault("sync_listen_addresses", cfg.SyncListenAddresses)
	v.SetDefault("telemetry_enabled", cfg.TelemetryEnabled)
}

func overlay(dst, src *Config) {
	if src.StoragePath != "" {
		dst.StoragePath = src.StoragePath
	}
	if src.HeightStrategy != "" {
		dst.HeightStrategy = src.HeightStrategy
	}
	if len(src.SyncListenAddresses) > 0 {
		if dst.SyncListenAddresses == nil {
			dst.SyncListenAddresses = map[string]string{}
		}
		for k, v := range src.SyncListenAddresses {
			dst.SyncListenAddresses[k] = v
		}
	}
	if src.TelemetryEnabled {
		dst.TelemetryEnabled = true
	}
}

// ResolvedHeightStrategy validates HeightStrategy, falling back to
// height.Incremental for an unknown or empty value (mirroring
// instance.ResolvedHeightStrategy's settings-doc fallback).
func (c *Config) ResolvedHeightStrategy() height.Strategy {
	s := height.Strategy(c.HeightStrategy)
	if !s.Valid() {
		return height.Incremental
	}
	return s
}
