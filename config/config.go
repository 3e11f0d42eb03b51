// Package config loads the host configuration from TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config describes the swap host deployment.
type Config struct {
	// DataDir holds the LevelDB state.
	DataDir string `toml:"DataDir"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"LogLevel"`
	// MetricsAddress is the listen address for the Prometheus endpoint.
	// Empty disables the endpoint.
	MetricsAddress string `toml:"MetricsAddress"`
	// Owner administers the factory and the resolver.
	Owner string `toml:"Owner"`
	// Relayers seed the resolver allow-list.
	Relayers []string `toml:"Relayers"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		DataDir:        "./swap-data",
		LogLevel:       "info",
		MetricsAddress: ":9464",
	}
}

// Load reads the TOML file at path. A missing file is created with defaults
// so a fresh deployment starts from a self-documenting config.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Validate checks the fields an initialized deployment requires.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if c.Owner == "" {
		return fmt.Errorf("config: Owner must be set")
	}
	return nil
}
