// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Dashboard DashboardConfig `toml:"dashboard"`
	Database  DatabaseConfig  `toml:"database"`
	Log       LogConfig       `toml:"log"`
}

// DashboardConfig maps report defaults.
type DashboardConfig struct {
	Level       *int    `toml:"level"`
	Difficulty  *string `toml:"difficulty"`
	CurveWindow *int    `toml:"curve-window"`
}

// DatabaseConfig points at the catalog (master) and play history (log)
// databases. Both may name the same file.
type DatabaseConfig struct {
	Master *string `toml:"master"`
	Log    *string `toml:"log"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// MasterPath returns the catalog database path, falling back to def.
func (c FileConfig) MasterPath(def string) string {
	if c.Database.Master != nil && *c.Database.Master != "" {
		return *c.Database.Master
	}
	return def
}

// LogPath returns the play history database path. Without a [database]
// log entry it falls back to master, the already resolved catalog path, so
// a single file serves both.
func (c FileConfig) LogPath(master string) string {
	if c.Database.Log != nil && *c.Database.Log != "" {
		return *c.Database.Log
	}
	return master
}
