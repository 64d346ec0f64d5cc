package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors Config with pointer fields so unset keys leave the
// defaults alone.
type fileConfig struct {
	DBPath       *string `toml:"db_path"`
	SettingsPath *string `toml:"settings_path"`
	LogPath      *string `toml:"log_path"`
	LogLevel     *string `toml:"log_level"`
	FolderTitle  *string `toml:"folder_title"`
	Debounce     *string `toml:"debounce"`
	TreeMode     *bool   `toml:"tree_mode"`
	TileWidth    *int    `toml:"tile_width"`
	TileHeight   *int    `toml:"tile_height"`
}

// ConfigDir returns the config directory, respecting XDG_CONFIG_HOME.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bookmark-dial")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "bookmark-dial")
}

// ConfigPath returns the full path to config.toml.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// LoadFile reads the TOML file at path and merges the keys it sets into cfg.
// It reports whether the file existed.
func LoadFile(cfg *Config, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return true, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if fc.DBPath != nil {
		cfg.DBPath = ExpandHome(*fc.DBPath)
	}
	if fc.SettingsPath != nil {
		cfg.SettingsPath = ExpandHome(*fc.SettingsPath)
	}
	if fc.LogPath != nil {
		cfg.LogPath = ExpandHome(*fc.LogPath)
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.FolderTitle != nil && strings.TrimSpace(*fc.FolderTitle) != "" {
		cfg.FolderTitle = *fc.FolderTitle
	}
	if fc.Debounce != nil {
		d, err := time.ParseDuration(*fc.Debounce)
		if err != nil {
			return true, fmt.Errorf("invalid debounce %q: %w", *fc.Debounce, err)
		}
		cfg.Debounce = d
	}
	if fc.TreeMode != nil {
		cfg.TreeMode = *fc.TreeMode
	}
	if fc.TileWidth != nil && *fc.TileWidth > 0 {
		cfg.TileWidth = *fc.TileWidth
	}
	if fc.TileHeight != nil && *fc.TileHeight > 0 {
		cfg.TileHeight = *fc.TileHeight
	}

	return true, nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, _ := os.UserHomeDir()
	if path == "~" {
		return home
	}
	return filepath.Join(home, path[2:])
}
