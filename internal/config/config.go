package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds application configuration
type Config struct {
	DBPath       string
	SettingsPath string
	LogPath      string
	LogLevel     string
	FolderTitle  string
	Debounce     time.Duration
	TreeMode     bool
	TileWidth    int
	TileHeight   int
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	dataDir := getDataDir()
	return &Config{
		DBPath:       filepath.Join(dataDir, "bookmarks.db"),
		SettingsPath: filepath.Join(dataDir, "settings.db"),
		LogPath:      filepath.Join(dataDir, "dial.log"),
		LogLevel:     "info",
		FolderTitle:  "Bookmark Dial",
		Debounce:     150 * time.Millisecond,
		TreeMode:     true,
		TileWidth:    18,
		TileHeight:   5,
	}
}

// WithDBPath sets a custom database path
func (c *Config) WithDBPath(path string) *Config {
	c.DBPath = path
	return c
}

// WithSettingsPath sets a custom settings file path
func (c *Config) WithSettingsPath(path string) *Config {
	c.SettingsPath = path
	return c
}

// WithLogPath sets the log file; "-" logs to stderr
func (c *Config) WithLogPath(path string) *Config {
	c.LogPath = path
	return c
}

func (c *Config) WithLogLevel(level string) *Config {
	c.LogLevel = level
	return c
}

func getDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".bookmarks")
}
