// Package config manages pictor configuration and the .pictor directory
// structure. It handles loading, saving, and initializing the workspace
// configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	PictorDir    = ".pictor"
	ConfigFile   = "config"
	DatabaseFile = "pictor.db"
	MasksDir     = "masks"
)

// Defaults for the editing viewport. Masks drawn on the scaled-down
// display are mapped back to native image resolution.
const (
	DefaultMaxDisplayWidth  = 1280
	DefaultMaxDisplayHeight = 800
)

// Config represents the pictor workspace configuration
type Config struct {
	ServerURL        string `toml:"server_url"`
	Token            string `toml:"token,omitempty"`
	MaxDisplayWidth  int    `toml:"max_display_width"`
	MaxDisplayHeight int    `toml:"max_display_height"`
	path             string // path to .pictor directory
}

// FindRoot finds the .pictor directory by walking up from current directory
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		pictorPath := filepath.Join(dir, PictorDir)
		if info, err := os.Stat(pictorPath); err == nil && info.IsDir() {
			return pictorPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a pictor workspace (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the .pictor directory
func Load() (*Config, error) {
	pictorPath, err := FindRoot()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(pictorPath, ConfigFile)
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.MaxDisplayWidth <= 0 {
		cfg.MaxDisplayWidth = DefaultMaxDisplayWidth
	}
	if cfg.MaxDisplayHeight <= 0 {
		cfg.MaxDisplayHeight = DefaultMaxDisplayHeight
	}

	cfg.path = pictorPath
	return &cfg, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configPath := filepath.Join(c.path, ConfigFile)
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// Path returns the path to the .pictor directory
func (c *Config) Path() string {
	return c.path
}

// DatabasePath returns the path to the bbolt database
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// MasksPath returns the path to the exported masks directory
func (c *Config) MasksPath() string {
	return filepath.Join(c.path, MasksDir)
}

// Initialize creates a new .pictor directory with initial configuration
func Initialize(serverURL, token string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	pictorPath := filepath.Join(cwd, PictorDir)

	// Check if already initialized
	if _, err := os.Stat(pictorPath); err == nil {
		return nil, fmt.Errorf("pictor workspace already exists")
	}

	// Create directories
	if err := os.MkdirAll(pictorPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .pictor directory: %w", err)
	}

	masksPath := filepath.Join(pictorPath, MasksDir)
	if err := os.MkdirAll(masksPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create masks directory: %w", err)
	}

	cfg := &Config{
		ServerURL:        serverURL,
		Token:            token,
		MaxDisplayWidth:  DefaultMaxDisplayWidth,
		MaxDisplayHeight: DefaultMaxDisplayHeight,
		path:             pictorPath,
	}

	if err := cfg.Save(); err != nil {
		// Cleanup on failure
		os.RemoveAll(pictorPath)
		return nil, err
	}

	return cfg, nil
}
