// Package config loads wpregress configuration from ini files with embedded defaults.
// the lookup chain is embedded defaults, then the global config dir, then a local
// .wpregress directory in the working directory. later sources win.
package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pushqa/wpregress/pkg/notify"
)

//go:embed defaults/config
var defaultsFS embed.FS

// localDirName is the per-project config directory looked up in the working directory.
const localDirName = ".wpregress"

// Config is the fully merged configuration.
type Config struct {
	Values
	Colors       ColorConfig
	NotifyParams notify.Params

	configDir string
	localDir  string
}

// Load reads configuration from configDir (DefaultConfigDir if empty), installing defaults
// on first run, and applies the local .wpregress/config if present in the working directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return loadWithLocal(configDir, detectLocalDir())
}

// loadWithLocal loads config with an explicit local directory, empty localDir means none.
func loadWithLocal(globalDir, localDir string) (*Config, error) {
	globalDir = resolveDir(globalDir)
	if err := installDefaults(defaultsFS, globalDir); err != nil {
		return nil, fmt.Errorf("install defaults: %w", err)
	}

	globalPath := filepath.Join(globalDir, "config")
	localPath := ""
	if localDir != "" {
		localDir = resolveDir(localDir)
		localPath = filepath.Join(localDir, "config")
	}

	values, err := newValuesLoader(defaultsFS).Load(localPath, globalPath)
	if err != nil {
		return nil, fmt.Errorf("load values: %w", err)
	}
	colors, err := loadColors(defaultsFS, localPath, globalPath)
	if err != nil {
		return nil, fmt.Errorf("load colors: %w", err)
	}

	return &Config{
		Values:       values,
		Colors:       colors,
		NotifyParams: values.notifyParams(),
		configDir:    globalDir,
		localDir:     localDir,
	}, nil
}

// ConfigDir returns the global config directory in use.
func (c *Config) ConfigDir() string { return c.configDir }

// LocalDir returns the local config directory, empty if none was found.
func (c *Config) LocalDir() string { return c.localDir }

// LoadEnv loads the configured dotenv file into the process environment.
// a missing file is not an error; variables already set in the environment are kept.
func (c *Config) LoadEnv() error {
	if c.EnvFile == "" {
		return nil
	}
	path := expandTilde(c.EnvFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("check env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// DefaultConfigDir returns ~/.config/wpregress, or a relative fallback if home is unknown.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wpregress")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "wpregress")
	}
	return filepath.Join(home, ".config", "wpregress")
}

// detectLocalDir returns .wpregress in the working directory if it exists.
func detectLocalDir() string {
	info, err := os.Stat(localDirName)
	if err != nil || !info.IsDir() {
		return ""
	}
	abs, err := filepath.Abs(localDirName)
	if err != nil {
		return localDirName
	}
	return abs
}

// resolveDir expands ~ and follows symlinks when the target exists.
func resolveDir(dir string) string {
	dir = expandTilde(dir)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved
	}
	return dir
}

// expandTilde replaces a leading ~/ with the user home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
