package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// ColorConfig holds output colors as "r,g,b" strings, converted from the #rrggbb values in config.
type ColorConfig struct {
	Setup     string
	Scenario  string
	Step      string
	Summary   string
	Warn      string
	Error     string
	Timestamp string
	Info      string
}

// colorFields binds color_* keys to ColorConfig fields.
var colorFields = []struct {
	key   string
	field func(*ColorConfig) *string
}{
	{"color_setup", func(c *ColorConfig) *string { return &c.Setup }},
	{"color_scenario", func(c *ColorConfig) *string { return &c.Scenario }},
	{"color_step", func(c *ColorConfig) *string { return &c.Step }},
	{"color_summary", func(c *ColorConfig) *string { return &c.Summary }},
	{"color_warn", func(c *ColorConfig) *string { return &c.Warn }},
	{"color_error", func(c *ColorConfig) *string { return &c.Error }},
	{"color_timestamp", func(c *ColorConfig) *string { return &c.Timestamp }},
	{"color_info", func(c *ColorConfig) *string { return &c.Info }},
}

// loadColors layers embedded defaults, then the global file, then the local file.
// Each layer overrides only the keys it sets; missing files are skipped.
func loadColors(fsys fs.FS, localPath, globalPath string) (ColorConfig, error) {
	embedded, err := fs.ReadFile(fsys, "defaults/config")
	if err != nil {
		return ColorConfig{}, fmt.Errorf("read embedded defaults: %w", err)
	}

	var res ColorConfig
	if err := applyColors(&res, embedded); err != nil {
		return ColorConfig{}, fmt.Errorf("embedded defaults: %w", err)
	}
	for _, path := range []string{globalPath, localPath} {
		data, err := readOptional(path)
		if err != nil {
			return ColorConfig{}, err
		}
		if err := applyColors(&res, data); err != nil {
			return ColorConfig{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	return res, nil
}

// readOptional returns nil for an empty path or a file that does not exist.
func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is constructed internally
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return data, nil
}

// applyColors sets every non-empty color_* key found in data.
func applyColors(dst *ColorConfig, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	cfg, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	section := cfg.Section("")
	for _, cf := range colorFields {
		v := strings.TrimSpace(section.Key(cf.key).String())
		if v == "" {
			continue
		}
		rgb, err := hexToRGB(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", cf.key, err)
		}
		*cf.field(dst) = rgb
	}
	return nil
}

// hexToRGB converts "#rrggbb" to "r,g,b".
func hexToRGB(s string) (string, error) {
	digits, ok := strings.CutPrefix(s, "#")
	if !ok {
		return "", errors.New("hex color must start with #")
	}
	if len(digits) != 6 {
		return "", errors.New("hex color must be 7 characters (e.g., #ff0000)")
	}
	b, err := hex.DecodeString(digits)
	if err != nil {
		return "", fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return fmt.Sprintf("%d,%d,%d", b[0], b[1], b[2]), nil
}
