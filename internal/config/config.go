// Package config handles global qres configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aidanlsb/qres/internal/datasource"
	"github.com/aidanlsb/qres/internal/model"
)

// DefaultStoreFile is the query store file name used when store is unset.
const DefaultStoreFile = "queries.yaml"

// Config represents the global qres configuration.
type Config struct {
	// Store is the saved-query YAML file. Relative paths resolve against the
	// directory containing the config file.
	Store string `toml:"store"`

	// DefaultUser is the user queries run as when --user is not given.
	DefaultUser string `toml:"default_user"`

	// Users maps user names to their group memberships.
	Users map[string]UserConfig `toml:"users"`

	// Sources maps data source names to connection settings.
	Sources map[string]datasource.Source `toml:"sources"`

	// UI controls optional CLI theming preferences.
	UI UIConfig `toml:"ui"`

	// path is the file the config was loaded from, if any.
	path string
}

// UserConfig is one entry of the [users] table.
type UserConfig struct {
	Groups []string `toml:"groups"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output and markdown rendering.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// StorePath returns the resolved query store path.
func (c *Config) StorePath() string {
	configDir := "."
	if c.path != "" {
		configDir = filepath.Dir(c.path)
	}

	store := strings.TrimSpace(c.Store)
	if store == "" {
		return filepath.Join(configDir, DefaultStoreFile)
	}
	if isAbsolutePath(store) {
		return filepath.Clean(filepath.FromSlash(store))
	}
	return filepath.Join(configDir, filepath.FromSlash(store))
}

func isAbsolutePath(p string) bool {
	if filepath.IsAbs(p) {
		return true
	}
	// Treat slash-rooted config values as absolute on every OS.
	return strings.HasPrefix(filepath.ToSlash(p), "/")
}

// User returns the named user with its configured groups.
// If name is empty, the default user is returned; with no default either,
// the result is nil (anonymous). Unknown names are an error.
func (c *Config) User(name string) (*model.User, error) {
	if name == "" {
		name = c.DefaultUser
	}
	if name == "" {
		return nil, nil
	}

	uc, ok := c.Users[name]
	if !ok {
		return nil, fmt.Errorf("user '%s' not found in config", name)
	}
	return &model.User{Name: name, Groups: uc.Groups}, nil
}

// DataSources returns the configured sources sorted by name, with each
// source's Name taken from its table key.
func (c *Config) DataSources() []datasource.Source {
	out := make([]datasource.Source, 0, len(c.Sources))
	for name, s := range c.Sources {
		s.Name = name
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Load loads the configuration from the default location.
// Returns a default config if the file doesn't exist.
func Load() (*Config, error) {
	return LoadOrDefault(DefaultPath())
}

// LoadOrDefault loads the configuration at path, or returns an empty config
// anchored at path if the file doesn't exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{path: path}, nil
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	config.path = path

	for name, s := range config.Sources {
		s.Name = name
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}
	if config.DefaultUser != "" {
		if _, ok := config.Users[config.DefaultUser]; !ok {
			return nil, fmt.Errorf("invalid config %s: default_user '%s' is not defined in [users]", path, config.DefaultUser)
		}
	}
	return &config, nil
}

// ResolveConfigPath resolves the effective config path from an optional override.
func ResolveConfigPath(explicitConfigPath string) string {
	if strings.TrimSpace(explicitConfigPath) != "" {
		return explicitConfigPath
	}
	return DefaultPath()
}

// DefaultPath returns the default config file path.
// Checks ~/.config/qres/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "qres", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "qres", "config.toml")
	}

	// Last resort fallback
	return filepath.Join(".", "config.toml")
}

const defaultConfig = `# qres configuration

# Saved queries file, relative to this directory unless absolute.
# store = "queries.yaml"

# User that queries run as when --user is not given.
# default_user = "analyst"

# [users.analyst]
# groups = ["default"]

# Data sources saved queries run against.
# Supported types: sqlite, postgres, pgx, mysql.
# [sources.warehouse]
# type = "postgres"
# dsn = "postgres://localhost/warehouse?sslmode=disable"
# groups = ["default"]

# Optional UI accent color for headers in terminal output.
# Supports ANSI color codes (0-255) or hex (#RRGGBB).
# [ui]
# accent = "39"
`

// CreateDefault creates a default config file at path if it doesn't exist.
// It reports whether a file was written.
func CreateDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}
