package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aidanlsb/qres/internal/atomicfile"
)

type persistedConfig struct {
	Store       *string                    `toml:"store,omitempty"`
	DefaultUser *string                    `toml:"default_user,omitempty"`
	Users       map[string]persistedUser   `toml:"users,omitempty"`
	Sources     map[string]persistedSource `toml:"sources,omitempty"`
	UI          *persistedUISettings       `toml:"ui,omitempty"`
}

type persistedUser struct {
	Groups []string `toml:"groups"`
}

type persistedSource struct {
	Type         string   `toml:"type"`
	DSN          string   `toml:"dsn"`
	Groups       []string `toml:"groups,omitempty"`
	MaxOpenConns int      `toml:"max_open_conns,omitempty"`
}

type persistedUISettings struct {
	Accent *string `toml:"accent,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Save writes the config back to the file it was loaded from.
func (c *Config) Save() error {
	return SaveTo(c.path, c)
}

// SaveTo writes the global config to a specific path atomically.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	out := persistedConfig{
		Store:       nonEmptyPtr(cfg.Store),
		DefaultUser: nonEmptyPtr(cfg.DefaultUser),
	}
	if len(cfg.Users) > 0 {
		out.Users = make(map[string]persistedUser, len(cfg.Users))
		for name, u := range cfg.Users {
			out.Users[name] = persistedUser{Groups: u.Groups}
		}
	}
	if len(cfg.Sources) > 0 {
		out.Sources = make(map[string]persistedSource, len(cfg.Sources))
		for name, s := range cfg.Sources {
			out.Sources[name] = persistedSource{
				Type:         s.Type,
				DSN:          s.DSN,
				Groups:       s.Groups,
				MaxOpenConns: s.MaxOpenConns,
			}
		}
	}
	if accent := nonEmptyPtr(cfg.UI.Accent); accent != nil {
		out.UI = &persistedUISettings{Accent: accent}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}

	return nil
}
