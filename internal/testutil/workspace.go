// Package testutil provides reusable test utilities for qres integration tests.
package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/BurntSushi/toml"
	_ "modernc.org/sqlite"
)

// TestWorkspace is a temporary config directory with sqlite data sources and
// a query store.
type TestWorkspace struct {
	Dir string
	t   *testing.T

	defaultUser string
	users       map[string][]string
	sources     map[string]testSource
	queries     string
	files       map[string]string
}

type testSource struct {
	seed   string
	groups []string
}

// NewTestWorkspace creates a new workspace builder.
// Call Build() to write it to disk.
func NewTestWorkspace(t *testing.T) *TestWorkspace {
	t.Helper()
	return &TestWorkspace{
		t:       t,
		users:   make(map[string][]string),
		sources: make(map[string]testSource),
		files:   make(map[string]string),
	}
}

// WithSQLiteSource adds a sqlite data source seeded with the given SQL.
func (w *TestWorkspace) WithSQLiteSource(name, seed string, groups ...string) *TestWorkspace {
	w.sources[name] = testSource{seed: seed, groups: groups}
	return w
}

// WithUser adds a user with the given groups.
func (w *TestWorkspace) WithUser(name string, groups ...string) *TestWorkspace {
	w.users[name] = groups
	return w
}

// WithDefaultUser sets default_user. The user must also be added with WithUser.
func (w *TestWorkspace) WithDefaultUser(name string) *TestWorkspace {
	w.defaultUser = name
	return w
}

// WithQueries sets the queries.yaml content.
func (w *TestWorkspace) WithQueries(yaml string) *TestWorkspace {
	w.queries = yaml
	return w
}

// WithFile adds a file relative to the workspace directory.
func (w *TestWorkspace) WithFile(path, content string) *TestWorkspace {
	w.files[path] = content
	return w
}

// Build creates the workspace directory, the seeded databases, config.toml
// and queries.yaml.
func (w *TestWorkspace) Build() *TestWorkspace {
	w.t.Helper()
	w.Dir = w.t.TempDir()

	type sourceEntry struct {
		Type   string   `toml:"type"`
		DSN    string   `toml:"dsn"`
		Groups []string `toml:"groups,omitempty"`
	}
	type userEntry struct {
		Groups []string `toml:"groups"`
	}
	doc := struct {
		Store       string                 `toml:"store"`
		DefaultUser string                 `toml:"default_user,omitempty"`
		Users       map[string]userEntry   `toml:"users,omitempty"`
		Sources     map[string]sourceEntry `toml:"sources,omitempty"`
	}{
		Store:       "queries.yaml",
		DefaultUser: w.defaultUser,
		Users:       make(map[string]userEntry),
		Sources:     make(map[string]sourceEntry),
	}

	for name, groups := range w.users {
		doc.Users[name] = userEntry{Groups: groups}
	}
	for _, name := range w.sourceNames() {
		src := w.sources[name]
		path := w.SourcePath(name)
		w.seed(path, src.seed)
		doc.Sources[name] = sourceEntry{Type: "sqlite", DSN: path, Groups: src.groups}
	}

	f, err := os.Create(w.ConfigPath())
	if err != nil {
		w.t.Fatalf("failed to create config: %v", err)
	}
	if err := toml.NewEncoder(f).Encode(doc); err != nil {
		f.Close()
		w.t.Fatalf("failed to write config: %v", err)
	}
	if err := f.Close(); err != nil {
		w.t.Fatalf("failed to write config: %v", err)
	}

	if w.queries != "" {
		w.writeFile("queries.yaml", w.queries)
	}
	for path, content := range w.files {
		w.writeFile(path, content)
	}
	return w
}

// ConfigPath returns the path of the workspace config file.
func (w *TestWorkspace) ConfigPath() string {
	return filepath.Join(w.Dir, "config.toml")
}

// SourcePath returns the database file backing a sqlite source.
func (w *TestWorkspace) SourcePath(name string) string {
	return filepath.Join(w.Dir, name+".db")
}

func (w *TestWorkspace) sourceNames() []string {
	names := make([]string, 0, len(w.sources))
	for name := range w.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (w *TestWorkspace) seed(path, seed string) {
	w.t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		w.t.Fatalf("failed to open %s: %v", path, err)
	}
	defer db.Close()
	if seed == "" {
		seed = "SELECT 1"
	}
	if _, err := db.Exec(seed); err != nil {
		w.t.Fatalf("failed to seed %s: %v", path, err)
	}
}

// writeFile writes a file to the workspace, creating directories as needed.
func (w *TestWorkspace) writeFile(relPath, content string) {
	w.t.Helper()
	fullPath := filepath.Join(w.Dir, relPath)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		w.t.Fatalf("failed to create directory %s: %v", dir, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		w.t.Fatalf("failed to write file %s: %v", fullPath, err)
	}
}

// ReadFile reads a file from the workspace.
func (w *TestWorkspace) ReadFile(relPath string) string {
	w.t.Helper()
	content, err := os.ReadFile(filepath.Join(w.Dir, relPath))
	if err != nil {
		w.t.Fatalf("failed to read file %s: %v", relPath, err)
	}
	return string(content)
}

// FileExists checks if a file exists in the workspace.
func (w *TestWorkspace) FileExists(relPath string) bool {
	_, err := os.Stat(filepath.Join(w.Dir, relPath))
	return err == nil
}
