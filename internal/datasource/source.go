// Package datasource runs saved queries against their configured databases
// and returns results in the JSON payload format child queries produce.
package datasource

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aidanlsb/qres/internal/model"
	"github.com/aidanlsb/qres/internal/resultset"
)

// Source is a configured database that saved queries run against.
type Source struct {
	Name string `toml:"-" json:"name"`

	// Type selects the driver: sqlite, postgres, pgx or mysql.
	Type string `toml:"type" json:"type"`

	// DSN is passed to sql.Open. For sqlite it is a file path or URI.
	DSN string `toml:"dsn" json:"-"`

	// Groups restricts the source to users in at least one group.
	// An empty list means everyone may run queries against it.
	Groups []string `toml:"groups,omitempty" json:"groups,omitempty"`

	// MaxOpenConns caps the connection pool; 0 leaves the driver default.
	MaxOpenConns int `toml:"max_open_conns,omitempty" json:"max_open_conns,omitempty"`
}

// Validate checks the source definition.
func (s Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("data source name is required")
	}
	if _, ok := driverNames[s.Type]; !ok {
		return fmt.Errorf("data source %s: unsupported type %q (supported: %s)",
			s.Name, s.Type, strings.Join(SupportedTypes(), ", "))
	}
	if strings.TrimSpace(s.DSN) == "" {
		return fmt.Errorf("data source %s: dsn is required", s.Name)
	}
	return nil
}

// SQLRunner executes query text against one source.
type SQLRunner struct {
	source Source
	open   func() (*sql.DB, error)
}

// Source returns the source definition the runner executes against.
func (r *SQLRunner) Source() Source {
	return r.source
}

// RunQuery runs query on behalf of user and returns a JSON payload of the form
// {"columns": [...], "rows": [...]}.
func (r *SQLRunner) RunQuery(ctx context.Context, query string, user *model.User) ([]byte, error) {
	if len(r.source.Groups) > 0 && !user.InAnyGroup(r.source.Groups) {
		return nil, fmt.Errorf("user %s may not query data source %s", user, r.source.Name)
	}

	db, err := r.open()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("data source %s: %w", r.source.Name, err)
	}
	res, err := resultset.Scan(rows)
	if err != nil {
		return nil, fmt.Errorf("data source %s: %w", r.source.Name, err)
	}

	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	return payload, nil
}
