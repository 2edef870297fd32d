package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultPoolSize is how many sources keep an open *sql.DB at once.
const DefaultPoolSize = 8

// Registry resolves source names to runners. Open database handles are kept
// in an LRU; evicted handles are closed.
type Registry struct {
	sources map[string]Source

	mu  sync.Mutex
	dbs *lru.Cache[string, *sql.DB]
}

// NewRegistry validates sources and returns a registry for them.
func NewRegistry(sources []Source, poolSize int) (*Registry, error) {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	dbs, err := lru.NewWithEvict(poolSize, func(_ string, db *sql.DB) {
		db.Close()
	})
	if err != nil {
		return nil, err
	}

	r := &Registry{sources: make(map[string]Source, len(sources)), dbs: dbs}
	for _, s := range sources {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.sources[s.Name]; dup {
			return nil, fmt.Errorf("duplicate data source %s", s.Name)
		}
		r.sources[s.Name] = s
	}
	return r, nil
}

// Sources returns the configured sources sorted by name.
func (r *Registry) Sources() []Source {
	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Runner returns the runner for the named source.
func (r *Registry) Runner(name string) (*SQLRunner, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("data source %q is not configured", name)
	}
	return &SQLRunner{source: s, open: func() (*sql.DB, error) { return r.db(s) }}, nil
}

// Ping checks that the named source accepts connections.
func (r *Registry) Ping(ctx context.Context, name string) error {
	s, ok := r.sources[name]
	if !ok {
		return fmt.Errorf("data source %q is not configured", name)
	}
	db, err := r.db(s)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("data source %s: %w", name, err)
	}
	return nil
}

func (r *Registry) db(s Source) (*sql.DB, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if db, ok := r.dbs.Get(s.Name); ok {
		return db, nil
	}

	db, err := sql.Open(driverNames[s.Type], s.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open data source %s: %w", s.Name, err)
	}
	if s.MaxOpenConns > 0 {
		db.SetMaxOpenConns(s.MaxOpenConns)
	}
	r.dbs.Add(s.Name, db)
	return db, nil
}

// Close closes every open database handle.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dbs.Purge()
}
