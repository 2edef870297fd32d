// Package store loads and saves the YAML file of saved queries.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/qres/internal/atomicfile"
	"github.com/aidanlsb/qres/internal/model"
	"github.com/aidanlsb/qres/internal/slugs"
)

var (
	// ErrQueryNotFound indicates no saved query has the requested id or slug.
	ErrQueryNotFound = errors.New("query not found")
	// ErrAccessDenied indicates the query exists but the user may not load it.
	ErrAccessDenied = errors.New("query is not accessible")
	// ErrDuplicateName indicates another query already has the same slug.
	ErrDuplicateName = errors.New("duplicate query name")
)

// File is the on-disk layout of the query store.
type File struct {
	Queries []*model.Query `yaml:"queries"`
}

// Store holds saved queries indexed by id.
type Store struct {
	path    string
	queries []*model.Query
	byID    map[int]*model.Query
}

// New builds an in-memory store from queries.
func New(queries ...*model.Query) (*Store, error) {
	s := &Store{byID: make(map[int]*model.Query, len(queries))}
	for _, q := range queries {
		if err := s.insert(q); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Load reads the store from path. A missing file yields an empty store that
// Save will create.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s, _ := New()
		s.path = path
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read query store %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse query store %s: %w", path, err)
	}

	s, err := New(f.Queries...)
	if err != nil {
		return nil, fmt.Errorf("invalid query store %s: %w", path, err)
	}
	s.path = path
	return s, nil
}

// Path returns the file the store was loaded from, if any.
func (s *Store) Path() string {
	return s.path
}

// LoadQuery returns the saved query with the given id if user may access it.
func (s *Store) LoadQuery(_ context.Context, id int, user *model.User) (*model.Query, error) {
	q, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("query %d: %w", id, ErrQueryNotFound)
	}
	if !q.AccessibleBy(user) {
		return nil, fmt.Errorf("query %d for user %s: %w", id, user, ErrAccessDenied)
	}
	return q, nil
}

// Lookup finds a query by numeric id, query_<id> placeholder or name slug.
func (s *Store) Lookup(ref string) (*model.Query, error) {
	ref = strings.TrimSpace(ref)
	idText := strings.TrimPrefix(strings.ToLower(ref), "query_")
	if id, err := strconv.Atoi(idText); err == nil {
		if q, ok := s.byID[id]; ok {
			return q, nil
		}
		return nil, fmt.Errorf("query %d: %w", id, ErrQueryNotFound)
	}

	for _, q := range s.queries {
		if slugs.Equal(q.Name, ref) {
			return q, nil
		}
	}
	return nil, fmt.Errorf("query %q: %w", ref, ErrQueryNotFound)
}

// List returns all queries ordered by id.
func (s *Store) List() []*model.Query {
	out := make([]*model.Query, len(s.queries))
	copy(out, s.queries)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Add inserts a new query. A zero ID is replaced with the next free id.
func (s *Store) Add(q *model.Query) error {
	if q.ID == 0 {
		q.ID = s.nextID()
	}
	if q.Name != "" {
		for _, existing := range s.queries {
			if slugs.Equal(existing.Name, q.Name) {
				return fmt.Errorf("%w: %q already exists as query %d", ErrDuplicateName, existing.Name, existing.ID)
			}
		}
	}
	return s.insert(q)
}

// Remove deletes the query with the given id.
func (s *Store) Remove(id int) (*model.Query, error) {
	q, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("query %d: %w", id, ErrQueryNotFound)
	}
	delete(s.byID, id)
	for i, existing := range s.queries {
		if existing == q {
			s.queries = append(s.queries[:i], s.queries[i+1:]...)
			break
		}
	}
	return q, nil
}

// Save writes the store back to its file.
func (s *Store) Save() error {
	if s.path == "" {
		return fmt.Errorf("query store has no file path")
	}
	return SaveTo(s.path, s.List())
}

// SaveTo writes queries to path atomically.
func SaveTo(path string, queries []*model.Query) error {
	data, err := yaml.Marshal(File{Queries: queries})
	if err != nil {
		return fmt.Errorf("failed to marshal query store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create query store directory: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write query store %s: %w", path, err)
	}
	return nil
}

func (s *Store) insert(q *model.Query) error {
	if q == nil {
		return fmt.Errorf("nil query")
	}
	if q.ID <= 0 {
		return fmt.Errorf("query %q: id must be a positive integer", q.Name)
	}
	if _, dup := s.byID[q.ID]; dup {
		return fmt.Errorf("duplicate query id %d", q.ID)
	}
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("query %d: query text is empty", q.ID)
	}
	if strings.TrimSpace(q.DataSource) == "" {
		return fmt.Errorf("query %d: data_source is required", q.ID)
	}
	s.byID[q.ID] = q
	s.queries = append(s.queries, q)
	return nil
}

func (s *Store) nextID() int {
	highest := 0
	for id := range s.byID {
		if id > highest {
			highest = id
		}
	}
	return highest + 1
}

const defaultStore = `# qres saved queries
#
# Reference a query from any SQL run through qres as query_<id>, or pass
# parameters inline: query_<id>('{"status": "active"}').
# Without inline parameters the defaults declared below are used.
queries: []
#  - id: 1
#    name: Active customers
#    description: Customers with an order in the last {{days}} days.
#    data_source: warehouse
#    query: |
#      SELECT id, name FROM customers
#      WHERE last_order_at > date('now', '-{{days}} days')
#    parameters:
#      - name: days
#        value: 30
#    groups: [analysts]
`

// CreateDefault writes an empty, commented store file at path.
// Returns true if a new file was created, false if one already existed.
func CreateDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create query store directory: %w", err)
	}
	if err := atomicfile.WriteFile(path, []byte(defaultStore), 0o644); err != nil {
		return false, fmt.Errorf("failed to write query store: %w", err)
	}
	return true, nil
}
