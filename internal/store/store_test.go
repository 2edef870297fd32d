package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aidanlsb/qres/internal/model"
)

const sampleStore = `queries:
  - id: 1
    name: Active customers
    description: Customers with recent orders.
    data_source: warehouse
    query: SELECT id, name FROM customers WHERE status = '{{status}}'
    parameters:
      - name: status
        value: active
  - id: 2
    name: Revenue by month
    data_source: warehouse
    query: SELECT month, total FROM revenue
    groups: [finance]
`

func writeStore(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queries.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	s, err := Load(writeStore(t, sampleStore))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	queries := s.List()
	if len(queries) != 2 {
		t.Fatalf("got %d queries, want 2", len(queries))
	}
	q := queries[0]
	if q.ID != 1 || q.DataSource != "warehouse" || q.Name != "Active customers" {
		t.Errorf("unexpected first query: %+v", q)
	}
	if got := q.DefaultParams()["status"]; got != "active" {
		t.Errorf("default status = %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.List()) != 0 {
		t.Errorf("expected empty store")
	}
	if s.Path() != path {
		t.Errorf("Path() = %q", s.Path())
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"duplicate id": `queries:
  - {id: 1, data_source: a, query: SELECT 1}
  - {id: 1, data_source: a, query: SELECT 2}
`,
		"missing source": `queries:
  - {id: 1, query: SELECT 1}
`,
		"empty query": `queries:
  - {id: 1, data_source: a, query: ""}
`,
		"bad id": `queries:
  - {id: 0, data_source: a, query: SELECT 1}
`,
		"bad yaml": "queries: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeStore(t, content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadQueryAccess(t *testing.T) {
	s, err := Load(writeStore(t, sampleStore))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	analyst := &model.User{Name: "ana", Groups: []string{"analysts"}}
	accountant := &model.User{Name: "acc", Groups: []string{"finance"}}

	if _, err := s.LoadQuery(ctx, 1, analyst); err != nil {
		t.Errorf("public query: %v", err)
	}
	if _, err := s.LoadQuery(ctx, 2, accountant); err != nil {
		t.Errorf("finance query for finance user: %v", err)
	}
	if _, err := s.LoadQuery(ctx, 2, analyst); !errors.Is(err, ErrAccessDenied) {
		t.Errorf("finance query for analyst error = %v, want ErrAccessDenied", err)
	}
	if _, err := s.LoadQuery(ctx, 99, analyst); !errors.Is(err, ErrQueryNotFound) {
		t.Errorf("missing query error = %v, want ErrQueryNotFound", err)
	}
}

func TestLookup(t *testing.T) {
	s, err := Load(writeStore(t, sampleStore))
	if err != nil {
		t.Fatal(err)
	}

	for _, ref := range []string{"2", "query_2", "revenue-by-month", "Revenue by month"} {
		q, err := s.Lookup(ref)
		if err != nil {
			t.Errorf("Lookup(%q): %v", ref, err)
			continue
		}
		if q.ID != 2 {
			t.Errorf("Lookup(%q) = query %d", ref, q.ID)
		}
	}
	if _, err := s.Lookup("unknown"); !errors.Is(err, ErrQueryNotFound) {
		t.Errorf("Lookup(unknown) error = %v", err)
	}
	if _, err := s.Lookup("42"); !errors.Is(err, ErrQueryNotFound) {
		t.Errorf("Lookup(42) error = %v", err)
	}
}

func TestAddAndSave(t *testing.T) {
	path := writeStore(t, sampleStore)
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	q := &model.Query{Name: "Top products", DataSource: "warehouse", Query: "SELECT * FROM products"}
	if err := s.Add(q); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if q.ID != 3 {
		t.Errorf("assigned id = %d, want 3", q.ID)
	}

	dup := &model.Query{Name: "top products", DataSource: "warehouse", Query: "SELECT 1"}
	if err := s.Add(dup); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate name: err = %v, want ErrDuplicateName", err)
	}

	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	got, err := reloaded.Lookup("top-products")
	if err != nil {
		t.Fatalf("Lookup after save: %v", err)
	}
	if got.ID != 3 || got.Query != "SELECT * FROM products" {
		t.Errorf("reloaded query = %+v", got)
	}
	if len(reloaded.List()) != 3 {
		t.Errorf("reloaded %d queries, want 3", len(reloaded.List()))
	}
}

func TestCreateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "queries.yaml")

	created, err := CreateDefault(path)
	if err != nil || !created {
		t.Fatalf("CreateDefault = %v, %v", created, err)
	}
	created, err = CreateDefault(path)
	if err != nil || created {
		t.Fatalf("second CreateDefault = %v, %v", created, err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("default store should load: %v", err)
	}
	if len(s.List()) != 0 {
		t.Errorf("default store should be empty")
	}
}

func TestRemove(t *testing.T) {
	path := writeStore(t, sampleStore)
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	removed, err := s.Remove(1)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed.ID != 1 {
		t.Errorf("removed id = %d", removed.ID)
	}
	if _, err := s.Remove(1); !errors.Is(err, ErrQueryNotFound) {
		t.Errorf("second Remove = %v, want ErrQueryNotFound", err)
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reloaded.Lookup("1"); !errors.Is(err, ErrQueryNotFound) {
		t.Errorf("Lookup after remove = %v", err)
	}
	if len(reloaded.List()) != 1 {
		t.Errorf("reloaded %d queries, want 1", len(reloaded.List()))
	}
	q := &model.Query{Name: "New", DataSource: "w", Query: "SELECT 1"}
	if err := reloaded.Add(q); err != nil || q.ID != 3 {
		t.Errorf("Add after remove: id = %d, err = %v; want id 3", q.ID, err)
	}
}
