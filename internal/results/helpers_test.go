package results

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/aidanlsb/qres/internal/engine"
	"github.com/aidanlsb/qres/internal/model"
	"github.com/aidanlsb/qres/internal/render"
	"github.com/aidanlsb/qres/internal/store"
)

// stubRunner returns a fixed payload and records the SQL it was given.
type stubRunner struct {
	mu      sync.Mutex
	payload string
	err     error
	run     func(ctx context.Context, query string) ([]byte, error)
	queries []string
}

func (s *stubRunner) RunQuery(ctx context.Context, query string, _ *model.User) ([]byte, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	if s.run != nil {
		return s.run(ctx, query)
	}
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.payload), nil
}

func (s *stubRunner) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// stubSources dispatches source names to stub runners.
type stubSources map[string]*stubRunner

func (s stubSources) Runner(name string) (QueryRunner, error) {
	r, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("data source %q is not configured", name)
	}
	return r, nil
}

func (s stubSources) totalCalls() int {
	n := 0
	for _, r := range s {
		n += len(r.calls())
	}
	return n
}

func newStore(t *testing.T, queries ...*model.Query) *store.Store {
	t.Helper()
	s, err := store.New(queries...)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return s
}

func newMaterializer(st QueryStore, sources Dispatcher) *Materializer {
	return &Materializer{Store: st, Sources: sources, Renderer: render.Renderer{}}
}

func openEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.Open(context.Background())
	if err != nil {
		t.Fatalf("engine.Open: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

// recordingOpener opens real engines and keeps them for inspection.
type recordingOpener struct {
	engines []*engine.Engine
}

func (o *recordingOpener) open(ctx context.Context) (*engine.Engine, error) {
	eng, err := engine.Open(ctx)
	if err == nil {
		o.engines = append(o.engines, eng)
	}
	return eng, err
}
