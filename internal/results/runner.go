package results

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/aidanlsb/qres/internal/engine"
	"github.com/aidanlsb/qres/internal/model"
	"github.com/aidanlsb/qres/internal/resultset"
)

// DisplayName is the name the runner is presented under.
const DisplayName = "Query Results with parameters"

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Runner executes SQL that references saved queries. Each run gets its own
// ephemeral engine, so runs never see each other's tables.
type Runner struct {
	materializer Materializer
	logger       *slog.Logger
	openEngine   func(context.Context) (*engine.Engine, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for debug traces of child and composite SQL.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEngineOpener replaces how the per-run engine is created.
func WithEngineOpener(open func(context.Context) (*engine.Engine, error)) Option {
	return func(r *Runner) {
		if open != nil {
			r.openEngine = open
		}
	}
}

// NewRunner returns a Runner that loads referenced queries from store, renders
// them with renderer and runs them through sources.
func NewRunner(store QueryStore, sources Dispatcher, renderer Renderer, opts ...Option) *Runner {
	r := &Runner{
		logger:     discardLogger,
		openEngine: engine.Open,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.materializer = Materializer{
		Store:    store,
		Sources:  sources,
		Renderer: renderer,
		Logger:   r.logger,
	}
	return r
}

// Run extracts the references in sql, materializes each one in order,
// rewrites the placeholders and executes the result. The first failure aborts
// the run. If ctx ends at any point the error is ErrCancelled.
func (r *Runner) Run(ctx context.Context, sql string, user *model.User) (*resultset.Result, error) {
	if ctx.Err() != nil {
		return nil, ErrCancelled
	}

	refs, err := Extract(sql)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("extracted query references", "count", len(refs), "user", user.String())

	eng, err := r.openEngine(ctx)
	if err != nil {
		return nil, cancelled(ctx, err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			r.logger.Warn("failed to close ephemeral engine", "error", err)
		}
	}()

	for i, ref := range refs {
		if err := r.materializer.Materialize(ctx, eng, i, ref, user); err != nil {
			return nil, cancelled(ctx, err)
		}
	}

	final, err := Rewrite(sql, refs)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("running composite query", "sql", final)

	res, err := Execute(ctx, eng, final)
	if err != nil {
		return nil, cancelled(ctx, err)
	}
	return res, nil
}

// RunJSON is Run with the result encoded as {"columns": [...], "rows": [...]}.
func (r *Runner) RunJSON(ctx context.Context, sql string, user *model.User) ([]byte, error) {
	res, err := r.Run(ctx, sql, user)
	if err != nil {
		return nil, err
	}
	return json.Marshal(res)
}

func cancelled(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ErrCancelled
	}
	return err
}
