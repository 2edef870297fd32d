package results

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/aidanlsb/qres/internal/engine"
	"github.com/aidanlsb/qres/internal/model"
	"github.com/aidanlsb/qres/internal/resultset"
)

// QueryStore loads saved queries on behalf of a user.
type QueryStore interface {
	LoadQuery(ctx context.Context, id int, user *model.User) (*model.Query, error)
}

// QueryRunner executes query text against one data source and returns a
// {"columns": [...], "rows": [...]} JSON payload.
type QueryRunner interface {
	RunQuery(ctx context.Context, query string, user *model.User) ([]byte, error)
}

// Dispatcher returns the runner for a named data source.
type Dispatcher interface {
	Runner(source string) (QueryRunner, error)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(source string) (QueryRunner, error)

// Runner calls f(source).
func (f DispatcherFunc) Runner(source string) (QueryRunner, error) { return f(source) }

// Renderer substitutes parameters into a query template.
type Renderer interface {
	Render(text string, params map[string]any) (string, error)
}

// Materializer runs referenced queries and loads their rows into an engine.
type Materializer struct {
	Store    QueryStore
	Sources  Dispatcher
	Renderer Renderer
	Logger   *slog.Logger
}

// Materialize runs the query ref points to and stores its rows in a new
// table named ref.Table. index is the reference's position in the SQL and
// is carried by the returned errors.
func (m *Materializer) Materialize(ctx context.Context, eng *engine.Engine, index int, ref Reference, user *model.User) error {
	q, err := m.Store.LoadQuery(ctx, ref.QueryID, user)
	if err != nil {
		return &NotFoundError{QueryID: ref.QueryID, Err: err}
	}

	params := ref.Params
	if len(params) == 0 {
		params = q.DefaultParams()
	}
	fail := func(err error) error {
		return &ChildQueryExecutionError{Index: index, QueryID: ref.QueryID, Err: err}
	}

	text, err := m.Renderer.Render(q.Query, params)
	if err != nil {
		return fail(fmt.Errorf("failed to render query: %w", err))
	}
	runner, err := m.Sources.Runner(q.DataSource)
	if err != nil {
		return fail(err)
	}

	m.logger().Debug("running child query",
		"index", index, "query_id", ref.QueryID, "source", q.DataSource, "table", ref.Table, "sql", text)

	payload, err := runner.RunQuery(ctx, text, user)
	if err != nil {
		return fail(err)
	}
	columns, keys, types, rows, err := decodePayload(payload)
	if err != nil {
		return fail(err)
	}
	if len(columns) == 0 {
		return &EmptyResultError{Index: index, QueryID: ref.QueryID}
	}

	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = make([]any, len(keys))
		for j, key := range keys {
			values[i][j] = cellValue(row[key], types[j])
		}
	}

	if err := eng.CreateTable(ctx, ref.Table, columns); err != nil {
		return fmt.Errorf("failed to create table for query %d: %w", ref.QueryID, err)
	}
	if err := eng.Insert(ctx, ref.Table, columns, values); err != nil {
		return fmt.Errorf("failed to load results of query %d: %w", ref.QueryID, err)
	}

	m.logger().Debug("materialized child query", "query_id", ref.QueryID, "table", ref.Table, "rows", len(values))
	return nil
}

func (m *Materializer) logger() *slog.Logger {
	if m.Logger == nil {
		return discardLogger
	}
	return m.Logger
}

type payload struct {
	Columns []struct {
		Name string               `json:"name"`
		Type resultset.ColumnType `json:"type"`
	} `json:"columns"`
	Rows []map[string]any `json:"rows"`
}

// decodePayload returns the table column names, the row keys they are read
// from, the declared column types and the rows. Column names come from the
// payload's column list, or from the first row's keys when the list is missing.
func decodePayload(data []byte) (columns, keys []string, types []resultset.ColumnType, rows []map[string]any, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var p payload
	if err := dec.Decode(&p); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("malformed result payload: %w", err)
	}

	if len(p.Columns) > 0 {
		for _, c := range p.Columns {
			keys = append(keys, c.Name)
			types = append(types, c.Type)
		}
	} else if len(p.Rows) > 0 {
		for k := range p.Rows[0] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		types = make([]resultset.ColumnType, len(keys))
	}

	sanitized := make([]string, len(keys))
	for i, k := range keys {
		sanitized[i] = sanitizeColumnName(k)
	}
	for _, c := range resultset.FetchColumns(sanitized) {
		columns = append(columns, c.Name)
	}
	return columns, keys, types, p.Rows, nil
}

var unsafeColumnChars = regexp.MustCompile(`[:."\s]`)

func sanitizeColumnName(name string) string {
	return unsafeColumnChars.ReplaceAllString(name, "_")
}

// cellValue converts a decoded JSON value into something the engine can
// store. Whole numbers stay integers unless the column is declared float;
// objects and arrays become JSON text.
func cellValue(v any, typ resultset.ColumnType) any {
	switch val := v.(type) {
	case json.Number:
		if typ == resultset.TypeFloat {
			if f, err := val.Float64(); err == nil {
				return f
			}
		}
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
	return v
}
