package resultset

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
)

// Column describes one output column.
type Column struct {
	Name         string     `json:"name"`
	FriendlyName string     `json:"friendly_name"`
	Type         ColumnType `json:"type"`
}

// Result is the uniform columnar result: column metadata plus rows keyed by
// column name.
type Result struct {
	Columns []Column         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// ColumnNames returns the column names in order.
func (r *Result) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// MarshalJSON always emits an array for rows, even when there are none.
func (r *Result) MarshalJSON() ([]byte, error) {
	type plain Result
	out := plain(*r)
	if out.Columns == nil {
		out.Columns = []Column{}
	}
	if out.Rows == nil {
		out.Rows = []map[string]any{}
	}
	return json.Marshal(out)
}

// FetchColumns builds untyped columns from raw names. Repeated names get a
// numeric suffix (n, n1, n2, ...) so every row key is unique.
func FetchColumns(names []string) []Column {
	seen := make(map[string]bool, len(names))
	counters := make(map[string]int)
	columns := make([]Column, 0, len(names))

	for _, raw := range names {
		name := raw
		for seen[name] {
			counter := counters[raw]
			if counter == 0 {
				counter = 1
			}
			name = raw + strconv.Itoa(counter)
			counters[raw] = counter + 1
		}
		seen[name] = true
		columns = append(columns, Column{Name: name, FriendlyName: name})
	}
	return columns
}

// Scan consumes rows into a Result, inferring column types as it goes.
// A statement without column metadata yields a Result with no columns.
// Scan closes rows.
func Scan(rows *sql.Rows) (*Result, error) {
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	res := &Result{Columns: FetchColumns(names), Rows: []map[string]any{}}
	if len(names) == 0 {
		return res, rows.Err()
	}

	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		res.AddRow(values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// AddRow appends a row given positionally and narrows column types with it.
func (r *Result) AddRow(values []any) {
	row := make(map[string]any, len(r.Columns))
	for i := range r.Columns {
		var v any
		if i < len(values) {
			v = normalize(values[i])
		}
		r.Columns[i].Type = Narrow(r.Columns[i].Type, GuessType(v))
		row[r.Columns[i].Name] = v
	}
	r.Rows = append(r.Rows, row)
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
