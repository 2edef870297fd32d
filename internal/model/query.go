package model

import (
	"strconv"

	"github.com/aidanlsb/qres/internal/slugs"
)

// Query is a saved query that other queries can reference as query_<id>.
type Query struct {
	// ID is the numeric identifier used in query_<id> placeholders.
	ID int `yaml:"id" json:"id"`

	// Name is a human-readable title. Its slug can be used on the command line.
	Name string `yaml:"name" json:"name"`

	// Description is free-form markdown shown by `qres queries show`.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// DataSource names the configured source the query runs against.
	DataSource string `yaml:"data_source" json:"data_source"`

	// Query is the SQL template. Parameters are referenced as {{name}}.
	Query string `yaml:"query" json:"query"`

	// Parameters declares template parameters and their default values.
	Parameters []Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`

	// Groups restricts the query to users in at least one of these groups.
	// An empty list means everyone may run it.
	Groups []string `yaml:"groups,omitempty" json:"groups,omitempty"`
}

// Parameter is a declared template parameter.
type Parameter struct {
	Name  string `yaml:"name" json:"name"`
	Title string `yaml:"title,omitempty" json:"title,omitempty"`
	Type  string `yaml:"type,omitempty" json:"type,omitempty"`
	Value any    `yaml:"value,omitempty" json:"value,omitempty"`
}

// DefaultParams returns the declared parameters as a name -> default value map.
func (q *Query) DefaultParams() map[string]any {
	out := make(map[string]any, len(q.Parameters))
	for _, p := range q.Parameters {
		out[p.Name] = p.Value
	}
	return out
}

// Slug returns the query name slugified, or the numeric id when the name is empty.
func (q *Query) Slug() string {
	if q.Name == "" {
		return strconv.Itoa(q.ID)
	}
	return slugs.ComponentSlug(q.Name)
}

// Placeholder returns the token that references this query from other SQL.
func (q *Query) Placeholder() string {
	return "query_" + strconv.Itoa(q.ID)
}

// AccessibleBy reports whether user may load the query.
func (q *Query) AccessibleBy(user *User) bool {
	if len(q.Groups) == 0 {
		return true
	}
	return user.InAnyGroup(q.Groups)
}
