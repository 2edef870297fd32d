// Package results resolves query_<id> references in SQL text against saved
// queries, materializes their rows into an ephemeral engine and runs the
// rewritten composite query.
package results

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/aidanlsb/qres/internal/sqltok"
)

const referencePrefix = "query_"

var referencePattern = regexp.MustCompile(`(?i)^query_(\d+)$`)

// Reference is one query_<id> placeholder found in SQL text.
type Reference struct {
	// QueryID is the saved query the placeholder points to.
	QueryID int `json:"query_id"`

	// Params holds the inline parameter object, or is empty.
	Params map[string]any `json:"params"`

	// Table is the generated table name the placeholder is rewritten to.
	Table string `json:"table"`

	// Token is the exact source text to replace.
	Token string `json:"token"`

	// Pos is the byte offset of Token in the original SQL.
	Pos int `json:"pos"`
}

// Extract finds query references in sql, in source order. References inside
// string literals and comments are ignored. Every reference gets its own
// table name, including repeated references to the same query.
func Extract(sql string) ([]Reference, error) {
	root, err := sqltok.Parse(sql)
	if err != nil {
		pos := 0
		var se *sqltok.SyntaxError
		if errors.As(err, &se) {
			pos = se.Pos
		}
		return nil, &ExtractionError{Pos: pos, Msg: "unparsable SQL", Err: err}
	}

	refs := []Reference{}
	qualified := make(map[*sqltok.Node]bool)
	var walkErr error

	sqltok.Walk(root, func(n *sqltok.Node) bool {
		if walkErr != nil {
			return false
		}
		switch n.Kind {
		case sqltok.NodeFunction:
			id, ok := referenceID(n.Name())
			if !ok || qualified[n] {
				return true
			}
			params, err := inlineParams(n)
			if err != nil {
				walkErr = err
				return false
			}
			refs = append(refs, newReference(id, params, n))
			return false

		case sqltok.NodeIdentifier:
			if qualified[n] {
				return false
			}
			if id, ok := referenceID(n.Text); ok {
				refs = append(refs, newReference(id, map[string]any{}, n))
			}
			return false

		default:
			markQualified(n.Children, qualified)
			return true
		}
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return refs, nil
}

func newReference(id int, params map[string]any, n *sqltok.Node) Reference {
	return Reference{
		QueryID: id,
		Params:  params,
		Table:   tableName(),
		Token:   n.Text,
		Pos:     n.Pos,
	}
}

func tableName() string {
	return "tmp_" + strings.ReplaceAll(uuid.NewString(), "-", "_")
}

func referenceID(name string) (int, bool) {
	if len(name) < len(referencePrefix) || !strings.EqualFold(name[:len(referencePrefix)], referencePrefix) {
		return 0, false
	}
	m := referencePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// markQualified records identifiers that are part of a dotted name such as
// schema.query_1 or t.query_1; those name other objects.
func markQualified(children []*sqltok.Node, qualified map[*sqltok.Node]bool) {
	for i, c := range children {
		if c.Kind != sqltok.NodeToken || c.Token.Type != sqltok.TokenDot {
			continue
		}
		if i > 0 {
			qualified[children[i-1]] = true
		}
		if i+1 < len(children) {
			qualified[children[i+1]] = true
		}
	}
}

// inlineParams decodes the single quoted JSON object argument of a
// query_<id>('...') call.
func inlineParams(n *sqltok.Node) (map[string]any, error) {
	args := n.Args()
	if len(args) != 1 || args[0].Kind != sqltok.NodeToken || args[0].Token.Type != sqltok.TokenString {
		return nil, &ExtractionError{
			Pos: n.Pos,
			Msg: n.Name() + " takes a single quoted JSON object argument",
		}
	}

	arg := args[0]
	dec := json.NewDecoder(strings.NewReader(sqltok.UnquoteString(arg.Text)))
	dec.UseNumber()

	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return nil, &ExtractionError{Pos: arg.Pos, Msg: "malformed parameter JSON", Err: err}
	}
	if params == nil {
		return nil, &ExtractionError{Pos: arg.Pos, Msg: "parameters must be a JSON object"}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ExtractionError{Pos: arg.Pos, Msg: "unexpected text after parameter JSON"}
	}
	return params, nil
}
