// Package render substitutes named parameters into saved query text using
// mustache-style tags.
//
// Supported tags:
//
//	{{name}}          value of name (dotted paths walk nested maps)
//	{{{name}}}        same as {{name}}; there is no HTML escaping in SQL text
//	{{& name}}        same as {{name}}
//	{{#name}}..{{/name}}  section: rendered once per list item, once for a
//	                  truthy scalar or map, skipped when falsy
//	{{^name}}..{{/name}}  inverted section: rendered only when name is falsy
//	{{! comment}}     dropped
//
// \{{ and \}} produce literal braces. Unknown names render as empty text.
package render

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Renderer renders query templates. The zero value is ready to use.
type Renderer struct{}

// Render renders text against params.
func (Renderer) Render(text string, params map[string]any) (string, error) {
	return Render(text, params)
}

// Render renders text against params.
func Render(text string, params map[string]any) (string, error) {
	nodes, err := parse(text)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	out.Grow(len(text))
	stack := []any{map[string]any(params)}
	renderNodes(&out, nodes, stack)
	return out.String(), nil
}

type nodeKind int

const (
	nodeText nodeKind = iota
	nodeVar
	nodeSection
	nodeInverted
)

type node struct {
	kind     nodeKind
	text     string // literal text or tag name
	children []*node
}

type section struct {
	node *node
	pos  int
}

func parse(s string) ([]*node, error) {
	root := &node{}
	current := root
	var open []section
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			current.children = append(current.children, &node{kind: nodeText, text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(s); {
		if s[i] == '\\' && i+2 < len(s) && (s[i+1:i+3] == "{{" || s[i+1:i+3] == "}}") {
			text.WriteString(s[i+1 : i+3])
			i += 3
			continue
		}
		if !strings.HasPrefix(s[i:], "{{") {
			text.WriteByte(s[i])
			i++
			continue
		}

		closing := "}}"
		start := i + 2
		if strings.HasPrefix(s[i:], "{{{") {
			closing = "}}}"
			start = i + 3
		}
		end := strings.Index(s[start:], closing)
		if end < 0 {
			// No closing braces; treat literally.
			text.WriteString("{{")
			i += 2
			continue
		}
		tag := strings.TrimSpace(s[start : start+end])
		tagPos := i
		i = start + end + len(closing)

		flush()

		if closing == "}}}" {
			current.children = append(current.children, &node{kind: nodeVar, text: tag})
			continue
		}
		if tag == "" {
			return nil, fmt.Errorf("empty tag at position %d", tagPos)
		}

		switch tag[0] {
		case '!':
			// comment
		case '&':
			current.children = append(current.children, &node{kind: nodeVar, text: strings.TrimSpace(tag[1:])})
		case '#', '^':
			kind := nodeSection
			if tag[0] == '^' {
				kind = nodeInverted
			}
			n := &node{kind: kind, text: strings.TrimSpace(tag[1:])}
			current.children = append(current.children, n)
			open = append(open, section{node: n, pos: tagPos})
			current = n
		case '/':
			name := strings.TrimSpace(tag[1:])
			if len(open) == 0 {
				return nil, fmt.Errorf("unexpected closing tag {{/%s}} at position %d", name, tagPos)
			}
			top := open[len(open)-1]
			if top.node.text != name {
				return nil, fmt.Errorf("closing tag {{/%s}} at position %d does not match {{%s}}", name, tagPos, top.node.text)
			}
			open = open[:len(open)-1]
			if len(open) == 0 {
				current = root
			} else {
				current = open[len(open)-1].node
			}
		default:
			current.children = append(current.children, &node{kind: nodeVar, text: tag})
		}
	}
	flush()

	if len(open) > 0 {
		top := open[len(open)-1]
		return nil, fmt.Errorf("unclosed section {{#%s}} at position %d", top.node.text, top.pos)
	}
	return root.children, nil
}

func renderNodes(out *strings.Builder, nodes []*node, stack []any) {
	for _, n := range nodes {
		switch n.kind {
		case nodeText:
			out.WriteString(n.text)
		case nodeVar:
			if v, ok := lookup(stack, n.text); ok {
				out.WriteString(FormatValue(v))
			}
		case nodeSection:
			v, _ := lookup(stack, n.text)
			if !truthy(v) {
				continue
			}
			rv := reflect.ValueOf(v)
			if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
				for i := 0; i < rv.Len(); i++ {
					renderNodes(out, n.children, append(stack, rv.Index(i).Interface()))
				}
				continue
			}
			renderNodes(out, n.children, append(stack, v))
		case nodeInverted:
			v, _ := lookup(stack, n.text)
			if !truthy(v) {
				renderNodes(out, n.children, stack)
			}
		}
	}
}

// lookup resolves a dotted name against the context stack, innermost first.
func lookup(stack []any, name string) (any, bool) {
	if name == "." {
		return stack[len(stack)-1], true
	}
	parts := strings.Split(name, ".")
	for i := len(stack) - 1; i >= 0; i-- {
		v, ok := field(stack[i], parts[0])
		if !ok {
			continue
		}
		for _, p := range parts[1:] {
			if v, ok = field(v, p); !ok {
				return nil, false
			}
		}
		return v, true
	}
	return nil, false
}

func field(ctx any, key string) (any, bool) {
	switch m := ctx.(type) {
	case map[string]any:
		v, ok := m[key]
		return v, ok
	case map[string]string:
		v, ok := m[key]
		return v, ok
	}
	return nil, false
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}
	return true
}

// FormatValue renders a parameter value as SQL text. Lists and maps are
// rendered as JSON.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case fmt.Stringer:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}
