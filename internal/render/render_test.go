package render

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		params map[string]any
		want   string
	}{
		{
			name:   "simple variable",
			text:   "SELECT * FROM orders WHERE status = '{{status}}'",
			params: map[string]any{"status": "shipped"},
			want:   "SELECT * FROM orders WHERE status = 'shipped'",
		},
		{
			name:   "numbers",
			text:   "LIMIT {{limit}} OFFSET {{offset}} -- {{ratio}}",
			params: map[string]any{"limit": 10, "offset": json.Number("20"), "ratio": 0.5},
			want:   "LIMIT 10 OFFSET 20 -- 0.5",
		},
		{
			name:   "no html escaping",
			text:   "WHERE name = '{{name}}' AND x = '{{{name}}}' AND y = '{{& name}}'",
			params: map[string]any{"name": "<a&b>"},
			want:   "WHERE name = '<a&b>' AND x = '<a&b>' AND y = '<a&b>'",
		},
		{
			name:   "unknown renders empty",
			text:   "SELECT '{{missing}}'",
			params: map[string]any{},
			want:   "SELECT ''",
		},
		{
			name:   "dotted lookup",
			text:   "BETWEEN '{{range.start}}' AND '{{range.end}}'",
			params: map[string]any{"range": map[string]any{"start": "2024-01-01", "end": "2024-02-01"}},
			want:   "BETWEEN '2024-01-01' AND '2024-02-01'",
		},
		{
			name:   "section on truthy value",
			text:   "SELECT * FROM t{{#region}} WHERE region = '{{region}}'{{/region}}",
			params: map[string]any{"region": "eu"},
			want:   "SELECT * FROM t WHERE region = 'eu'",
		},
		{
			name:   "section skipped when falsy",
			text:   "SELECT * FROM t{{#region}} WHERE region = '{{region}}'{{/region}}",
			params: map[string]any{"region": ""},
			want:   "SELECT * FROM t",
		},
		{
			name:   "section over list",
			text:   "IN ({{#ids}}{{.}},{{/ids}}0)",
			params: map[string]any{"ids": []any{1, 2, 3}},
			want:   "IN (1,2,3,0)",
		},
		{
			name:   "inverted section",
			text:   "{{^limit}}LIMIT 100{{/limit}}",
			params: map[string]any{},
			want:   "LIMIT 100",
		},
		{
			name:   "comment dropped",
			text:   "SELECT 1{{! explain }}",
			params: nil,
			want:   "SELECT 1",
		},
		{
			name:   "escaped braces",
			text:   `SELECT '\{{literal\}}'`,
			params: nil,
			want:   "SELECT '{{literal}}'",
		},
		{
			name:   "unterminated tag is literal",
			text:   "SELECT '{{oops'",
			params: nil,
			want:   "SELECT '{{oops'",
		},
		{
			name:   "list value as json",
			text:   "{{tags}}",
			params: map[string]any{"tags": []any{"a", "b"}},
			want:   `["a","b"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.text, tt.params)
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderErrors(t *testing.T) {
	tests := []struct {
		text    string
		wantErr string
	}{
		{"{{#a}}never closed", "unclosed section"},
		{"{{/a}}", "unexpected closing tag"},
		{"{{#a}}x{{/b}}", "does not match"},
		{"{{}}", "empty tag"},
	}
	for _, tt := range tests {
		_, err := Render(tt.text, nil)
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("Render(%q) error = %v, want containing %q", tt.text, err, tt.wantErr)
		}
	}
}

func TestRendererMethod(t *testing.T) {
	var r Renderer
	got, err := r.Render("{{a}}-{{b}}", map[string]any{"a": true, "b": nil})
	if err != nil {
		t.Fatal(err)
	}
	if got != "true-" {
		t.Errorf("got %q", got)
	}
}
