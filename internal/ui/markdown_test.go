package ui

import (
	"strings"
	"testing"
)

func TestRenderMarkdownNormalizesTrailingNewline(t *testing.T) {
	t.Parallel()

	out, err := RenderMarkdown("# Heading", 80)
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("expected rendered markdown to end with newline, got %q", out)
	}
	if strings.HasSuffix(out, "\n\n") {
		t.Fatalf("expected single trailing newline, got %q", out)
	}
}

func TestRenderMarkdownDefaultsWidthWhenNonPositive(t *testing.T) {
	t.Parallel()

	out, err := RenderMarkdown("Customers with an order this week.", 0)
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}
	if !strings.Contains(out, "Customers") {
		t.Fatalf("expected description text in output, got %q", out)
	}
}

func TestMarkdownStyleHighlightsSQL(t *testing.T) {
	style := markdownStyle()
	if style.CodeBlock.Theme != sqlCodeTheme {
		t.Fatalf("expected code blocks to use %q, got %q", sqlCodeTheme, style.CodeBlock.Theme)
	}
	if style.Heading.Bold == nil || !*style.Heading.Bold {
		t.Fatalf("expected bold headings")
	}
}
