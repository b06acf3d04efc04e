package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestMarkdownStyleFollowsTheme(t *testing.T) {
	t.Setenv("TASKDESK_TUI_THEME", "light")
	if got := markdownStyle(); got != "light" {
		t.Fatalf("expected light; got %q", got)
	}
	t.Setenv("TASKDESK_TUI_THEME", "dark")
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark; got %q", got)
	}
}

func TestRenderMarkdown(t *testing.T) {
	t.Setenv("TASKDESK_TUI_THEME", "dark")

	if got := renderMarkdown("   ", 40); got != "" {
		t.Fatalf("blank input: got %q", got)
	}

	out := ansi.Strip(renderMarkdown("Ship the **release** notes", 40))
	if !strings.Contains(out, "release") || strings.Contains(out, "**") {
		t.Fatalf("expected rendered emphasis, got %q", out)
	}

	// Narrow widths are clamped rather than rejected.
	if out := renderMarkdown("word", 1); !strings.Contains(ansi.Strip(out), "word") {
		t.Fatalf("narrow width: got %q", out)
	}
}
