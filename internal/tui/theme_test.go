package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestApplyThemePreference(t *testing.T) {
	old := lipgloss.HasDarkBackground()
	t.Cleanup(func() { lipgloss.SetHasDarkBackground(old) })

	cases := []struct {
		theme, colorfgbg string
		wantDark         bool
	}{
		{theme: "light", colorfgbg: "0;15", wantDark: false},
		{theme: "dark", colorfgbg: "15;15", wantDark: true},
		{theme: "", colorfgbg: "15;0", wantDark: true},
		{theme: "auto", colorfgbg: "0;15", wantDark: false},
	}
	for _, tc := range cases {
		t.Setenv("TASKDESK_TUI_THEME", tc.theme)
		t.Setenv("COLORFGBG", tc.colorfgbg)
		applyThemePreference()
		if got := lipgloss.HasDarkBackground(); got != tc.wantDark {
			t.Errorf("theme=%q COLORFGBG=%q: dark=%v, want %v", tc.theme, tc.colorfgbg, got, tc.wantDark)
		}
	}
}

func TestConfirmModalFocusToggles(t *testing.T) {
	f := confirmFocusCancel
	if f.toggle() != confirmFocusConfirm || f.toggle().toggle() != confirmFocusCancel {
		t.Fatal("toggle should alternate between confirm and cancel")
	}
	out := renderConfirmModal(80, "Delete task", "Sure?", "Delete", "Cancel", f)
	for _, want := range []string{"Delete task", "Sure?", "Delete", "Cancel"} {
		if !strings.Contains(out, want) {
			t.Errorf("modal missing %q", want)
		}
	}
}

