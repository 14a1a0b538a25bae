package tui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestPbiListStyles_AreTextFirst(t *testing.T) {
	s := pbiListStyles()

	var wantNoColor lipgloss.TerminalColor = lipgloss.NoColor{}
	if got := s.Title.GetBackground(); got != wantNoColor {
		t.Fatalf("expected list title background to be unset (%T), got %T", wantNoColor, got)
	}

	var wantAccent lipgloss.TerminalColor = pbiAccent
	if got := s.FilterPrompt.GetForeground(); got != wantAccent {
		t.Fatalf("expected filter prompt foreground %v, got %v", wantAccent, got)
	}
}

func TestPbiItemStyles_SelectedHasAccentBorder(t *testing.T) {
	s := pbiItemStyles()

	if !s.SelectedTitle.GetBorderLeft() || !s.SelectedDesc.GetBorderLeft() {
		t.Fatalf("expected selected rows to have a left border")
	}

	var wantAccent lipgloss.TerminalColor = pbiAccent
	if got := s.SelectedTitle.GetBorderLeftForeground(); got != wantAccent {
		t.Fatalf("expected SelectedTitle left border foreground %v, got %v", wantAccent, got)
	}
	if !s.SelectedTitle.GetBold() {
		t.Fatalf("expected SelectedTitle to be bold")
	}
	if s.SelectedDesc.GetBold() {
		t.Fatalf("expected SelectedDesc not to be bold")
	}
}

func TestStatusStyles_UsePalette(t *testing.T) {
	var wantDanger lipgloss.TerminalColor = pbiDanger
	if got := errorStyle.GetForeground(); got != wantDanger {
		t.Fatalf("expected error foreground %v, got %v", wantDanger, got)
	}
	if !previewStyle.GetBorderTop() || !previewStyle.GetBorderLeft() {
		t.Fatalf("expected preview box to be bordered")
	}
	if !headerStyle.GetBold() {
		t.Fatalf("expected header to be bold")
	}
}
