package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pbiembed/pbiembed/internal/aadtoken"
	"github.com/pbiembed/pbiembed/internal/catalog"
	"github.com/pbiembed/pbiembed/internal/configstore"
	"github.com/pbiembed/pbiembed/internal/selection"
	"github.com/pbiembed/pbiembed/internal/webpart"
)

type staticLister struct{}

func (staticLister) ListWorkspaces(context.Context) ([]catalog.Workspace, error) {
	return []catalog.Workspace{{ID: "w1", Name: "Sales"}, {ID: "w2", Name: "Ops"}}, nil
}

func (staticLister) ListReports(_ context.Context, workspaceID string) ([]catalog.Report, error) {
	if workspaceID != "w1" {
		return nil, nil
	}
	return []catalog.Report{{ID: "r1", Name: "Pipeline"}}, nil
}

func newTestModel(t *testing.T, props *configstore.Properties) (model, *Bridge) {
	t.Helper()
	b := NewBridge()
	t.Cleanup(b.Close)
	part := webpart.New(webpart.Options{
		Properties: props,
		Tokens:     aadtoken.Static{AccessToken: "tok"},
		Catalog:    staticLister{},
		Surface:    b.Surface(),
		Renderer:   b.Renderer(),
	})
	if err := part.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	m := newModel(context.Background(), Config{Part: part, Bridge: b})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(model), b
}

// settle runs cmd, then feeds the result and every queued bridge event back
// through Update.
func settle(t *testing.T, m model, b *Bridge, cmd tea.Cmd) model {
	t.Helper()
	if cmd != nil {
		if msg := cmd(); msg != nil {
			next, _ := m.Update(msg)
			m = next.(model)
		}
	}
	for {
		select {
		case msg := <-b.events:
			next, _ := m.Update(msg)
			m = next.(model)
		default:
			return m
		}
	}
}

func press(t *testing.T, m model, k tea.KeyMsg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(k)
	return next.(model), cmd
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestModel_PickWorkspaceThenReport(t *testing.T) {
	m, b := newTestModel(t, &configstore.Properties{})
	if m.pane != paneWorkspaces {
		t.Fatalf("expected workspace pane, got %v", m.pane)
	}
	if got := m.workspaces.Items()[0].(item).name; got != "(workspaces not loaded)" {
		t.Fatalf("unexpected placeholder item %q", got)
	}

	m = settle(t, m, b, m.surfaceOpenedCmd())
	if m.err != nil {
		t.Fatalf("unexpected error: %v", m.err)
	}
	if m.busy != "" {
		t.Fatalf("expected idle after load, got %q", m.busy)
	}
	if n := len(m.workspaces.Items()); n != 2 {
		t.Fatalf("expected 2 workspaces, got %d", n)
	}

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.pane != paneReports {
		t.Fatalf("expected report pane, got %v", m.pane)
	}
	m = settle(t, m, b, cmd)
	if got := m.reports.Items()[0].(item); got.id != "r1" || got.name != "Pipeline" {
		t.Fatalf("unexpected report item %#v", got)
	}

	m, cmd = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = settle(t, m, b, cmd)
	if m.pane != panePreview {
		t.Fatalf("expected preview pane, got %v", m.pane)
	}
	if !m.view.Configured() {
		t.Fatalf("expected configured view")
	}
	if out := m.View(); !strings.Contains(out, "reportId=r1") {
		t.Fatalf("expected embed url in preview:\n%s", out)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.pane != paneReports {
		t.Fatalf("expected esc to return to reports, got %v", m.pane)
	}
}

func TestModel_RestoredSelectionOpensReports(t *testing.T) {
	m, b := newTestModel(t, &configstore.Properties{WorkspaceID: "w1", ReportID: "r1"})
	if m.pane != paneReports {
		t.Fatalf("expected report pane for restored workspace, got %v", m.pane)
	}
	m = settle(t, m, b, m.surfaceOpenedCmd())
	it, ok := m.reports.SelectedItem().(item)
	if !ok || it.id != "r1" {
		t.Fatalf("expected restored report selected, got %#v", m.reports.SelectedItem())
	}
	if !strings.Contains(m.View(), "Pipeline") {
		t.Fatalf("expected report name in header")
	}
}

func TestModel_WorkspaceSwitchHidesOldReports(t *testing.T) {
	m, b := newTestModel(t, &configstore.Properties{WorkspaceID: "w1"})
	m = settle(t, m, b, m.surfaceOpenedCmd())

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, wsCmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if wsCmd == nil {
		t.Fatalf("expected a workspace change command")
	}
	if m.snap.Selection.WorkspaceID != "w2" || m.snap.ReportsSelectable() {
		t.Fatalf("expected w2 with reports pending, got %+v", m.snap)
	}
	if got := m.reports.Items()[0].(item); got.id != "" {
		t.Fatalf("expected the w1 reports to be gone, got %#v", got)
	}

	// Enter on the report pane before the workspace change has run.
	m, repCmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if repCmd != nil {
		t.Fatalf("expected no report command while reports load")
	}

	m = settle(t, m, b, wsCmd)
	// A report pick issued for the old list is refused.
	m = settle(t, m, b, m.fieldCmd("report", webpart.FieldReportID, "", "r1"))
	if !errors.Is(m.err, selection.ErrReportNotListed) {
		t.Fatalf("expected unlisted report error, got %v", m.err)
	}
	props := m.part.Properties()
	if props.WorkspaceID != "w2" || props.ReportID != "" {
		t.Fatalf("unexpected selection %+v", props)
	}
	if m.view.Configured() {
		t.Fatalf("expected placeholder view")
	}
}

func TestModel_CopyAndSave(t *testing.T) {
	var saved configstore.Properties
	m, b := newTestModel(t, &configstore.Properties{WorkspaceID: "w1", ReportID: "r1"})
	m.save = func(p configstore.Properties) error {
		saved = p
		return nil
	}
	var copied string
	m.copy = func(s string) error {
		copied = s
		return nil
	}
	m = settle(t, m, b, nil)

	m, cmd := press(t, m, runes("c"))
	m = settle(t, m, b, cmd)
	if !strings.Contains(copied, "reportId=r1") {
		t.Fatalf("expected embed url copied, got %q", copied)
	}
	if !strings.HasPrefix(m.status, "Copied ") {
		t.Fatalf("unexpected status %q", m.status)
	}

	m, cmd = press(t, m, runes("s"))
	m = settle(t, m, b, cmd)
	if saved.WorkspaceID != "w1" || saved.ReportID != "r1" {
		t.Fatalf("unexpected saved properties %#v", saved)
	}
	if m.status != "Saved properties" {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModel_CopyWithoutReport(t *testing.T) {
	m, b := newTestModel(t, &configstore.Properties{})
	m, cmd := press(t, m, runes("c"))
	m = settle(t, m, b, cmd)
	if m.err == nil {
		t.Fatalf("expected error when nothing is selected")
	}
}

func TestModel_BusyIndicator(t *testing.T) {
	m, _ := newTestModel(t, &configstore.Properties{})

	next, _ := m.Update(busyMsg{text: "Calling Power BI Service API to get workspaces"})
	m = next.(model)
	if !strings.Contains(m.View(), "Calling Power BI Service API to get workspaces") {
		t.Fatalf("expected busy text in footer")
	}
	next, _ = m.Update(idleMsg{})
	m = next.(model)
	if strings.Contains(m.View(), "Calling Power BI") {
		t.Fatalf("expected busy text cleared")
	}
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(t, &configstore.Properties{})
	_, cmd := press(t, m, runes("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
