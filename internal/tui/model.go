// Package tui is the interactive configuration surface: a workspace picker,
// a dependent report picker and a preview of the resulting embed.
package tui

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pbiembed/pbiembed/internal/configstore"
	"github.com/pbiembed/pbiembed/internal/selection"
	"github.com/pbiembed/pbiembed/internal/webpart"
)

type pane int

const (
	paneWorkspaces pane = iota
	paneReports
	panePreview
)

type Config struct {
	Part   *webpart.Part
	Bridge *Bridge
	// Save persists the chosen properties; nil disables the save key.
	Save   func(configstore.Properties) error
	Logger *slog.Logger
}

type item struct {
	id   string
	name string
	desc string
}

func (i item) Title() string       { return i.name }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.name + " " + i.id }

type opDoneMsg struct {
	op  string
	err error
}

type savedMsg struct{ err error }

type copiedMsg struct {
	text string
	err  error
}

type model struct {
	ctx    context.Context
	part   *webpart.Part
	bridge *Bridge
	save   func(configstore.Properties) error
	copy   func(string) error
	log    *slog.Logger

	pane   pane
	width  int
	height int

	workspaces list.Model
	reports    list.Model
	spinner    spinner.Model
	help       help.Model
	keys       keyMap

	snap   selection.Snapshot
	view   webpart.View
	busy   string
	err    error
	status string
}

// Run opens the picker and blocks until the user quits.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Part == nil || cfg.Bridge == nil {
		return fmt.Errorf("tui: missing web part or bridge")
	}
	defer cfg.Bridge.Close()
	p := tea.NewProgram(newModel(ctx, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func newPicker(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.Styles = pbiItemStyles()

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = title
	l.Styles = pbiListStyles()
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.DisableQuitKeybindings()
	return l
}

func newModel(ctx context.Context, cfg Config) model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = accentStyle

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := model{
		ctx:        ctx,
		part:       cfg.Part,
		bridge:     cfg.Bridge,
		save:       cfg.Save,
		copy:       clipboard.WriteAll,
		log:        logger.With("component", "tui"),
		workspaces: newPicker("Workspaces"),
		reports:    newPicker("Reports"),
		spinner:    sp,
		help:       help.New(),
		keys:       defaultKeyMap(),
	}
	m.snap = cfg.Part.Snapshot()
	m.view = cfg.Part.View()
	if m.snap.Selection.WorkspaceID != "" {
		m.pane = paneReports
	}
	m.refreshItems()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.bridge.listen(), m.surfaceOpenedCmd())
}

func (m model) surfaceOpenedCmd() tea.Cmd {
	part, ctx := m.part, m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: "load", err: part.SurfaceOpened(ctx)}
	}
}

func (m model) refreshCmd() tea.Cmd {
	part, ctx := m.part, m.ctx
	return func() tea.Msg {
		if err := part.Refresh(); err != nil {
			return opDoneMsg{op: "load", err: err}
		}
		return opDoneMsg{op: "load", err: part.SurfaceOpened(ctx)}
	}
}

func (m model) fieldCmd(op string, f webpart.Field, oldValue, newValue string) tea.Cmd {
	part, ctx := m.part, m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: part.FieldChanged(ctx, f, oldValue, newValue)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		part, width := m.part, msg.Width
		return m, func() tea.Msg {
			part.Resize(width)
			return nil
		}

	case optionsMsg:
		m.snap = msg.snap
		m.refreshItems()
		return m, m.bridge.listen()

	case busyMsg:
		m.busy = msg.text
		return m, m.bridge.listen()

	case idleMsg:
		m.busy = ""
		return m, m.bridge.listen()

	case viewMsg:
		m.view = msg.view
		return m, m.bridge.listen()

	case opDoneMsg:
		m.err = msg.err
		m.snap = m.part.Snapshot()
		m.refreshItems()
		if msg.err != nil {
			m.log.Debug("operation failed", "op", msg.op, "err", msg.err)
			return m, nil
		}
		if msg.op == "report" {
			m.pane = panePreview
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = "Saved properties"
		}
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = "Copied " + truncateRunes(msg.text, 60)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m model) activeList() *list.Model {
	if m.pane == paneReports {
		return &m.reports
	}
	return &m.workspaces
}

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pane != panePreview && m.activeList().SettingFilter() {
		return m.forwardToList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		m.err = nil
		m.status = ""
		return m, m.refreshCmd()
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyCmd()
	case key.Matches(msg, m.keys.Save):
		return m, m.saveCmd()
	case key.Matches(msg, m.keys.Back):
		switch m.pane {
		case panePreview:
			m.pane = paneReports
		case paneReports:
			m.pane = paneWorkspaces
		}
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		return m.choose()
	}
	return m.forwardToList(msg)
}

func (m model) forwardToList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	msg = translateNavKeys(msg)
	switch m.pane {
	case paneWorkspaces:
		m.workspaces, cmd = m.workspaces.Update(msg)
	case paneReports:
		m.reports, cmd = m.reports.Update(msg)
	}
	return m, cmd
}

func (m model) choose() (tea.Model, tea.Cmd) {
	m.err = nil
	m.status = ""
	switch m.pane {
	case paneWorkspaces:
		if !m.snap.WorkspacesSelectable() {
			return m, nil
		}
		it, ok := m.workspaces.SelectedItem().(item)
		if !ok || it.id == "" {
			return m, nil
		}
		m.pane = paneReports
		prev := m.snap.Selection.WorkspaceID
		if it.id == prev && m.snap.ReportsSelectable() {
			return m, nil
		}
		// Until the machine reports back, the old report list must not be
		// pickable under the new workspace.
		m.snap.Selection = selection.Selection{WorkspaceID: it.id}
		m.snap.Reports = nil
		m.snap.ReportsStatus = selection.Fetching
		m.refreshItems()
		return m, m.fieldCmd("workspace", webpart.FieldWorkspaceID, prev, it.id)
	case paneReports:
		if !m.snap.ReportsSelectable() {
			return m, nil
		}
		it, ok := m.reports.SelectedItem().(item)
		if !ok || it.id == "" {
			return m, nil
		}
		return m, m.fieldCmd("report", webpart.FieldReportID, m.snap.Selection.ReportID, it.id)
	}
	return m, nil
}

func (m model) copyCmd() tea.Cmd {
	if m.view.Config == nil {
		return func() tea.Msg { return copiedMsg{err: fmt.Errorf("nothing to copy: select a report first")} }
	}
	text, copyFn := m.view.Config.EmbedURL, m.copy
	return func() tea.Msg {
		return copiedMsg{text: text, err: copyFn(text)}
	}
}

func (m model) saveCmd() tea.Cmd {
	if m.save == nil {
		return nil
	}
	props, save := m.part.Properties(), m.save
	return func() tea.Msg { return savedMsg{err: save(props)} }
}

func (m *model) refreshItems() {
	_ = m.workspaces.SetItems(workspaceItems(m.snap))
	_ = m.reports.SetItems(reportItems(m.snap))
	selectID(&m.workspaces, m.snap.Selection.WorkspaceID)
	selectID(&m.reports, m.snap.Selection.ReportID)
}

func workspaceItems(s selection.Snapshot) []list.Item {
	switch {
	case s.WorkspacesStatus == selection.Fetching:
		return []list.Item{item{name: "(loading workspaces…)"}}
	case !s.WorkspacesSelectable():
		return []list.Item{item{name: "(workspaces not loaded)", desc: "Press 'r' to refresh"}}
	case len(s.Workspaces) == 0:
		return []list.Item{item{name: "(no workspaces)", desc: "This account cannot see any workspace"}}
	}
	items := make([]list.Item, 0, len(s.Workspaces))
	for _, ws := range s.Workspaces {
		items = append(items, item{id: ws.ID, name: cmpOrDash(ws.Name), desc: ws.ID})
	}
	return items
}

func reportItems(s selection.Snapshot) []list.Item {
	switch {
	case s.Selection.WorkspaceID == "":
		return []list.Item{item{name: "(select a workspace first)"}}
	case s.ReportsStatus == selection.Fetching:
		return []list.Item{item{name: "(loading reports…)"}}
	case !s.ReportsSelectable():
		return []list.Item{item{name: "(reports not loaded)", desc: "Press 'r' to refresh"}}
	case len(s.Reports) == 0:
		return []list.Item{item{name: "(no reports in this workspace)"}}
	}
	items := make([]list.Item, 0, len(s.Reports))
	for _, r := range s.Reports {
		desc := r.ID
		if r.WebURL != "" {
			desc = r.WebURL
		}
		items = append(items, item{id: r.ID, name: cmpOrDash(r.Name), desc: desc})
	}
	return items
}

func selectID(l *list.Model, id string) {
	if id == "" {
		return
	}
	for idx, it := range l.Items() {
		if i, ok := it.(item); ok && i.id == id {
			l.Select(idx)
			return
		}
	}
}

func (m *model) layout() {
	bodyH := m.height - lipgloss.Height(m.renderHeader()) - lipgloss.Height(m.renderFooter())
	if bodyH < 5 {
		bodyH = 5
	}
	w := maxInt(20, m.width)
	m.workspaces.SetSize(w, bodyH)
	m.reports.SetSize(w, bodyH)
	m.help.Width = w
}
