package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pbiembed/pbiembed/internal/buildinfo"
	"github.com/pbiembed/pbiembed/internal/embed"
)

func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "loading…"
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.renderBody(), m.renderFooter())
}

func (m model) renderHeader() string {
	ws, _ := m.snap.Workspace()
	rep, _ := m.snap.Report()

	wsLabel := cmpOrDash(ws.Name)
	if wsLabel == "-" {
		wsLabel = cmpOrDash(m.snap.Selection.WorkspaceID)
	}
	repLabel := cmpOrDash(rep.Name)
	if repLabel == "-" {
		repLabel = cmpOrDash(m.snap.Selection.ReportID)
	}

	lines := []string{
		headerStyle.Render("Power BI embed") + " " + metaStyle.Render(buildInfoInline()),
		metaStyle.Render("User:      ") + cmpOrDash(m.part.LoginName()),
		metaStyle.Render("Workspace: ") + truncateRunes(wsLabel, 60),
		metaStyle.Render("Report:    ") + truncateRunes(repLabel, 60),
	}
	sep := metaStyle.Render(strings.Repeat("─", maxInt(0, m.width)))
	return strings.Join(lines, "\n") + "\n" + sep
}

func (m model) renderBody() string {
	switch m.pane {
	case paneReports:
		return m.reports.View()
	case panePreview:
		return m.renderPreview()
	default:
		return m.workspaces.View()
	}
}

func (m model) renderPreview() string {
	v := m.view
	if !v.Configured() {
		return previewStyle.Render(metaStyle.Render(v.Placeholder))
	}
	cfg := v.Config
	lines := []string{
		headerStyle.Render(cmpOrDash(v.Report.Name)),
		metaStyle.Render("embed url: ") + cfg.EmbedURL,
		metaStyle.Render("filters:   ") + describeFilters(cfg.Filters),
		metaStyle.Render("panes:     ") + fmt.Sprintf("filters=%s  page navigation=%s",
			onOff(cfg.Settings.Panes.Filters.Visible), onOff(cfg.Settings.Panes.PageNavigation.Visible)),
		metaStyle.Render("slicers:   ") + slicerState(len(cfg.Slicers), v.Options.HideSlicer),
	}
	if cfg.Settings.ZoomLevel != 0 {
		lines = append(lines, metaStyle.Render("zoom:      ")+fmt.Sprintf("%.1f", cfg.Settings.ZoomLevel))
	}
	if v.HeightPx != "" {
		lines = append(lines, metaStyle.Render("height:    ")+v.HeightPx+"px")
	}
	return previewStyle.Render(strings.Join(lines, "\n"))
}

func (m model) renderFooter() string {
	status := ""
	switch {
	case m.busy != "":
		status = m.spinner.View() + " " + metaStyle.Render(m.busy)
	case m.err != nil:
		status = errorStyle.Render("error: " + m.err.Error())
	case m.status != "":
		status = accentStyle.Render(m.status)
	}
	return status + "\n" + m.help.View(m.keys)
}

func describeFilters(filters []embed.BasicFilter) string {
	if len(filters) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, fmt.Sprintf("%s.%s %s [%s]", f.Target.Table, f.Target.Column, f.Operator, strings.Join(f.Values, ", ")))
	}
	return strings.Join(parts, "; ")
}

func slicerState(n int, hidden bool) string {
	if n == 0 {
		return "none"
	}
	if hidden {
		return fmt.Sprintf("%d pre-seeded, hidden after render", n)
	}
	return fmt.Sprintf("%d pre-seeded", n)
}

func onOff(b bool) string {
	if b {
		return "shown"
	}
	return "hidden"
}

func buildInfoInline() string {
	parts := []string{buildinfo.DisplayVersion()}
	if c := strings.TrimSpace(buildinfo.Commit); c != "" && c != "none" {
		parts = append(parts, c[:minInt(7, len(c))])
	}
	if d := strings.TrimSpace(buildinfo.Date); d != "" && d != "unknown" {
		if t, err := time.Parse(time.RFC3339, d); err == nil {
			d = t.Format("2006-01-02")
		}
		parts = append(parts, d)
	}
	return strings.Join(parts, " · ")
}

func cmpOrDash(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "-"
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
