// Package selection owns the workspace → report dependent-picker lifecycle.
//
// A Machine holds the current Selection, a FetchStatus per option list and the
// lists themselves. Network calls happen outside the lock; a report result is
// only stored if the ticket it was issued under is still current and its
// workspace is still selected, so overlapping WorkspaceChanged calls settle on
// the latest one without mutual exclusion.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pbiembed/pbiembed/internal/catalog"
)

const (
	busyReports    = "Calling Power BI Service API to get reports"
	busyWorkspaces = "Calling Power BI Service API to get workspaces"
)

// ErrReportNotListed is returned by ReportChanged for a report that is not in
// the fetched report list of the selected workspace.
var ErrReportNotListed = errors.New("report is not listed in the selected workspace")

type Machine struct {
	catalog  catalog.Lister
	observer Observer
	log      *slog.Logger

	mu         sync.Mutex
	sel        Selection
	wsStatus   FetchStatus
	repStatus  FetchStatus
	workspaces []catalog.Workspace
	reports    []catalog.Report
	// ticket is bumped on every workspace change and every report fetch.
	ticket   uint64
	inflight int
}

type Option func(*Machine)

func WithObserver(o Observer) Option {
	return func(m *Machine) {
		if o != nil {
			m.observer = o
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.log = l
		}
	}
}

func New(lister catalog.Lister, opts ...Option) *Machine {
	m := &Machine{
		catalog:  lister,
		observer: nopObserver{},
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "selection")
	return m
}

// Restore seeds the selection from persisted properties without fetching.
func (m *Machine) Restore(sel Selection) {
	m.mu.Lock()
	m.sel = sel.normalized()
	m.mu.Unlock()
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	s := Snapshot{
		Selection:        m.sel,
		WorkspacesStatus: m.wsStatus,
		ReportsStatus:    m.repStatus,
	}
	if m.workspaces != nil {
		s.Workspaces = append([]catalog.Workspace(nil), m.workspaces...)
	}
	if m.reports != nil {
		s.Reports = append([]catalog.Report(nil), m.reports...)
	}
	return s
}

// SurfaceOpened loads whatever the pickers are missing. With both lists
// fetched it does nothing. Reports for an already selected workspace are
// loaded and awaited before workspaces.
func (m *Machine) SurfaceOpened(ctx context.Context) error {
	m.mu.Lock()
	if m.wsStatus == Fetched && m.repStatus == Fetched {
		m.mu.Unlock()
		return nil
	}
	workspaceID := m.sel.WorkspaceID
	needReports := workspaceID != "" && m.repStatus == NotFetched
	m.mu.Unlock()

	if needReports {
		if err := m.fetchReports(ctx, workspaceID); err != nil {
			return err
		}
	}
	return m.fetchWorkspaces(ctx)
}

// WorkspaceChanged selects a workspace, drops the report selection and list,
// and loads the new workspace's reports. A dropped report is re-rendered as
// the placeholder straight away. A result that arrives after a later
// WorkspaceChanged is discarded.
func (m *Machine) WorkspaceChanged(ctx context.Context, workspaceID string) error {
	workspaceID = strings.TrimSpace(workspaceID)

	m.mu.Lock()
	prev := m.sel.WorkspaceID
	dropped := m.sel.ReportID != ""
	m.sel.WorkspaceID = workspaceID
	m.sel.ReportID = ""
	m.reports = nil
	m.repStatus = NotFetched
	m.ticket++
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.log.Debug("workspace changed", "from", prev, "to", workspaceID)
	m.observer.OptionsChanged(snap)
	if dropped {
		m.observer.Render(snap)
	}

	if workspaceID == "" {
		return nil
	}
	return m.fetchReports(ctx, workspaceID)
}

// ReportChanged updates the report selection and asks for a render. A
// non-empty id must be in the fetched report list of the selected workspace;
// otherwise the selection is left alone and ErrReportNotListed is returned.
func (m *Machine) ReportChanged(reportID string) error {
	reportID = strings.TrimSpace(reportID)

	m.mu.Lock()
	if reportID != "" && !m.listedLocked(reportID) {
		ws, status := m.sel.WorkspaceID, m.repStatus
		m.mu.Unlock()
		m.log.Debug("ignoring unlisted report", "report", reportID, "workspace", ws, "reports", status)
		return fmt.Errorf("%w: report %q, workspace %q (reports %s)", ErrReportNotListed, reportID, ws, status)
	}
	m.sel.ReportID = reportID
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.observer.Render(snap)
	return nil
}

func (m *Machine) listedLocked(reportID string) bool {
	if m.repStatus != Fetched {
		return false
	}
	for _, r := range m.reports {
		if r.ID == reportID {
			return true
		}
	}
	return false
}

// Invalidate marks fetched lists as stale so the next SurfaceOpened reloads
// them. Lists that are mid-fetch are left alone.
func (m *Machine) Invalidate() {
	m.mu.Lock()
	if m.wsStatus == Fetched {
		m.wsStatus = NotFetched
	}
	if m.repStatus == Fetched {
		m.repStatus = NotFetched
	}
	m.mu.Unlock()
}

func (m *Machine) fetchReports(ctx context.Context, workspaceID string) error {
	m.mu.Lock()
	if m.sel.WorkspaceID != workspaceID || m.repStatus != NotFetched {
		m.mu.Unlock()
		return nil
	}
	m.ticket++
	ticket := m.ticket
	m.repStatus = Fetching
	m.mu.Unlock()

	m.busy(busyReports)
	reports, err := m.catalog.ListReports(ctx, workspaceID)
	m.idle()

	m.mu.Lock()
	if ticket != m.ticket || m.sel.WorkspaceID != workspaceID {
		current := m.sel.WorkspaceID
		m.mu.Unlock()
		m.log.Debug("discarding stale reports", "workspace", workspaceID, "current", current, "err", err)
		return nil
	}
	if err != nil {
		m.repStatus = NotFetched
		m.mu.Unlock()
		m.log.Debug("reports fetch failed", "workspace", workspaceID, "err", err)
		return err
	}
	if reports == nil {
		reports = []catalog.Report{}
	}
	m.reports = reports
	m.repStatus = Fetched
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.log.Debug("reports fetched", "workspace", workspaceID, "count", len(reports))
	m.observer.OptionsChanged(snap)
	m.observer.Render(snap)
	return nil
}

func (m *Machine) fetchWorkspaces(ctx context.Context) error {
	m.mu.Lock()
	if m.wsStatus != NotFetched {
		m.mu.Unlock()
		return nil
	}
	m.wsStatus = Fetching
	m.mu.Unlock()

	m.busy(busyWorkspaces)
	workspaces, err := m.catalog.ListWorkspaces(ctx)
	m.idle()

	m.mu.Lock()
	if err != nil {
		m.wsStatus = NotFetched
		m.mu.Unlock()
		m.log.Debug("workspaces fetch failed", "err", err)
		return err
	}
	if workspaces == nil {
		workspaces = []catalog.Workspace{}
	}
	m.workspaces = workspaces
	m.wsStatus = Fetched
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.log.Debug("workspaces fetched", "count", len(workspaces))
	m.observer.OptionsChanged(snap)
	m.observer.Render(snap)
	return nil
}

func (m *Machine) busy(message string) {
	m.mu.Lock()
	m.inflight++
	first := m.inflight == 1
	m.mu.Unlock()
	if first {
		m.observer.Busy(message)
	}
}

func (m *Machine) idle() {
	m.mu.Lock()
	m.inflight--
	last := m.inflight == 0
	m.mu.Unlock()
	if last {
		m.observer.Idle()
	}
}
