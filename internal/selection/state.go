package selection

import (
	"strings"

	"github.com/pbiembed/pbiembed/internal/catalog"
)

// FetchStatus tracks one dependent option list.
type FetchStatus int

const (
	NotFetched FetchStatus = iota
	Fetching
	Fetched
)

func (s FetchStatus) String() string {
	switch s {
	case NotFetched:
		return "not-fetched"
	case Fetching:
		return "fetching"
	case Fetched:
		return "fetched"
	default:
		return "unknown"
	}
}

// Selection is the user's current choice. ReportID is only meaningful for the
// workspace it was listed under.
type Selection struct {
	WorkspaceID string `json:"workspaceId"`
	ReportID    string `json:"reportId"`
}

func (s Selection) normalized() Selection {
	return Selection{
		WorkspaceID: strings.TrimSpace(s.WorkspaceID),
		ReportID:    strings.TrimSpace(s.ReportID),
	}
}

// Snapshot is a copy of everything the configuration surface needs to draw.
type Snapshot struct {
	Selection        Selection
	WorkspacesStatus FetchStatus
	ReportsStatus    FetchStatus
	Workspaces       []catalog.Workspace
	Reports          []catalog.Report
}

// WorkspacesSelectable reports whether the workspace picker should be enabled.
func (s Snapshot) WorkspacesSelectable() bool { return s.WorkspacesStatus == Fetched }

// ReportsSelectable reports whether the report picker should be enabled.
func (s Snapshot) ReportsSelectable() bool { return s.ReportsStatus == Fetched }

func (s Snapshot) Workspace() (catalog.Workspace, bool) {
	for _, ws := range s.Workspaces {
		if ws.ID == s.Selection.WorkspaceID {
			return ws, true
		}
	}
	return catalog.Workspace{}, false
}

func (s Snapshot) Report() (catalog.Report, bool) {
	for _, r := range s.Reports {
		if r.ID == s.Selection.ReportID {
			return r, true
		}
	}
	return catalog.Report{}, false
}

// Observer is told about every externally visible change.
type Observer interface {
	// OptionsChanged asks the surface to redraw with the new option sets.
	OptionsChanged(Snapshot)
	// Busy turns the loading indicator on. It is called once when the first
	// fetch starts, not once per overlapping fetch.
	Busy(message string)
	// Idle turns the loading indicator off once no fetch is in flight.
	Idle()
	// Render asks the host to rebuild the embedded view.
	Render(Snapshot)
}

type nopObserver struct{}

func (nopObserver) OptionsChanged(Snapshot) {}
func (nopObserver) Busy(string)             {}
func (nopObserver) Idle()                   {}
func (nopObserver) Render(Snapshot)         {}
