package catalog

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const defaultTreeWorkers = 4

// Lister is the read surface the selection machine and Tree depend on.
type Lister interface {
	ListWorkspaces(ctx context.Context) ([]Workspace, error)
	ListReports(ctx context.Context, workspaceID string) ([]Report, error)
}

type WorkspaceReports struct {
	Workspace Workspace `json:"workspace"`
	Reports   []Report  `json:"reports"`
}

// Tree lists every workspace with its reports. Report lists are fetched with
// at most limit requests in flight; the first failure cancels the rest.
func Tree(ctx context.Context, l Lister, limit int) ([]WorkspaceReports, error) {
	workspaces, err := l.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTreeWorkers
	}

	out := make([]WorkspaceReports, len(workspaces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, ws := range workspaces {
		out[i].Workspace = ws
		g.Go(func() error {
			reports, err := l.ListReports(gctx, ws.ID)
			if err != nil {
				return err
			}
			out[i].Reports = reports
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
