package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbiembed/pbiembed/internal/catalog"
	"github.com/pbiembed/pbiembed/internal/configstore"
)

const catalogTimeout = 60 * time.Second

func newWorkspacesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "workspaces", Short: "Power BI workspaces visible to the signed-in identity"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), catalogTimeout)
			defer cancel()

			props, err := loadProperties(app)
			if err != nil {
				return fail(cmd, app, err)
			}
			l, err := app.lister(ctx, props)
			if err != nil {
				return fail(cmd, app, err)
			}
			items, err := l.ListWorkspaces(ctx)
			if err != nil {
				return fail(cmd, app, err)
			}
			return writeData(cmd, app, map[string]any{
				"count":    len(items),
				"selected": props.WorkspaceID,
			}, map[string]any{"items": items})
		},
	})
	return cmd
}

func newReportsCmd(app *App) *cobra.Command {
	var workspace string

	cmd := &cobra.Command{Use: "reports", Short: "Reports in a workspace"}
	cmd.PersistentFlags().StringVar(&workspace, "workspace", "", "Workspace id or name (default: the persisted workspaceId)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List reports in a workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), catalogTimeout)
			defer cancel()

			props, l, ws, err := workspaceScope(ctx, app, workspace)
			if err != nil {
				return fail(cmd, app, err)
			}
			items, err := l.ListReports(ctx, ws.ID)
			if err != nil {
				return fail(cmd, app, err)
			}
			meta := map[string]any{"count": len(items)}
			if props.WorkspaceID == ws.ID {
				meta["selected"] = props.ReportID
			}
			return writeData(cmd, app, meta, map[string]any{"workspace": ws, "items": items})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <report>",
		Short: "Show one report by id or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), catalogTimeout)
			defer cancel()

			_, l, ws, err := workspaceScope(ctx, app, workspace)
			if err != nil {
				return fail(cmd, app, err)
			}
			r, err := resolveReport(ctx, l, ws.ID, args[0])
			if err != nil {
				return fail(cmd, app, err)
			}
			// The client re-reads the single report so embedUrl and webUrl are current.
			if c, ok := l.(*catalog.Client); ok {
				if r, err = c.GetReport(ctx, ws.ID, r.ID); err != nil {
					return fail(cmd, app, err)
				}
			}
			return writeData(cmd, app, nil, map[string]any{"workspace": ws, "report": r})
		},
	})
	return cmd
}

// workspaceScope resolves the workspace a reports command works in.
func workspaceScope(ctx context.Context, app *App, ref string) (*configstore.Properties, catalog.Lister, catalog.Workspace, error) {
	props, err := loadProperties(app)
	if err != nil {
		return nil, nil, catalog.Workspace{}, err
	}
	if ref == "" {
		ref = props.WorkspaceID
	}
	l, err := app.lister(ctx, props)
	if err != nil {
		return nil, nil, catalog.Workspace{}, err
	}
	ws, err := resolveWorkspace(ctx, l, ref)
	if err != nil {
		return nil, nil, catalog.Workspace{}, err
	}
	return props, l, ws, nil
}

func newCatalogCmd(app *App) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{Use: "catalog", Short: "Whole-catalog views"}
	tree := &cobra.Command{
		Use:   "tree",
		Short: "List every workspace with its reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return fail(cmd, app, invalidArgf("--concurrency must be at least 1"))
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*catalogTimeout)
			defer cancel()

			props, err := loadProperties(app)
			if err != nil {
				return fail(cmd, app, err)
			}
			l, err := app.lister(ctx, props)
			if err != nil {
				return fail(cmd, app, err)
			}
			started := time.Now()
			items, err := catalog.Tree(ctx, l, concurrency)
			if err != nil {
				return fail(cmd, app, err)
			}
			reports := 0
			for _, it := range items {
				reports += len(it.Reports)
			}
			app.logger().Debug("catalog tree", "workspaces", len(items), "reports", reports, "duration", time.Since(started))
			return writeData(cmd, app, map[string]any{
				"workspaces": len(items),
				"reports":    reports,
			}, map[string]any{"items": items})
		},
	}
	tree.Flags().IntVar(&concurrency, "concurrency", 4, "Report lists fetched at once")
	cmd.AddCommand(tree)
	return cmd
}
