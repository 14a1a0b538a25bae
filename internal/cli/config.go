package cli

import (
	"context"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/pbiembed/pbiembed/internal/catalog"
	"github.com/pbiembed/pbiembed/internal/configstore"
	"github.com/pbiembed/pbiembed/internal/webpart"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Persisted web part properties"}
	cmd.AddCommand(newConfigShowCmd(app))
	cmd.AddCommand(newConfigSetCmd(app))
	cmd.AddCommand(newConfigEditCmd(app))
	return cmd
}

func fieldList(p *configstore.Properties) []map[string]any {
	out := make([]map[string]any, 0, len(webpart.Fields()))
	for _, f := range webpart.Fields() {
		out = append(out, map[string]any{"field": f.Path(), "value": webpart.FieldValue(p, f)})
	}
	return out
}

func newConfigShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := configstore.LoadOrEmpty(app.PropertiesPath)
			if err != nil {
				return fail(cmd, app, err)
			}
			_, statErr := os.Stat(app.PropertiesPath)
			return writeData(cmd, app, map[string]any{
				"path":   app.PropertiesPath,
				"exists": statErr == nil,
			}, map[string]any{
				"properties": props,
				"fields":     fieldList(props),
			})
		},
	}
}

func newConfigSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set one property (e.g. reportOptions.zoomLevel 1.2)",
		Long: "Fields: workspaceId, reportId, height, reportOptions.targetTable, reportOptions.targetColumn,\n" +
			"reportOptions.hideSlicer, reportOptions.hideFilterPane, reportOptions.hidePageNavigation,\n" +
			"reportOptions.zoomLevel. Changing workspaceId clears reportId.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := webpart.ParseField(args[0])
			if err != nil {
				return fail(cmd, app, invalidArgf("%v", err))
			}
			props, err := configstore.LoadOrEmpty(app.PropertiesPath)
			if err != nil {
				return fail(cmd, app, err)
			}
			hadReport := props.ReportID != ""
			if err := webpart.ApplyField(props, f, args[1]); err != nil {
				return fail(cmd, app, invalidArgf("%v", err))
			}
			if err := configstore.SaveAtomic(app.PropertiesPath, props); err != nil {
				return fail(cmd, app, err)
			}
			meta := map[string]any{"path": app.PropertiesPath}
			if f == webpart.FieldWorkspaceID && hadReport && props.ReportID == "" {
				meta["reportCleared"] = true
			}
			return writeData(cmd, app, meta, map[string]any{
				"field": f.Path(),
				"value": webpart.FieldValue(props, f),
			})
		},
	}
}

// paneValues backs the property pane form.
type paneValues struct {
	workspaceID        string
	reportID           string
	targetTable        string
	targetColumn       string
	hideSlicer         bool
	height             string
	hideFilterPane     bool
	hidePageNavigation bool
	zoom               string
}

func newPaneValues(p *configstore.Properties) *paneValues {
	return &paneValues{
		workspaceID:        p.WorkspaceID,
		reportID:           p.ReportID,
		targetTable:        p.ReportOptions.TargetTable,
		targetColumn:       p.ReportOptions.TargetColumn,
		hideSlicer:         p.ReportOptions.HideSlicer,
		height:             p.Height,
		hideFilterPane:     p.ReportOptions.HideFilterPane,
		hidePageNavigation: p.ReportOptions.HidePageNavigation,
		zoom:               webpart.FieldValue(p, webpart.FieldZoomLevel),
	}
}

func (v *paneValues) value(f webpart.Field) string {
	switch f {
	case webpart.FieldWorkspaceID:
		return v.workspaceID
	case webpart.FieldReportID:
		return v.reportID
	case webpart.FieldTargetTable:
		return v.targetTable
	case webpart.FieldTargetColumn:
		return v.targetColumn
	case webpart.FieldHideSlicer:
		return strconv.FormatBool(v.hideSlicer)
	case webpart.FieldHeight:
		return v.height
	case webpart.FieldHideFilterPane:
		return strconv.FormatBool(v.hideFilterPane)
	case webpart.FieldHidePageNavigation:
		return strconv.FormatBool(v.hidePageNavigation)
	case webpart.FieldZoomLevel:
		return v.zoom
	}
	return ""
}

// apply writes the form values into p in pane order, so a new workspace
// clears the stored report before the picked report is set.
func (v *paneValues) apply(p *configstore.Properties) error {
	next := *p
	for _, f := range webpart.Fields() {
		if err := webpart.ApplyField(&next, f, v.value(f)); err != nil {
			return err
		}
	}
	*p = next
	return nil
}

func validator(p *configstore.Properties, f webpart.Field) func(string) error {
	return func(s string) error {
		scratch := *p
		return webpart.ApplyField(&scratch, f, s)
	}
}

// paneForm groups the properties as the web part pane does. With a catalog tree the
// workspace and report fields are pickers; without one they are plain inputs.
func paneForm(p *configstore.Properties, v *paneValues, tree []catalog.WorkspaceReports) *huh.Form {
	var connection []huh.Field
	if len(tree) > 0 {
		wsOpts := make([]huh.Option[string], 0, len(tree))
		for _, it := range tree {
			wsOpts = append(wsOpts, huh.NewOption(it.Workspace.Name, it.Workspace.ID))
		}
		connection = append(connection,
			huh.NewSelect[string]().
				Title("Workspace").
				Options(wsOpts...).
				Value(&v.workspaceID),
			huh.NewSelect[string]().
				Title("Report").
				OptionsFunc(func() []huh.Option[string] {
					return reportOptions(tree, v.workspaceID)
				}, &v.workspaceID).
				Value(&v.reportID),
		)
	} else {
		connection = append(connection,
			huh.NewInput().Title("Workspace id").Value(&v.workspaceID),
			huh.NewInput().Title("Report id").Value(&v.reportID),
		)
	}

	return huh.NewForm(
		huh.NewGroup(connection...).
			Title("Report Connection"),
		huh.NewGroup(
			huh.NewInput().Title("Target table").Value(&v.targetTable),
			huh.NewInput().Title("Target column").Value(&v.targetColumn),
			huh.NewConfirm().Title("Hide slicers").Value(&v.hideSlicer),
		).
			Title("Slicer Configuration").
			Description("Filter the report to the signed-in user on table.column"),
		huh.NewGroup(
			huh.NewInput().
				Title("Height (px)").
				Placeholder("fill").
				Validate(validator(p, webpart.FieldHeight)).
				Value(&v.height),
			huh.NewConfirm().Title("Hide filter pane").Value(&v.hideFilterPane),
			huh.NewConfirm().Title("Hide page navigation").Value(&v.hidePageNavigation),
			huh.NewInput().
				Title("Zoom level").
				Description("0.5 to 2 in steps of 0.1; empty for the report default").
				Validate(validator(p, webpart.FieldZoomLevel)).
				Value(&v.zoom),
		).
			Title("Report Options"),
	)
}

func reportOptions(tree []catalog.WorkspaceReports, workspaceID string) []huh.Option[string] {
	for _, it := range tree {
		if it.Workspace.ID != workspaceID {
			continue
		}
		opts := make([]huh.Option[string], 0, len(it.Reports))
		for _, r := range it.Reports {
			opts = append(opts, huh.NewOption(r.Name, r.ID))
		}
		return opts
	}
	return nil
}

func newConfigEditCmd(app *App) *cobra.Command {
	var accessible bool
	var offline bool

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit the properties in an interactive form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !accessible && !stdinIsTerminal(cmd) {
				return fail(cmd, app, invalidArgf("config edit needs an interactive terminal (or --accessible)"))
			}
			props, err := configstore.LoadOrEmpty(app.PropertiesPath)
			if err != nil {
				return fail(cmd, app, err)
			}

			var tree []catalog.WorkspaceReports
			if !offline {
				tree, err = loadTree(cmd.Context(), app)
				if err != nil {
					app.logger().Warn("catalog unavailable; falling back to id inputs", "err", err)
				}
			}

			v := newPaneValues(props)
			form := paneForm(props, v, tree).
				WithAccessible(accessible).
				WithInput(cmd.InOrStdin()).
				WithOutput(cmd.ErrOrStderr())
			if err := form.RunWithContext(cmd.Context()); err != nil {
				return fail(cmd, app, err)
			}
			if err := v.apply(props); err != nil {
				return fail(cmd, app, invalidArgf("%v", err))
			}
			if err := configstore.SaveAtomic(app.PropertiesPath, props); err != nil {
				return fail(cmd, app, err)
			}
			return writeData(cmd, app, map[string]any{"path": app.PropertiesPath}, map[string]any{
				"properties": props,
			})
		},
	}
	cmd.Flags().BoolVar(&accessible, "accessible", false, "Plain prompts for screen readers and pipes")
	cmd.Flags().BoolVar(&offline, "offline", false, "Do not load the catalog; type ids instead")
	return cmd
}

func loadTree(ctx context.Context, app *App) ([]catalog.WorkspaceReports, error) {
	ctx, cancel := context.WithTimeout(ctx, catalogTimeout)
	defer cancel()
	props, err := loadProperties(app)
	if err != nil {
		return nil, err
	}
	l, err := app.lister(ctx, props)
	if err != nil {
		return nil, err
	}
	return catalog.Tree(ctx, l, 0)
}

func stdinIsTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
