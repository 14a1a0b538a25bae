package cli

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbiembed/pbiembed/internal/browseropen"
	"github.com/pbiembed/pbiembed/internal/configstore"
	"github.com/pbiembed/pbiembed/internal/hostpage"
	"github.com/pbiembed/pbiembed/internal/webpart"
)

const redacted = "<redacted>"

// embedFlags are the selection overrides shared by the embed subcommands.
type embedFlags struct {
	workspace string
	report    string
	width     int
}

func (f *embedFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.workspace, "workspace", "", "Workspace id or name (default: the persisted workspaceId)")
	cmd.Flags().StringVar(&f.report, "report", "", "Report id or name (default: the persisted reportId)")
	cmd.Flags().IntVar(&f.width, "width", 0, "Host width in pixels (0 = fill)")
}

func newEmbedCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "embed", Short: "Build the embed configuration for the selected report"}
	cmd.AddCommand(newEmbedConfigCmd(app))
	cmd.AddCommand(newEmbedPageCmd(app))
	cmd.AddCommand(newEmbedServeCmd(app))
	return cmd
}

// embedPart loads properties, applies --workspace/--report, and returns an
// initialized web part sized to --width.
func embedPart(ctx context.Context, app *App, f embedFlags) (*webpart.Part, error) {
	props, err := loadProperties(app)
	if err != nil {
		return nil, err
	}
	if f.workspace != "" || f.report != "" {
		if err := selectByRef(ctx, app, props, f.workspace, f.report); err != nil {
			return nil, err
		}
	}
	if f.width < 0 {
		return nil, invalidArgf("--width must not be negative")
	}
	part, err := app.newPart(ctx, props, nil, nil)
	if err != nil {
		return nil, err
	}
	// Loads the option lists so the view carries workspace and report names.
	if err := part.SurfaceOpened(ctx); err != nil {
		return nil, err
	}
	if f.width > 0 {
		part.Resize(f.width)
	}
	return part, nil
}

// selectByRef resolves workspace and report references against the catalog
// and writes the ids into props.
func selectByRef(ctx context.Context, app *App, props *configstore.Properties, wsRef, reportRef string) error {
	l, err := app.lister(ctx, props)
	if err != nil {
		return err
	}
	if wsRef == "" {
		wsRef = props.WorkspaceID
	}
	ws, err := resolveWorkspace(ctx, l, wsRef)
	if err != nil {
		return err
	}
	if ws.ID != props.WorkspaceID {
		props.WorkspaceID = ws.ID
		props.ReportID = ""
	}
	if reportRef == "" {
		return nil
	}
	r, err := resolveReport(ctx, l, ws.ID, reportRef)
	if err != nil {
		return err
	}
	props.ReportID = r.ID
	return nil
}

func notConfiguredView() error {
	return notConfigured("Run `pbiembed` to pick a report, or pass --workspace and --report",
		"%s", webpart.Placeholder)
}

func newEmbedConfigCmd(app *App) *cobra.Command {
	var f embedFlags
	var revealToken bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the SDK embed configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), catalogTimeout)
			defer cancel()

			part, err := embedPart(ctx, app, f)
			if err != nil {
				return fail(cmd, app, err)
			}
			v := part.View()
			if !v.Configured() {
				return fail(cmd, app, notConfiguredView())
			}
			cfg := *v.Config
			if !revealToken {
				cfg.AccessToken = redacted
			}
			meta := map[string]any{
				"workspaceId":   part.Properties().WorkspaceID,
				"loginName":     part.LoginName(),
				"tokenSource":   part.Token().Source,
				"eventHandlers": cfg.EventHandlers(),
				"heightPx":      v.HeightPx,
			}
			if part.MissingLoginName() {
				meta["hint"] = webpart.LoginNameHint
			}
			return writeData(cmd, app, meta, cfg)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&revealToken, "reveal-token", false, "Include the access token in the output")
	return cmd
}

func newEmbedPageCmd(app *App) *cobra.Command {
	var f embedFlags
	var out string
	var title string

	cmd := &cobra.Command{
		Use:   "page",
		Short: "Write the HTML host page for the selected report",
		Long:  "Writes a standalone page that loads the Power BI JavaScript SDK and embeds the report.\nThe page contains the access token; treat it as a secret.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), catalogTimeout)
			defer cancel()

			part, err := embedPart(ctx, app, f)
			if err != nil {
				return fail(cmd, app, err)
			}
			var buf bytes.Buffer
			if err := hostpage.Render(&buf, part.View(), hostpage.Options{Title: title}); err != nil {
				return fail(cmd, app, err)
			}
			if out == "" || out == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(out, buf.Bytes(), 0o600); err != nil {
				return fail(cmd, app, err)
			}
			return writeData(cmd, app, nil, map[string]any{
				"path":       out,
				"bytes":      buf.Len(),
				"configured": part.View().Configured(),
			})
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the page to this file instead of stdout")
	cmd.Flags().StringVar(&title, "title", "", "Page title (default: report name)")
	return cmd
}

func newEmbedServeCmd(app *App) *cobra.Command {
	var f embedFlags
	var addr string
	var open bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the host page locally until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			initCtx, cancel := context.WithTimeout(cmd.Context(), catalogTimeout)
			part, err := embedPart(initCtx, app, f)
			cancel()
			if err != nil {
				return fail(cmd, app, err)
			}
			defer part.Dispose()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fail(cmd, app, invalidArgf("listen on %s: %v", addr, err))
			}
			pageURL := "http://" + ln.Addr().String() + "/"
			if err := writeData(cmd, app, nil, map[string]any{
				"url":        pageURL,
				"configured": part.View().Configured(),
			}); err != nil {
				_ = ln.Close()
				return err
			}
			if open {
				if err := browseropen.Open(pageURL); err != nil {
					app.logger().Warn("open browser", "url", pageURL, "err", err)
				}
			}
			return serve(cmd.Context(), ln, hostpage.Handler(part.View, hostpage.Options{}, app.logger()))
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8421", "Listen address")
	cmd.Flags().BoolVar(&open, "open", false, "Open the page in a browser")
	return cmd
}

// serve runs h on ln until ctx is done.
func serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
