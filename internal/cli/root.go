package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/pbiembed/pbiembed/internal/authstore"
	"github.com/pbiembed/pbiembed/internal/configstore"
	"github.com/pbiembed/pbiembed/internal/format"
	"github.com/pbiembed/pbiembed/internal/logging"
)

type App struct {
	PropertiesPath string
	AuthPath       string
	MockCatalog    string
	PrettyJSON     bool
	Format         string
	APIURL         string
	EmbedURL       string
	Token          string
	TenantID       string
	ClientID       string
	ClientSecret   string
	Authority      string
	LoginName      string
	Verbose        bool

	log *slog.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "pbiembed",
		Short:        "Pick a Power BI workspace and report and build its embed configuration",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.bootstrap(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive pickers.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	propsPath, _ := configstore.DefaultPath()
	authPath, _ := authstore.DefaultPath()

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.PropertiesPath, "properties", envOr("PBI_PROPERTIES", propsPath), "Path to the persisted web part properties (.json or .yaml)")
	pf.StringVar(&app.AuthPath, "auth-store", envOr("PBI_AUTH_STORE", authPath), "Path to the stored token file")
	pf.StringVar(&app.MockCatalog, "mock", envOr("PBI_MOCK_CATALOG", ""), "Serve the catalog from this local file instead of the Power BI API")
	pf.BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output (default on for terminals)")
	pf.StringVar(&app.Format, "format", envOr("PBI_FORMAT", format.JSON), "Output format (json|edn)")
	pf.StringVar(&app.APIURL, "api", envOr("PBI_API_URL", ""), "Power BI REST base URL (default "+configstore.DefaultAPIURL+")")
	pf.StringVar(&app.EmbedURL, "embed-url", envOr("PBI_EMBED_URL", ""), "Report embed base URL (default "+configstore.DefaultEmbedURL+")")
	pf.StringVar(&app.Token, "token", envOr("PBI_TOKEN", ""), "Power BI access token (or set PBI_TOKEN)")
	pf.StringVar(&app.TenantID, "tenant", envOr("PBI_TENANT_ID", ""), "Azure AD tenant id for client-credentials login")
	pf.StringVar(&app.ClientID, "client-id", envOr("PBI_CLIENT_ID", ""), "Azure AD application id")
	pf.StringVar(&app.ClientSecret, "client-secret", envOr("PBI_CLIENT_SECRET", ""), "Azure AD application secret (prefer PBI_CLIENT_SECRET)")
	pf.StringVar(&app.Authority, "authority", envOr("PBI_AUTHORITY", ""), "Azure AD authority host")
	pf.StringVar(&app.LoginName, "login-name", envOr("PBI_LOGIN_NAME", ""), "Login name used for the row filter (default: from the token)")
	pf.BoolVarP(&app.Verbose, "verbose", "v", false, "Debug logging to stderr")
	_ = pf.MarkHidden("authority")

	cmd.AddCommand(newWorkspacesCmd(app))
	cmd.AddCommand(newReportsCmd(app))
	cmd.AddCommand(newCatalogCmd(app))
	cmd.AddCommand(newEmbedCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newAuthCmd(app))
	cmd.AddCommand(newVersionCmd(app))

	return cmd
}

func (app *App) bootstrap(cmd *cobra.Command) error {
	logger, err := logging.BootstrapFromEnv(logging.BootstrapOptions{
		Command: cmd.CommandPath(),
		Writer:  cmd.ErrOrStderr(),
		Verbose: app.Verbose,
	})
	if err != nil {
		return writeErr(cmd, err)
	}
	app.log = logger

	app.Format = strings.ToLower(strings.TrimSpace(app.Format))
	if !cmd.Flags().Changed("pretty") && isTerminal(cmd) {
		app.PrettyJSON = true
	}
	return nil
}

func (app *App) logger() *slog.Logger {
	if app.log == nil {
		return slog.Default()
	}
	return app.log
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
