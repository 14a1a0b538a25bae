package cli

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pbiembed/pbiembed/internal/aadtoken"
	"github.com/pbiembed/pbiembed/internal/authinfo"
	"github.com/pbiembed/pbiembed/internal/authstore"
)

func newAuthCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Power BI credentials"}
	cmd.AddCommand(newAuthLoginCmd(app))
	cmd.AddCommand(newAuthStatusCmd(app))
	cmd.AddCommand(newAuthLogoutCmd(app))
	return cmd
}

// describeToken reports what can be read from a token without calling the service.
func describeToken(token string, expiry time.Time, now time.Time) map[string]any {
	out := map[string]any{}
	if login := authinfo.LoginName(token); login != "" {
		out["loginName"] = login
	}
	if tid := authinfo.TenantID(token); tid != "" {
		out["tenantId"] = tid
	}
	if expiry.IsZero() {
		if exp, ok := authinfo.Expiry(token); ok {
			expiry = exp
		}
	}
	if !expiry.IsZero() {
		out["expiresAt"] = expiry.UTC().Format(time.RFC3339)
		out["expires"] = humanize.RelTime(expiry, now, "ago", "from now")
		out["expired"] = !now.Before(expiry)
	}
	return out
}

func newAuthLoginCmd(app *App) *cobra.Command {
	var tokenStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Acquire a Power BI token and store it",
		Long: strings.TrimSpace(`
Default: runs the client-credentials grant with --tenant, --client-id and
--client-secret (or PBI_TENANT_ID, PBI_CLIENT_ID, PBI_CLIENT_SECRET).

Alternatively store an existing token from --token/PBI_TOKEN or --token-stdin.
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var provider aadtoken.Provider
			switch {
			case tokenStdin:
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fail(cmd, app, err)
				}
				provider = aadtoken.Static{AccessToken: string(b), Source: "stdin"}
			case strings.TrimSpace(app.Token) != "":
				provider = aadtoken.Static{AccessToken: app.Token, Source: "flag"}
			default:
				provider = app.clientCredentials()
			}

			tok, err := provider.Acquire(ctx, aadtoken.PowerBIResource)
			if err != nil {
				return fail(cmd, app, err)
			}
			expiry := tok.Expiry
			if expiry.IsZero() {
				expiry, _ = authinfo.Expiry(tok.AccessToken)
			}
			now := time.Now()
			if !expiry.IsZero() && !now.Before(expiry) {
				return fail(cmd, app, invalidArgf("token expired %s", humanize.Time(expiry)))
			}

			st, err := authstore.LoadOrEmpty(app.AuthPath)
			if err != nil {
				return fail(cmd, app, err)
			}
			st.Set(aadtoken.PowerBIResource, authstore.Record{
				Token:     tok.AccessToken,
				Source:    tok.Source,
				ExpiresAt: expiry,
			})
			if err := authstore.SaveAtomic(app.AuthPath, st); err != nil {
				return fail(cmd, app, err)
			}
			app.logger().Debug("token stored", "source", tok.Source, "path", app.AuthPath)

			data := describeToken(tok.AccessToken, expiry, now)
			data["stored"] = true
			data["source"] = tok.Source
			return writeData(cmd, app, map[string]any{"path": app.AuthPath}, data)
		},
	}
	cmd.Flags().BoolVar(&tokenStdin, "token-stdin", false, "Read the token to store from stdin")
	return cmd
}

func newAuthStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which credentials would be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := authstore.LoadOrEmpty(app.AuthPath)
			if err != nil {
				return fail(cmd, app, err)
			}
			now := time.Now()
			cc := app.clientCredentials().Configured()
			rec, stored := st.Lookup(aadtoken.PowerBIResource)

			data := map[string]any{
				"authenticated":     false,
				"stored":            stored,
				"clientCredentials": cc,
			}
			switch {
			case strings.TrimSpace(app.Token) != "":
				for k, v := range describeToken(strings.TrimSpace(app.Token), time.Time{}, now) {
					data[k] = v
				}
				data["source"] = "flag"
				data["authenticated"] = true
			case stored && !rec.Expired(now):
				for k, v := range describeToken(rec.Token, rec.ExpiresAt, now) {
					data[k] = v
				}
				data["source"] = "auth-store"
				data["authenticated"] = true
			case cc:
				data["source"] = "client-credentials"
				data["authenticated"] = true
			case app.MockCatalog != "":
				data["source"] = "mock"
				data["authenticated"] = true
			}
			if stored && rec.Expired(now) {
				data["storedExpired"] = humanize.Time(rec.ExpiresAt)
			}

			meta := map[string]any{"path": app.AuthPath}
			if data["authenticated"] == false {
				meta["hint"] = hintAuth
			}
			return writeData(cmd, app, meta, data)
		},
	}
}

func newAuthLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := authstore.Load(app.AuthPath)
			if errors.Is(err, os.ErrNotExist) {
				return writeData(cmd, app, nil, map[string]any{"removed": false})
			}
			if err != nil {
				return fail(cmd, app, err)
			}
			_, had := st.Lookup(aadtoken.PowerBIResource)
			st.Delete(aadtoken.PowerBIResource)
			if err := authstore.SaveAtomic(app.AuthPath, st); err != nil {
				return fail(cmd, app, err)
			}
			return writeData(cmd, app, map[string]any{"path": app.AuthPath}, map[string]any{"removed": had})
		},
	}
}
