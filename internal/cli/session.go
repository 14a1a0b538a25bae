package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/pbiembed/pbiembed/internal/aadtoken"
	"github.com/pbiembed/pbiembed/internal/authstore"
	"github.com/pbiembed/pbiembed/internal/catalog"
	"github.com/pbiembed/pbiembed/internal/configstore"
	"github.com/pbiembed/pbiembed/internal/mock"
	"github.com/pbiembed/pbiembed/internal/selection"
	"github.com/pbiembed/pbiembed/internal/webpart"
)

const mockToken = "mock-token"

// loadProperties reads the property file and layers flag/env overrides on top.
func loadProperties(app *App) (*configstore.Properties, error) {
	props, err := configstore.LoadOrEmpty(app.PropertiesPath)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(app.APIURL); v != "" {
		props.APIURL = v
	}
	if v := strings.TrimSpace(app.EmbedURL); v != "" {
		props.EmbedURL = v
	}
	if v := strings.TrimSpace(app.LoginName); v != "" {
		props.LoginName = v
	}
	return props, nil
}

func (app *App) clientCredentials() aadtoken.ClientCredentials {
	return aadtoken.ClientCredentials{
		TenantID:     app.TenantID,
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
		Authority:    app.Authority,
	}
}

// tokens resolves credentials in order: --token/PBI_TOKEN, the auth store,
// client credentials, then the mock token when a mock catalog is in use.
func (app *App) tokens() aadtoken.Provider {
	chain := aadtoken.Chain{aadtoken.Static{AccessToken: app.Token, Source: "flag"}}
	if st, err := authstore.LoadOrEmpty(app.AuthPath); err == nil {
		if tok, ok := st.Get(aadtoken.PowerBIResource); ok {
			chain = append(chain, aadtoken.Static{AccessToken: tok, Source: "auth-store"})
		}
	} else {
		app.logger().Warn("ignoring unreadable auth store", "path", app.AuthPath, "err", err)
	}
	chain = append(chain, app.clientCredentials())
	if app.MockCatalog != "" {
		chain = append(chain, aadtoken.Static{AccessToken: mockToken, Source: "mock"})
	}
	return chain
}

func (app *App) mockCatalog() (*mock.Catalog, error) {
	if app.MockCatalog == "" {
		return nil, nil
	}
	return mock.Store{Path: app.MockCatalog}.Ensure()
}

// lister returns the catalog the read commands use.
func (app *App) lister(ctx context.Context, props *configstore.Properties) (catalog.Lister, error) {
	if app.MockCatalog != "" {
		return app.mockCatalog()
	}
	tok, err := app.tokens().Acquire(ctx, aadtoken.PowerBIResource)
	if err != nil {
		return nil, err
	}
	app.logger().Debug("token acquired", "source", tok.Source)
	return catalog.New(catalog.Options{
		BaseURL: props.ResolvedAPIURL(),
		Tokens:  catalog.StaticToken(tok.AccessToken),
		Logger:  app.logger(),
	}), nil
}

// newPart builds and initializes a web part over the configured catalog.
func (app *App) newPart(ctx context.Context, props *configstore.Properties, surface selection.Observer, renderer webpart.Renderer) (*webpart.Part, error) {
	opts := webpart.Options{
		Properties: props,
		Tokens:     app.tokens(),
		Surface:    surface,
		Renderer:   renderer,
		Logger:     app.logger(),
	}
	if app.MockCatalog != "" {
		c, err := app.mockCatalog()
		if err != nil {
			return nil, err
		}
		opts.Catalog = c
	}
	part := webpart.New(opts)
	if err := part.Init(ctx); err != nil {
		return nil, err
	}
	return part, nil
}

// saveSelection writes the chosen selection and display options back to the
// property file without persisting flag/env overrides.
func (app *App) saveSelection(p configstore.Properties) error {
	stored, err := configstore.LoadOrEmpty(app.PropertiesPath)
	if err != nil {
		return err
	}
	stored.WorkspaceID = p.WorkspaceID
	stored.ReportID = p.ReportID
	stored.Height = p.Height
	stored.ReportOptions = p.ReportOptions
	return configstore.SaveAtomic(app.PropertiesPath, stored)
}

// resolveWorkspace finds a workspace by id, exact name, or fuzzy name.
func resolveWorkspace(ctx context.Context, l catalog.Lister, ref string) (catalog.Workspace, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return catalog.Workspace{}, invalidArgf("missing workspace (pass --workspace or set workspaceId)")
	}
	workspaces, err := l.ListWorkspaces(ctx)
	if err != nil {
		return catalog.Workspace{}, err
	}
	names := make([]string, len(workspaces))
	ids := make([]string, len(workspaces))
	for i, ws := range workspaces {
		names[i], ids[i] = ws.Name, ws.ID
	}
	idx, err := resolveRef("workspace", ref, ids, names)
	if err != nil {
		return catalog.Workspace{}, err
	}
	return workspaces[idx], nil
}

func resolveReport(ctx context.Context, l catalog.Lister, workspaceID, ref string) (catalog.Report, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return catalog.Report{}, invalidArgf("missing report")
	}
	reports, err := l.ListReports(ctx, workspaceID)
	if err != nil {
		return catalog.Report{}, err
	}
	names := make([]string, len(reports))
	ids := make([]string, len(reports))
	for i, r := range reports {
		names[i], ids[i] = r.Name, r.ID
	}
	idx, err := resolveRef("report", ref, ids, names)
	if err != nil {
		return catalog.Report{}, err
	}
	return reports[idx], nil
}

// resolveRef matches ref against ids, then names (case-insensitive), then a
// fuzzy name match. A fuzzy match must be unambiguous.
func resolveRef(kind, ref string, ids, names []string) (int, error) {
	for i, id := range ids {
		if strings.EqualFold(id, ref) {
			return i, nil
		}
	}
	exact := -1
	for i, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), ref) {
			if exact >= 0 {
				return -1, ambiguous(kind, ref, []string{names[exact], name})
			}
			exact = i
		}
	}
	if exact >= 0 {
		return exact, nil
	}

	matches := fuzzy.Find(ref, names)
	if len(matches) == 0 {
		return -1, &cliError{
			code: codeInvalidArgument,
			hint: fmt.Sprintf("List candidates with `pbiembed %ss list`", kind),
			err:  fmt.Errorf("no %s matches %q", kind, ref),
		}
	}
	if len(matches) > 1 && matches[0].Score == matches[1].Score {
		var tied []string
		for _, m := range matches {
			if m.Score != matches[0].Score {
				break
			}
			tied = append(tied, m.Str)
		}
		return -1, ambiguous(kind, ref, tied)
	}
	return matches[0].Index, nil
}

func ambiguous(kind, ref string, candidates []string) error {
	sort.Strings(candidates)
	return &cliError{
		code:    codeInvalidArgument,
		hint:    fmt.Sprintf("Pass the %s id instead", kind),
		details: map[string]any{"candidates": candidates},
		err:     fmt.Errorf("%s %q is ambiguous", kind, ref),
	}
}
