// Package webpart adapts host lifecycle events (init, configuration surface
// opened, field edits, resize, dispose) onto the selection machine and the
// embed builder.
package webpart

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/pbiembed/pbiembed/internal/aadtoken"
	"github.com/pbiembed/pbiembed/internal/authinfo"
	"github.com/pbiembed/pbiembed/internal/catalog"
	"github.com/pbiembed/pbiembed/internal/configstore"
	"github.com/pbiembed/pbiembed/internal/embed"
	"github.com/pbiembed/pbiembed/internal/selection"
)

// Placeholder is shown instead of the report until one can be embedded.
const Placeholder = "Use the configuration surface to select a workspace and report that you want to render."

var (
	ErrNotInitialized = errors.New("web part is not initialized")
	ErrDisposed       = errors.New("web part is disposed")
)

// View is one render of the web part: either an embed configuration or the
// placeholder text.
type View struct {
	Config      *embed.Configuration
	Placeholder string
	WidthPx     int
	HeightPx    string
	Options     embed.DisplayOptions
	Report      catalog.Report
	Workspace   catalog.Workspace
}

// Configured reports whether the view carries an embed configuration.
func (v View) Configured() bool { return v.Config != nil }

// OnRendered is the hook the renderer calls once the SDK fires "rendered".
func (v View) OnRendered(ctx context.Context, report embed.EmbeddedReport, logger *slog.Logger) (int, error) {
	return embed.AfterRender(ctx, report, v.Options, logger)
}

// Renderer draws views. Calls are serialized by the Part.
type Renderer interface {
	Render(View)
}

type RendererFunc func(View)

func (f RendererFunc) Render(v View) { f(v) }

// Unmounter is implemented by renderers that release resources on Dispose.
type Unmounter interface {
	Unmount()
}

type Options struct {
	Properties *configstore.Properties
	Tokens     aadtoken.Provider
	// Catalog overrides the HTTP catalog client built from Properties.
	Catalog  catalog.Lister
	HTTP     *http.Client
	Renderer Renderer
	// Surface receives option-list and busy/idle notifications.
	Surface selection.Observer
	Logger  *slog.Logger
}

type Part struct {
	tokens   aadtoken.Provider
	lister   catalog.Lister
	http     *http.Client
	renderer Renderer
	surface  selection.Observer
	log      *slog.Logger

	// initMu serializes Init so concurrent callers share one token.
	initMu    sync.Mutex
	mu        sync.Mutex
	renderMu  sync.Mutex
	props     configstore.Properties
	token     aadtoken.Token
	loginName string
	machine   *selection.Machine
	width     int
	disposed  bool
}

func New(opts Options) *Part {
	p := &Part{
		tokens:   opts.Tokens,
		lister:   opts.Catalog,
		http:     opts.HTTP,
		renderer: opts.Renderer,
		surface:  opts.Surface,
		log:      opts.Logger,
	}
	if opts.Properties != nil {
		p.props = *opts.Properties
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	p.log = p.log.With("component", "webpart")
	if p.renderer == nil {
		p.renderer = RendererFunc(func(View) {})
	}
	return p
}

// Init acquires the Power BI token once and builds the selection machine.
// Calling it again is a no-op. The token is never refreshed.
func (p *Part) Init(ctx context.Context) error {
	p.initMu.Lock()
	defer p.initMu.Unlock()

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	if p.machine != nil {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if p.tokens == nil {
		return aadtoken.ErrNoCredentials
	}
	tok, err := p.tokens.Acquire(ctx, aadtoken.PowerBIResource)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.machine != nil {
		return nil
	}
	p.token = tok
	p.loginName = p.props.LoginName
	if p.loginName == "" {
		p.loginName = authinfo.LoginName(tok.AccessToken)
	}
	lister := p.lister
	if lister == nil {
		lister = catalog.New(catalog.Options{
			BaseURL: p.props.ResolvedAPIURL(),
			HTTP:    p.http,
			Tokens:  catalog.StaticToken(tok.AccessToken),
			Logger:  p.log,
		})
	}
	p.machine = selection.New(lister, selection.WithObserver(observer{p}), selection.WithLogger(p.log))
	p.machine.Restore(selection.Selection{WorkspaceID: p.props.WorkspaceID, ReportID: p.props.ReportID})
	p.log.Debug("initialized", "token_source", tok.Source, "login", p.loginName != "")
	if p.loginName == "" && p.props.DisplayOptions().HasTarget() {
		p.log.Warn("row filter has no login name to match; every row will be filtered out",
			"table", p.props.ReportOptions.TargetTable,
			"column", p.props.ReportOptions.TargetColumn,
			"token_source", tok.Source,
			"hint", LoginNameHint)
	}
	return nil
}

// LoginNameHint is shown when the row filter is set but the token carries no
// user name, as with app-only client-credentials tokens.
const LoginNameHint = "Set --login-name or PBI_LOGIN_NAME to the user the report should be filtered to"

// MissingLoginName reports whether the row filter is configured without a
// login name to match.
func (p *Part) MissingLoginName() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loginName == "" && p.props.DisplayOptions().HasTarget()
}

func (p *Part) ready() (*selection.Machine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return nil, ErrDisposed
	}
	if p.machine == nil {
		return nil, ErrNotInitialized
	}
	return p.machine, nil
}

// SurfaceOpened loads the workspace and report pickers.
func (p *Part) SurfaceOpened(ctx context.Context) error {
	m, err := p.ready()
	if err != nil {
		return err
	}
	return m.SurfaceOpened(ctx)
}

// FieldChanged applies an edit to the property bag and reacts to it. A
// workspace edit reloads the report list; the other fields re-render.
func (p *Part) FieldChanged(ctx context.Context, f Field, oldValue, newValue string) error {
	m, err := p.ready()
	if err != nil {
		return err
	}

	p.mu.Lock()
	err = ApplyField(&p.props, f, newValue)
	opts := p.props.ReportOptions
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.log.Debug("field changed", "field", f.Path(), "old", oldValue, "new", newValue)

	switch f {
	case FieldWorkspaceID:
		return m.WorkspaceChanged(ctx, newValue)
	case FieldReportID:
		if err := m.ReportChanged(newValue); err != nil {
			p.syncSelection(m.Snapshot().Selection)
			return err
		}
	case FieldTargetColumn, FieldTargetTable:
		if strings.TrimSpace(opts.TargetColumn) != "" && strings.TrimSpace(opts.TargetTable) != "" {
			p.render()
		}
	default:
		p.render()
	}
	return nil
}

// Resize records the available width and re-renders.
func (p *Part) Resize(width int) {
	p.mu.Lock()
	if width < 0 {
		width = 0
	}
	p.width = width
	p.mu.Unlock()
	p.render()
}

// Dispose unmounts the renderer. Later calls and late fetch results are ignored.
func (p *Part) Dispose() {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	p.mu.Unlock()

	p.renderMu.Lock()
	defer p.renderMu.Unlock()
	if u, ok := p.renderer.(Unmounter); ok {
		u.Unmount()
	}
}

// Refresh marks the option lists stale; the next SurfaceOpened reloads them.
func (p *Part) Refresh() error {
	m, err := p.ready()
	if err != nil {
		return err
	}
	m.Invalidate()
	return nil
}

// Properties returns a copy of the current property bag with the machine's
// selection applied.
func (p *Part) Properties() configstore.Properties {
	p.mu.Lock()
	defer p.mu.Unlock()
	props := p.props
	if p.machine != nil {
		sel := p.machine.Snapshot().Selection
		props.WorkspaceID = sel.WorkspaceID
		props.ReportID = sel.ReportID
	}
	return props
}

func (p *Part) Snapshot() selection.Snapshot {
	m, err := p.ready()
	if err != nil {
		return selection.Snapshot{}
	}
	return m.Snapshot()
}

// Token returns the token acquired by Init.
func (p *Part) Token() aadtoken.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

func (p *Part) LoginName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loginName
}

// View builds the current view without rendering it.
func (p *Part) View() View {
	p.mu.Lock()
	props := p.props
	token := p.token.AccessToken
	login := p.loginName
	width := p.width
	m := p.machine
	p.mu.Unlock()

	var snap selection.Snapshot
	if m != nil {
		snap = m.Snapshot()
	} else {
		snap.Selection = selection.Selection{WorkspaceID: props.WorkspaceID, ReportID: props.ReportID}
	}
	return buildView(props, snap, token, login, width)
}

func buildView(props configstore.Properties, snap selection.Snapshot, token, login string, width int) View {
	opts := props.DisplayOptions()
	v := View{
		WidthPx:  width,
		HeightPx: props.Height,
		Options:  opts,
	}
	v.Workspace, _ = snap.Workspace()
	v.Report, _ = snap.Report()

	cfg, ok := embed.Build(embed.Input{
		ReportID:     snap.Selection.ReportID,
		EmbedURLBase: props.ResolvedEmbedURL(),
		AccessToken:  token,
		LoginName:    login,
		Options:      opts,
	})
	if !ok {
		v.Placeholder = Placeholder
		return v
	}
	v.Config = cfg
	return v
}

func (p *Part) render() {
	p.mu.Lock()
	disposed := p.disposed
	p.mu.Unlock()
	if disposed {
		return
	}
	v := p.View()

	p.renderMu.Lock()
	defer p.renderMu.Unlock()
	p.mu.Lock()
	disposed = p.disposed
	p.mu.Unlock()
	if disposed {
		return
	}
	p.log.Debug("render", "configured", v.Configured(), "report", v.Report.ID)
	p.renderer.Render(v)
}

// observer forwards machine notifications to the surface and turns Render
// requests into renders.
type observer struct{ p *Part }

func (o observer) OptionsChanged(s selection.Snapshot) {
	o.p.syncSelection(s.Selection)
	if o.p.surface != nil {
		o.p.surface.OptionsChanged(s)
	}
}

func (o observer) Busy(message string) {
	if o.p.surface != nil {
		o.p.surface.Busy(message)
	}
}

func (o observer) Idle() {
	if o.p.surface != nil {
		o.p.surface.Idle()
	}
}

func (o observer) Render(s selection.Snapshot) {
	o.p.syncSelection(s.Selection)
	if o.p.surface != nil {
		o.p.surface.Render(s)
	}
	o.p.render()
}

func (p *Part) syncSelection(sel selection.Selection) {
	p.mu.Lock()
	p.props.WorkspaceID = sel.WorkspaceID
	p.props.ReportID = sel.ReportID
	p.mu.Unlock()
}
