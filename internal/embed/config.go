// Package embed builds the report embed configuration handed to the Power BI
// JavaScript SDK and runs the post-render slicer hook.
package embed

import (
	"net/url"
	"strings"
)

const (
	DefaultEmbedURLBase = "https://app.powerbi.com/reportEmbed"

	BasicFilterSchema          = "http://powerbi.com/product/schema#basic"
	SlicerTargetSelectorSchema = "http://powerbi.com/product/schema#slicerTargetSelector"

	// FilterTypeBasic is models.FilterType.Basic.
	FilterTypeBasic = 1
	OperatorIn      = "In"

	EventRendered = "rendered"

	MinZoomLevel = 0.5
	MaxZoomLevel = 2.0
)

// TokenType mirrors models.TokenType.
type TokenType int

const (
	TokenTypeAad TokenType = iota
	TokenTypeEmbed
)

// DisplayOptions are the user's presentation settings for the embedded report.
type DisplayOptions struct {
	HeightPx           string  `json:"height,omitempty"`
	HideFilterPane     bool    `json:"hideFilterPane"`
	HidePageNavigation bool    `json:"hidePageNavigation"`
	HideSlicer         bool    `json:"hideSlicer"`
	TargetTable        string  `json:"targetTable"`
	TargetColumn       string  `json:"targetColumn"`
	ZoomLevel          float64 `json:"zoomLevel"`
}

// HasTarget reports whether the identity filter has somewhere to go.
func (o DisplayOptions) HasTarget() bool {
	return strings.TrimSpace(o.TargetTable) != "" && strings.TrimSpace(o.TargetColumn) != ""
}

type Target struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

type BasicFilter struct {
	Schema                 string   `json:"$schema"`
	FilterType             int      `json:"filterType"`
	Target                 Target   `json:"target"`
	Operator               string   `json:"operator"`
	Values                 []string `json:"values"`
	RequireSingleSelection bool     `json:"requireSingleSelection"`
}

type SlicerSelector struct {
	Schema string `json:"$schema"`
	Target Target `json:"target"`
}

type SlicerState struct {
	Filters []BasicFilter `json:"filters"`
	Targets []Target      `json:"targets,omitempty"`
}

type Slicer struct {
	Selector SlicerSelector `json:"selector"`
	State    SlicerState    `json:"state"`
}

type FiltersPane struct {
	Expanded bool `json:"expanded"`
	Visible  bool `json:"visible"`
}

type PageNavigationPane struct {
	Visible bool `json:"visible"`
}

type Panes struct {
	Filters        FiltersPane        `json:"filters"`
	PageNavigation PageNavigationPane `json:"pageNavigation"`
}

type Settings struct {
	Panes     Panes   `json:"panes"`
	ZoomLevel float64 `json:"zoomLevel,omitempty"`
}

// Configuration is models.IReportEmbedConfiguration as far as this tool uses it.
type Configuration struct {
	Type        string        `json:"type"`
	ID          string        `json:"id"`
	EmbedURL    string        `json:"embedUrl"`
	AccessToken string        `json:"accessToken"`
	TokenType   TokenType     `json:"tokenType"`
	Settings    Settings      `json:"settings"`
	Filters     []BasicFilter `json:"filters"`
	Slicers     []Slicer      `json:"slicers"`
}

// EventHandlers lists the SDK events the host must subscribe to.
func (c *Configuration) EventHandlers() []string {
	return []string{EventRendered}
}

type Input struct {
	ReportID     string
	EmbedURLBase string
	AccessToken  string
	LoginName    string
	Options      DisplayOptions
}

// Build returns the embed configuration for in, or false when there is
// nothing to render: no report selected or no access token.
func Build(in Input) (*Configuration, bool) {
	reportID := strings.TrimSpace(in.ReportID)
	token := strings.TrimSpace(in.AccessToken)
	if reportID == "" || token == "" {
		return nil, false
	}

	opts := in.Options
	cfg := &Configuration{
		Type:        "report",
		ID:          reportID,
		EmbedURL:    EmbedURL(in.EmbedURLBase, reportID),
		AccessToken: token,
		TokenType:   TokenTypeAad,
		Settings: Settings{
			Panes: Panes{
				Filters:        FiltersPane{Expanded: false, Visible: !opts.HideFilterPane},
				PageNavigation: PageNavigationPane{Visible: !opts.HidePageNavigation},
			},
			ZoomLevel: opts.ZoomLevel,
		},
		Filters: []BasicFilter{},
		Slicers: []Slicer{},
	}

	if opts.HasTarget() {
		target := Target{
			Table:  strings.TrimSpace(opts.TargetTable),
			Column: strings.TrimSpace(opts.TargetColumn),
		}
		filter := IdentityFilter(target, in.LoginName)
		cfg.Filters = append(cfg.Filters, filter)
		cfg.Slicers = append(cfg.Slicers, Slicer{
			Selector: SlicerSelector{Schema: SlicerTargetSelectorSchema, Target: target},
			State:    SlicerState{Filters: []BasicFilter{filter}},
		})
	}
	return cfg, true
}

// IdentityFilter restricts target to the signed-in user's login name.
func IdentityFilter(target Target, loginName string) BasicFilter {
	return BasicFilter{
		Schema:                 BasicFilterSchema,
		FilterType:             FilterTypeBasic,
		Target:                 target,
		Operator:               OperatorIn,
		Values:                 []string{loginName},
		RequireSingleSelection: false,
	}
}

// EmbedURL returns the report-embed endpoint for reportID.
func EmbedURL(base, reportID string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultEmbedURLBase
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "reportId=" + url.QueryEscape(reportID)
}
