package configstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pbiembed/pbiembed/internal/embed"
)

const (
	DefaultAPIURL    = "https://api.powerbi.com/v1.0/myorg"
	DefaultEmbedURL  = embed.DefaultEmbedURLBase
	DefaultZoomLevel = 1.0

	zoomStepsPerUnit = 10
	ZoomStep         = 1.0 / zoomStepsPerUnit
)

// ReportOptions are the persisted display and slicer settings.
type ReportOptions struct {
	HideFilterPane     bool    `json:"hideFilterPane" yaml:"hideFilterPane"`
	HidePageNavigation bool    `json:"hidePageNavigation" yaml:"hidePageNavigation"`
	HideSlicer         bool    `json:"hideSlicer" yaml:"hideSlicer"`
	TargetColumn       string  `json:"targetColumn,omitempty" yaml:"targetColumn,omitempty"`
	TargetTable        string  `json:"targetTable,omitempty" yaml:"targetTable,omitempty"`
	ZoomLevel          float64 `json:"zoomLevel,omitempty" yaml:"zoomLevel,omitempty"`
}

// Validate checks the zoom level. Zero means unset and is accepted.
func (o ReportOptions) Validate() error {
	if o.ZoomLevel == 0 {
		return nil
	}
	if math.IsNaN(o.ZoomLevel) || o.ZoomLevel < embed.MinZoomLevel || o.ZoomLevel > embed.MaxZoomLevel {
		return fmt.Errorf("zoomLevel must be between %.1f and %.1f, got %v", embed.MinZoomLevel, embed.MaxZoomLevel, o.ZoomLevel)
	}
	return nil
}

// SnapZoom rounds z to the nearest slider step.
func SnapZoom(z float64) float64 {
	return math.Round(z*zoomStepsPerUnit) / zoomStepsPerUnit
}

// Properties is the persisted property bag of one embedded report.
type Properties struct {
	WorkspaceID   string        `json:"workspaceId,omitempty" yaml:"workspaceId,omitempty"`
	ReportID      string        `json:"reportId,omitempty" yaml:"reportId,omitempty"`
	Height        string        `json:"height,omitempty" yaml:"height,omitempty"`
	ReportOptions ReportOptions `json:"reportOptions" yaml:"reportOptions"`

	APIURL    string `json:"apiUrl,omitempty" yaml:"apiUrl,omitempty"`
	EmbedURL  string `json:"embedUrl,omitempty" yaml:"embedUrl,omitempty"`
	LoginName string `json:"loginName,omitempty" yaml:"loginName,omitempty"`
}

func (p *Properties) normalize() {
	p.WorkspaceID = strings.TrimSpace(p.WorkspaceID)
	p.ReportID = strings.TrimSpace(p.ReportID)
	p.Height = strings.TrimSpace(p.Height)
	p.APIURL = strings.TrimSpace(p.APIURL)
	p.EmbedURL = strings.TrimSpace(p.EmbedURL)
	p.LoginName = strings.TrimSpace(p.LoginName)
	p.ReportOptions.TargetColumn = strings.TrimSpace(p.ReportOptions.TargetColumn)
	p.ReportOptions.TargetTable = strings.TrimSpace(p.ReportOptions.TargetTable)
	if p.ReportOptions.ZoomLevel != 0 {
		p.ReportOptions.ZoomLevel = SnapZoom(p.ReportOptions.ZoomLevel)
	}
}

// Validate checks the height and report options.
func (p *Properties) Validate() error {
	if p == nil {
		return errors.New("missing properties")
	}
	if h := strings.TrimSpace(p.Height); h != "" {
		n, err := strconv.Atoi(h)
		if err != nil || n <= 0 {
			return fmt.Errorf("height must be a positive number of pixels, got %q", p.Height)
		}
	}
	return p.ReportOptions.Validate()
}

// DisplayOptions projects the persisted settings onto the embed builder input.
func (p *Properties) DisplayOptions() embed.DisplayOptions {
	if p == nil {
		return embed.DisplayOptions{}
	}
	o := p.ReportOptions
	return embed.DisplayOptions{
		HeightPx:           p.Height,
		HideFilterPane:     o.HideFilterPane,
		HidePageNavigation: o.HidePageNavigation,
		HideSlicer:         o.HideSlicer,
		TargetTable:        o.TargetTable,
		TargetColumn:       o.TargetColumn,
		ZoomLevel:          o.ZoomLevel,
	}
}

func (p *Properties) ResolvedAPIURL() string {
	if p != nil && p.APIURL != "" {
		return p.APIURL
	}
	return DefaultAPIURL
}

func (p *Properties) ResolvedEmbedURL() string {
	if p != nil && p.EmbedURL != "" {
		return p.EmbedURL
	}
	return DefaultEmbedURL
}

func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("cannot determine user config dir")
	}
	return filepath.Join(dir, "pbiembed", "properties.json"), nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load reads a property file. Files ending in .yaml or .yml are parsed as
// YAML; anything else as JSON.
func Load(path string) (*Properties, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("missing path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Properties
	if isYAML(path) {
		err = yaml.Unmarshal(b, &p)
	} else {
		err = json.Unmarshal(b, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	p.normalize()
	return &p, nil
}

// LoadOrEmpty is Load, except a missing file yields empty properties.
func LoadOrEmpty(path string) (*Properties, error) {
	p, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Properties{}, nil
	}
	return p, err
}

func SaveAtomic(path string, p *Properties) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("missing path")
	}
	if p == nil {
		return errors.New("missing properties")
	}
	p.normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	var (
		payload []byte
		err     error
	)
	if isYAML(path) {
		payload, err = yaml.Marshal(p)
	} else {
		payload, err = json.MarshalIndent(p, "", "  ")
		payload = append(payload, '\n')
	}
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
