package webpart

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pbiembed/pbiembed/internal/configstore"
)

// Field is one editable property of the web part.
type Field int

const (
	FieldUnknown Field = iota
	FieldWorkspaceID
	FieldReportID
	FieldTargetColumn
	FieldTargetTable
	FieldHeight
	FieldHideFilterPane
	FieldHidePageNavigation
	FieldHideSlicer
	FieldZoomLevel
)

var fieldPaths = map[Field]string{
	FieldWorkspaceID:        "workspaceId",
	FieldReportID:           "reportId",
	FieldTargetColumn:       "reportOptions.targetColumn",
	FieldTargetTable:        "reportOptions.targetTable",
	FieldHeight:             "height",
	FieldHideFilterPane:     "reportOptions.hideFilterPane",
	FieldHidePageNavigation: "reportOptions.hidePageNavigation",
	FieldHideSlicer:         "reportOptions.hideSlicer",
	FieldZoomLevel:          "reportOptions.zoomLevel",
}

// Fields lists every editable field in property pane order.
func Fields() []Field {
	return []Field{
		FieldWorkspaceID,
		FieldReportID,
		FieldTargetTable,
		FieldTargetColumn,
		FieldHideSlicer,
		FieldHeight,
		FieldHideFilterPane,
		FieldHidePageNavigation,
		FieldZoomLevel,
	}
}

// Path is the dotted property path persisted in the property bag.
func (f Field) Path() string {
	if p, ok := fieldPaths[f]; ok {
		return p
	}
	return "unknown"
}

func (f Field) String() string { return f.Path() }

// ParseField maps a dotted property path, or its last segment, to a Field.
// Matching is case-insensitive.
func ParseField(path string) (Field, error) {
	path = strings.TrimSpace(path)
	for f, p := range fieldPaths {
		if strings.EqualFold(path, p) {
			return f, nil
		}
	}
	for f, p := range fieldPaths {
		if i := strings.LastIndexByte(p, '.'); i >= 0 && strings.EqualFold(path, p[i+1:]) {
			return f, nil
		}
	}
	return FieldUnknown, fmt.Errorf("unknown property %q", path)
}

// ApplyField writes a textual value into the property bag.
func ApplyField(p *configstore.Properties, f Field, value string) error {
	if p == nil {
		return fmt.Errorf("missing properties")
	}
	value = strings.TrimSpace(value)
	switch f {
	case FieldWorkspaceID:
		if p.WorkspaceID != value {
			p.ReportID = ""
		}
		p.WorkspaceID = value
	case FieldReportID:
		p.ReportID = value
	case FieldTargetColumn:
		p.ReportOptions.TargetColumn = value
	case FieldTargetTable:
		p.ReportOptions.TargetTable = value
	case FieldHeight:
		next := *p
		next.Height = value
		if err := next.Validate(); err != nil {
			return err
		}
		p.Height = value
	case FieldHideFilterPane, FieldHidePageNavigation, FieldHideSlicer:
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Path(), err)
		}
		switch f {
		case FieldHideFilterPane:
			p.ReportOptions.HideFilterPane = b
		case FieldHidePageNavigation:
			p.ReportOptions.HidePageNavigation = b
		default:
			p.ReportOptions.HideSlicer = b
		}
	case FieldZoomLevel:
		z := 0.0
		if value != "" {
			var err error
			z, err = strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Path(), err)
			}
			z = configstore.SnapZoom(z)
		}
		opts := p.ReportOptions
		opts.ZoomLevel = z
		if err := opts.Validate(); err != nil {
			return err
		}
		p.ReportOptions.ZoomLevel = z
	default:
		return fmt.Errorf("unknown property %q", f.Path())
	}
	return nil
}

// FieldValue reads a field back out of the property bag as text.
func FieldValue(p *configstore.Properties, f Field) string {
	if p == nil {
		return ""
	}
	switch f {
	case FieldWorkspaceID:
		return p.WorkspaceID
	case FieldReportID:
		return p.ReportID
	case FieldTargetColumn:
		return p.ReportOptions.TargetColumn
	case FieldTargetTable:
		return p.ReportOptions.TargetTable
	case FieldHeight:
		return p.Height
	case FieldHideFilterPane:
		return strconv.FormatBool(p.ReportOptions.HideFilterPane)
	case FieldHidePageNavigation:
		return strconv.FormatBool(p.ReportOptions.HidePageNavigation)
	case FieldHideSlicer:
		return strconv.FormatBool(p.ReportOptions.HideSlicer)
	case FieldZoomLevel:
		if p.ReportOptions.ZoomLevel == 0 {
			return ""
		}
		return strconv.FormatFloat(p.ReportOptions.ZoomLevel, 'f', -1, 64)
	}
	return ""
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "no", "off":
		return false, nil
	case "yes", "on":
		return true, nil
	}
	return strconv.ParseBool(s)
}
