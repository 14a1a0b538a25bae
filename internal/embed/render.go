package embed

import (
	"context"
	"fmt"
	"log/slog"
)

const VisualTypeSlicer = "slicer"

// DisplayMode mirrors models.VisualContainerDisplayMode.
type DisplayMode int

const (
	DisplayVisible DisplayMode = iota
	DisplayHidden
)

// EmbeddedReport is the live report handle the renderer passes back once the
// SDK has embedded it.
type EmbeddedReport interface {
	ActivePage(ctx context.Context) (Page, error)
}

type Page interface {
	Visuals(ctx context.Context) ([]Visual, error)
}

type Visual interface {
	Name() string
	Type() string
	SlicerState(ctx context.Context) (SlicerState, error)
	SetDisplayState(ctx context.Context, mode DisplayMode) error
}

// AfterRender runs once the SDK reports "rendered". It logs the state of every
// slicer on the active page and hides them when opts.HideSlicer is set. The
// slicers stay on the page so their pre-seeded filter keeps applying.
// It returns the number of slicers hidden.
func AfterRender(ctx context.Context, report EmbeddedReport, opts DisplayOptions, logger *slog.Logger) (int, error) {
	if report == nil {
		return 0, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	page, err := report.ActivePage(ctx)
	if err != nil {
		return 0, fmt.Errorf("active page: %w", err)
	}
	visuals, err := page.Visuals(ctx)
	if err != nil {
		return 0, fmt.Errorf("page visuals: %w", err)
	}

	hidden := 0
	for _, v := range visuals {
		if v.Type() != VisualTypeSlicer {
			continue
		}
		if state, err := v.SlicerState(ctx); err == nil {
			logger.Debug("slicer config", "name", v.Name(), "targets", state.Targets, "filters", state.Filters)
		}
		if !opts.HideSlicer {
			continue
		}
		if err := v.SetDisplayState(ctx, DisplayHidden); err != nil {
			return hidden, fmt.Errorf("hide slicer %s: %w", v.Name(), err)
		}
		hidden++
	}
	return hidden, nil
}
