// Package mock serves the workspace and report catalog from a local file so
// the pickers and embed commands work without a Power BI tenant.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pbiembed/pbiembed/internal/catalog"
)

type Report struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	EmbedURL  string `json:"embedUrl,omitempty" yaml:"embedUrl,omitempty"`
	WebURL    string `json:"webUrl,omitempty" yaml:"webUrl,omitempty"`
	DatasetID string `json:"datasetId,omitempty" yaml:"datasetId,omitempty"`
}

type Workspace struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Reports []Report `json:"reports" yaml:"reports"`
}

// Catalog is an in-memory catalog.Lister.
type Catalog struct {
	Workspaces []Workspace `json:"workspaces" yaml:"workspaces"`
}

var _ catalog.Lister = (*Catalog)(nil)

// Seed returns the demo catalog written by Store.Ensure.
func Seed() *Catalog {
	return &Catalog{Workspaces: []Workspace{
		{
			ID:   "5f2c7c4e-0d4b-4a8e-9a51-3c1f1e0a7b11",
			Name: "Sales",
			Reports: []Report{
				{ID: "a1d0e3f2-6b7c-4d1e-8f90-123456789abc", Name: "Pipeline", DatasetID: "d5b7a4c2-1e2f-4a3b-9c8d-0e1f2a3b4c5d"},
				{ID: "b2e1f4a3-7c8d-4e2f-9a01-23456789abcd", Name: "Quota attainment", DatasetID: "d5b7a4c2-1e2f-4a3b-9c8d-0e1f2a3b4c5d"},
			},
		},
		{
			ID:   "6a3d8d5f-1e5c-4b9f-8b62-4d2f2f1b8c22",
			Name: "Operations",
			Reports: []Report{
				{ID: "c3f2a5b4-8d9e-4f3a-8b12-3456789abcde", Name: "Ticket backlog", DatasetID: "e6c8b5d3-2f3a-4b4c-8d9e-1f2a3b4c5d6e"},
			},
		},
		{
			ID:   "7b4e9e6a-2f6d-4cae-9c73-5e3a3a2c9d33",
			Name: "Sandbox",
		},
	}}
}

func (c *Catalog) ListWorkspaces(ctx context.Context) ([]catalog.Workspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]catalog.Workspace, 0, len(c.Workspaces))
	for _, ws := range c.Workspaces {
		out = append(out, catalog.Workspace{ID: ws.ID, Name: ws.Name})
	}
	return out, nil
}

// ListReports fails like the service does for an unknown workspace.
func (c *Catalog) ListReports(ctx context.Context, workspaceID string) ([]catalog.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ws := c.workspace(workspaceID)
	if ws == nil {
		return nil, &catalog.RemoteFetchError{
			Op:         "list reports",
			StatusCode: http.StatusNotFound,
			Err:        fmt.Errorf("workspace %q not found", workspaceID),
		}
	}
	out := make([]catalog.Report, 0, len(ws.Reports))
	for _, r := range ws.Reports {
		out = append(out, catalog.Report{
			ID:        r.ID,
			Name:      r.Name,
			EmbedURL:  r.EmbedURL,
			WebURL:    r.WebURL,
			DatasetID: r.DatasetID,
		})
	}
	return out, nil
}

func (c *Catalog) workspace(id string) *Workspace {
	id = strings.TrimSpace(id)
	for i := range c.Workspaces {
		if strings.EqualFold(c.Workspaces[i].ID, id) {
			return &c.Workspaces[i]
		}
	}
	return nil
}

// Validate rejects blank and duplicate ids.
func (c *Catalog) Validate() error {
	seen := map[string]bool{}
	for i, ws := range c.Workspaces {
		id := strings.ToLower(strings.TrimSpace(ws.ID))
		if id == "" {
			return fmt.Errorf("workspaces[%d]: missing id", i)
		}
		if seen[id] {
			return fmt.Errorf("workspaces[%d]: duplicate id %q", i, ws.ID)
		}
		seen[id] = true
		reports := map[string]bool{}
		for j, r := range ws.Reports {
			rid := strings.ToLower(strings.TrimSpace(r.ID))
			if rid == "" {
				return fmt.Errorf("workspaces[%d].reports[%d]: missing id", i, j)
			}
			if reports[rid] {
				return fmt.Errorf("workspaces[%d].reports[%d]: duplicate id %q", i, j, r.ID)
			}
			reports[rid] = true
		}
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Catalog
	if isYAML(path) {
		err = yaml.Unmarshal(b, &c)
	} else {
		err = json.Unmarshal(b, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return &c, nil
}

func SaveAtomic(path string, c *Catalog) error {
	if c == nil {
		return errors.New("nil catalog")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	var (
		b   []byte
		err error
	)
	if isYAML(path) {
		b, err = yaml.Marshal(c)
	} else {
		b, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Store is a catalog file that is seeded on first use.
type Store struct {
	Path string
}

func (s Store) Ensure() (*Catalog, error) {
	c, err := Load(s.Path)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	seed := Seed()
	if err := SaveAtomic(s.Path, seed); err != nil {
		return nil, err
	}
	return seed, nil
}
