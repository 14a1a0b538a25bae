package configstore

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestSaveAtomicAndLoad_RoundTripAndTrim(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "properties.json")

	p := &Properties{
		WorkspaceID: "  ws-acme  ",
		ReportID:    " r1 ",
		Height:      " 600 ",
		APIURL:      "  http://localhost:8090  ",
		ReportOptions: ReportOptions{
			TargetTable:  " Users ",
			TargetColumn: "Email",
			HideSlicer:   true,
			ZoomLevel:    1.26,
		},
	}
	if err := SaveAtomic(path, p); err != nil {
		t.Fatalf("SaveAtomic: %v", err)
	}

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if fi.Mode().Perm() != 0o600 {
			t.Fatalf("expected 0600 perms, got %o", fi.Mode().Perm())
		}
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.APIURL != "http://localhost:8090" {
		t.Fatalf("expected trimmed api url, got %q", loaded.APIURL)
	}
	if loaded.WorkspaceID != "ws-acme" || loaded.ReportID != "r1" || loaded.Height != "600" {
		t.Fatalf("expected trimmed ids, got %#v", loaded)
	}
	if loaded.ReportOptions.TargetTable != "Users" || !loaded.ReportOptions.HideSlicer {
		t.Fatalf("unexpected report options %#v", loaded.ReportOptions)
	}
	if loaded.ReportOptions.ZoomLevel < 1.299 || loaded.ReportOptions.ZoomLevel > 1.301 {
		t.Fatalf("expected zoom snapped to 1.3, got %v", loaded.ReportOptions.ZoomLevel)
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "props.yaml")
	body := "workspaceId: w1\nreportId: r1\nreportOptions:\n  targetTable: Users\n  targetColumn: Email\n  hideFilterPane: true\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	opts := p.DisplayOptions()
	if p.WorkspaceID != "w1" || p.ReportID != "r1" {
		t.Fatalf("unexpected ids %#v", p)
	}
	if !opts.HasTarget() || !opts.HideFilterPane {
		t.Fatalf("unexpected display options %#v", opts)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		p    Properties
		ok   bool
	}{
		{name: "empty", p: Properties{}, ok: true},
		{name: "min zoom", p: Properties{ReportOptions: ReportOptions{ZoomLevel: 0.5}}, ok: true},
		{name: "max zoom", p: Properties{ReportOptions: ReportOptions{ZoomLevel: 2}}, ok: true},
		{name: "zoom too low", p: Properties{ReportOptions: ReportOptions{ZoomLevel: 0.4}}, ok: false},
		{name: "zoom too high", p: Properties{ReportOptions: ReportOptions{ZoomLevel: 2.5}}, ok: false},
		{name: "height", p: Properties{Height: "480"}, ok: true},
		{name: "bad height", p: Properties{Height: "tall"}, ok: false},
		{name: "zero height", p: Properties{Height: "0"}, ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.p.Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSaveAtomic_Validations(t *testing.T) {
	if err := SaveAtomic("", &Properties{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
	if err := SaveAtomic("x.json", nil); err == nil {
		t.Fatalf("expected error for missing properties")
	}
	dir := t.TempDir()
	bad := &Properties{ReportOptions: ReportOptions{ZoomLevel: 3}}
	if err := SaveAtomic(filepath.Join(dir, "p.json"), bad); err == nil {
		t.Fatalf("expected error for invalid zoom")
	}
}

func TestLoad_Validations(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for missing path")
	}
	p, err := LoadOrEmpty(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil || p == nil {
		t.Fatalf("expected empty properties, got %v, %v", p, err)
	}
}

func TestResolvedURLs(t *testing.T) {
	var p *Properties
	if p.ResolvedAPIURL() != DefaultAPIURL || p.ResolvedEmbedURL() != DefaultEmbedURL {
		t.Fatalf("expected defaults")
	}
	p = &Properties{APIURL: "http://x", EmbedURL: "http://y"}
	if p.ResolvedAPIURL() != "http://x" || p.ResolvedEmbedURL() != "http://y" {
		t.Fatalf("expected overrides")
	}
}
