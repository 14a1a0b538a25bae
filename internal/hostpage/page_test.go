package hostpage

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pbiembed/pbiembed/internal/catalog"
	"github.com/pbiembed/pbiembed/internal/embed"
	"github.com/pbiembed/pbiembed/internal/webpart"
)

func configuredView(t *testing.T) webpart.View {
	t.Helper()
	opts := embed.DisplayOptions{TargetTable: "Users", TargetColumn: "Email", HideSlicer: true}
	cfg, ok := embed.Build(embed.Input{ReportID: "r1", AccessToken: "tok", LoginName: "alice@contoso.com", Options: opts})
	if !ok {
		t.Fatalf("expected configuration")
	}
	return webpart.View{Config: cfg, Options: opts, WidthPx: 800, HeightPx: "480", Report: catalog.Report{ID: "r1", Name: "Pipeline"}}
}

func TestRender_Configured(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, configuredView(t), Options{}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		"<title>Pipeline</title>",
		DefaultSDKURL,
		"reportEmbed?reportId=r1",
		"alice@contoso.com",
		"min-height: 480px",
		"width: 800px",
		"setVisualDisplayState",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in page:\n%s", want, got)
		}
	}
	if strings.Contains(got, webpart.Placeholder) {
		t.Fatalf("did not expect placeholder in configured page")
	}
}

func TestRender_Placeholder(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, webpart.View{}, Options{Title: "Sales"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, webpart.Placeholder) {
		t.Fatalf("expected placeholder, got:\n%s", got)
	}
	if strings.Contains(got, "powerbi.embed") {
		t.Fatalf("did not expect SDK bootstrap without a configuration")
	}
	if !strings.Contains(got, "<title>Sales</title>") {
		t.Fatalf("expected custom title")
	}
}

func TestHandler(t *testing.T) {
	v := configuredView(t)
	srv := httptest.NewServer(Handler(func() webpart.View { return v }, Options{}, nil))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(string(body), "reportId=r1") {
		t.Fatalf("expected embed url in body")
	}

	resp2, err := srv.Client().Get(srv.URL + "/favicon.ico")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp2.StatusCode)
	}
}
