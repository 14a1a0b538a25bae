package format

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteEDN(t *testing.T) {
	type report struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		EmbedURL string `json:"embedUrl,omitempty"`
		Secret   string `json:"-"`
	}

	cases := []struct {
		name string
		in   any
		want string
	}{
		{
			name: "keys sorted as keywords",
			in:   map[string]any{"zoomLevel": 1.5, "tokenType": 0, "hide slicer": true},
			want: `{:hide-slicer true :tokenType 0 :zoomLevel 1.5}`,
		},
		{
			name: "json tags drive field names",
			in: map[string]any{
				"ok":   true,
				"meta": nil,
				"data": []report{{ID: "r1", Name: "Pipeline", Secret: "x"}},
			},
			want: `{:data [{:id "r1" :name "Pipeline"}] :meta nil :ok true}`,
		},
		{
			name: "whole floats print as integers",
			in:   map[string]any{"heightPx": 480.0},
			want: `{:heightPx 480}`,
		},
		{
			name: "blank key",
			in:   map[string]any{" ": "w1"},
			want: `{:_ "w1"}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteEDN(&buf, tc.in, false); err != nil {
				t.Fatalf("WriteEDN: %v", err)
			}
			if got := strings.TrimSpace(buf.String()); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestWriteEDN_PrettyEndsWithNewline(t *testing.T) {
	var buf bytes.Buffer
	v := map[string]any{"workspaces": []any{
		map[string]any{"id": "w1", "name": "Sales"},
		map[string]any{"id": "w2", "name": "Operations"},
	}}
	if err := WriteEDN(&buf, v, true); err != nil {
		t.Fatalf("WriteEDN: %v", err)
	}
	got := buf.String()
	if strings.Count(got, "\n") < 2 || !strings.HasSuffix(got, "\n") {
		t.Fatalf("expected indented output, got %q", got)
	}
	if !strings.Contains(got, `"Operations"`) {
		t.Fatalf("missing workspace name: %q", got)
	}
}
