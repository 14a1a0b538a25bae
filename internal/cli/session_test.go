package cli

import (
	"errors"
	"testing"

	"github.com/pbiembed/pbiembed/internal/configstore"
	"github.com/pbiembed/pbiembed/internal/webpart"
)

func TestResolveRef(t *testing.T) {
	ids := []string{"5f2c-AA", "6a3d-BB", "7b4e-CC"}
	names := []string{"Sales EMEA", "Sales APAC", "Operations"}

	cases := []struct {
		ref  string
		want int
	}{
		{"6A3D-bb", 1},
		{"operations", 2},
		{"sales apac", 1},
		{"oper", 2},
		{"emea", 0},
	}
	for _, tc := range cases {
		got, err := resolveRef("workspace", tc.ref, ids, names)
		if err != nil {
			t.Fatalf("resolveRef(%q): %v", tc.ref, err)
		}
		if got != tc.want {
			t.Fatalf("resolveRef(%q)=%d want %d", tc.ref, got, tc.want)
		}
	}
}

func TestResolveRef_Ambiguous(t *testing.T) {
	_, err := resolveRef("workspace", "sales", []string{"a", "b"}, []string{"Sales EMEA", "Sales APAC"})
	var ce *cliError
	if !errors.As(err, &ce) || ce.code != codeInvalidArgument {
		t.Fatalf("expected invalid_argument, got %v", err)
	}
	details, _ := ce.details.(map[string]any)
	got, _ := details["candidates"].([]string)
	if len(got) != 2 || got[0] != "Sales APAC" || got[1] != "Sales EMEA" {
		t.Fatalf("unexpected candidates %#v", details)
	}
}

func TestResolveRef_DuplicateExactNames(t *testing.T) {
	_, err := resolveRef("report", "pipeline", []string{"r1", "r2"}, []string{"Pipeline", "pipeline"})
	if err == nil {
		t.Fatalf("expected ambiguity error")
	}
}

func TestPaneValues_Apply(t *testing.T) {
	props := &configstore.Properties{WorkspaceID: "w1", ReportID: "r1", Height: "400"}
	v := newPaneValues(props)
	v.workspaceID = "w2"
	v.reportID = "r9"
	v.targetTable = "Users"
	v.targetColumn = "Email"
	v.hideSlicer = true
	v.zoom = "0.84"

	if err := v.apply(props); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if props.WorkspaceID != "w2" || props.ReportID != "r9" {
		t.Fatalf("unexpected selection %#v", props)
	}
	if props.ReportOptions.ZoomLevel != 0.8 || !props.ReportOptions.HideSlicer {
		t.Fatalf("unexpected options %#v", props.ReportOptions)
	}
	if props.Height != "400" {
		t.Fatalf("expected height kept, got %q", props.Height)
	}
}

func TestPaneValues_ApplyIsAtomic(t *testing.T) {
	props := &configstore.Properties{WorkspaceID: "w1", ReportID: "r1"}
	v := newPaneValues(props)
	v.workspaceID = "w2"
	v.zoom = "7"

	if err := v.apply(props); err == nil {
		t.Fatalf("expected zoom validation error")
	}
	if props.WorkspaceID != "w1" || props.ReportID != "r1" {
		t.Fatalf("expected properties untouched, got %#v", props)
	}
}

func TestValidator(t *testing.T) {
	props := &configstore.Properties{Height: "300"}
	height := validator(props, webpart.FieldHeight)
	if err := height("abc"); err == nil {
		t.Fatalf("expected height validation error")
	}
	if err := height(""); err != nil {
		t.Fatalf("empty height should be accepted: %v", err)
	}
	if err := validator(props, webpart.FieldZoomLevel)("2.5"); err == nil {
		t.Fatalf("expected zoom validation error")
	}
	if props.Height != "300" {
		t.Fatalf("validation must not modify properties, got %q", props.Height)
	}
}
