package buildinfo

import (
	"strings"
	"testing"
)

func TestDisplayVersion(t *testing.T) {
	prev := Version
	t.Cleanup(func() { Version = prev })

	cases := map[string]string{
		"2026.1.1": "v2026.1.1",
		"v1.2.3":   "v1.2.3",
		"nightly":  "nightly",
	}
	for in, want := range cases {
		Version = in
		if got := DisplayVersion(); got != want {
			t.Fatalf("DisplayVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUserAgentAndSummary(t *testing.T) {
	prev := Version
	t.Cleanup(func() { Version = prev })
	Version = "1.0.0"

	if got := UserAgent(); got != "pbiembed/v1.0.0" {
		t.Fatalf("UserAgent() = %q", got)
	}
	if got := Summary(); !strings.HasPrefix(got, "pbiembed v1.0.0 (commit ") {
		t.Fatalf("Summary() = %q", got)
	}
}
