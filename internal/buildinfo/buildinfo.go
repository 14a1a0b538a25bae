package buildinfo

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/pbiembed/pbiembed/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// DisplayVersion returns Version with a "v" prefix for numeric versions.
// Unset versions fall back to the module version embedded by `go install`.
func DisplayVersion() string {
	v := strings.TrimSpace(Version)
	if v == "" || v == "dev" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			v = strings.TrimSpace(bi.Main.Version)
		}
	}
	switch {
	case v == "", v == "dev", v == "(devel)":
		return "dev"
	case strings.HasPrefix(v, "v"):
		return v
	case v[0] >= '0' && v[0] <= '9':
		return "v" + v
	}
	return v
}

// UserAgent is sent with every Power BI API request.
func UserAgent() string {
	return "pbiembed/" + DisplayVersion()
}

// Summary is the one-line output of `pbiembed version`.
func Summary() string {
	return fmt.Sprintf("pbiembed %s (commit %s, built %s)", DisplayVersion(), Commit, Date)
}
