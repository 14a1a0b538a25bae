// Package browseropen launches the user's browser on the local host page.
package browseropen

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// Starter starts a process without waiting for it.
type Starter func(name string, args ...string) error

func execStart(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// Open starts the first browser command that launches for u. Only http and
// https URLs are accepted.
func Open(u string) error {
	return open(execStart, runtime.GOOS, runtime.GOOS == "linux" && isWSL(), os.Getenv("BROWSER"), u)
}

func open(start Starter, goos string, wsl bool, browserEnv, u string) error {
	u, err := checkURL(u)
	if err != nil {
		return err
	}
	var errs []error
	for _, argv := range Candidates(goos, wsl, browserEnv, u) {
		if err := start(argv[0], argv[1:]...); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", argv[0], err))
			continue
		}
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return fmt.Errorf("open browser failed: %w", errors.Join(errs...))
}

func checkURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("missing url")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("refusing to open %q: not an http(s) url", raw)
	}
	return parsed.String(), nil
}

// Candidates lists the commands tried, in order, to open u.
func Candidates(goos string, wsl bool, browserEnv, u string) [][]string {
	switch goos {
	case "darwin":
		return [][]string{{"open", u}}
	case "windows":
		return [][]string{
			{"rundll32", "url.dll,FileProtocolHandler", u},
			{"cmd", "/c", "start", "", u},
			{"powershell", "-NoProfile", "-Command", "Start-Process", u},
		}
	}
	var out [][]string
	if wsl {
		out = append(out,
			[]string{"wslview", u},
			[]string{"cmd.exe", "/c", "start", "", u},
			[]string{"powershell.exe", "-NoProfile", "-Command", "Start-Process", u},
		)
	}
	out = append(out, browserEnvCandidates(browserEnv, u)...)
	return append(out, []string{"xdg-open", u})
}

// browserEnvCandidates follows the colon-separated BROWSER convention; a %s
// in an entry is replaced by the url.
func browserEnvCandidates(raw, u string) [][]string {
	var out [][]string
	for _, entry := range strings.Split(raw, ":") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		var argv []string
		if strings.Contains(entry, "%s") {
			argv = strings.Fields(strings.ReplaceAll(entry, "%s", u))
		} else {
			argv = append(strings.Fields(entry), u)
		}
		if len(argv) > 0 {
			out = append(out, argv)
		}
	}
	return out
}

func isWSL() bool {
	if os.Getenv("WSL_INTEROP") != "" || os.Getenv("WSL_DISTRO_NAME") != "" {
		return true
	}
	for _, p := range []string{"/proc/sys/kernel/osrelease", "/proc/version"} {
		if b, err := os.ReadFile(p); err == nil && strings.Contains(strings.ToLower(string(b)), "microsoft") {
			return true
		}
	}
	return false
}
