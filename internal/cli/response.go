package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pbiembed/pbiembed/internal/aadtoken"
	"github.com/pbiembed/pbiembed/internal/catalog"
)

const (
	codeRemoteFetch     = "remote_fetch_failed"
	codeAuthRequired    = "auth_required"
	codeInvalidArgument = "invalid_argument"
	codeNotConfigured   = "not_configured"
	codeInternal        = "internal_error"
)

const hintAuth = "Set PBI_TOKEN, run `pbiembed auth login`, or set PBI_TENANT_ID, PBI_CLIENT_ID and PBI_CLIENT_SECRET"

// cliError carries a failure code chosen where the failure is detected.
type cliError struct {
	code    string
	hint    string
	details any
	err     error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func invalidArgf(format string, args ...any) error {
	return &cliError{code: codeInvalidArgument, err: fmt.Errorf(format, args...)}
}

func notConfigured(hint string, format string, args ...any) error {
	return &cliError{code: codeNotConfigured, hint: hint, err: fmt.Errorf(format, args...)}
}

func writeData(cmd *cobra.Command, app *App, meta map[string]any, data any) error {
	out := map[string]any{
		"ok":   true,
		"meta": meta,
		"data": data,
	}
	// Avoid emitting empty meta.
	if meta == nil {
		delete(out, "meta")
	}
	return writeOut(cmd, app, out)
}

func writeFailure(cmd *cobra.Command, app *App, code string, err error, hint string, details any) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	out := map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": err.Error(),
			"details": details,
		},
		"hint": hint,
	}
	// We still return an error so Cobra exits non-zero.
	_ = writeOut(cmd, app, out)
	return err
}

// fail maps err onto a failure code and writes the envelope.
func fail(cmd *cobra.Command, app *App, err error) error {
	var ce *cliError
	if errors.As(err, &ce) {
		return writeFailure(cmd, app, ce.code, err, ce.hint, ce.details)
	}
	if errors.Is(err, aadtoken.ErrNoCredentials) {
		return writeFailure(cmd, app, codeAuthRequired, err, hintAuth, nil)
	}
	var rf *catalog.RemoteFetchError
	if errors.As(err, &rf) {
		details := map[string]any{"op": rf.Op}
		if rf.URL != "" {
			details["url"] = rf.URL
		}
		if rf.StatusCode != 0 {
			details["status"] = rf.StatusCode
		}
		return writeFailure(cmd, app, codeRemoteFetch, err, remoteFetchHint(rf.StatusCode), details)
	}
	app.logger().Debug("unclassified failure", "err", err)
	return writeFailure(cmd, app, codeInternal, err, "", nil)
}

func remoteFetchHint(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "The token was rejected; it may have expired. " + hintAuth
	case http.StatusForbidden:
		return "The signed-in identity cannot read this workspace"
	case http.StatusNotFound:
		return "Check the workspace and report ids (`pbiembed workspaces list`)"
	case 0:
		return "Check network access to the Power BI API (--api)"
	}
	return ""
}
