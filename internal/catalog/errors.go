package catalog

import (
	"errors"
	"fmt"
)

// RemoteFetchError reports a failed catalog read: transport, HTTP status,
// token or decode failure. Callers decide whether to retry.
type RemoteFetchError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *RemoteFetchError) Error() string {
	msg := "power bi " + e.Op + " failed"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status=%d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }

// IsRemoteFetch reports whether err is (or wraps) a RemoteFetchError.
func IsRemoteFetch(err error) bool {
	var rfe *RemoteFetchError
	return errors.As(err, &rfe)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var rfe *RemoteFetchError
	if errors.As(err, &rfe) {
		return rfe.StatusCode
	}
	return 0
}
