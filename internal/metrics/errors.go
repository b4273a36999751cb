package metrics

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

const maxSignatureLen = 200

// Signature returns a stable grouping text for an error. Outcomes with the
// same signature (and method/name labels) collapse into one report entry.
//
// Timeout and URL errors are normalized so that transient details (the exact
// URL, the wrapped net error string) do not fragment the groups.
func Signature(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "request deadline exceeded"
	}
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "connection timed out"
		}
		inner := urlErr.Err
		if inner != nil {
			return truncate("connection error: " + inner.Error())
		}
		return "connection error"
	}

	return truncate(err.Error())
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxSignatureLen {
		return s
	}
	return s[:maxSignatureLen] + "..."
}
