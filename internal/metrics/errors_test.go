package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
)

func TestSignatureNil(t *testing.T) {
	if got := Signature(nil); got != "" {
		t.Errorf("expected empty signature for nil error, got %q", got)
	}
}

func TestSignatureDeadline(t *testing.T) {
	wrapped := fmt.Errorf("doing request: %w", context.DeadlineExceeded)
	if got := Signature(wrapped); got != "request deadline exceeded" {
		t.Errorf("unexpected signature: %q", got)
	}
}

func TestSignatureURLErrorsCollapse(t *testing.T) {
	inner := errors.New("connect: connection refused")
	a := &url.Error{Op: "Post", URL: "http://host-a/v1/chat", Err: inner}
	b := &url.Error{Op: "Post", URL: "http://host-b/v1/chat", Err: inner}
	if Signature(a) != Signature(b) {
		t.Errorf("same root cause produced different signatures: %q vs %q", Signature(a), Signature(b))
	}
	if !strings.Contains(Signature(a), "connection refused") {
		t.Errorf("signature lost root cause: %q", Signature(a))
	}
}

func TestSignatureTruncatesLongErrors(t *testing.T) {
	long := errors.New(strings.Repeat("x", 500))
	got := Signature(long)
	if len(got) > maxSignatureLen+3 {
		t.Errorf("signature too long: %d chars", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated signature missing ellipsis: %q", got[len(got)-10:])
	}
}
