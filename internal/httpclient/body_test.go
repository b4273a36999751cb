package httpclient

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewBodySourceInline(t *testing.T) {
	src, err := NewBodySource(`{"model":"default"}`, "")
	if err != nil {
		t.Fatalf("NewBodySource failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		r, err := src.NewReader()
		if err != nil {
			t.Fatalf("NewReader failed: %v", err)
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if string(data) != `{"model":"default"}` {
			t.Errorf("read %d: got %q", i, data)
		}
	}

	if length, ok := src.ContentLength(); !ok || length != int64(len(`{"model":"default"}`)) {
		t.Errorf("content length = %d, %v", length, ok)
	}
}

func TestNewBodySourceFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "body.json")
	if err := os.WriteFile(path, []byte(`{"input":"hello"}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src, err := NewBodySource("", path)
	if err != nil {
		t.Fatalf("NewBodySource failed: %v", err)
	}

	r, err := src.NewReader()
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != `{"input":"hello"}` {
		t.Errorf("got %q", data)
	}
}

func TestNewBodySourceEmpty(t *testing.T) {
	src, err := NewBodySource("", "")
	if err != nil {
		t.Fatalf("NewBodySource failed: %v", err)
	}
	r, err := src.NewReader()
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty body, got %q", data)
	}
}

func TestNewBodySourceRejectsBoth(t *testing.T) {
	if _, err := NewBodySource("inline", "some-file"); err == nil {
		t.Fatal("expected error for inline body and body file together")
	}
}

func TestNewBodySourceMissingFile(t *testing.T) {
	if _, err := NewBodySource("", filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing body file")
	}
}

func TestNewClientPoolSizing(t *testing.T) {
	client := New(30*time.Second, 100)
	if client.Timeout != 30*time.Second {
		t.Errorf("timeout = %s", client.Timeout)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("transport type = %T", client.Transport)
	}
	if transport.MaxIdleConnsPerHost != 100 {
		t.Errorf("MaxIdleConnsPerHost = %d, want 100", transport.MaxIdleConnsPerHost)
	}

	small := New(0, 1)
	st := small.Transport.(*http.Transport)
	if st.MaxIdleConnsPerHost != minIdleConnsPerHost {
		t.Errorf("MaxIdleConnsPerHost = %d, want floor %d", st.MaxIdleConnsPerHost, minIdleConnsPerHost)
	}
}
