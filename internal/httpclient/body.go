package httpclient

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// BodySource yields request body readers. Every call to NewReader returns an
// independent reader so concurrent virtual users can replay the same payload.
type BodySource interface {
	NewReader() (io.ReadCloser, error)
	ContentLength() (int64, bool)
}

// NewBodySource builds a BodySource from an inline payload or a file path.
// Providing both is an error; providing neither yields an empty body.
func NewBodySource(inline, file string) (BodySource, error) {
	file = strings.TrimSpace(file)
	if inline != "" && file != "" {
		return nil, errors.New("body and body file cannot both be provided")
	}

	if inline != "" {
		return &inlineBodySource{data: []byte(inline)}, nil
	}

	if file != "" {
		info, err := os.Stat(file)
		if err != nil {
			return nil, fmt.Errorf("body file: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("body file %q is a directory", file)
		}
		return &fileBodySource{path: file, size: info.Size()}, nil
	}

	return emptyBodySource{}, nil
}

type inlineBodySource struct {
	data []byte
}

func (s *inlineBodySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *inlineBodySource) ContentLength() (int64, bool) {
	return int64(len(s.data)), true
}

type fileBodySource struct {
	path string
	size int64
}

func (s *fileBodySource) NewReader() (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("body file: %w", err)
	}
	return f, nil
}

func (s *fileBodySource) ContentLength() (int64, bool) {
	return s.size, true
}

type emptyBodySource struct{}

func (emptyBodySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (emptyBodySource) ContentLength() (int64, bool) {
	return 0, true
}
