package scenario

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/loadworks/swarmload/internal/httpclient"
	"github.com/loadworks/swarmload/internal/tracing"
	"github.com/loadworks/swarmload/internal/vuser"
)

const (
	maxBodyReadSize    = 1024 * 1024
	maxLoggedBodyBytes = 1024
)

// StatusError reports a non-success HTTP response. Body carries a snippet of
// the response for the error report.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Behavior is a compiled scenario. It is safe for concurrent use; all virtual
// users in a run share one Behavior.
type Behavior struct {
	name       string
	method     string
	path       string
	headers    http.Header
	body       httpclient.BodySource
	overhead   OverheadSource
	client     *http.Client
	credential string

	tracer    trace.Tracer
	propagate bool
}

var _ vuser.Interactor = (*Behavior)(nil)

// NewBehavior compiles a scenario definition into an executable behavior.
// The credential, when non-empty, is sent as a bearer token.
func NewBehavior(sc Scenario, client *http.Client, credential string) (*Behavior, error) {
	if client == nil {
		return nil, fmt.Errorf("scenario %q: http client is required", sc.Name)
	}

	body, err := httpclient.NewBodySource(sc.Body, sc.BodyFile)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}

	headers := http.Header{}
	for key, value := range sc.Headers {
		headers.Set(http.CanonicalHeaderKey(strings.TrimSpace(key)), value)
	}
	if sc.Body != "" && headers.Get("Content-Type") == "" {
		headers.Set("Content-Type", "application/json")
	}

	return &Behavior{
		name:       sc.Name,
		method:     sc.Method,
		path:       sc.Path,
		headers:    headers,
		body:       body,
		overhead:   sc.Overhead,
		client:     client,
		credential: credential,
	}, nil
}

// Name returns the scenario name.
func (b *Behavior) Name() string { return b.name }

// EnableTracing attaches a tracer so each interaction emits a client span.
// When propagate is set, W3C trace headers are injected into requests.
func (b *Behavior) EnableTracing(tracer trace.Tracer, propagate bool) {
	b.tracer = tracer
	b.propagate = propagate
}

// Labels identifies this behavior's outcomes in aggregated reports.
func (b *Behavior) Labels() (method, name string) {
	return b.method, b.name
}

// Interact performs one request against host and reports any per-response
// overhead sample to rec.
func (b *Behavior) Interact(ctx context.Context, host string, rec vuser.OverheadRecorder) error {
	if b.tracer == nil {
		_, err := b.do(ctx, host, rec)
		return err
	}

	ctx, span := tracing.StartInteractionSpan(ctx, b.tracer, b.method, b.name)
	status, err := b.do(ctx, host, rec)
	var attrs []attribute.KeyValue
	if status > 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", status))
	}
	tracing.EndSpan(span, err, attrs...)
	return err
}

func (b *Behavior) do(ctx context.Context, host string, rec vuser.OverheadRecorder) (int, error) {
	reader, err := b.body.NewReader()
	if err != nil {
		return 0, err
	}

	target := strings.TrimRight(host, "/") + b.path
	req, err := http.NewRequestWithContext(ctx, b.method, target, reader)
	if err != nil {
		reader.Close()
		return 0, err
	}

	for key, values := range b.headers {
		for _, val := range values {
			req.Header.Add(key, val)
		}
	}
	if b.credential != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+b.credential)
	}
	if b.propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}
	if length, ok := b.body.ContentLength(); ok {
		req.ContentLength = length
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return b.body.NewReader()
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Read errors are non-fatal; a partial body still serves the snippet.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyReadSize))

	if resp.StatusCode >= 400 {
		snippet := body
		if len(snippet) > maxLoggedBodyBytes {
			snippet = snippet[:maxLoggedBodyBytes]
		}
		return resp.StatusCode, &StatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(snippet)),
		}
	}

	if b.overhead.enabled() {
		if ms, ok := b.extractOverhead(resp, body); ok {
			rec.RecordOverhead(ms)
		}
	}
	return resp.StatusCode, nil
}

// extractOverhead pulls the overhead sample in milliseconds from the response.
// A missing or non-numeric value is skipped rather than failing the request.
func (b *Behavior) extractOverhead(resp *http.Response, body []byte) (float64, bool) {
	if b.overhead.Header != "" {
		raw := resp.Header.Get(b.overhead.Header)
		if raw == "" {
			return 0, false
		}
		ms, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return 0, false
		}
		return ms, true
	}

	result := gjson.GetBytes(body, b.overhead.JSONPath)
	if !result.Exists() || result.Type != gjson.Number {
		return 0, false
	}
	return result.Float(), true
}
