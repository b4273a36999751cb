package httpclient

import (
	"net"
	"net/http"
	"time"
)

const (
	minIdleConnsPerHost = 8
	maxIdleConnsCeiling = 512
)

// New returns an HTTP client tuned for load generation. timeout bounds each
// request end to end; users sizes the idle connection pool so a steady-state
// swarm reuses connections instead of redialing per cycle.
func New(timeout time.Duration, users int) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	perHost := users
	if perHost < minIdleConnsPerHost {
		perHost = minIdleConnsPerHost
	}
	if perHost > maxIdleConnsCeiling {
		perHost = maxIdleConnsCeiling
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          2 * perHost,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
