// Package httpclient builds the explicitly configured *http.Client every
// network step receives. Fixed request headers are added by the transport
// instead of a process-wide opener.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// Config holds timeouts and the headers sent with every request.
type Config struct {
	// Timeout bounds a whole request including reading the body.
	// Zero leaves the bound to the caller's context.
	Timeout time.Duration

	// Transport / dial timeouts.
	DialTimeout     time.Duration
	KeepAlive       time.Duration
	TLSHandshake    time.Duration
	ResponseHeader  time.Duration
	IdleConnTimeout time.Duration

	// Headers are set on every outgoing request unless already present.
	Headers map[string]string
}

// DefaultConfig returns timeouts suitable for small metadata requests.
func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Second,
		DialTimeout:     10 * time.Second,
		KeepAlive:       30 * time.Second,
		TLSHandshake:    10 * time.Second,
		ResponseHeader:  30 * time.Second,
		IdleConnTimeout: 90 * time.Second,
	}
}

// New builds an *http.Client from cfg.
func New(cfg Config) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAlive,
	}

	tr := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		ForceAttemptHTTP2: true,

		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshake,
		ResponseHeaderTimeout: cfg.ResponseHeader,
	}

	var rt http.RoundTripper = tr
	if len(cfg.Headers) > 0 {
		rt = &headerTransport{next: tr, headers: cfg.Headers}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   cfg.Timeout,
	}
}

// headerTransport adds fixed headers to each request.
type headerTransport struct {
	next    http.RoundTripper
	headers map[string]string
}

// RoundTrip clones the request, adds missing headers and delegates.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	for key, value := range t.headers {
		if clone.Header.Get(key) == "" {
			clone.Header.Set(key, value)
		}
	}

	return t.next.RoundTrip(clone)
}
