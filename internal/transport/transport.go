// Package transport provides the HTTP plumbing shared by RPC clients:
// timeouts, TLS settings, and a User-Agent round tripper.
package transport

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/nebulaops/vnetctl/pkg/constants"
)

// DefaultTimeout is the default timeout for RPC requests.
var DefaultTimeout = constants.DefaultRPCTimeout

// Options configures the transport.
type Options struct {
	// Timeout bounds each request end to end. Zero means DefaultTimeout.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification. Only
	// meant for lab frontends with self-signed certificates.
	InsecureSkipVerify bool

	// UserAgent overrides the User-Agent header. Empty means the
	// package default.
	UserAgent string
}

// defaultUserAgent identifies the tool to the frontend.
const defaultUserAgent = "vnetctl"

// New creates an http.Client configured for XML-RPC traffic.
func New(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: NewRoundTripper(opts),
	}
}

// NewRoundTripper creates the underlying round tripper, usable directly
// by RPC libraries that take a http.RoundTripper instead of a client.
func NewRoundTripper(opts Options) http.RoundTripper {
	base := http.DefaultTransport
	if opts.InsecureSkipVerify {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed lab frontends
		base = t
	}

	agent := opts.UserAgent
	if agent == "" {
		agent = defaultUserAgent
	}
	return &userAgentTransport{base: base, agent: agent}
}

// userAgentTransport stamps the User-Agent header on every request.
type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

// RoundTrip implements http.RoundTripper.
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.base.RoundTrip(req)
}
