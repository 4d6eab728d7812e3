package vnetctl

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/nebulaops/vnetctl/pkg/constants"
	"github.com/nebulaops/vnetctl/pkg/reconcile"
)

// Option is a function that configures a Manager instance
type Option func(*config) error

type config struct {
	endpoint   string
	credential string
	timeout    time.Duration
	insecure   bool
	dryRun     bool
	logger     *zerolog.Logger
	client     reconcile.Client
}

func defaultConfig() *config {
	return &config{
		endpoint: os.Getenv(constants.EnvEndpoint),
		timeout:  constants.DefaultRPCTimeout,
	}
}

// WithEndpoint sets the XML-RPC endpoint URL. An empty value keeps the
// ONE_XMLRPC / local frontend fallback.
func WithEndpoint(url string) Option {
	return func(c *config) error {
		if url != "" {
			c.endpoint = url
		}
		return nil
	}
}

// WithCredential sets the session credential: either "user:password"
// directly or the path of a file holding one.
func WithCredential(value string) Option {
	return func(c *config) error {
		c.credential = value
		return nil
	}
}

// WithTimeout bounds each RPC call.
func WithTimeout(d time.Duration) Option {
	return func(c *config) error {
		c.timeout = d
		return nil
	}
}

// WithInsecure disables TLS certificate verification for the endpoint.
func WithInsecure(enabled bool) Option {
	return func(c *config) error {
		c.insecure = enabled
		return nil
	}
}

// WithDryRun reports what would change without touching the frontend.
func WithDryRun(enabled bool) Option {
	return func(c *config) error {
		c.dryRun = enabled
		return nil
	}
}

// WithLogger sets the logger used for reconciliation tracing.
func WithLogger(logger *zerolog.Logger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}

// WithClient supplies a frontend client directly, bypassing endpoint and
// credential resolution. Mostly useful in tests.
func WithClient(client reconcile.Client) Option {
	return func(c *config) error {
		c.client = client
		return nil
	}
}
