// Package oneapi implements the OpenNebula XML-RPC client used by the
// reconciler. It covers the handful of virtual network calls vnetctl
// needs: pool listing, allocate, update, chown, and delete.
//
// Every call carries the session credential as its first parameter and
// decodes the standard OpenNebula response triple: a success flag, a
// string or integer payload, and an error code.
package oneapi

import (
	"context"
	"time"

	"github.com/kolo/xmlrpc"
	"github.com/rs/zerolog"

	"github.com/nebulaops/vnetctl/internal/transport"
	"github.com/nebulaops/vnetctl/pkg/constants"
	"github.com/nebulaops/vnetctl/pkg/errors"
	"github.com/nebulaops/vnetctl/pkg/logging"
	"github.com/nebulaops/vnetctl/pkg/vnet"
)

// RPC method names for the virtual network API.
const (
	methodPoolInfo = "one.vnpool.info"
	methodAllocate = "one.vn.allocate"
	methodUpdate   = "one.vn.update"
	methodChown    = "one.vn.chown"
	methodDelete   = "one.vn.delete"
)

// DefaultClusterID lets the frontend pick the default cluster on allocate.
const DefaultClusterID = -1

// Config holds the connection settings for a frontend.
type Config struct {
	// Endpoint is the XML-RPC endpoint URL. Empty means the local
	// frontend default.
	Endpoint string

	// Credential is the "user:password" session string.
	Credential string

	// Timeout bounds each RPC call. Zero means the transport default.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// Logger for call tracing. Nil means the default logger.
	Logger *zerolog.Logger
}

// Client talks to a single OpenNebula frontend.
type Client struct {
	rpc     *xmlrpc.Client
	session string
	timeout time.Duration
	logger  *zerolog.Logger
}

// New creates a Client for the given frontend configuration.
func New(cfg Config) (*Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = constants.DefaultEndpoint
	}
	if cfg.Credential == "" {
		return nil, &errors.AuthenticationError{
			Endpoint: endpoint,
			Message:  "no credential configured, set " + constants.EnvAuth + " or pass one explicitly",
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = transport.DefaultTimeout
	}

	rpc, err := xmlrpc.NewClient(endpoint, transport.NewRoundTripper(transport.Options{
		Timeout:            timeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}))
	if err != nil {
		return nil, errors.NewConfigError("endpoint", "invalid XML-RPC endpoint "+endpoint, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Client{
		rpc:     rpc,
		session: cfg.Credential,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// Networks lists the virtual networks belonging to the calling user.
func (c *Client) Networks(ctx context.Context) ([]vnet.Network, error) {
	p, err := c.call(ctx, methodPoolInfo,
		constants.PoolFilterMine, constants.PoolRangeAll, constants.PoolRangeAll)
	if err != nil {
		return nil, err
	}
	return parsePool(p.body)
}

// Allocate creates a network from a template body and returns its id.
// The body must carry the NAME attribute.
func (c *Client) Allocate(ctx context.Context, body string) (int, error) {
	p, err := c.call(ctx, methodAllocate, body, DefaultClusterID)
	if err != nil {
		return 0, err
	}
	return p.id, nil
}

// Update replaces the whole template of an existing network.
func (c *Client) Update(ctx context.Context, id int, body string) error {
	_, err := c.call(ctx, methodUpdate, id, body, constants.UpdateReplace)
	return err
}

// Chown transfers ownership of a network. A uid or gid of -1 leaves that
// side untouched.
func (c *Client) Chown(ctx context.Context, id, uid, gid int) error {
	_, err := c.call(ctx, methodChown, id, uid, gid)
	return err
}

// Delete removes a network.
func (c *Client) Delete(ctx context.Context, id int) error {
	_, err := c.call(ctx, methodDelete, id)
	return err
}

// payload is the useful part of a successful response: the frontend
// returns either a string body (pool listings) or a numeric id
// (mutations).
type payload struct {
	body string
	id   int
}

// call performs one RPC round trip with the session prepended and the
// response triple decoded. The underlying library has no context support,
// so cancellation is handled by abandoning the in-flight call.
func (c *Client) call(ctx context.Context, method string, args ...any) (payload, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := make([]any, 0, len(args)+1)
	params = append(params, c.session)
	params = append(params, args...)

	c.logger.Debug().Str("method", method).Msg("issuing RPC call")

	var raw any
	done := make(chan error, 1)
	go func() {
		done <- c.rpc.Call(method, params, &raw)
	}()

	select {
	case <-ctx.Done():
		return payload{}, &errors.APIError{Method: method, Message: "call aborted", Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			return payload{}, &errors.APIError{Method: method, Message: "request failed", Err: err}
		}
	}

	return decodeResponse(method, raw)
}

// decodeResponse unpacks the [success, payload, errcode] triple every
// OpenNebula method returns.
func decodeResponse(method string, raw any) (payload, error) {
	values, ok := raw.([]any)
	if !ok || len(values) < 2 {
		return payload{}, &errors.APIError{Method: method, Message: "malformed response"}
	}

	success, ok := values[0].(bool)
	if !ok {
		return payload{}, &errors.APIError{Method: method, Message: "malformed response status"}
	}

	if !success {
		message, _ := values[1].(string)
		code := 0
		if len(values) > 2 {
			if c, ok := values[2].(int64); ok {
				code = int(c)
			}
		}
		return payload{}, &errors.APIError{Method: method, Code: code, Message: message}
	}

	switch v := values[1].(type) {
	case string:
		return payload{body: v}, nil
	case int64:
		return payload{id: int(v)}, nil
	default:
		return payload{}, &errors.APIError{Method: method, Message: "unexpected payload type"}
	}
}
