// Package natsclient manages the NATS connection used for asset-change
// event publication. It wraps connection establishment with sensible
// reconnect defaults and structured logging; consumers take the raw
// connection and hand it to the events notifier.
package natsclient

import (
	"io"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/radium-io/atelier-assets/errors"
)

// Client owns one NATS connection for the lifetime of the process.
type Client struct {
	url           string
	name          string
	maxReconnects int
	reconnectWait time.Duration
	logger        *slog.Logger

	nc *nats.Conn
}

// Option is a functional option for configuring the Client
type Option func(*Client)

// WithName sets the connection name visible to the NATS server.
func WithName(name string) Option {
	return func(c *Client) {
		c.name = name
	}
}

// WithMaxReconnects sets the maximum number of reconnection attempts (-1 for infinite)
func WithMaxReconnects(max int) Option {
	return func(c *Client) {
		c.maxReconnects = max
	}
}

// WithReconnectWait sets the wait time between reconnection attempts
func WithReconnectWait(d time.Duration) Option {
	return func(c *Client) {
		c.reconnectWait = d
	}
}

// WithLogger sets a custom logger for connection lifecycle events
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the given server URL. Connect must be called
// before the connection is usable.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:           url,
		name:          "atelier-assets",
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes the connection. Reconnection is handled by the NATS
// client; lifecycle transitions are logged.
func (c *Client) Connect() error {
	nc, err := nats.Connect(c.url,
		nats.Name(c.name),
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			c.logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			c.logger.Info("nats connection closed")
		}),
	)
	if err != nil {
		return errors.WrapTransient(err, "NATSClient", "Connect", "server dial")
	}
	c.nc = nc
	return nil
}

// Conn returns the underlying connection, or nil before Connect. A nil
// connection disables event publication downstream, so callers may pass it
// through unconditionally.
func (c *Client) Conn() *nats.Conn {
	if c == nil {
		return nil
	}
	return c.nc
}

// Close drains and closes the connection. Safe to call before Connect.
func (c *Client) Close() {
	if c == nil || c.nc == nil {
		return
	}
	if err := c.nc.Drain(); err != nil {
		c.logger.Warn("nats drain failed, closing", "error", err)
		c.nc.Close()
	}
	c.nc = nil
}
