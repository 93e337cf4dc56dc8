package authclient

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/authclient/session"
)

// Client is the authenticated API client. It is safe for concurrent use once built.
type Client struct {
	cfg        Config
	baseURL    *url.URL
	httpClient *http.Client
	tokens     *TokenManager
	logger     *slog.Logger
	metrics    *Metrics
	audit      *auditDispatcher

	closers   []func() error
	closed    atomic.Bool
	closeOnce sync.Once
}

// Tokens returns the session token manager.
func (c *Client) Tokens() *TokenManager {
	return c.tokens
}

// Metrics returns the in-process counters. The pointer is never nil.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// MetricsSnapshot returns a copy of every counter and histogram.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// Config returns a copy of the configuration the client was built with.
func (c *Client) Config() Config {
	return cloneConfig(c.cfg)
}

// IsAuthenticated reports whether an access token is stored. It does not validate it.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	_, err := c.tokens.AccessToken(ctx)
	return err == nil
}

// Session returns the stored session.
func (c *Client) Session(ctx context.Context) (session.Session, error) {
	return c.tokens.Session(ctx)
}

// Close flushes audit events and releases resources owned by the client, such as a
// Redis connection the Builder opened. It is idempotent.
func (c *Client) Close() error {
	var firstErr error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.audit.Close()
		for _, fn := range c.closers {
			if err := fn(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
