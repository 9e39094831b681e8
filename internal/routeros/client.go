// Package routeros wraps the MikroTik native API behind short-lived
// connections and typed reply mappers. The device is treated as unreliable:
// any call may reject or hang past the configured timeout.
package routeros

import (
	"context"
	"crypto/tls"
	"log/slog"
	"sync"
	"time"

	goros "github.com/go-routeros/routeros/v3"
)

// Client holds one open connection to a router. Callers own the lifecycle:
// Dial per check, Close on every exit path.
type Client struct {
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	conn   *goros.Client
	closed bool

	dialFn  func(ctx context.Context, cfg Config) (*goros.Client, error)
	runFn   func(ctx context.Context, conn *goros.Client, cmd string, args ...string) (*goros.Reply, error)
	closeFn func(conn *goros.Client) error
	sleepFn func(ctx context.Context, wait time.Duration) error
}

// Dial validates the profile and opens the API connection.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	normalized, err := normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		config:  normalized,
		logger:  logger,
		dialFn:  dialRouter,
		runFn:   runSentence,
		closeFn: closeConn,
		sleepFn: sleepContext,
	}
	conn, err := c.dialFn(ctx, normalized)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

// Run executes one command sentence. A retryable transport failure gets a
// single reconnect before the error is surfaced.
func (c *Client) Run(ctx context.Context, cmd string, args ...string) (*goros.Reply, error) {
	conn, err := c.ensureConn(ctx)
	if err != nil {
		return nil, err
	}

	reply, err := c.runFn(ctx, conn, cmd, args...)
	if err == nil {
		return reply, nil
	}
	if !isRetryableError(err) {
		return nil, err
	}

	c.logger.Warn("routeros command failed; reconnecting", "cmd", cmd, "err", err)
	c.disconnect()
	if sleepErr := c.sleepFn(ctx, 200*time.Millisecond); sleepErr != nil {
		return nil, sleepErr
	}
	conn, err = c.ensureConn(ctx)
	if err != nil {
		return nil, err
	}
	return c.runFn(ctx, conn, cmd, args...)
}

// Connected reports whether an API connection is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

// Close releases the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.closeFn(c.conn)
	c.conn = nil
	return err
}

func (c *Client) ensureConn(ctx context.Context) (*goros.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, &ValidationError{Field: "client", Reason: "is closed"}
	}
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := c.dialFn(ctx, c.config)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return conn, nil
}

func (c *Client) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.closeFn(c.conn)
		c.conn = nil
	}
}

func dialRouter(ctx context.Context, cfg Config) (*goros.Client, error) {
	_ = ctx
	if cfg.UseTLS {
		tlsConfig := &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS} //nolint:gosec
		return goros.DialTLSTimeout(cfg.Address, cfg.Username, cfg.Password, tlsConfig, cfg.Timeout)
	}
	return goros.DialTimeout(cfg.Address, cfg.Username, cfg.Password, cfg.Timeout)
}

func runSentence(ctx context.Context, conn *goros.Client, cmd string, args ...string) (*goros.Reply, error) {
	sentence := append([]string{cmd}, args...)
	return conn.RunContext(ctx, sentence...)
}

func closeConn(conn *goros.Client) error {
	conn.Close()
	return nil
}

func sleepContext(ctx context.Context, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
