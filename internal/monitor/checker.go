// Package monitor reconciles device and subscriber reachability state:
// probes through MikroTik routers, downtime-log lifecycle, the root-cause
// tree walk and the periodic sweeps.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/yahya-ubnt/IMSys-sub002/internal/config"
	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
	"github.com/yahya-ubnt/IMSys-sub002/internal/routeros"
)

// Conn is one open router connection. Implemented by routeros.Client.
type Conn interface {
	Ping(ctx context.Context, address string, count int) (routeros.PingResult, error)
	ActiveSession(ctx context.Context, username string) (*routeros.PPPSession, error)
	Queue(ctx context.Context, address string) (*routeros.QueueRow, error)
	Identity(ctx context.Context) (string, error)
	Close() error
}

// DialFunc opens a connection for one check. Callers close it on every path.
type DialFunc func(ctx context.Context, cfg routeros.Config) (Conn, error)

// SecretDecrypter recovers router API passwords stored encrypted.
type SecretDecrypter interface {
	Decrypt(enc string) (string, error)
}

// Checker answers reachability questions. It never returns an error for a
// probe: connection failures, timeouts and "not found" all collapse to false,
// distinguished only by the status label used for alert text.
type Checker struct {
	dial    DialFunc
	secrets SecretDecrypter
	probe   config.Probe
	logger  *slog.Logger
	sleep   func(ctx context.Context, wait time.Duration) error
}

func NewChecker(dial DialFunc, secrets SecretDecrypter, probe config.Probe, logger *slog.Logger) *Checker {
	return &Checker{
		dial:    dial,
		secrets: secrets,
		probe:   probe.Normalize(),
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Connect dials a router with its stored credentials.
func (c *Checker) Connect(ctx context.Context, router model.Router) (Conn, error) {
	password, err := c.secrets.Decrypt(router.PasswordEnc)
	if err != nil {
		return nil, err
	}
	return c.dial(ctx, routeros.Config{
		Address:  router.Host,
		Username: router.Username,
		Password: password,
		Timeout:  c.probe.ConnectTimeout,
	})
}

// RouterReachable probes the router itself: dial plus an identity read.
func (c *Checker) RouterReachable(ctx context.Context, router model.Router) bool {
	conn, err := c.Connect(ctx, router)
	if err != nil {
		c.logger.Debug("router connect failed", "router", router.Name, "err", err)
		return false
	}
	defer conn.Close()

	if _, err := conn.Identity(ctx); err != nil {
		c.logger.Debug("router identity read failed", "router", router.Name, "err", err)
		return false
	}
	return true
}

// ProbeDevice pings a CPE through the given router. Returns reachability and
// the status label describing the failure mode.
func (c *Checker) ProbeDevice(ctx context.Context, router model.Router, address string) (bool, string) {
	conn, err := c.Connect(ctx, router)
	if err != nil {
		return false, model.LabelRouterUnreachable
	}
	defer conn.Close()

	result, err := conn.Ping(ctx, address, c.probe.PingCount)
	if err != nil || !result.Reachable() {
		return false, model.LabelDown
	}
	return true, model.LabelUp
}

// SubscriberOnline checks a subscriber through its router: active-session
// lookup for PPP accounts, ping for static addresses.
func (c *Checker) SubscriberOnline(ctx context.Context, router model.Router, sub model.Subscriber) (bool, string) {
	conn, err := c.Connect(ctx, router)
	if err != nil {
		return false, model.LabelOfflineRouterDown
	}
	defer conn.Close()

	switch sub.Service {
	case model.ServicePPP:
		session, err := conn.ActiveSession(ctx, sub.Username)
		if err != nil || session == nil {
			return false, model.LabelOfflineNoSession
		}
		return true, model.LabelOnline
	default:
		result, err := conn.Ping(ctx, sub.IP, c.probe.PingCount)
		if err != nil || !result.Reachable() {
			return false, model.LabelOfflineUnreachable
		}
		return true, model.LabelOnline
	}
}

// PingWithRetry probes an address up to the configured attempt budget with a
// fixed delay between attempts, to absorb transient packet loss before
// concluding real failure. Each attempt uses a fresh connection.
func (c *Checker) PingWithRetry(ctx context.Context, router model.Router, address string) bool {
	for attempt := 1; attempt <= c.probe.Attempts; attempt++ {
		reachable, _ := c.ProbeDevice(ctx, router, address)
		if reachable {
			return true
		}
		if attempt == c.probe.Attempts {
			break
		}
		if err := c.sleep(ctx, c.probe.RetryDelay); err != nil {
			break
		}
	}
	return false
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
