package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/yahya-ubnt/IMSys-sub002/internal/config"
	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
	"github.com/yahya-ubnt/IMSys-sub002/internal/routeros"
)

// fakeNet scripts the router side of a check: per-address ping outcomes
// (the last entry repeats) and PPP session presence. Every dial hands out a
// fresh conn so tests can verify none leaks.
type fakeNet struct {
	mu       sync.Mutex
	dialErr  error
	pingPlan map[string][]bool
	sessions map[string]bool
	dials    int
	opened   []*fakeConn
}

func (n *fakeNet) dial(ctx context.Context, cfg routeros.Config) (Conn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dials++
	if n.dialErr != nil {
		return nil, n.dialErr
	}
	conn := &fakeConn{net: n}
	n.opened = append(n.opened, conn)
	return conn, nil
}

func (n *fakeNet) assertAllClosed(t *testing.T) {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, conn := range n.opened {
		if conn.closed != 1 {
			t.Fatalf("conn %d closed %d times, want exactly once", i, conn.closed)
		}
	}
}

type fakeConn struct {
	net    *fakeNet
	closed int
}

func (f *fakeConn) Ping(ctx context.Context, address string, count int) (routeros.PingResult, error) {
	f.net.mu.Lock()
	defer f.net.mu.Unlock()
	plan, ok := f.net.pingPlan[address]
	if !ok || len(plan) == 0 {
		return routeros.PingResult{Sent: count}, nil
	}
	up := plan[0]
	if len(plan) > 1 {
		f.net.pingPlan[address] = plan[1:]
	}
	if !up {
		return routeros.PingResult{Sent: count}, nil
	}
	return routeros.PingResult{Sent: count, Received: count}, nil
}

func (f *fakeConn) ActiveSession(ctx context.Context, username string) (*routeros.PPPSession, error) {
	f.net.mu.Lock()
	defer f.net.mu.Unlock()
	if f.net.sessions[username] {
		return &routeros.PPPSession{Name: username, Address: "10.9.0.2"}, nil
	}
	return nil, nil
}

func (f *fakeConn) Queue(ctx context.Context, address string) (*routeros.QueueRow, error) {
	return nil, nil
}

func (f *fakeConn) Identity(ctx context.Context) (string, error) {
	return "fake-router", nil
}

func (f *fakeConn) Close() error {
	f.net.mu.Lock()
	defer f.net.mu.Unlock()
	f.closed++
	return nil
}

type plainSecrets struct{}

func (plainSecrets) Decrypt(enc string) (string, error) { return enc, nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestChecker(net *fakeNet) *Checker {
	c := NewChecker(net.dial, plainSecrets{}, config.Probe{
		Attempts:       3,
		RetryDelay:     time.Millisecond,
		ConnectTimeout: time.Second,
		PingCount:      1,
	}, discardLogger())
	c.sleep = func(ctx context.Context, wait time.Duration) error { return nil }
	return c
}

func testRouter() model.Router {
	return model.Router{ID: "r1", TenantID: "t1", Name: "core", Host: "192.0.2.1", Username: "api", PasswordEnc: "pw", IsCore: true}
}

func TestProbeDeviceClosesConnOnEveryPath(t *testing.T) {
	net := &fakeNet{pingPlan: map[string][]bool{"10.0.0.2": {true}, "10.0.0.3": {false}}}
	checker := newTestChecker(net)

	up, label := checker.ProbeDevice(context.Background(), testRouter(), "10.0.0.2")
	if !up || label != model.LabelUp {
		t.Fatalf("got up=%v label=%q, want reachable UP", up, label)
	}
	up, label = checker.ProbeDevice(context.Background(), testRouter(), "10.0.0.3")
	if up || label != model.LabelDown {
		t.Fatalf("got up=%v label=%q, want unreachable DOWN", up, label)
	}
	net.assertAllClosed(t)
}

func TestProbeDeviceDialFailure(t *testing.T) {
	net := &fakeNet{dialErr: errors.New("connection refused")}
	checker := newTestChecker(net)

	up, label := checker.ProbeDevice(context.Background(), testRouter(), "10.0.0.2")
	if up {
		t.Fatal("expected unreachable when the router cannot be dialed")
	}
	if label != model.LabelRouterUnreachable {
		t.Fatalf("label = %q, want %q", label, model.LabelRouterUnreachable)
	}
}

func TestSubscriberOnlinePPP(t *testing.T) {
	net := &fakeNet{sessions: map[string]bool{"alice": true}}
	checker := newTestChecker(net)

	sub := model.Subscriber{Username: "alice", Service: model.ServicePPP}
	online, label := checker.SubscriberOnline(context.Background(), testRouter(), sub)
	if !online || label != model.LabelOnline {
		t.Fatalf("got online=%v label=%q", online, label)
	}

	sub.Username = "bob"
	online, label = checker.SubscriberOnline(context.Background(), testRouter(), sub)
	if online || label != model.LabelOfflineNoSession {
		t.Fatalf("got online=%v label=%q, want offline no-session", online, label)
	}
	net.assertAllClosed(t)
}

func TestSubscriberOnlineStaticPingsAddress(t *testing.T) {
	net := &fakeNet{pingPlan: map[string][]bool{"10.5.0.9": {false}}}
	checker := newTestChecker(net)

	sub := model.Subscriber{Username: "carol", Service: model.ServiceStatic, IP: "10.5.0.9"}
	online, label := checker.SubscriberOnline(context.Background(), testRouter(), sub)
	if online || label != model.LabelOfflineUnreachable {
		t.Fatalf("got online=%v label=%q, want offline unreachable", online, label)
	}
	net.assertAllClosed(t)
}

func TestPingWithRetryAbsorbsTransientLoss(t *testing.T) {
	net := &fakeNet{pingPlan: map[string][]bool{"10.0.0.4": {false, false, true}}}
	checker := newTestChecker(net)

	if !checker.PingWithRetry(context.Background(), testRouter(), "10.0.0.4") {
		t.Fatal("expected success on the third attempt")
	}
	if net.dials != 3 {
		t.Fatalf("dials = %d, want 3", net.dials)
	}
	net.assertAllClosed(t)
}

func TestPingWithRetryExhaustsBudget(t *testing.T) {
	net := &fakeNet{pingPlan: map[string][]bool{"10.0.0.5": {false}}}
	checker := newTestChecker(net)

	if checker.PingWithRetry(context.Background(), testRouter(), "10.0.0.5") {
		t.Fatal("expected failure after the attempt budget")
	}
	if net.dials != 3 {
		t.Fatalf("dials = %d, want 3", net.dials)
	}
	net.assertAllClosed(t)
}
