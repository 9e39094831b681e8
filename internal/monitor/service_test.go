package monitor

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yahya-ubnt/IMSys-sub002/internal/alert"
	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
	"github.com/yahya-ubnt/IMSys-sub002/internal/storage"
)

type sentAlert struct {
	subjects   []alert.Subject
	label      string
	tenantID   string
	entityType string
}

type fakeAlerts struct {
	mu   sync.Mutex
	sent []sentAlert
}

func (f *fakeAlerts) SendConsolidated(ctx context.Context, subjects []alert.Subject, statusLabel, tenantID, entityType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentAlert{subjects: subjects, label: statusLabel, tenantID: tenantID, entityType: entityType})
}

type harness struct {
	repo    *storage.Repository
	net     *fakeNet
	alerts  *fakeAlerts
	service *Service
	clock   time.Time
}

func newHarness(t *testing.T, ctx context.Context) *harness {
	t.Helper()
	logger := discardLogger()
	repo, err := storage.New(ctx, filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	net := &fakeNet{pingPlan: map[string][]bool{}, sessions: map[string]bool{}}
	alerts := &fakeAlerts{}
	h := &harness{
		repo:   repo,
		net:    net,
		alerts: alerts,
		clock:  time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
	}
	h.service = NewService(repo, newTestChecker(net), alerts, logger)
	h.service.now = func() time.Time { return h.clock }
	return h
}

func (h *harness) seedTenant(t *testing.T, ctx context.Context) model.Tenant {
	t.Helper()
	tenant := model.Tenant{ID: uuid.NewString(), Name: "acme", CreatedAt: h.clock}
	if err := h.repo.CreateTenant(ctx, tenant); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return tenant
}

func (h *harness) seedCoreRouter(t *testing.T, ctx context.Context, tenantID string) model.Router {
	t.Helper()
	router := model.Router{
		ID: uuid.NewString(), TenantID: tenantID, Name: "core-gw", Host: "192.0.2.1",
		Username: "api", PasswordEnc: "pw", IsCore: true, Online: true,
		CreatedAt: h.clock, UpdatedAt: h.clock,
	}
	if err := h.repo.CreateRouter(ctx, router); err != nil {
		t.Fatalf("seed router: %v", err)
	}
	return router
}

func (h *harness) seedDevice(t *testing.T, ctx context.Context, tenantID, name, ip, deviceType string, parentID *string) model.Device {
	t.Helper()
	device := model.Device{
		ID: uuid.NewString(), TenantID: tenantID, Name: name, MAC: "AA:BB:CC:00:00:01",
		IP: ip, DeviceType: deviceType, Status: model.StatusUp, StatusLabel: model.LabelUp,
		ParentID: parentID, CreatedAt: h.clock, UpdatedAt: h.clock,
	}
	if err := h.repo.CreateDevice(ctx, device); err != nil {
		t.Fatalf("seed device: %v", err)
	}
	return device
}

func (h *harness) seedSubscriber(t *testing.T, ctx context.Context, tenantID, routerID, username string) model.Subscriber {
	t.Helper()
	sub := model.Subscriber{
		ID: uuid.NewString(), TenantID: tenantID, RouterID: routerID, Username: username,
		Service: model.ServicePPP, IP: "10.9.0.2", Online: true, StatusLabel: model.LabelOnline,
		ExpiryDate: h.clock.AddDate(0, 1, 0), CreatedAt: h.clock, UpdatedAt: h.clock,
	}
	if err := h.repo.CreateSubscriber(ctx, sub); err != nil {
		t.Fatalf("seed subscriber: %v", err)
	}
	return sub
}

func TestRepeatedFailedSweepsKeepOneOpenLog(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ctx)
	tenant := h.seedTenant(t, ctx)
	h.seedCoreRouter(t, ctx, tenant.ID)
	device := h.seedDevice(t, ctx, tenant.ID, "ap-1", "10.0.0.2", model.DeviceTypeAccess, nil)
	h.net.pingPlan[device.IP] = []bool{false}

	for i := 0; i < 3; i++ {
		h.clock = h.clock.Add(time.Minute)
		if err := h.service.SweepDevices(ctx); err != nil {
			t.Fatalf("sweep %d: %v", i, err)
		}
	}

	logs, err := h.repo.ListDeviceDowntime(ctx, tenant.ID, device.ID, 10)
	if err != nil {
		t.Fatalf("list downtime: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("downtime logs = %d, want exactly one across repeated failures", len(logs))
	}
	if !logs[0].Open() {
		t.Fatal("expected the log to still be open")
	}
	if len(h.alerts.sent) != 1 {
		t.Fatalf("alerts = %d, want one (first flip only)", len(h.alerts.sent))
	}
	if h.alerts.sent[0].entityType != model.DeviceTypeAccess {
		t.Fatalf("alert entity type = %q", h.alerts.sent[0].entityType)
	}
}

func TestRecoveryClosesLogWithDuration(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ctx)
	tenant := h.seedTenant(t, ctx)
	h.seedCoreRouter(t, ctx, tenant.ID)
	device := h.seedDevice(t, ctx, tenant.ID, "ap-1", "10.0.0.2", model.DeviceTypeAccess, nil)

	h.net.pingPlan[device.IP] = []bool{false}
	if err := h.service.SweepDevices(ctx); err != nil {
		t.Fatalf("down sweep: %v", err)
	}

	h.clock = h.clock.Add(150 * time.Second)
	h.net.pingPlan[device.IP] = []bool{true}
	if err := h.service.SweepDevices(ctx); err != nil {
		t.Fatalf("up sweep: %v", err)
	}

	logs, err := h.repo.ListDeviceDowntime(ctx, tenant.ID, device.ID, 10)
	if err != nil {
		t.Fatalf("list downtime: %v", err)
	}
	if len(logs) != 1 || logs[0].Open() {
		t.Fatalf("expected one closed log, got %+v", logs)
	}
	if logs[0].DurationSeconds == nil || *logs[0].DurationSeconds != 150 {
		t.Fatalf("duration = %v, want 150", logs[0].DurationSeconds)
	}

	got, err := h.repo.DeviceByID(ctx, tenant.ID, device.ID)
	if err != nil {
		t.Fatalf("device: %v", err)
	}
	if got.Status != model.StatusUp {
		t.Fatalf("status = %q, want UP", got.Status)
	}
	if len(h.alerts.sent) != 2 {
		t.Fatalf("alerts = %d, want down + up", len(h.alerts.sent))
	}
}

func TestSweepLabelsDevicesWhenRouterUnreachable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ctx)
	tenant := h.seedTenant(t, ctx)
	h.seedCoreRouter(t, ctx, tenant.ID)
	device := h.seedDevice(t, ctx, tenant.ID, "ap-1", "10.0.0.2", model.DeviceTypeAccess, nil)
	h.net.dialErr = context.DeadlineExceeded

	if err := h.service.SweepDevices(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	got, err := h.repo.DeviceByID(ctx, tenant.ID, device.ID)
	if err != nil {
		t.Fatalf("device: %v", err)
	}
	if got.Status != model.StatusDown || got.StatusLabel != model.LabelRouterUnreachable {
		t.Fatalf("got status=%q label=%q", got.Status, got.StatusLabel)
	}
}

func TestSweepSubscribersFlipsAndAlertsPerRouter(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ctx)
	tenant := h.seedTenant(t, ctx)
	router := h.seedCoreRouter(t, ctx, tenant.ID)
	h.seedSubscriber(t, ctx, tenant.ID, router.ID, "alice")
	h.seedSubscriber(t, ctx, tenant.ID, router.ID, "bob")
	// Neither has an active session, so both flip to offline.

	if err := h.service.SweepSubscribers(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	subs, err := h.repo.ListSubscribers(ctx, tenant.ID, storage.SubscriberFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, sub := range subs {
		if sub.Online || sub.StatusLabel != model.LabelOfflineNoSession {
			t.Fatalf("subscriber %s: online=%v label=%q", sub.Username, sub.Online, sub.StatusLabel)
		}
		logs, err := h.repo.ListSubscriberDowntime(ctx, tenant.ID, sub.ID, 5)
		if err != nil {
			t.Fatalf("downtime list: %v", err)
		}
		if len(logs) != 1 || !logs[0].Open() {
			t.Fatalf("subscriber %s: expected one open log, got %+v", sub.Username, logs)
		}
	}

	if len(h.alerts.sent) != 1 {
		t.Fatalf("alerts = %d, want one consolidated batch", len(h.alerts.sent))
	}
	got := h.alerts.sent[0]
	if got.entityType != "User" || len(got.subjects) != 2 {
		t.Fatalf("alert = %+v", got)
	}
}

func TestSweepRoutersAlertsOnFlip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, ctx)
	tenant := h.seedTenant(t, ctx)
	router := h.seedCoreRouter(t, ctx, tenant.ID)
	h.net.dialErr = context.DeadlineExceeded

	if err := h.service.SweepRouters(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	got, err := h.repo.RouterByID(ctx, tenant.ID, router.ID)
	if err != nil {
		t.Fatalf("router: %v", err)
	}
	if got.Online {
		t.Fatal("router should be marked offline")
	}
	if len(h.alerts.sent) != 1 || h.alerts.sent[0].entityType != "Router" {
		t.Fatalf("alerts = %+v", h.alerts.sent)
	}

	// Second sweep in the same state stays quiet.
	if err := h.service.SweepRouters(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if len(h.alerts.sent) != 1 {
		t.Fatalf("alerts after steady-state sweep = %d, want 1", len(h.alerts.sent))
	}
}
