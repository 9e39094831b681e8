package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
)

func newTestRepo(t *testing.T, ctx context.Context) *Repository {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo, err := New(ctx, filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("init storage: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedDevice(t *testing.T, ctx context.Context, repo *Repository, tenantID, name string, parentID *string) model.Device {
	t.Helper()
	now := time.Now().UTC()
	device := model.Device{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		Name:        name,
		MAC:         "AA:BB:CC:00:00:01",
		IP:          "10.0.0.10",
		DeviceType:  model.DeviceTypeAccess,
		Status:      model.StatusUp,
		StatusLabel: model.LabelUp,
		ParentID:    parentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.CreateDevice(ctx, device); err != nil {
		t.Fatalf("seed device: %v", err)
	}
	return device
}

func TestDeviceTenantIsolation(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, ctx)
	device := seedDevice(t, ctx, repo, "tenant-a", "ap-1", nil)

	if _, err := repo.DeviceByID(ctx, "tenant-a", device.ID); err != nil {
		t.Fatalf("own-tenant lookup failed: %v", err)
	}
	if _, err := repo.DeviceByID(ctx, "tenant-b", device.ID); err == nil {
		t.Fatalf("expected cross-tenant lookup to fail")
	}

	items, err := repo.ListDevices(ctx, "tenant-b", DeviceFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no devices for foreign tenant, got %d", len(items))
	}
}

func TestListDevicesFilter(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, ctx)
	seedDevice(t, ctx, repo, "tenant-a", "ap-north", nil)
	down := seedDevice(t, ctx, repo, "tenant-a", "ap-south", nil)
	if err := repo.UpdateDeviceStatus(ctx, "tenant-a", down.ID, model.StatusDown, model.LabelDown, time.Now().UTC()); err != nil {
		t.Fatalf("update status: %v", err)
	}

	items, err := repo.ListDevices(ctx, "tenant-a", DeviceFilter{Status: model.StatusDown})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].ID != down.ID {
		t.Fatalf("unexpected filter result: %+v", items)
	}

	items, err = repo.ListDevices(ctx, "tenant-a", DeviceFilter{Query: "north"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Name != "ap-north" {
		t.Fatalf("unexpected query result: %+v", items)
	}
}

func TestPatchDeviceClearsParent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, ctx)
	parent := seedDevice(t, ctx, repo, "tenant-a", "sector", nil)
	child := seedDevice(t, ctx, repo, "tenant-a", "cpe", &parent.ID)

	empty := ""
	if err := repo.PatchDevice(ctx, "tenant-a", child.ID, nil, nil, &empty); err != nil {
		t.Fatalf("patch: %v", err)
	}
	got, err := repo.DeviceByID(ctx, "tenant-a", child.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ParentID != nil {
		t.Fatalf("expected cleared parent, got %v", *got.ParentID)
	}
}

func TestCoreRouterLookup(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, ctx)
	now := time.Now().UTC()

	edge := model.Router{ID: uuid.NewString(), TenantID: "tenant-a", Name: "edge", Host: "10.0.0.2",
		Username: "api", PasswordEnc: "x", CreatedAt: now, UpdatedAt: now}
	core := model.Router{ID: uuid.NewString(), TenantID: "tenant-a", Name: "core", Host: "10.0.0.1",
		Username: "api", PasswordEnc: "x", IsCore: true, CreatedAt: now, UpdatedAt: now}
	for _, router := range []model.Router{edge, core} {
		if err := repo.CreateRouter(ctx, router); err != nil {
			t.Fatalf("seed router: %v", err)
		}
	}

	got, err := repo.CoreRouter(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("core router: %v", err)
	}
	if got.ID != core.ID {
		t.Fatalf("expected core router, got %s", got.Name)
	}

	if _, err := repo.CoreRouter(ctx, "tenant-b"); err == nil {
		t.Fatalf("expected not found for tenant without core router")
	}
}

func TestTenantEmailsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t, ctx)
	tenant := model.Tenant{ID: "tenant-a", Name: "North ISP", AdminEmails: []string{"ops@example.net"}, CreatedAt: time.Now().UTC()}
	if err := repo.CreateTenant(ctx, tenant); err != nil {
		t.Fatalf("create tenant: %v", err)
	}

	got, err := repo.TenantByID(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if len(got.AdminEmails) != 1 || got.AdminEmails[0] != "ops@example.net" {
		t.Fatalf("unexpected emails %+v", got.AdminEmails)
	}

	if err := repo.UpdateTenantEmails(ctx, "tenant-a", nil); err != nil {
		t.Fatalf("update emails: %v", err)
	}
	got, err = repo.TenantByID(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("get tenant: %v", err)
	}
	if len(got.AdminEmails) != 0 {
		t.Fatalf("expected cleared emails, got %+v", got.AdminEmails)
	}
}
