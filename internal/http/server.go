// Package httpapi exposes the REST and streaming surface: tenant-scoped
// CRUD, downtime history, diagnostics over SSE and the alert websocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yahya-ubnt/IMSys-sub002/internal/alert"
	"github.com/yahya-ubnt/IMSys-sub002/internal/diagnostic"
	"github.com/yahya-ubnt/IMSys-sub002/internal/monitor"
	"github.com/yahya-ubnt/IMSys-sub002/internal/storage"
)

// Refresher triggers an out-of-schedule sweep.
type Refresher interface {
	TriggerRefresh()
}

// SecretEncrypter protects router credentials before they reach storage.
type SecretEncrypter interface {
	Encrypt(plain string) (string, error)
}

type API struct {
	repo    *storage.Repository
	monitor *monitor.Service
	diags   *diagnostic.Service
	sched   Refresher
	hub     *alert.Hub
	secrets SecretEncrypter
	logger  *slog.Logger
}

func New(repo *storage.Repository, mon *monitor.Service, diags *diagnostic.Service, sched Refresher, hub *alert.Hub, secrets SecretEncrypter, logger *slog.Logger) *API {
	return &API{repo: repo, monitor: mon, diags: diags, sched: sched, hub: hub, secrets: secrets, logger: logger}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.health)
	r.Get("/ws", a.websocket)

	r.Route("/api", func(api chi.Router) {
		api.Post("/tenants", a.createTenant)
		api.Get("/tenants", a.listTenants)

		api.Group(func(tenant chi.Router) {
			tenant.Use(requireTenant)

			tenant.Put("/tenants/emails", a.updateTenantEmails)

			tenant.Post("/routers", a.createRouter)
			tenant.Get("/routers", a.listRouters)
			tenant.Get("/routers/{routerID}", a.getRouter)

			tenant.Post("/devices", a.createDevice)
			tenant.Get("/devices", a.listDevices)
			tenant.Get("/devices/{deviceID}", a.getDevice)
			tenant.Patch("/devices/{deviceID}", a.patchDevice)
			tenant.Get("/devices/{deviceID}/downtime", a.deviceDowntime)
			tenant.Post("/devices/{deviceID}/root-cause", a.rootCause)

			tenant.Post("/subscribers", a.createSubscriber)
			tenant.Get("/subscribers", a.listSubscribers)
			tenant.Get("/subscribers/{subscriberID}", a.getSubscriber)
			tenant.Patch("/subscribers/{subscriberID}", a.patchSubscriber)
			tenant.Get("/subscribers/{subscriberID}/downtime", a.subscriberDowntime)
			tenant.Get("/subscribers/{subscriberID}/diagnostics", a.listDiagnostics)
			tenant.Post("/subscribers/{subscriberID}/diagnostics", a.runDiagnostics)
			tenant.Get("/subscribers/{subscriberID}/diagnostics/stream", a.streamDiagnostics)

			tenant.Get("/diagnostics/{logID}", a.getDiagnostic)
			tenant.Get("/notifications", a.listNotifications)
			tenant.Post("/refresh", a.refresh)
		})
	})
	return r
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) refresh(w http.ResponseWriter, _ *http.Request) {
	a.sched.TriggerRefresh()
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	items, err := a.repo.ListNotifications(r.Context(), tenantID(r), queryLimit(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) rootCause(w http.ResponseWriter, r *http.Request) {
	result, err := a.monitor.VerifyRootCause(r.Context(), tenantID(r), chi.URLParam(r, "deviceID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Device or core router not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "walk_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) listDiagnostics(w http.ResponseWriter, r *http.Request) {
	items, err := a.repo.ListDiagnosticLogs(r.Context(), tenantID(r), chi.URLParam(r, "subscriberID"), queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) getDiagnostic(w http.ResponseWriter, r *http.Request) {
	item, err := a.repo.DiagnosticLogByID(r.Context(), tenantID(r), chi.URLParam(r, "logID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Diagnostic run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func queryLimit(r *http.Request, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

// RunServer serves until ctx is cancelled, then drains with a grace period.
func RunServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", "err", err)
			return err
		}
		return nil
	}
}
