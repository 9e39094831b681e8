package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
	"github.com/yahya-ubnt/IMSys-sub002/internal/storage"
)

type deviceInput struct {
	Name       string  `json:"name"`
	MAC        string  `json:"mac"`
	IP         string  `json:"ip"`
	DeviceType string  `json:"device_type"`
	ParentID   *string `json:"parent_id"`
}

func (a *API) createDevice(w http.ResponseWriter, r *http.Request) {
	var payload deviceInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	if strings.TrimSpace(payload.IP) == "" {
		writeError(w, http.StatusBadRequest, "missing_ip", "ip is required")
		return
	}
	deviceType := payload.DeviceType
	if deviceType != model.DeviceTypeAccess && deviceType != model.DeviceTypeStation {
		writeError(w, http.StatusBadRequest, "invalid_device_type", "device_type must be Access or Station")
		return
	}

	now := time.Now().UTC()
	device := model.Device{
		ID:          uuid.NewString(),
		TenantID:    tenantID(r),
		Name:        strings.TrimSpace(payload.Name),
		MAC:         strings.ToUpper(strings.TrimSpace(payload.MAC)),
		IP:          strings.TrimSpace(payload.IP),
		DeviceType:  deviceType,
		Status:      model.StatusUp,
		StatusLabel: model.LabelUp,
		ParentID:    payload.ParentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.repo.CreateDevice(r.Context(), device); err != nil {
		writeError(w, http.StatusInternalServerError, "create_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, device)
}

func (a *API) listDevices(w http.ResponseWriter, r *http.Request) {
	filter := storage.DeviceFilter{
		Status:     r.URL.Query().Get("status"),
		DeviceType: r.URL.Query().Get("type"),
		Query:      r.URL.Query().Get("query"),
	}
	items, err := a.repo.ListDevices(r.Context(), tenantID(r), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) getDevice(w http.ResponseWriter, r *http.Request) {
	item, err := a.repo.DeviceByID(r.Context(), tenantID(r), chi.URLParam(r, "deviceID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Device not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) patchDevice(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     *string `json:"name"`
		IP       *string `json:"ip"`
		ParentID *string `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	err := a.repo.PatchDevice(r.Context(), tenantID(r), chi.URLParam(r, "deviceID"), payload.Name, payload.IP, payload.ParentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Device not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "patch_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) deviceDowntime(w http.ResponseWriter, r *http.Request) {
	items, err := a.repo.ListDeviceDowntime(r.Context(), tenantID(r), chi.URLParam(r, "deviceID"), queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
