package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
	"github.com/yahya-ubnt/IMSys-sub002/internal/storage"
)

type subscriberInput struct {
	RouterID   string  `json:"router_id"`
	Username   string  `json:"username"`
	Service    string  `json:"service"`
	IP         string  `json:"ip"`
	StationID  *string `json:"station_id"`
	Building   string  `json:"building"`
	ExpiryDate string  `json:"expiry_date"`
}

func (a *API) createSubscriber(w http.ResponseWriter, r *http.Request) {
	var payload subscriberInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	if strings.TrimSpace(payload.RouterID) == "" || strings.TrimSpace(payload.Username) == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "router_id and username are required")
		return
	}
	if payload.Service != model.ServicePPP && payload.Service != model.ServiceStatic {
		writeError(w, http.StatusBadRequest, "invalid_service", "service must be ppp or static")
		return
	}
	if payload.Service == model.ServiceStatic && strings.TrimSpace(payload.IP) == "" {
		writeError(w, http.StatusBadRequest, "missing_ip", "static subscribers need an ip")
		return
	}
	expiry, err := time.Parse("2006-01-02", payload.ExpiryDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_expiry", "expiry_date must be YYYY-MM-DD")
		return
	}

	now := time.Now().UTC()
	sub := model.Subscriber{
		ID:          uuid.NewString(),
		TenantID:    tenantID(r),
		RouterID:    payload.RouterID,
		Username:    strings.TrimSpace(payload.Username),
		Service:     payload.Service,
		IP:          strings.TrimSpace(payload.IP),
		StationID:   payload.StationID,
		Building:    strings.TrimSpace(payload.Building),
		ExpiryDate:  expiry,
		Online:      false,
		StatusLabel: model.LabelOffline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.repo.CreateSubscriber(r.Context(), sub); err != nil {
		writeError(w, http.StatusInternalServerError, "create_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (a *API) listSubscribers(w http.ResponseWriter, r *http.Request) {
	filter := storage.SubscriberFilter{RouterID: r.URL.Query().Get("router_id")}
	if raw := strings.TrimSpace(r.URL.Query().Get("online")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_online_filter", "online must be true or false")
			return
		}
		filter.Online = &value
	}
	items, err := a.repo.ListSubscribers(r.Context(), tenantID(r), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) getSubscriber(w http.ResponseWriter, r *http.Request) {
	item, err := a.repo.SubscriberByID(r.Context(), tenantID(r), chi.URLParam(r, "subscriberID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Subscriber not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (a *API) patchSubscriber(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IP         *string `json:"ip"`
		Building   *string `json:"building"`
		ExpiryDate *string `json:"expiry_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	var expiry *time.Time
	if payload.ExpiryDate != nil {
		parsed, err := time.Parse("2006-01-02", *payload.ExpiryDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_expiry", "expiry_date must be YYYY-MM-DD")
			return
		}
		expiry = &parsed
	}
	err := a.repo.PatchSubscriber(r.Context(), tenantID(r), chi.URLParam(r, "subscriberID"), payload.IP, payload.Building, expiry)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Subscriber not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "patch_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) subscriberDowntime(w http.ResponseWriter, r *http.Request) {
	items, err := a.repo.ListSubscriberDowntime(r.Context(), tenantID(r), chi.URLParam(r, "subscriberID"), queryLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
