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

type routerInput struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Username string `json:"username"`
	Password string `json:"password"`
	IsCore   bool   `json:"is_core"`
}

func (a *API) createRouter(w http.ResponseWriter, r *http.Request) {
	var payload routerInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	if strings.TrimSpace(payload.Host) == "" || strings.TrimSpace(payload.Username) == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "host and username are required")
		return
	}

	enc, err := a.secrets.Encrypt(payload.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encrypt_failed", err.Error())
		return
	}
	now := time.Now().UTC()
	router := model.Router{
		ID:          uuid.NewString(),
		TenantID:    tenantID(r),
		Name:        strings.TrimSpace(payload.Name),
		Host:        strings.TrimSpace(payload.Host),
		Username:    strings.TrimSpace(payload.Username),
		PasswordEnc: enc,
		IsCore:      payload.IsCore,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.repo.CreateRouter(r.Context(), router); err != nil {
		writeError(w, http.StatusInternalServerError, "create_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, router)
}

func (a *API) listRouters(w http.ResponseWriter, r *http.Request) {
	items, err := a.repo.ListRouters(r.Context(), tenantID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) getRouter(w http.ResponseWriter, r *http.Request) {
	item, err := a.repo.RouterByID(r.Context(), tenantID(r), chi.URLParam(r, "routerID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Router not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, item)
}
