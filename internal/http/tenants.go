package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
)

type tenantInput struct {
	Name        string   `json:"name"`
	AdminEmails []string `json:"admin_emails"`
}

func (a *API) createTenant(w http.ResponseWriter, r *http.Request) {
	var payload tenantInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		writeError(w, http.StatusBadRequest, "missing_name", "name is required")
		return
	}

	tenant := model.Tenant{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(payload.Name),
		AdminEmails: payload.AdminEmails,
		CreatedAt:   time.Now().UTC(),
	}
	if err := a.repo.CreateTenant(r.Context(), tenant); err != nil {
		writeError(w, http.StatusInternalServerError, "create_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

func (a *API) listTenants(w http.ResponseWriter, r *http.Request) {
	items, err := a.repo.ListTenants(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) updateTenantEmails(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AdminEmails []string `json:"admin_emails"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "Invalid JSON payload")
		return
	}
	if err := a.repo.UpdateTenantEmails(r.Context(), tenantID(r), payload.AdminEmails); err != nil {
		writeError(w, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
