package httpapi

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const tenantKey contextKey = "tenant"

// requireTenant scopes the request to the tenant named by X-Tenant-ID.
func requireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant := strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
		if tenant == "" {
			writeError(w, http.StatusBadRequest, "missing_tenant", "X-Tenant-ID header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), tenantKey, tenant)))
	})
}

func tenantID(r *http.Request) string {
	tenant, _ := r.Context().Value(tenantKey).(string)
	return tenant
}
