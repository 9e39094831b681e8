package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// websocket attaches a client to its tenant's alert room. The tenant comes
// from the query string because browser websocket clients cannot set headers.
func (a *API) websocket(w http.ResponseWriter, r *http.Request) {
	tenant := strings.TrimSpace(r.URL.Query().Get("tenant"))
	if tenant == "" {
		tenant = strings.TrimSpace(r.Header.Get("X-Tenant-ID"))
	}
	if tenant == "" {
		writeError(w, http.StatusBadRequest, "missing_tenant", "tenant query parameter is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	a.hub.Register(tenant, conn)

	go func() {
		defer a.hub.Unregister(tenant, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
