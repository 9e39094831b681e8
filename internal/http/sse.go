package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yahya-ubnt/IMSys-sub002/internal/diagnostic"
	"github.com/yahya-ubnt/IMSys-sub002/internal/model"
	"github.com/yahya-ubnt/IMSys-sub002/internal/storage"
)

// eventStream frames server-sent events and flushes after every write so the
// client sees each step as it completes.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &eventStream{w: w, flusher: flusher}, true
}

func (s *eventStream) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// runDiagnostics executes the full pipeline and returns the buffered run.
func (a *API) runDiagnostics(w http.ResponseWriter, r *http.Request) {
	run, err := a.diags.RunAndWait(r.Context(), tenantID(r), chi.URLParam(r, "subscriberID"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Subscriber not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "run_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// streamDiagnostics runs the pipeline and pushes each step over SSE. The run
// itself is detached from the request context: a client that disconnects
// mid-run still gets a complete, persisted diagnostic record.
func (a *API) streamDiagnostics(w http.ResponseWriter, r *http.Request) {
	subscriberID := chi.URLParam(r, "subscriberID")
	tenant := tenantID(r)

	stream, ok := newEventStream(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming")
		return
	}
	_ = stream.send("start", map[string]any{"subscriber_id": subscriberID})

	ctx := context.WithoutCancel(r.Context())
	run, err := a.diags.Run(ctx, tenant, subscriberID, diagnostic.SinkFunc(func(step model.DiagnosticStep) {
		_ = stream.send("step", step)
	}))
	if err != nil {
		_ = stream.send("error", map[string]any{"message": err.Error()})
		return
	}
	_ = stream.send("done", run)
}
