package httpadapter

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/podoring/wine-search/internal/infrastructure/broadcast"
)

// liveEvents streams recommendation events over SSE. Each connection gets a
// connected frame immediately, then data frames per publish, with comment
// keepalives so idle kiosk displays hold the connection through proxies.
func (rt *Router) liveEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	subscriberID, events, unsubscribe := rt.live.Subscribe()
	defer unsubscribe()

	annotateLog(r.Context(), "subscriber_id", subscriberID)
	slog.Info("live_subscriber_connected",
		"subscriber_id", subscriberID,
		"request_id", requestIDFromContext(r.Context()),
	)

	writeEvent := func(event broadcast.Event) bool {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", event.Encode()); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !writeEvent(broadcast.Event{Type: broadcast.EventConnected}) {
		return
	}

	keepalive := time.NewTicker(rt.cfg.SSEKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			slog.Info("live_subscriber_disconnected", "subscriber_id", subscriberID)
			return
		case event := <-events:
			if !writeEvent(event) {
				return
			}
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
