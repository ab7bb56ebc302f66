package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"centralis.org/internal/obs"
)

const eventsHeartbeat = 25 * time.Second

// handleEvents streams applied transitions as Server-Sent Events until the
// client disconnects.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params, actor string) {
	rc := http.NewResponseController(w)
	// Long-lived response; the server write timeout does not apply.
	_ = rc.SetWriteDeadline(time.Time{})

	ctx := r.Context()
	events := a.opts.Events.Subscribe(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": stream started\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		obs.Error("events_flush_unsupported", err, map[string]any{"actor": actor})
		return
	}

	heartbeat := time.NewTicker(eventsHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case evt, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: transition\ndata: %s\n\n", data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
