package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dispatchd/internal/hub"
)

const sseHeartbeat = 15 * time.Second

// sseClient buffers notifications for one event-stream response. A full
// buffer means the client stopped reading; the send fails and the hub drops
// the client.
type sseClient struct {
	ch chan hub.Notification
}

func (c *sseClient) Send(n hub.Notification) error {
	select {
	case c.ch <- n:
		return nil
	default:
		return errors.New("client not draining")
	}
}

// OptimizationEventsHandler streams route-changed notifications as
// server-sent events, one notification per flush. There is no replay; clients
// that connect late rely on the next state read. GET /api/optimization-events
func (s *Server) OptimizationEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := &sseClient{ch: make(chan hub.Notification, 8)}
	s.Hub.Register(client)
	defer s.Hub.Unregister(client)

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	done := r.Context().Done()
	for {
		select {
		case <-done:
			return
		case n := <-client.ch:
			b, err := json.Marshal(n)
			if err != nil {
				s.Log.Errorf("encode notification: %v", err)
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
