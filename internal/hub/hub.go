package hub

import (
	"sync"

	"dispatchd/internal/logger"
	"dispatchd/internal/metrics"
)

// Notification is the payload pushed to clients when a vehicle's route changed.
type Notification struct {
	VehicleID string `json:"vehicleId"`
}

// Client is one connected listener. Send must not block indefinitely; a send
// error removes the client from the hub.
type Client interface {
	Send(Notification) error
}

// Hub fans a notification out to every registered client. There is no history:
// a client connecting after a broadcast simply misses it.
type Hub struct {
	mu      sync.Mutex
	clients map[Client]struct{}
	log     logger.Logger
}

func New(log logger.Logger) *Hub {
	return &Hub{clients: map[Client]struct{}{}, log: log}
}

func (h *Hub) Register(c Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister is safe to call from a connection-closed callback while a
// broadcast is in progress.
func (h *Hub) Unregister(c Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Broadcast delivers the notification to every registered client. A failed
// send removes that client and does not abort delivery to the others.
func (h *Hub) Broadcast(vehicleID string) {
	n := Notification{VehicleID: vehicleID}

	h.mu.Lock()
	targets := make([]Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	var failed []Client
	for _, c := range targets {
		if err := c.Send(n); err != nil {
			h.log.Warnf("dropping client after failed send: %v", err)
			failed = append(failed, c)
			continue
		}
		metrics.BroadcastDelivered.Inc()
	}
	if len(failed) > 0 {
		h.mu.Lock()
		for _, c := range failed {
			delete(h.clients, c)
		}
		h.mu.Unlock()
		metrics.BroadcastDropped.Add(float64(len(failed)))
	}
}

// Len reports the number of registered clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
