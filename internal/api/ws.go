package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dispatchd/internal/hub"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const wsWriteTimeout = 5 * time.Second

// wsClient serializes hub sends onto one websocket connection.
type wsClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsClient) Send(n hub.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(n)
}

// WSHandler pushes route-changed notifications over a websocket as JSON
// frames. Incoming frames are discarded; the read loop only detects the close.
// GET /api/ws
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn}
	s.Hub.Register(client)
	defer func() {
		s.Hub.Unregister(client)
		_ = conn.Close()
	}()

	conn.SetReadLimit(1 << 16)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
