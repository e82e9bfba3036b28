package notification

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

// Hub tracks live websocket connections per user and pushes envelopes to
// them. A user may hold several connections (multiple tabs); each gets every
// frame. Delivery is best-effort: a slow or gone connection is dropped, never
// waited on.
type Hub struct {
	mu      sync.Mutex
	clients map[int64]map[*client]bool

	checkOrigin func(r *http.Request) bool
}

type client struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
}

// NewHub creates a hub. checkOrigin guards the websocket upgrade; pass nil to
// accept same-host origins only.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		clients:     map[int64]map[*client]bool{},
		checkOrigin: checkOrigin,
	}
}

// Serve upgrades the request and pumps frames until the peer goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID int64) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed for user %d: %v", userID, err)
		return
	}

	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.add(c)
	go c.writePump()
	c.readPump(h)
}

// Push serializes the envelope and queues it for every live connection of
// each recipient. Recipients without a connection are skipped.
func (h *Hub) Push(recipients []int64, env *Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("failed to marshal notification envelope: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range recipients {
		for c := range h.clients[id] {
			select {
			case c.send <- data:
			default:
				// Buffer full: the reader is stuck, cut it loose.
				h.removeLocked(c)
			}
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = map[*client]bool{}
	}
	h.clients[c.userID][c] = true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	conns := h.clients[c.userID]
	if !conns[c] {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// Clients only receive; inbound frames are drained for pongs.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
