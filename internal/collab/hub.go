package collab

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	clientBuffer = 256
)

// Hub relays collaboration messages between websocket peers that joined the
// same workspace. It keeps no state beyond the live connections.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	room string
	send chan []byte
	once sync.Once
}

func (c *hubClient) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub creates an empty relay.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Peers are local workspace instances.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rooms: make(map[string]map[*hubClient]struct{}),
	}
}

// ServeHTTP upgrades the request and relays the peer's messages until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("workspace")
	if room == "" {
		room = "default"
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Collaboration upgrade failed: %v", err)
		return
	}

	client := &hubClient{conn: conn, room: room, send: make(chan []byte, clientBuffer)}
	h.register(client)
	go h.writePump(client)
	h.readPump(client)
}

// Clients returns the number of peers connected to room.
func (h *Hub) Clients(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// Close disconnects every peer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, clients := range h.rooms {
		for c := range clients {
			c.close()
		}
		delete(h.rooms, room)
	}
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.room] == nil {
		h.rooms[c.room] = make(map[*hubClient]struct{})
	}
	h.rooms[c.room][c] = struct{}{}
	log.Printf("Collaborator joined workspace %s (%d connected)", c.room, len(h.rooms[c.room]))
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.rooms[c.room]; ok {
		if _, ok := clients[c]; ok {
			delete(clients, c)
			c.close()
		}
		if len(clients) == 0 {
			delete(h.rooms, c.room)
		}
	}
}

// relay forwards data to every other peer in the sender's room. Peers with a
// full buffer miss the message.
func (h *Hub) relay(from *hubClient, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[from.room] {
		if c == from {
			continue
		}
		select {
		case c.send <- data:
		default:
			log.Printf("Collaborator buffer full in workspace %s, message dropped", c.room)
		}
	}
}

func (h *Hub) readPump(c *hubClient) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Collaborator connection error: %v", err)
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.SenderID == "" {
			log.Printf("Dropping malformed collaboration message")
			continue
		}
		h.relay(c, data)
	}
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
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
