package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"sky-sprint/internal/store"
)

const (
	// MaxWSConnectionsTotal caps WebSocket connections across all rooms.
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP caps WebSocket connections per IP.
	MaxWSConnectionsPerIP = 10

	// feedBufferSize is the per-client outbound queue. Slow readers drop
	// events rather than stall the store's watch path.
	feedBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}
		log.Printf("websocket rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// FeedStore is the slice of the room store the feed hub needs.
type FeedStore interface {
	GetRoom(roomID string) (store.Room, error)
	WatchRoom(roomID string, cb func(store.Room)) (store.CancelFunc, error)
}

// feedEvent is the wire frame pushed to room feed clients.
type feedEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// feedClient is one connected spectator of a room.
type feedClient struct {
	conn   *websocket.Conn
	ip     string
	roomID string
	cancel store.CancelFunc

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// RoomFeedHub streams room snapshots over WebSocket. Each client attaches
// a store watch for its room; every room change becomes one outbound frame.
// Lobby UIs use this to show opponent joins, ready flips, and the finish.
type RoomFeedHub struct {
	store      FeedStore
	register   chan *feedClient
	unregister chan *feedClient

	mu      sync.RWMutex
	clients map[*feedClient]struct{}

	wsLimiter *WebSocketRateLimiter
}

// NewRoomFeedHub creates a hub with connection limiting. Call Run once
// before serving connections.
func NewRoomFeedHub(st FeedStore) *RoomFeedHub {
	return &RoomFeedHub{
		store:      st,
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		clients:    make(map[*feedClient]struct{}),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// Run processes client churn. Blocks; run it in a goroutine.
func (h *RoomFeedHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("feed client connected from %s for %s (%d total)",
				client.ip, client.roomID, count)
			UpdateWSConnections(count)

		case client := <-h.unregister:
			h.mu.Lock()
			_, present := h.clients[client]
			if present {
				delete(h.clients, client)
			}
			count := len(h.clients)
			h.mu.Unlock()

			if present {
				client.cancel()
				h.wsLimiter.Release(client.ip)
				client.close()
				client.conn.Close()
				log.Printf("feed client disconnected (%d remaining)", count)
				UpdateWSConnections(count)
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *RoomFeedHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleRoomFeed upgrades the request and streams room updates until the
// client disconnects. The room id comes from the URL path.
func (h *RoomFeedHub) HandleRoomFeed(w http.ResponseWriter, r *http.Request, roomID string) {
	ip := GetClientIP(r)

	if h.ClientCount() >= MaxWSConnectionsTotal {
		log.Printf("feed rejected: total limit reached")
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("feed rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	// The room must exist before we burn an upgrade on it.
	room, err := h.store.GetRoom(roomID)
	if err != nil {
		h.wsLimiter.Release(ip)
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}

	client := &feedClient{
		conn:   conn,
		ip:     ip,
		roomID: roomID,
		send:   make(chan []byte, feedBufferSize),
	}

	cancel, err := h.store.WatchRoom(roomID, func(r store.Room) {
		client.offer("room:update", r)
	})
	if err != nil {
		h.wsLimiter.Release(ip)
		conn.Close()
		return
	}
	client.cancel = cancel

	h.register <- client

	// Initial snapshot so the client does not wait for the next change.
	client.offer("room:snapshot", room)

	go h.writeLoop(client)
	go h.readLoop(client)
}

// offer queues one event, dropping it when the client's buffer is full or
// the client is already gone. The watch callback may still fire briefly
// after cancellation, hence the closed check under the lock.
func (c *feedClient) offer(event string, data interface{}) {
	payload, err := json.Marshal(feedEvent{Event: event, Data: data})
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *feedClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (h *RoomFeedHub) writeLoop(client *feedClient) {
	for payload := range client.send {
		if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			break
		}
		IncrementWSMessages()
	}
}

// readLoop drains inbound frames to detect disconnects. Clients send
// nothing meaningful; the feed is one-way.
func (h *RoomFeedHub) readLoop(client *feedClient) {
	defer func() {
		h.unregister <- client
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}
