// Package statswatch pushes collection.StatsEvent notifications to
// connected monitoring clients over a websocket. This is an observability
// side channel: nothing in the query/index/delete path depends on it. The
// channel is push-only, clients never send anything but the initial
// upgrade request.
package statswatch

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/simsearch/simsearch/internal/collection"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event is the JSON shape pushed to every connected client.
type Event struct {
	N    int            `json:"n"`
	DF   map[string]int `json:"df"`
	Root bool           `json:"root"`
}

// Manager tracks connected monitoring clients and broadcasts stats events
// to all of them.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*websocket.Conn
}

// NewManager builds an empty Manager.
func NewManager() *Manager {
	return &Manager{clients: make(map[string]*websocket.Conn)}
}

// HandleWS upgrades the request to a websocket and registers it to receive
// broadcast stats events until the connection closes. It reads nothing but
// the close frame: this is a push-only channel.
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("statswatch: upgrade: %v", err)
		return
	}

	id := fmt.Sprintf("stats-%d", time.Now().UnixNano())
	m.mu.Lock()
	m.clients[id] = conn
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.clients, id)
		m.mu.Unlock()
		conn.Close()
	}()

	// Drain and discard incoming frames until the client disconnects; this
	// is what detects the close so the connection gets deregistered.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Notify broadcasts ev to every connected client, matching
// collection.Collection's SetStatsListener signature. A failed write is
// logged and skipped; the connection stays registered until its HandleWS
// read loop sees the disconnect and removes it.
func (m *Manager) Notify(ev collection.StatsEvent) {
	payload := Event{N: ev.N, DF: ev.DF, Root: ev.Root}

	m.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(m.clients))
	for _, c := range m.clients {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(payload); err != nil {
			log.Printf("statswatch: write: %v", err)
		}
	}
}

// Close closes every connected client, used on server shutdown.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, conn := range m.clients {
		conn.Close()
		delete(m.clients, id)
	}
	return nil
}
