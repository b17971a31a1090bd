package statswatch

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/simsearch/simsearch/internal/collection"
)

func TestManagerBroadcastsStatsEvent(t *testing.T) {
	m := NewManager()
	defer m.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/_ws/stats", m.HandleWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/_ws/stats"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the server a moment to register the connection before
	// broadcasting, since the upgrade and registration race the dial
	// returning on the client side.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		m.mu.RLock()
		n := len(m.clients)
		m.mu.RUnlock()
		if n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.Notify(collection.StatsEvent{N: 3, DF: map[string]int{"hello": 2}, Root: true})

	var got Event
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.N != 3 || got.DF["hello"] != 2 || !got.Root {
		t.Errorf("got %+v, want {N:3 DF:map[hello:2] Root:true}", got)
	}
}
