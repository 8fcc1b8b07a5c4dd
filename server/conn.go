package server

import (
	"sync"

	"github.com/gorilla/websocket"
)

// wsStream wraps a websocket connection as a registry.Stream. Gorilla
// permits only one concurrent writer per connection, so sends serialize on
// a mutex; per-stream outbound order follows from it.
type wsStream struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSStream(conn *websocket.Conn) *wsStream {
	return &wsStream{conn: conn}
}

func (s *wsStream) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}
