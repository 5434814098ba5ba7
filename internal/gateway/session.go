package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const maxMessageSize = 4096

// session is one live websocket connection. Commands are handled on the
// read goroutine; outbound events go through the send channel so the
// write side never contends with command handling.
type session struct {
	gw     *Gateway
	conn   *websocket.Conn
	logger *slog.Logger

	send chan Event
	done chan struct{}

	closeOnce sync.Once

	// Identity bound by register/login. Guarded by mu; read by the fanout
	// goroutines indirectly through subscription state only.
	mu          sync.Mutex
	email       string
	displayName string
	room        string // Subscribed room ID, empty if none
}

func newSession(gw *Gateway, conn *websocket.Conn) *session {
	return &session{
		gw:     gw,
		conn:   conn,
		logger: gw.logger.With("remote", conn.RemoteAddr().String()),
		send:   make(chan Event, gw.cfg.SendBuffer),
		done:   make(chan struct{}),
	}
}

// identity returns the bound email and display name, or ok=false if the
// connection has not authenticated.
func (s *session) identity() (email, displayName string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.email, s.displayName, s.email != ""
}

func (s *session) bind(email, displayName string) {
	s.mu.Lock()
	s.email = email
	s.displayName = displayName
	s.mu.Unlock()
}

func (s *session) subscribedRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *session) setRoom(room string) {
	s.mu.Lock()
	s.room = room
	s.mu.Unlock()
}

// deliver queues an event for the write pump. A full buffer means the
// client cannot keep up; the connection is dropped rather than letting it
// stall broadcasts.
func (s *session) deliver(ev Event) {
	select {
	case s.send <- ev:
	case <-s.done:
	default:
		s.logger.Warn("send buffer full, dropping connection")
		s.close()
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// readPump reads and dispatches commands until the connection drops.
func (s *session) readPump() {
	defer func() {
		s.gw.detach(s)
		s.close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.gw.cfg.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.gw.cfg.PongTimeout))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("read failed", "error", err)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.deliver(errorEvent(CodeValidation, "malformed command"))
			continue
		}
		s.gw.dispatch(s, cmd)
	}
}

// writePump serializes all writes to the connection and keeps it alive
// with periodic pings.
func (s *session) writePump() {
	ticker := time.NewTicker(s.gw.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case <-s.done:
			return
		case ev := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(s.gw.cfg.WriteTimeout))
			if err := s.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.gw.cfg.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
