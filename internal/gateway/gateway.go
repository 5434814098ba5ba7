// Package gateway is the websocket boundary: it upgrades connections,
// binds identities, routes commands to the room engines and the ledger,
// and fans room snapshots out to subscribers on every engine tick.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/auth"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/chain"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/config"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/engine"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/ledger"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/room"
)

// Gateway owns all live sessions and the per-room snapshot fan-out.
type Gateway struct {
	cfg      config.HTTPConfig
	rooms    *room.Registry
	store    ledger.Store
	verifier chain.Verifier
	auth     *auth.Service
	treasury string
	logger   *slog.Logger

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*session]struct{}
	subs     map[string]map[*session]struct{}

	presence atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Gateway over the given rooms and backends.
func New(cfg config.HTTPConfig, rooms *room.Registry, store ledger.Store, verifier chain.Verifier, authSvc *auth.Service, treasury string, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = config.DefaultWriteTimeout
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = config.DefaultPingInterval
	}
	if cfg.PongTimeout == 0 {
		cfg.PongTimeout = config.DefaultPongTimeout
	}
	if cfg.SendBuffer == 0 {
		cfg.SendBuffer = config.DefaultSendBuffer
	}

	return &Gateway{
		cfg:      cfg,
		rooms:    rooms,
		store:    store,
		verifier: verifier,
		auth:     authSvc,
		treasury: treasury,
		logger:   logger.With("component", "gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The browser client is served from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[*session]struct{}),
		subs:     make(map[string]map[*session]struct{}),
	}
}

// Start launches one fan-out goroutine per room engine.
func (g *Gateway) Start(ctx context.Context) error {
	g.ctx, g.cancel = context.WithCancel(ctx)

	g.rooms.Each(func(e *engine.Engine) {
		g.wg.Add(1)
		go func() {
			defer g.wg.Done()
			g.fanout(e)
		}()
	})

	g.logger.Info("gateway started")
	return nil
}

// Stop halts fan-out and closes every live session.
func (g *Gateway) Stop(ctx context.Context) error {
	g.cancel()

	g.mu.Lock()
	for s := range g.sessions {
		s.close()
	}
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.logger.Info("gateway stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Presence returns the approximate live connection count.
func (g *Gateway) Presence() int64 {
	return g.presence.Load()
}

// ServeHTTP upgrades the request and runs the session pumps.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s := newSession(g, conn)

	g.mu.Lock()
	g.sessions[s] = struct{}{}
	g.mu.Unlock()
	g.presence.Add(1)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		s.writePump()
	}()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.presence.Add(-1)
		s.readPump()
	}()
}

// fanout pushes each snapshot from one engine to the room's subscribers.
func (g *Gateway) fanout(e *engine.Engine) {
	snapshots := e.Snapshots()
	for {
		select {
		case <-g.ctx.Done():
			return
		case snap := <-snapshots:
			ev := Event{
				Type:     EvtRoomState,
				State:    &snap,
				Presence: g.presence.Load(),
			}

			g.mu.Lock()
			for s := range g.subs[snap.Room] {
				s.deliver(ev)
			}
			g.mu.Unlock()
		}
	}
}

// subscribe moves the session onto a room, replacing any previous
// subscription. One room per connection.
func (g *Gateway) subscribe(s *session, roomID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev := s.subscribedRoom(); prev != "" {
		delete(g.subs[prev], s)
	}
	set, ok := g.subs[roomID]
	if !ok {
		set = make(map[*session]struct{})
		g.subs[roomID] = set
	}
	set[s] = struct{}{}
	s.setRoom(roomID)
}

func (g *Gateway) unsubscribe(s *session) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev := s.subscribedRoom(); prev != "" {
		delete(g.subs[prev], s)
		s.setRoom("")
	}
}

// detach drops all state for a closing session.
func (g *Gateway) detach(s *session) {
	g.unsubscribe(s)

	g.mu.Lock()
	delete(g.sessions, s)
	g.mu.Unlock()
}
