// bidstorm drives a bidblazed server with synthetic players for load
// testing. Each player registers, joins a room, and bids at a fixed rate
// until the run duration elapses. Fresh players carry a zero balance, so
// bids are declined, which still exercises the full gateway-ledger-engine
// path; fund the accounts beforehand to measure accepted-bid throughput.
// Usage: go run ./cmd/bidstorm --url ws://localhost:8080/ws --players 50
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/gateway"
)

type stats struct {
	bids      atomic.Int64
	accepted  atomic.Int64
	declined  atomic.Int64
	snapshots atomic.Int64
}

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "gateway websocket URL")
	roomID := flag.String("room", "bronze", "room to storm")
	players := flag.Int("players", 10, "concurrent synthetic players")
	bidEvery := flag.Duration("bid-every", 2*time.Second, "mean delay between bids per player")
	duration := flag.Duration("duration", time.Minute, "total run time")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	runID := time.Now().UnixNano()
	var st stats
	var wg sync.WaitGroup

	logger.Info("storm starting",
		"url", *url,
		"room", *roomID,
		"players", *players,
		"duration", *duration,
	)

	for i := 0; i < *players; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := runPlayer(ctx, *url, *roomID, runID, n, *bidEvery, &st); err != nil {
				logger.Warn("player exited", "player", n, "error", err)
			}
		}(i)
	}

	wg.Wait()

	logger.Info("storm finished",
		"bids", st.bids.Load(),
		"accepted", st.accepted.Load(),
		"declined", st.declined.Load(),
		"snapshots", st.snapshots.Load(),
	)
}

// runPlayer is one synthetic client: register, join, bid on a jittered
// interval, count what comes back.
func runPlayer(ctx context.Context, url, roomID string, runID int64, n int, bidEvery time.Duration, st *stats) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	email := fmt.Sprintf("storm-%d-%d@load.test", runID, n)
	if err := conn.WriteJSON(gateway.Command{
		Type:        gateway.CmdRegister,
		Email:       email,
		DisplayName: fmt.Sprintf("storm-%d", n),
		Password:    "storm-password",
	}); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if err := conn.WriteJSON(gateway.Command{Type: gateway.CmdJoinRoom, Room: roomID}); err != nil {
		return fmt.Errorf("join: %w", err)
	}

	// Reader counts events until the connection drops.
	go func() {
		for {
			var ev gateway.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			switch ev.Type {
			case gateway.EvtRoomState:
				st.snapshots.Add(1)
			case gateway.EvtBalanceUpdate:
				st.accepted.Add(1)
			case gateway.EvtError:
				st.declined.Add(1)
			}
		}
	}()

	rng := rand.New(rand.NewSource(runID + int64(n)))
	for {
		jitter := time.Duration(rng.Int63n(int64(bidEvery)))
		select {
		case <-ctx.Done():
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			return nil
		case <-time.After(bidEvery/2 + jitter):
		}

		st.bids.Add(1)
		if err := conn.WriteJSON(gateway.Command{Type: gateway.CmdPlaceBid, Room: roomID}); err != nil {
			return fmt.Errorf("bid: %w", err)
		}
	}
}
