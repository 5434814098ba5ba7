// Package room holds the fixed set of auction rooms and drives their
// engine lifecycles as a unit.
package room

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/config"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/engine"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/journal"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/ledger"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/model"
)

// Registry owns one engine per configured room. The room set is fixed at
// startup; there is no dynamic add or remove.
type Registry struct {
	engines map[string]*engine.Engine
	order   []string // Config order, for stable iteration
	logger  *slog.Logger
}

// NewRegistry builds an engine for every configured room.
func NewRegistry(cfg config.GameConfig, rooms []config.RoomConfig, store ledger.Store, rec journal.Recorder, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		engines: make(map[string]*engine.Engine, len(rooms)),
		logger:  logger,
	}
	for _, rc := range rooms {
		roundDuration := cfg.RoundDuration
		if rc.RoundDuration > 0 {
			roundDuration = rc.RoundDuration
		}
		cooldown := cfg.Cooldown
		if rc.Cooldown > 0 {
			cooldown = rc.Cooldown
		}

		e := engine.New(engine.Config{
			Room:           rc.ID,
			BidCost:        model.Cents(rc.BidCost),
			BaseJackpot:    model.Cents(rc.BaseJackpot),
			Tick:           cfg.Tick,
			RoundDuration:  roundDuration,
			Cooldown:       cooldown,
			AntiSnipeFloor: cfg.AntiSnipeFloor,
			PayoutShareBps: cfg.PayoutShareBps,
		}, store, rec, logger)
		r.engines[rc.ID] = e
		r.order = append(r.order, rc.ID)
	}
	return r
}

// Get returns the engine for a room ID.
func (r *Registry) Get(id string) (*engine.Engine, bool) {
	e, ok := r.engines[id]
	return e, ok
}

// IDs returns the room IDs in config order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Each calls fn for every engine in config order.
func (r *Registry) Each(fn func(*engine.Engine)) {
	for _, id := range r.order {
		fn(r.engines[id])
	}
}

// StartAll starts every engine. If any fails, the ones already started
// are stopped before returning.
func (r *Registry) StartAll(ctx context.Context) error {
	var started []*engine.Engine
	for _, id := range r.order {
		e := r.engines[id]
		if err := e.Start(ctx); err != nil {
			for _, s := range started {
				_ = s.Stop(ctx)
			}
			return fmt.Errorf("starting room %s: %w", id, err)
		}
		started = append(started, e)
		r.logger.Info("room started", "room", id)
	}
	return nil
}

// StopAll stops every engine concurrently and waits for all of them.
func (r *Registry) StopAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range r.order {
		e := r.engines[id]
		g.Go(func() error {
			if err := e.Stop(ctx); err != nil {
				return fmt.Errorf("stopping room %s: %w", e.Room(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
