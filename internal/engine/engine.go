package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/journal"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/ledger"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/model"
)

// ErrRoundClosed is returned for bids placed outside an ACTIVE round.
var ErrRoundClosed = errors.New("round is not accepting bids")

// Config holds one room's engine settings.
type Config struct {
	Room           string
	BidCost        model.Cents
	BaseJackpot    model.Cents
	Tick           time.Duration
	RoundDuration  time.Duration
	Cooldown       time.Duration
	AntiSnipeFloor time.Duration
	PayoutShareBps int
}

// Engine runs one room's auction. See the package doc for the ownership and
// serialization model.
type Engine struct {
	cfg     Config
	store   ledger.Store
	journal journal.Recorder
	logger  *slog.Logger

	mu sync.Mutex
	st roundState

	snapshots chan model.RoundSnapshot

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
}

// New creates an engine for one room.
func New(cfg Config, store ledger.Store, rec journal.Recorder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = journal.Nop{}
	}
	return &Engine{
		cfg:       cfg,
		store:     store,
		journal:   rec,
		logger:    logger.With("room", cfg.Room),
		snapshots: make(chan model.RoundSnapshot, 1),
		now:       time.Now,
	}
}

// Start opens the first round and begins the tick loop.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.mu.Lock()
	e.st.startRound(e.now(), e.cfg.BaseJackpot, e.cfg.RoundDuration)
	e.mu.Unlock()

	e.wg.Add(1)
	go e.run()

	e.logger.Info("round engine started",
		"bid_cost", e.cfg.BidCost,
		"base_jackpot", e.cfg.BaseJackpot,
		"tick", e.cfg.Tick,
	)
	return nil
}

// Stop shuts the engine down, waiting for in-flight payouts.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("round engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshots returns the per-tick snapshot stream. The channel holds only the
// latest snapshot; a slow consumer sees fresh state, not a backlog.
func (e *Engine) Snapshots() <-chan model.RoundSnapshot {
	return e.snapshots
}

// Snapshot returns the current state outside the tick stream.
func (e *Engine) Snapshot() model.RoundSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st.snapshot(e.now(), e.cfg.Room, e.cfg.BidCost)
}

// Room returns the room identifier this engine owns.
func (e *Engine) Room() string {
	return e.cfg.Room
}

// PlaceBid debits the bidder and applies the bid to the current round.
// Returns the bidder's new balance on success. The debit is an atomic
// conditional update, so a losing race never overdraws; if the round ends
// between the debit and the apply, the stake is refunded.
func (e *Engine) PlaceBid(ctx context.Context, email, displayName string) (model.Cents, error) {
	e.mu.Lock()
	accepting := e.st.status == model.RoundActive
	e.mu.Unlock()
	if !accepting {
		return 0, ErrRoundClosed
	}

	newBalance, err := e.store.DebitIfSufficient(ctx, email, e.cfg.BidCost)
	if err != nil {
		return 0, err
	}

	potDelta := e.potDelta()

	e.mu.Lock()
	if e.st.status != model.RoundActive {
		e.mu.Unlock()
		// The round ended while the debit was in flight. Undo it.
		e.refund(email, e.cfg.BidCost, "late bid")
		return 0, ErrRoundClosed
	}

	now := e.now()
	e.st.applyBid(now, email, displayName, e.cfg.BidCost, potDelta, e.cfg.AntiSnipeFloor)
	round := e.st.round
	e.mu.Unlock()

	e.journal.Record(journal.Event{
		Kind:     journal.KindBid,
		Room:     e.cfg.Room,
		Round:    round,
		At:       now,
		Bidder:   email,
		Amount:   e.cfg.BidCost,
		PotDelta: potDelta,
		HouseCut: e.cfg.BidCost - potDelta,
	})

	return newBalance, nil
}

// potDelta is the share of one bid that enters the jackpot.
func (e *Engine) potDelta() model.Cents {
	return model.Cents(int64(e.cfg.BidCost) * int64(e.cfg.PayoutShareBps) / 10000)
}

// run is the tick loop: the one clock driving transitions and broadcasts.
func (e *Engine) run() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick advances the state machine if a phase boundary has been crossed and
// publishes a snapshot.
func (e *Engine) tick() {
	now := e.now()

	e.mu.Lock()
	switch e.st.status {
	case model.RoundActive:
		if !now.Before(e.st.endTime) {
			settled := e.st.endRound(now, e.cfg.Cooldown)
			round := e.st.round
			e.mu.Unlock()
			e.settle(round, now, settled)
			e.mu.Lock()
		}
	case model.RoundEnded:
		if !now.Before(e.st.endTime) {
			e.st.startRound(now, e.cfg.BaseJackpot, e.cfg.RoundDuration)
			e.logger.Info("round started",
				"round", e.st.round,
				"jackpot", e.st.jackpot,
			)
		}
	}
	snap := e.st.snapshot(now, e.cfg.Room, e.cfg.BidCost)
	e.mu.Unlock()

	e.publish(snap)
}

// settle issues the payout or refund for a finished round off the lock.
// A failed credit is logged and journaled for reconciliation; it never
// blocks the next round.
func (e *Engine) settle(round int64, now time.Time, s settlement) {
	e.logger.Info("round ended",
		"round", round,
		"outcome", s.outcome,
		"winner", s.name,
		"payout", s.payout,
	)

	e.journal.Record(journal.Event{
		Kind:    journal.KindRound,
		Room:    e.cfg.Room,
		Round:   round,
		At:      now,
		Outcome: s.outcome,
		Winner:  s.email,
		Payout:  s.payout,
	})

	if s.email == "" || s.payout == 0 {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := e.store.Credit(ctx, s.email, s.payout); err != nil {
			e.logger.Error("settlement credit failed, needs reconciliation",
				"round", round,
				"outcome", s.outcome,
				"account", s.email,
				"amount", s.payout,
				"error", err,
			)
		}
	}()
}

// refund returns a debited stake that could not be applied.
func (e *Engine) refund(email string, amount model.Cents, reason string) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if _, err := e.store.Credit(ctx, email, amount); err != nil {
			e.logger.Error("refund failed, needs reconciliation",
				"account", email,
				"amount", amount,
				"reason", reason,
				"error", err,
			)
		}
	}()
}

// publish replaces the pending snapshot with the latest one.
func (e *Engine) publish(snap model.RoundSnapshot) {
	for {
		select {
		case e.snapshots <- snap:
			return
		default:
			// Drop the stale snapshot and retry with the fresh one.
			select {
			case <-e.snapshots:
			default:
			}
		}
	}
}
