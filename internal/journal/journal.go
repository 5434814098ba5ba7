package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/config"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/model"
)

// EventKind discriminates journal events.
type EventKind string

const (
	KindBid   EventKind = "bid"
	KindRound EventKind = "round"
)

// Round outcomes.
const (
	OutcomeWon      = "won"      // lastBidder credited the jackpot
	OutcomeRefunded = "refunded" // single bidder, stake returned
	OutcomeVoid     = "void"     // no bidders
)

// Event is one journal entry. Bid fields are set for KindBid, outcome fields
// for KindRound.
type Event struct {
	Kind  EventKind
	Room  string
	Round int64
	At    time.Time

	// KindBid
	Bidder   string
	Amount   model.Cents // Full bid cost debited
	PotDelta model.Cents // Share added to the jackpot
	HouseCut model.Cents // Amount - PotDelta, recorded as house revenue

	// KindRound
	Outcome string
	Winner  string      // Credited account, empty for void rounds
	Payout  model.Cents // Jackpot paid or stake refunded
}

// Recorder accepts events without blocking. Engines depend on this rather
// than the concrete writer.
type Recorder interface {
	Record(ev Event)
}

// Nop is a Recorder that discards everything.
type Nop struct{}

func (Nop) Record(Event) {}

// Writer batches events and inserts them into Postgres.
type Writer struct {
	cfg    config.JournalConfig
	db     *pgxpool.Pool
	logger *slog.Logger

	intake *buffer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWriter creates a journal writer.
func NewWriter(cfg config.JournalConfig, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		intake: newBuffer(cfg.BufferSize),
	}
}

// Record enqueues an event. Never blocks; drops with a warning if the
// intake buffer is saturated.
func (w *Writer) Record(ev Event) {
	if !w.intake.send(ev) {
		w.logger.Warn("journal intake full, dropping event",
			"kind", ev.Kind,
			"room", ev.Room,
		)
	}
}

// Start begins the flush loop.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop flushes remaining events and shuts down.
func (w *Writer) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
	}

	w.intake.close()
	w.flush()

	w.logger.Info("journal writer stopped")
	return nil
}

// flushLoop periodically drains and writes the intake buffer.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.flush()
		}
	}
}

// flush writes everything currently buffered, in batches.
func (w *Writer) flush() {
	for {
		events := w.intake.drain(w.cfg.BatchSize)
		if len(events) == 0 {
			return
		}

		start := time.Now()
		if err := w.batchInsert(events); err != nil {
			w.logger.Error("journal batch insert failed",
				"error", err,
				"count", len(events),
			)
			return
		}

		w.logger.Debug("flushed journal events",
			"count", len(events),
			"duration", time.Since(start),
		)

		if len(events) < w.cfg.BatchSize {
			return
		}
	}
}

// batchInsert writes one batch of events using pgx.Batch.
func (w *Writer) batchInsert(events []Event) error {
	batch := &pgx.Batch{}
	for _, ev := range events {
		switch ev.Kind {
		case KindBid:
			batch.Queue(`
				INSERT INTO bid_events (id, room, round, bidder, amount, pot_delta, house_cut, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, uuid.New(), ev.Room, ev.Round, ev.Bidder, int64(ev.Amount), int64(ev.PotDelta), int64(ev.HouseCut), ev.At)
		case KindRound:
			batch.Queue(`
				INSERT INTO round_events (id, room, round, outcome, winner, payout, created_at)
				VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7)
			`, uuid.New(), ev.Room, ev.Round, ev.Outcome, ev.Winner, int64(ev.Payout), ev.At)
		}
	}

	// Stop() flushes after ctx cancellation, so use a fresh context here.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
