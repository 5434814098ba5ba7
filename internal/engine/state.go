package engine

import (
	"time"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/journal"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/model"
)

// Display caps.
const (
	historyCap       = 50
	recentWinnersCap = 5
)

// roundState is the mutable per-room auction state. Only the owning Engine
// touches it, always under the engine mutex.
type roundState struct {
	round   int64
	status  model.RoundStatus
	endTime time.Time
	jackpot model.Cents

	lastBidder     string // Canonical email, empty if none
	lastBidderName string // Display name for snapshots

	bidders     map[string]struct{}
	investments map[string]model.Cents
	names       map[string]string // email -> display name

	history       []model.BidRecord
	recentWinners []model.WinnerRecord

	nextBidID int64
}

// startRound resets the state for a fresh ACTIVE round. recentWinners
// survives across rounds; everything else is cleared.
func (st *roundState) startRound(now time.Time, base model.Cents, duration time.Duration) {
	st.round++
	st.status = model.RoundActive
	st.endTime = now.Add(duration)
	st.jackpot = base
	st.lastBidder = ""
	st.lastBidderName = ""
	st.bidders = make(map[string]struct{})
	st.investments = make(map[string]model.Cents)
	st.names = make(map[string]string)
	st.history = nil
}

// applyBid records an accepted, already-debited bid.
func (st *roundState) applyBid(now time.Time, email, displayName string, cost, potDelta model.Cents, snipeFloor time.Duration) {
	st.jackpot += potDelta
	st.lastBidder = email
	st.lastBidderName = displayName
	st.bidders[email] = struct{}{}
	st.investments[email] += cost
	st.names[email] = displayName

	// Anti-snipe: a bid in the closing window pushes the end out to the
	// floor so it can still be contested. Never shortens the round.
	if st.endTime.Sub(now) < snipeFloor {
		st.endTime = now.Add(snipeFloor)
	}

	st.nextBidID++
	st.history = append([]model.BidRecord{{
		ID:     st.nextBidID,
		Bidder: displayName,
		Amount: cost,
		At:     now,
	}}, st.history...)
	if len(st.history) > historyCap {
		st.history = st.history[:historyCap]
	}
}

// settlement is the payout decision made at the ACTIVE -> ENDED edge.
type settlement struct {
	outcome string      // journal.Outcome*
	email   string      // Account to credit, empty for void rounds
	name    string      // Display name
	payout  model.Cents // Jackpot won or stake refunded
}

// endRound transitions to the ENDED cooldown and returns what is owed.
func (st *roundState) endRound(now time.Time, cooldown time.Duration) settlement {
	st.status = model.RoundEnded
	st.endTime = now.Add(cooldown)

	switch {
	case len(st.bidders) == 0:
		return settlement{outcome: journal.OutcomeVoid}

	case len(st.bidders) == 1:
		// A single uncontested bidder gets their whole stake back; the
		// round is voided, not won.
		var email string
		for e := range st.bidders {
			email = e
		}
		return settlement{
			outcome: journal.OutcomeRefunded,
			email:   email,
			name:    st.names[email],
			payout:  st.investments[email],
		}

	default:
		won := settlement{
			outcome: journal.OutcomeWon,
			email:   st.lastBidder,
			name:    st.lastBidderName,
			payout:  st.jackpot,
		}
		st.recentWinners = append([]model.WinnerRecord{{
			Winner: won.name,
			Amount: won.payout,
			At:     now,
		}}, st.recentWinners...)
		if len(st.recentWinners) > recentWinnersCap {
			st.recentWinners = st.recentWinners[:recentWinnersCap]
		}
		return won
	}
}

// snapshot copies the state for readers outside the serialization point.
func (st *roundState) snapshot(now time.Time, room string, bidCost model.Cents) model.RoundSnapshot {
	history := make([]model.BidRecord, len(st.history))
	copy(history, st.history)
	winners := make([]model.WinnerRecord, len(st.recentWinners))
	copy(winners, st.recentWinners)

	remaining := st.endTime.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	return model.RoundSnapshot{
		Room:          room,
		Round:         st.round,
		Status:        st.status,
		EndTime:       st.endTime,
		Remaining:     remaining,
		Jackpot:       st.jackpot,
		BidCost:       bidCost,
		LastBidder:    st.lastBidderName,
		BidderCount:   len(st.bidders),
		History:       history,
		RecentWinners: winners,
	}
}
