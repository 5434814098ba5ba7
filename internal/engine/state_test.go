package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/journal"
)

func TestRoundState_HistoryCap(t *testing.T) {
	st := &roundState{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st.startRound(now, 1000, 5*time.Minute)

	for i := 0; i < historyCap+10; i++ {
		name := fmt.Sprintf("bidder-%d", i)
		st.applyBid(now, name+"@example.com", name, 100, 95, 10*time.Second)
	}

	if len(st.history) != historyCap {
		t.Fatalf("len(history) = %d, want %d", len(st.history), historyCap)
	}
	// Newest first, oldest evicted.
	if want := fmt.Sprintf("bidder-%d", historyCap+9); st.history[0].Bidder != want {
		t.Errorf("history[0].Bidder = %q, want %q", st.history[0].Bidder, want)
	}
	if want := "bidder-10"; st.history[historyCap-1].Bidder != want {
		t.Errorf("history[last].Bidder = %q, want %q", st.history[historyCap-1].Bidder, want)
	}
}

func TestRoundState_RecentWinnersCap(t *testing.T) {
	st := &roundState{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < recentWinnersCap+2; i++ {
		st.startRound(now, 1000, 5*time.Minute)
		st.applyBid(now, "a@example.com", "Alice", 100, 95, 10*time.Second)
		winner := fmt.Sprintf("winner-%d", i)
		st.applyBid(now, winner+"@example.com", winner, 100, 95, 10*time.Second)
		s := st.endRound(now.Add(5*time.Minute), 15*time.Second)
		if s.outcome != journal.OutcomeWon {
			t.Fatalf("round %d outcome = %q, want won", i, s.outcome)
		}
		now = now.Add(6 * time.Minute)
	}

	if len(st.recentWinners) != recentWinnersCap {
		t.Fatalf("len(recentWinners) = %d, want %d", len(st.recentWinners), recentWinnersCap)
	}
	if want := fmt.Sprintf("winner-%d", recentWinnersCap+1); st.recentWinners[0].Winner != want {
		t.Errorf("recentWinners[0] = %q, want newest %q", st.recentWinners[0].Winner, want)
	}
	if want := "winner-2"; st.recentWinners[recentWinnersCap-1].Winner != want {
		t.Errorf("recentWinners[last] = %q, want %q", st.recentWinners[recentWinnersCap-1].Winner, want)
	}
}

func TestRoundState_SingleBidderSettlement(t *testing.T) {
	st := &roundState{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st.startRound(now, 1000, 5*time.Minute)

	st.applyBid(now, "a@example.com", "Alice", 100, 95, 10*time.Second)
	st.applyBid(now.Add(time.Minute), "a@example.com", "Alice", 100, 95, 10*time.Second)

	s := st.endRound(now.Add(5*time.Minute), 15*time.Second)
	if s.outcome != journal.OutcomeRefunded {
		t.Fatalf("outcome = %q, want refunded", s.outcome)
	}
	if s.email != "a@example.com" {
		t.Errorf("email = %q, want a@example.com", s.email)
	}
	if s.payout != 200 {
		t.Errorf("payout = %d, want cumulative stake 200", s.payout)
	}
	if len(st.recentWinners) != 0 {
		t.Errorf("len(recentWinners) = %d, want 0", len(st.recentWinners))
	}
}

func TestRoundState_Snapshot(t *testing.T) {
	st := &roundState{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	st.startRound(now, 1000, 5*time.Minute)
	st.applyBid(now, "a@example.com", "Alice", 100, 95, 10*time.Second)

	snap := st.snapshot(now.Add(time.Minute), "bronze", 100)
	if snap.Remaining != 4*time.Minute {
		t.Errorf("Remaining = %v, want 4m", snap.Remaining)
	}
	if snap.BidderCount != 1 {
		t.Errorf("BidderCount = %d, want 1", snap.BidderCount)
	}

	// Past the end time the countdown clamps to zero.
	late := st.snapshot(now.Add(time.Hour), "bronze", 100)
	if late.Remaining != 0 {
		t.Errorf("Remaining = %v, want 0", late.Remaining)
	}

	// The snapshot owns its slices.
	snap.History[0].Bidder = "mutated"
	if st.history[0].Bidder != "Alice" {
		t.Errorf("snapshot mutation leaked into state: %q", st.history[0].Bidder)
	}
}
