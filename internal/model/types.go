package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Cents is a fixed-point monetary amount in cents (100 = $1.00).
type Cents int64

// String formats the amount as a decimal string (e.g. "4.00", "-0.95").
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// CanonicalEmail normalizes an email into the canonical account key:
// trimmed and lowercased.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// -----------------------------------------------------------------------------
// Ledger Types
// -----------------------------------------------------------------------------

// Account is a ledger account. Email is the canonical key.
type Account struct {
	Email       string    // Primary key (canonical form)
	DisplayName string    // Display name shown in history/winner records
	Balance     Cents     // Current balance, never negative
	HasPassword bool      // False for legacy/wallet-only accounts
	CreatedAt   time.Time // Account creation time
}

// DepositStatus values for DepositRecord.
const (
	DepositCredited = "credited"
)

// DepositRecord is a verified on-chain deposit. TxRef is globally unique:
// a transaction reference can be redeemed at most once.
type DepositRecord struct {
	Email     string // Account credited
	Amount    Cents  // Credited amount after conversion
	TxRef     string // On-chain transaction reference (unique)
	Network   string // Chain network identifier (e.g. "eth", "sol")
	Status    string // "credited"
	CreatedAt time.Time
}

// WithdrawalStatus values for WithdrawalRequest.
const (
	WithdrawalPending = "PENDING"
	WithdrawalPaid    = "PAID"
)

// WithdrawalRequest is a user-initiated withdrawal. The PENDING -> PAID
// transition happens out-of-band (operator action) and is read-only here.
type WithdrawalRequest struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Amount    Cents     `json:"amount"`
	Address   string    `json:"address"` // Destination address on the target network
	Network   string    `json:"network"`
	Status    string    `json:"status"` // "PENDING" or "PAID"
	CreatedAt time.Time `json:"createdAt"`
}

// -----------------------------------------------------------------------------
// Round Types
// -----------------------------------------------------------------------------

// RoundStatus is the phase of a room's current round.
type RoundStatus string

const (
	// RoundActive accepts bids.
	RoundActive RoundStatus = "ACTIVE"
	// RoundEnded is the fixed-duration cooldown before the next round.
	RoundEnded RoundStatus = "ENDED"
)

// BidRecord is one history entry for display, most recent first.
type BidRecord struct {
	ID     int64     `json:"id"`     // Monotonic per room
	Bidder string    `json:"bidder"` // Display name
	Amount Cents     `json:"amount"`
	At     time.Time `json:"at"`
}

// WinnerRecord is one recent-winners entry, most recent first.
type WinnerRecord struct {
	Winner string    `json:"winner"` // Display name
	Amount Cents     `json:"amount"` // Jackpot paid out
	At     time.Time `json:"at"`
}

// RoundSnapshot is an immutable copy of a room's round state, taken under
// the engine's serialization point. Everything the gateway broadcasts per
// tick comes from here.
type RoundSnapshot struct {
	Room          string         `json:"room"`
	Round         int64          `json:"round"` // Monotonic round counter per room
	Status        RoundStatus    `json:"status"`
	EndTime       time.Time      `json:"endTime"`
	Remaining     time.Duration  `json:"remainingMs"` // endTime - snapshot time
	Jackpot       Cents          `json:"jackpot"`
	BidCost       Cents          `json:"bidCost"`
	LastBidder    string         `json:"lastBidder,omitempty"` // Display name, empty if none
	BidderCount   int            `json:"bidderCount"`          // Distinct bidders this round
	History       []BidRecord    `json:"history"`              // Cap 50, most recent first
	RecentWinners []WinnerRecord `json:"recentWinners"`        // Cap 5, most recent first
}
