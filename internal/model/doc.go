// Package model defines shared data types used across the BidBlaze auction
// platform.
//
// Conventions:
//   - Money: Cents, int64 fixed-point cents (100 = $1.00); never floats
//   - Timestamps: time.Time in Go, RFC 3339 on the wire
//   - IDs: lowercased trimmed email for accounts, uuid.UUID for withdrawals
package model
