// Package ledger provides the durable account store for the auction:
// balances, verified deposits, and withdrawal requests, backed by PostgreSQL.
//
// Balance mutations go through atomic conditional updates
// (balance = balance - cost WHERE balance >= cost), so concurrent bids,
// deposits, and withdrawals from the same account cannot produce lost
// updates. The ledger is shared mutable state external to the round engines;
// this process must not assume it is the only writer.
package ledger
