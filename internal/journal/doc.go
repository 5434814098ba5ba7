// Package journal persists an append-only record of game activity: every
// accepted bid (with its pot contribution and house cut) and every round
// outcome (winner, refund, or void). The write path is asynchronous and
// batched so the round engines never wait on the database; a journal failure
// is logged and never fails a game operation.
//
// The journal is the accounting answer for the house margin: the share of
// each bid that does not enter the pot is recorded here as house revenue
// rather than silently dropped. Round rows also record intended payouts, so
// a failed payout credit can be reconciled offline.
package journal
