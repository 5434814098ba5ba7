// Package chain resolves externally-submitted transaction references against
// per-network lookup endpoints. Lookups are slow, unreliable, and idempotent;
// the verifier retries a fixed number of times with a fixed delay and reports
// failure after the budget is spent. Custody and signing of on-chain
// transactions are out of scope; this only confirms that a referenced
// transaction exists and what it paid to whom.
package chain
