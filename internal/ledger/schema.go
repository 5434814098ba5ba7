package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the minimal ledger schema. Balances are integer cents.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
    email         TEXT PRIMARY KEY,
    display_name  TEXT NOT NULL,
    balance       BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    password_hash BYTEA,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS deposits (
    tx_ref     TEXT PRIMARY KEY,
    email      TEXT NOT NULL REFERENCES accounts(email),
    amount     BIGINT NOT NULL,
    network    TEXT NOT NULL,
    status     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS withdrawals (
    id         UUID PRIMARY KEY,
    email      TEXT NOT NULL REFERENCES accounts(email),
    amount     BIGINT NOT NULL,
    address    TEXT NOT NULL,
    network    TEXT NOT NULL,
    status     TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS withdrawals_email_created_idx
    ON withdrawals (email, created_at DESC);

CREATE TABLE IF NOT EXISTS bid_events (
    id         UUID PRIMARY KEY,
    room       TEXT NOT NULL,
    round      BIGINT NOT NULL,
    bidder     TEXT NOT NULL,
    amount     BIGINT NOT NULL,
    pot_delta  BIGINT NOT NULL,
    house_cut  BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS round_events (
    id         UUID PRIMARY KEY,
    room       TEXT NOT NULL,
    round      BIGINT NOT NULL,
    outcome    TEXT NOT NULL,
    winner     TEXT,
    payout     BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
`

// Migrate applies the schema. Idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
