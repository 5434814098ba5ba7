package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/model"
)

// Errors
var (
	ErrNotFound          = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateAccount  = errors.New("account already exists")
	ErrDuplicateDeposit  = errors.New("transaction reference already redeemed")
)

// Store is the adapter contract to the durable account store. All operations
// are single round-trips; balance checks and debits are one atomic statement.
type Store interface {
	// GetAccount returns the account for the canonical email, or ErrNotFound.
	GetAccount(ctx context.Context, email string) (model.Account, error)

	// EnsureAccount returns the account, lazily creating it with zero
	// balance if the email has never been seen.
	EnsureAccount(ctx context.Context, email string) (model.Account, error)

	// CreateAccount registers a new account with a password hash.
	// Returns ErrDuplicateAccount if the email is taken.
	CreateAccount(ctx context.Context, email, displayName string, passwordHash []byte) error

	// PasswordHash returns the stored bcrypt hash. Empty for legacy
	// accounts that never set a password.
	PasswordHash(ctx context.Context, email string) ([]byte, error)

	// SetPassword replaces the stored hash. Returns ErrNotFound if the
	// account does not exist.
	SetPassword(ctx context.Context, email string, passwordHash []byte) error

	// Credit adds amount to the balance and returns the new balance.
	Credit(ctx context.Context, email string, amount model.Cents) (model.Cents, error)

	// DebitIfSufficient atomically subtracts amount when the balance covers
	// it and returns the new balance. Returns ErrInsufficientFunds without
	// mutation otherwise.
	DebitIfSufficient(ctx context.Context, email string, amount model.Cents) (model.Cents, error)

	// InsertDepositIfAbsent records a verified deposit keyed on its
	// transaction reference. Returns ErrDuplicateDeposit if the reference
	// was already redeemed.
	InsertDepositIfAbsent(ctx context.Context, rec model.DepositRecord) error

	// InsertWithdrawal records a new PENDING withdrawal request.
	InsertWithdrawal(ctx context.Context, rec model.WithdrawalRequest) error

	// ListWithdrawals returns the account's withdrawal requests, most
	// recent first.
	ListWithdrawals(ctx context.Context, email string) ([]model.WithdrawalRequest, error)
}

// store implements Store on a pgx connection pool.
type store struct {
	db *pgxpool.Pool
}

// NewStore creates a Store backed by the given pool.
func NewStore(db *pgxpool.Pool) Store {
	return &store{db: db}
}

func (s *store) GetAccount(ctx context.Context, email string) (model.Account, error) {
	return s.scanAccount(ctx, `
		SELECT email, display_name, balance, password_hash IS NOT NULL, created_at
		FROM accounts WHERE email = $1
	`, model.CanonicalEmail(email))
}

func (s *store) EnsureAccount(ctx context.Context, email string) (model.Account, error) {
	key := model.CanonicalEmail(email)

	// Wallet-only identities get a zero-balance account on first reference.
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (email, display_name, balance, created_at)
		VALUES ($1, $1, 0, NOW())
		ON CONFLICT (email) DO NOTHING
	`, key)
	if err != nil {
		return model.Account{}, fmt.Errorf("ensure account: %w", err)
	}

	return s.GetAccount(ctx, key)
}

func (s *store) CreateAccount(ctx context.Context, email, displayName string, passwordHash []byte) error {
	ct, err := s.db.Exec(ctx, `
		INSERT INTO accounts (email, display_name, balance, password_hash, created_at)
		VALUES ($1, $2, 0, $3, NOW())
		ON CONFLICT (email) DO NOTHING
	`, model.CanonicalEmail(email), displayName, passwordHash)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrDuplicateAccount
	}
	return nil
}

func (s *store) PasswordHash(ctx context.Context, email string) ([]byte, error) {
	var hash []byte
	err := s.db.QueryRow(ctx, `
		SELECT password_hash FROM accounts WHERE email = $1
	`, model.CanonicalEmail(email)).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get password hash: %w", err)
	}
	return hash, nil
}

func (s *store) SetPassword(ctx context.Context, email string, passwordHash []byte) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE accounts SET password_hash = $2 WHERE email = $1
	`, model.CanonicalEmail(email), passwordHash)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *store) Credit(ctx context.Context, email string, amount model.Cents) (model.Cents, error) {
	var balance int64
	err := s.db.QueryRow(ctx, `
		UPDATE accounts SET balance = balance + $2
		WHERE email = $1
		RETURNING balance
	`, model.CanonicalEmail(email), int64(amount)).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("credit: %w", err)
	}
	return model.Cents(balance), nil
}

func (s *store) DebitIfSufficient(ctx context.Context, email string, amount model.Cents) (model.Cents, error) {
	key := model.CanonicalEmail(email)

	var balance int64
	err := s.db.QueryRow(ctx, `
		UPDATE accounts SET balance = balance - $2
		WHERE email = $1 AND balance >= $2
		RETURNING balance
	`, key, int64(amount)).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// Distinguish a missing account from one that cannot cover the debit.
		var exists bool
		if probeErr := s.db.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM accounts WHERE email = $1)
		`, key).Scan(&exists); probeErr != nil {
			return 0, fmt.Errorf("debit probe: %w", probeErr)
		}
		if !exists {
			return 0, ErrNotFound
		}
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("debit: %w", err)
	}
	return model.Cents(balance), nil
}

func (s *store) InsertDepositIfAbsent(ctx context.Context, rec model.DepositRecord) error {
	ct, err := s.db.Exec(ctx, `
		INSERT INTO deposits (tx_ref, email, amount, network, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tx_ref) DO NOTHING
	`, rec.TxRef, model.CanonicalEmail(rec.Email), int64(rec.Amount), rec.Network, rec.Status, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrDuplicateDeposit
	}
	return nil
}

func (s *store) InsertWithdrawal(ctx context.Context, rec model.WithdrawalRequest) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO withdrawals (id, email, amount, address, network, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, model.CanonicalEmail(rec.Email), int64(rec.Amount), rec.Address, rec.Network, rec.Status, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

func (s *store) ListWithdrawals(ctx context.Context, email string) ([]model.WithdrawalRequest, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, email, amount, address, network, status, created_at
		FROM withdrawals
		WHERE email = $1
		ORDER BY created_at DESC
	`, model.CanonicalEmail(email))
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()

	var out []model.WithdrawalRequest
	for rows.Next() {
		var (
			w      model.WithdrawalRequest
			amount int64
		)
		if err := rows.Scan(&w.ID, &w.Email, &amount, &w.Address, &w.Network, &w.Status, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan withdrawal: %w", err)
		}
		w.Amount = model.Cents(amount)
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *store) scanAccount(ctx context.Context, query, email string) (model.Account, error) {
	var (
		a         model.Account
		balance   int64
		createdAt time.Time
	)
	err := s.db.QueryRow(ctx, query, email).Scan(&a.Email, &a.DisplayName, &balance, &a.HasPassword, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("get account: %w", err)
	}
	a.Balance = model.Cents(balance)
	a.CreatedAt = createdAt
	return a, nil
}
