package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/model"
)

// MemStore is an in-memory Store for tests and local development. It honors
// the same atomicity contract as the PostgreSQL store: conditional debits
// check and mutate under one lock.
type MemStore struct {
	mu          sync.Mutex
	accounts    map[string]*model.Account
	hashes      map[string][]byte
	deposits    map[string]model.DepositRecord
	withdrawals []model.WithdrawalRequest
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[string]*model.Account),
		hashes:   make(map[string][]byte),
		deposits: make(map[string]model.DepositRecord),
	}
}

// Seed creates an account with a balance, replacing any existing one.
func (m *MemStore) Seed(email, displayName string, balance model.Cents) {
	key := model.CanonicalEmail(email)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[key] = &model.Account{
		Email:       key,
		DisplayName: displayName,
		Balance:     balance,
		CreatedAt:   time.Now(),
	}
}

func (m *MemStore) GetAccount(_ context.Context, email string) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[model.CanonicalEmail(email)]
	if !ok {
		return model.Account{}, ErrNotFound
	}
	return *a, nil
}

func (m *MemStore) EnsureAccount(_ context.Context, email string) (model.Account, error) {
	key := model.CanonicalEmail(email)
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[key]
	if !ok {
		a = &model.Account{Email: key, DisplayName: key, CreatedAt: time.Now()}
		m.accounts[key] = a
	}
	return *a, nil
}

func (m *MemStore) CreateAccount(_ context.Context, email, displayName string, passwordHash []byte) error {
	key := model.CanonicalEmail(email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[key]; ok {
		return ErrDuplicateAccount
	}
	m.accounts[key] = &model.Account{
		Email:       key,
		DisplayName: displayName,
		HasPassword: len(passwordHash) > 0,
		CreatedAt:   time.Now(),
	}
	m.hashes[key] = passwordHash
	return nil
}

func (m *MemStore) PasswordHash(_ context.Context, email string) ([]byte, error) {
	key := model.CanonicalEmail(email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[key]; !ok {
		return nil, ErrNotFound
	}
	return m.hashes[key], nil
}

func (m *MemStore) SetPassword(_ context.Context, email string, passwordHash []byte) error {
	key := model.CanonicalEmail(email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[key]; !ok {
		return ErrNotFound
	}
	m.hashes[key] = passwordHash
	return nil
}

func (m *MemStore) Credit(_ context.Context, email string, amount model.Cents) (model.Cents, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[model.CanonicalEmail(email)]
	if !ok {
		return 0, ErrNotFound
	}
	a.Balance += amount
	return a.Balance, nil
}

func (m *MemStore) DebitIfSufficient(_ context.Context, email string, amount model.Cents) (model.Cents, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[model.CanonicalEmail(email)]
	if !ok {
		return 0, ErrNotFound
	}
	if a.Balance < amount {
		return 0, ErrInsufficientFunds
	}
	a.Balance -= amount
	return a.Balance, nil
}

func (m *MemStore) InsertDepositIfAbsent(_ context.Context, rec model.DepositRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deposits[rec.TxRef]; ok {
		return ErrDuplicateDeposit
	}
	rec.Email = model.CanonicalEmail(rec.Email)
	m.deposits[rec.TxRef] = rec
	return nil
}

func (m *MemStore) InsertWithdrawal(_ context.Context, rec model.WithdrawalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.Email = model.CanonicalEmail(rec.Email)
	m.withdrawals = append(m.withdrawals, rec)
	return nil
}

func (m *MemStore) ListWithdrawals(_ context.Context, email string) ([]model.WithdrawalRequest, error) {
	key := model.CanonicalEmail(email)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.WithdrawalRequest
	for _, w := range m.withdrawals {
		if w.Email == key {
			out = append(out, w)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
