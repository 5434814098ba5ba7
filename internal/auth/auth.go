// Package auth provides account registration, login, and server-issued
// session tokens. Commands that mutate the ledger act on the identity bound
// to the session, never on a client-asserted one.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/config"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/ledger"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/model"
)

// Errors
var (
	ErrBadCredentials = errors.New("invalid email or password")
	ErrPasswordNotSet = errors.New("account has no password set")
	ErrSessionExpired = errors.New("session expired or unknown")
)

// session is one issued token.
type session struct {
	email     string
	expiresAt time.Time
}

// Service issues and resolves sessions against ledger accounts.
type Service struct {
	store  ledger.Store
	logger *slog.Logger

	ttl  time.Duration
	cost int

	mu       sync.Mutex
	sessions map[string]session

	now func() time.Time
}

// NewService creates an auth service.
func NewService(store ledger.Store, cfg config.AuthConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		logger:   logger,
		ttl:      cfg.SessionTTL,
		cost:     cfg.BcryptCost,
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

// Register creates an account with a bcrypt password hash and issues a
// session token. A legacy account that never set a password is claimed by
// the first registration for its email. Returns ledger.ErrDuplicateAccount
// if the email is taken by a password-bearing account.
func (s *Service) Register(ctx context.Context, email, displayName, password string) (model.Account, string, error) {
	key := model.CanonicalEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return model.Account{}, "", fmt.Errorf("hash password: %w", err)
	}

	if err := s.store.CreateAccount(ctx, key, displayName, hash); err != nil {
		if !errors.Is(err, ledger.ErrDuplicateAccount) {
			return model.Account{}, "", err
		}
		existing, herr := s.store.PasswordHash(ctx, key)
		if herr != nil {
			return model.Account{}, "", herr
		}
		if len(existing) != 0 {
			return model.Account{}, "", err
		}
		if err := s.store.SetPassword(ctx, key, hash); err != nil {
			return model.Account{}, "", err
		}
		s.logger.Info("legacy account claimed", "email", key)
	}

	account, err := s.store.GetAccount(ctx, key)
	if err != nil {
		return model.Account{}, "", err
	}

	token, err := s.issue(key)
	if err != nil {
		return model.Account{}, "", err
	}

	s.logger.Info("account registered", "email", key)
	return account, token, nil
}

// Login verifies the password and issues a session token. Legacy accounts
// with no password hash get ErrPasswordNotSet rather than ErrBadCredentials
// so the client can prompt for account recovery.
func (s *Service) Login(ctx context.Context, email, password string) (model.Account, string, error) {
	key := model.CanonicalEmail(email)

	hash, err := s.store.PasswordHash(ctx, key)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return model.Account{}, "", ErrBadCredentials
		}
		return model.Account{}, "", err
	}
	if len(hash) == 0 {
		return model.Account{}, "", ErrPasswordNotSet
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return model.Account{}, "", ErrBadCredentials
	}

	account, err := s.store.GetAccount(ctx, key)
	if err != nil {
		return model.Account{}, "", err
	}

	token, err := s.issue(key)
	if err != nil {
		return model.Account{}, "", err
	}

	return account, token, nil
}

// Resume resolves a previously issued token to its identity.
func (s *Service) Resume(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return "", ErrSessionExpired
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return "", ErrSessionExpired
	}
	return sess.email, nil
}

// Revoke invalidates a token. Unknown tokens are ignored.
func (s *Service) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// issue mints a new random token for the identity.
func (s *Service) issue(email string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	s.pruneLocked()
	s.sessions[token] = session{email: email, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()

	return token, nil
}

// pruneLocked drops expired sessions. Must be called with mu held.
func (s *Service) pruneLocked() {
	now := s.now()
	for token, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, token)
		}
	}
}
