package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/config"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/ledger"
)

func newService(t *testing.T) (*Service, *ledger.MemStore) {
	t.Helper()
	store := ledger.NewMemStore()
	svc := NewService(store, config.AuthConfig{
		SessionTTL: time.Hour,
		BcryptCost: 4, // minimum cost keeps tests fast
	}, nil)
	return svc, store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	account, token, err := svc.Register(ctx, " Player@Example.COM ", "Player One", "hunter22")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if account.Email != "player@example.com" {
		t.Errorf("Email = %q, want canonical %q", account.Email, "player@example.com")
	}
	if token == "" {
		t.Fatal("Register returned empty token")
	}

	// Token resolves to the canonical identity.
	email, err := svc.Resume(token)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if email != "player@example.com" {
		t.Errorf("Resume = %q, want %q", email, "player@example.com")
	}

	// Fresh login with the same credentials.
	_, token2, err := svc.Login(ctx, "player@example.com", "hunter22")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token2 == token {
		t.Error("Login reissued the same token")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "dup@example.com", "First", "password1"); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	_, _, err := svc.Register(ctx, "DUP@example.com", "Second", "password2")
	if !errors.Is(err, ledger.ErrDuplicateAccount) {
		t.Errorf("err = %v, want ErrDuplicateAccount", err)
	}
}

func TestRegister_ClaimsLegacyAccount(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	// An account from before passwords existed, with a live balance.
	store.Seed("legacy@example.com", "Old Timer", 2500)

	account, token, err := svc.Register(ctx, "legacy@example.com", "Old Timer", "newpassword")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if token == "" {
		t.Fatal("Register returned empty token")
	}
	if account.Balance != 2500 {
		t.Errorf("Balance = %d, want preserved 2500", account.Balance)
	}

	// The claimed password works for login.
	if _, _, err := svc.Login(ctx, "legacy@example.com", "newpassword"); err != nil {
		t.Fatalf("Login after claim failed: %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "user@example.com", "User", "correct-horse"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, _, err := svc.Login(ctx, "user@example.com", "wrong-horse")
	if !errors.Is(err, ErrBadCredentials) {
		t.Errorf("err = %v, want ErrBadCredentials", err)
	}
}

func TestLogin_UnknownAccount(t *testing.T) {
	svc, _ := newService(t)

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	if !errors.Is(err, ErrBadCredentials) {
		t.Errorf("err = %v, want ErrBadCredentials", err)
	}
}

func TestLogin_LegacyAccountWithoutPassword(t *testing.T) {
	svc, store := newService(t)

	// Wallet-only account created lazily, never registered a password.
	store.Seed("legacy@example.com", "Legacy", 500)

	_, _, err := svc.Login(context.Background(), "legacy@example.com", "anything")
	if !errors.Is(err, ErrPasswordNotSet) {
		t.Errorf("err = %v, want ErrPasswordNotSet", err)
	}
}

func TestResume_ExpiredSession(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, token, err := svc.Register(ctx, "user@example.com", "User", "password1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Move the clock past the TTL.
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err = svc.Resume(token)
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
}

func TestRevoke(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, token, err := svc.Register(ctx, "user@example.com", "User", "password1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	svc.Revoke(token)

	if _, err := svc.Resume(token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("err = %v, want ErrSessionExpired after revoke", err)
	}
}
