package gateway

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/auth"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/chain"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/engine"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/ledger"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/model"
)

// commandTimeout bounds ledger work for one command. Chain verification
// carries its own retry budget and gets a wider window.
const (
	commandTimeout = 10 * time.Second
	verifyTimeout  = 45 * time.Second
)

// dispatch runs one command on the session's read goroutine. Slow ledger
// or chain calls stall only this connection.
func (g *Gateway) dispatch(s *session, cmd Command) {
	switch cmd.Type {
	case CmdJoinRoom:
		g.handleJoinRoom(s, cmd)
	case CmdLeaveRoom:
		g.handleLeaveRoom(s)
	case CmdPlaceBid:
		g.handlePlaceBid(s, cmd)
	case CmdGetBalance:
		g.handleGetBalance(s)
	case CmdVerifyDeposit:
		g.handleVerifyDeposit(s, cmd)
	case CmdRequestWithdrawal:
		g.handleRequestWithdrawal(s, cmd)
	case CmdRegister:
		g.handleRegister(s, cmd)
	case CmdLogin:
		g.handleLogin(s, cmd)
	default:
		s.deliver(errorEvent(CodeValidation, "unknown command type"))
	}
}

func (g *Gateway) handleJoinRoom(s *session, cmd Command) {
	e, ok := g.rooms.Get(cmd.Room)
	if !ok {
		s.deliver(errorEvent(CodeUnknownRoom, "unknown room"))
		return
	}

	g.subscribe(s, cmd.Room)
	s.deliver(Event{Type: EvtJoined, Room: cmd.Room})

	// Immediate snapshot so the client renders before the next tick.
	snap := e.Snapshot()
	s.deliver(Event{Type: EvtRoomState, State: &snap, Presence: g.presence.Load()})
}

func (g *Gateway) handleLeaveRoom(s *session) {
	g.unsubscribe(s)
	s.deliver(Event{Type: EvtLeft})
}

func (g *Gateway) handlePlaceBid(s *session, cmd Command) {
	email, displayName, ok := s.identity()
	if !ok {
		s.deliver(errorEvent(CodeAuth, "not authenticated"))
		return
	}

	roomID := cmd.Room
	if roomID == "" {
		roomID = s.subscribedRoom()
	}
	e, found := g.rooms.Get(roomID)
	if !found {
		s.deliver(errorEvent(CodeUnknownRoom, "unknown room"))
		return
	}

	ctx, cancel := context.WithTimeout(g.ctx, commandTimeout)
	defer cancel()

	balance, err := e.PlaceBid(ctx, email, displayName)
	if err != nil {
		s.deliver(mapError(err))
		return
	}
	s.deliver(Event{Type: EvtBalanceUpdate, Balance: &balance})
}

func (g *Gateway) handleGetBalance(s *session) {
	email, _, ok := s.identity()
	if !ok {
		s.deliver(errorEvent(CodeAuth, "not authenticated"))
		return
	}

	ctx, cancel := context.WithTimeout(g.ctx, commandTimeout)
	defer cancel()

	account, err := g.store.EnsureAccount(ctx, email)
	if err != nil {
		s.deliver(mapError(err))
		return
	}
	withdrawals, err := g.store.ListWithdrawals(ctx, email)
	if err != nil {
		s.deliver(mapError(err))
		return
	}

	s.deliver(Event{Type: EvtBalanceUpdate, Balance: &account.Balance})
	s.deliver(Event{Type: EvtWithdrawalHistory, Withdrawals: withdrawals})
}

func (g *Gateway) handleVerifyDeposit(s *session, cmd Command) {
	email, _, ok := s.identity()
	if !ok {
		s.deliver(errorEvent(CodeAuth, "not authenticated"))
		return
	}
	if cmd.TxRef == "" || cmd.Network == "" {
		s.deliver(errorEvent(CodeValidation, "txRef and network are required"))
		return
	}

	ctx, cancel := context.WithTimeout(g.ctx, verifyTimeout)
	defer cancel()

	info, err := g.verifier.Resolve(ctx, cmd.Network, cmd.TxRef)
	if err != nil {
		s.deliver(mapError(err))
		return
	}

	if !strings.EqualFold(info.Recipient, g.treasury) {
		s.deliver(errorEvent(CodeValidation, "transaction recipient is not the treasury address"))
		return
	}

	rate, ok := g.verifier.Rate(cmd.Network)
	if !ok {
		s.deliver(errorEvent(CodeValidation, "unknown network"))
		return
	}
	credited := chain.CreditAmount(info.Value, rate)
	if credited <= 0 {
		s.deliver(errorEvent(CodeValidation, "transaction value too small to credit"))
		return
	}

	err = g.store.InsertDepositIfAbsent(ctx, model.DepositRecord{
		Email:     email,
		Amount:    credited,
		TxRef:     cmd.TxRef,
		Network:   cmd.Network,
		Status:    "credited",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.deliver(mapError(err))
		return
	}

	balance, err := g.store.Credit(ctx, email, credited)
	if err != nil {
		// Deposit row exists but the credit failed; surfaced for support.
		g.logger.Error("deposit credit failed, needs reconciliation",
			"account", email,
			"txRef", cmd.TxRef,
			"amount", credited,
			"error", err,
		)
		s.deliver(mapError(err))
		return
	}

	g.logger.Info("deposit credited",
		"account", email,
		"network", cmd.Network,
		"amount", credited,
	)
	s.deliver(Event{Type: EvtBalanceUpdate, Balance: &balance, Credited: &credited})
}

func (g *Gateway) handleRequestWithdrawal(s *session, cmd Command) {
	email, _, ok := s.identity()
	if !ok {
		s.deliver(errorEvent(CodeAuth, "not authenticated"))
		return
	}
	if cmd.Amount <= 0 {
		s.deliver(errorEvent(CodeValidation, "amount must be positive"))
		return
	}
	if cmd.Address == "" || cmd.Network == "" {
		s.deliver(errorEvent(CodeValidation, "address and network are required"))
		return
	}

	ctx, cancel := context.WithTimeout(g.ctx, commandTimeout)
	defer cancel()

	balance, err := g.store.DebitIfSufficient(ctx, email, cmd.Amount)
	if err != nil {
		s.deliver(mapError(err))
		return
	}

	rec := model.WithdrawalRequest{
		ID:        uuid.New(),
		Email:     email,
		Amount:    cmd.Amount,
		Address:   cmd.Address,
		Network:   cmd.Network,
		Status:    model.WithdrawalPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.store.InsertWithdrawal(ctx, rec); err != nil {
		// The debit landed but the request row did not. Put the money back.
		if _, cerr := g.store.Credit(ctx, email, cmd.Amount); cerr != nil {
			g.logger.Error("withdrawal rollback failed, needs reconciliation",
				"account", email,
				"amount", cmd.Amount,
				"error", cerr,
			)
		}
		s.deliver(mapError(err))
		return
	}

	g.logger.Info("withdrawal requested",
		"account", email,
		"network", cmd.Network,
		"amount", cmd.Amount,
	)

	s.deliver(Event{Type: EvtBalanceUpdate, Balance: &balance})

	withdrawals, err := g.store.ListWithdrawals(ctx, email)
	if err != nil {
		s.deliver(mapError(err))
		return
	}
	s.deliver(Event{Type: EvtWithdrawalHistory, Withdrawals: withdrawals})
}

func (g *Gateway) handleRegister(s *session, cmd Command) {
	if cmd.Email == "" || cmd.Password == "" {
		s.deliver(errorEvent(CodeValidation, "email and password are required"))
		return
	}

	ctx, cancel := context.WithTimeout(g.ctx, commandTimeout)
	defer cancel()

	account, token, err := g.auth.Register(ctx, cmd.Email, cmd.DisplayName, cmd.Password)
	if err != nil {
		s.deliver(mapError(err))
		return
	}

	s.bind(account.Email, account.DisplayName)
	s.deliver(Event{
		Type:        EvtSession,
		Token:       token,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Balance:     &account.Balance,
	})
}

func (g *Gateway) handleLogin(s *session, cmd Command) {
	ctx, cancel := context.WithTimeout(g.ctx, commandTimeout)
	defer cancel()

	// A token resumes an existing session without the password.
	if cmd.Token != "" {
		email, err := g.auth.Resume(cmd.Token)
		if err != nil {
			s.deliver(mapError(err))
			return
		}
		account, err := g.store.GetAccount(ctx, email)
		if err != nil {
			s.deliver(mapError(err))
			return
		}
		s.bind(account.Email, account.DisplayName)
		s.deliver(Event{
			Type:        EvtSession,
			Token:       cmd.Token,
			Email:       account.Email,
			DisplayName: account.DisplayName,
			Balance:     &account.Balance,
		})
		return
	}

	if cmd.Email == "" || cmd.Password == "" {
		s.deliver(errorEvent(CodeValidation, "email and password are required"))
		return
	}

	account, token, err := g.auth.Login(ctx, cmd.Email, cmd.Password)
	if err != nil {
		s.deliver(mapError(err))
		return
	}

	s.bind(account.Email, account.DisplayName)
	s.deliver(Event{
		Type:        EvtSession,
		Token:       token,
		Email:       account.Email,
		DisplayName: account.DisplayName,
		Balance:     &account.Balance,
	})
}

// mapError translates backend errors into the wire taxonomy.
func mapError(err error) Event {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return errorEvent(CodeInsufficientFunds, "balance too low")
	case errors.Is(err, ledger.ErrNotFound):
		return errorEvent(CodeNotFound, "account not found")
	case errors.Is(err, ledger.ErrDuplicateDeposit):
		return errorEvent(CodeDuplicate, "transaction already redeemed")
	case errors.Is(err, ledger.ErrDuplicateAccount):
		return errorEvent(CodeDuplicate, "email already registered")
	case errors.Is(err, engine.ErrRoundClosed):
		return errorEvent(CodeRoundClosed, "round is not accepting bids")
	case errors.Is(err, chain.ErrTxNotFound):
		return errorEvent(CodeNotFound, "transaction not found on chain")
	case errors.Is(err, chain.ErrUnknownNetwork):
		return errorEvent(CodeValidation, "unknown network")
	case errors.Is(err, chain.ErrUnavailable):
		return errorEvent(CodeExternalUnavailable, "chain verification unavailable, try again later")
	case errors.Is(err, auth.ErrBadCredentials):
		return errorEvent(CodeAuth, "invalid email or password")
	case errors.Is(err, auth.ErrPasswordNotSet):
		return errorEvent(CodeAuth, "account has no password set")
	case errors.Is(err, auth.ErrSessionExpired):
		return errorEvent(CodeAuth, "session expired, log in again")
	default:
		return errorEvent(CodeExternalUnavailable, "operation failed, try again later")
	}
}
