package gateway

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/auth"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/chain"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/config"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/ledger"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/model"
	"github.com/Emmacapella/bidblaze-app-sub000/internal/room"
)

const testTreasury = "0xTREASURY000000000000000000000000000000aa"

// fakeVerifier returns canned chain lookups.
type fakeVerifier struct {
	info chain.TxInfo
	err  error
	rate decimal.Decimal
}

func (f *fakeVerifier) Resolve(ctx context.Context, network, txRef string) (chain.TxInfo, error) {
	if f.err != nil {
		return chain.TxInfo{}, f.err
	}
	return f.info, nil
}

func (f *fakeVerifier) Rate(network string) (decimal.Decimal, bool) {
	return f.rate, true
}

type testHarness struct {
	store    *ledger.MemStore
	verifier *fakeVerifier
	gateway  *Gateway
	server   *httptest.Server
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	store := ledger.NewMemStore()
	verifier := &fakeVerifier{
		info: chain.TxInfo{Recipient: testTreasury, Value: decimal.RequireFromString("0.5")},
		rate: decimal.RequireFromString("240000"),
	}

	registry := room.NewRegistry(config.GameConfig{
		Tick:           50 * time.Millisecond,
		RoundDuration:  time.Minute,
		Cooldown:       5 * time.Second,
		AntiSnipeFloor: 2 * time.Second,
		PayoutShareBps: 9500,
	}, []config.RoomConfig{
		{ID: "bronze", BidCost: 100, BaseJackpot: 1000},
	}, store, nil, nil)

	authSvc := auth.NewService(store, config.AuthConfig{
		SessionTTL: time.Hour,
		BcryptCost: 4,
	}, nil)

	gw := New(config.HTTPConfig{}, registry, store, verifier, authSvc, testTreasury, nil)

	ctx := context.Background()
	if err := registry.StartAll(ctx); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if err := gw.Start(ctx); err != nil {
		t.Fatalf("gateway Start failed: %v", err)
	}

	server := httptest.NewServer(gw)

	t.Cleanup(func() {
		server.Close()
		stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		gw.Stop(stopCtx)
		registry.StopAll(stopCtx)
	})

	return &testHarness{store: store, verifier: verifier, gateway: gw, server: server}
}

func (h *testHarness) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(h.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, cmd Command) {
	t.Helper()
	if err := conn.WriteJSON(cmd); err != nil {
		t.Fatalf("write %s failed: %v", cmd.Type, err)
	}
}

// waitFor reads events until one of the wanted type arrives. roomState
// broadcasts interleave with command responses, so tests skim past what
// they are not asserting on.
func waitFor(t *testing.T, conn *websocket.Conn, eventType string) Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %s: %v", eventType, err)
		}
		if ev.Type == eventType {
			return ev
		}
	}
}

func register(t *testing.T, conn *websocket.Conn, email, name string) Event {
	t.Helper()
	send(t, conn, Command{Type: CmdRegister, Email: email, DisplayName: name, Password: "hunter22"})
	return waitFor(t, conn, EvtSession)
}

func TestRegisterAndLogin(t *testing.T) {
	h := newTestHarness(t)
	conn := h.dial(t)

	ev := register(t, conn, "Alice@Example.com", "Alice")
	if ev.Email != "alice@example.com" {
		t.Errorf("session email = %q, want canonical alice@example.com", ev.Email)
	}
	if ev.Token == "" {
		t.Error("session token is empty")
	}
	if ev.Balance == nil || *ev.Balance != 0 {
		t.Errorf("balance = %v, want 0", ev.Balance)
	}

	// Token resume on a fresh connection.
	conn2 := h.dial(t)
	send(t, conn2, Command{Type: CmdLogin, Token: ev.Token})
	resumed := waitFor(t, conn2, EvtSession)
	if resumed.Email != "alice@example.com" {
		t.Errorf("resumed email = %q, want alice@example.com", resumed.Email)
	}

	// Password login.
	conn3 := h.dial(t)
	send(t, conn3, Command{Type: CmdLogin, Email: "alice@example.com", Password: "hunter22"})
	loggedIn := waitFor(t, conn3, EvtSession)
	if loggedIn.Token == "" {
		t.Error("login token is empty")
	}

	// Wrong password.
	conn4 := h.dial(t)
	send(t, conn4, Command{Type: CmdLogin, Email: "alice@example.com", Password: "wrong"})
	errEv := waitFor(t, conn4, EvtError)
	if errEv.Code != CodeAuth {
		t.Errorf("error code = %q, want %q", errEv.Code, CodeAuth)
	}
}

func TestJoinRoom(t *testing.T) {
	h := newTestHarness(t)
	conn := h.dial(t)

	send(t, conn, Command{Type: CmdJoinRoom, Room: "bronze"})
	joined := waitFor(t, conn, EvtJoined)
	if joined.Room != "bronze" {
		t.Errorf("joined room = %q, want bronze", joined.Room)
	}

	state := waitFor(t, conn, EvtRoomState)
	if state.State == nil {
		t.Fatal("roomState carries no snapshot")
	}
	if state.State.Room != "bronze" {
		t.Errorf("snapshot room = %q, want bronze", state.State.Room)
	}
	if state.State.Status != model.RoundActive {
		t.Errorf("snapshot status = %q, want ACTIVE", state.State.Status)
	}
	if state.Presence < 1 {
		t.Errorf("presence = %d, want >= 1", state.Presence)
	}
}

func TestJoinRoom_Unknown(t *testing.T) {
	h := newTestHarness(t)
	conn := h.dial(t)

	send(t, conn, Command{Type: CmdJoinRoom, Room: "platinum"})
	ev := waitFor(t, conn, EvtError)
	if ev.Code != CodeUnknownRoom {
		t.Errorf("error code = %q, want %q", ev.Code, CodeUnknownRoom)
	}
}

func TestPlaceBid_RequiresAuth(t *testing.T) {
	h := newTestHarness(t)
	conn := h.dial(t)

	send(t, conn, Command{Type: CmdPlaceBid, Room: "bronze"})
	ev := waitFor(t, conn, EvtError)
	if ev.Code != CodeAuth {
		t.Errorf("error code = %q, want %q", ev.Code, CodeAuth)
	}
}

func TestPlaceBid(t *testing.T) {
	h := newTestHarness(t)
	h.store.Seed("alice@example.com", "Alice", 500)

	conn := h.dial(t)
	// Registration claims the seeded legacy account and keeps its balance.
	register(t, conn, "alice@example.com", "Alice")

	send(t, conn, Command{Type: CmdJoinRoom, Room: "bronze"})
	waitFor(t, conn, EvtJoined)

	send(t, conn, Command{Type: CmdPlaceBid, Room: "bronze"})
	ev := waitFor(t, conn, EvtBalanceUpdate)
	if ev.Balance == nil || *ev.Balance != 400 {
		t.Errorf("balance = %v, want 400", ev.Balance)
	}

	// The next broadcast reflects the bid.
	deadline := time.Now().Add(3 * time.Second)
	for {
		state := waitFor(t, conn, EvtRoomState)
		if state.State.Jackpot == 1095 && state.State.LastBidder == "Alice" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("broadcast never showed the bid: jackpot=%d lastBidder=%q",
				state.State.Jackpot, state.State.LastBidder)
		}
	}
}

func TestPlaceBid_InsufficientFunds(t *testing.T) {
	h := newTestHarness(t)
	h.store.Seed("bob@example.com", "Bob", 50)

	conn := h.dial(t)
	register(t, conn, "bob@example.com", "Bob")

	send(t, conn, Command{Type: CmdPlaceBid, Room: "bronze"})
	ev := waitFor(t, conn, EvtError)
	if ev.Code != CodeInsufficientFunds {
		t.Errorf("error code = %q, want %q", ev.Code, CodeInsufficientFunds)
	}
}

func TestVerifyDeposit(t *testing.T) {
	h := newTestHarness(t)
	conn := h.dial(t)
	register(t, conn, "alice@example.com", "Alice")

	send(t, conn, Command{Type: CmdVerifyDeposit, TxRef: "0xabc123", Network: "eth"})
	ev := waitFor(t, conn, EvtBalanceUpdate)

	// 0.5 ETH at 240000 cents/ETH.
	if ev.Credited == nil || *ev.Credited != 120000 {
		t.Errorf("credited = %v, want 120000", ev.Credited)
	}
	if ev.Balance == nil || *ev.Balance != 120000 {
		t.Errorf("balance = %v, want 120000", ev.Balance)
	}

	// Same txRef again: at-most-once redemption.
	send(t, conn, Command{Type: CmdVerifyDeposit, TxRef: "0xabc123", Network: "eth"})
	dup := waitFor(t, conn, EvtError)
	if dup.Code != CodeDuplicate {
		t.Errorf("error code = %q, want %q", dup.Code, CodeDuplicate)
	}

	account, _ := h.store.GetAccount(context.Background(), "alice@example.com")
	if account.Balance != 120000 {
		t.Errorf("balance after duplicate = %d, want unchanged 120000", account.Balance)
	}
}

func TestVerifyDeposit_WrongRecipient(t *testing.T) {
	h := newTestHarness(t)
	h.verifier.info.Recipient = "0xSOMEONEELSE"

	conn := h.dial(t)
	register(t, conn, "alice@example.com", "Alice")

	send(t, conn, Command{Type: CmdVerifyDeposit, TxRef: "0xabc123", Network: "eth"})
	ev := waitFor(t, conn, EvtError)
	if ev.Code != CodeValidation {
		t.Errorf("error code = %q, want %q", ev.Code, CodeValidation)
	}

	account, _ := h.store.GetAccount(context.Background(), "alice@example.com")
	if account.Balance != 0 {
		t.Errorf("balance = %d, want 0 after rejected deposit", account.Balance)
	}
}

func TestVerifyDeposit_CaseInsensitiveRecipient(t *testing.T) {
	h := newTestHarness(t)
	h.verifier.info.Recipient = strings.ToLower(testTreasury)

	conn := h.dial(t)
	register(t, conn, "alice@example.com", "Alice")

	send(t, conn, Command{Type: CmdVerifyDeposit, TxRef: "0xdef456", Network: "eth"})
	ev := waitFor(t, conn, EvtBalanceUpdate)
	if ev.Credited == nil || *ev.Credited != 120000 {
		t.Errorf("credited = %v, want 120000", ev.Credited)
	}
}

func TestVerifyDeposit_ChainUnavailable(t *testing.T) {
	h := newTestHarness(t)
	h.verifier.err = chain.ErrUnavailable

	conn := h.dial(t)
	register(t, conn, "alice@example.com", "Alice")

	send(t, conn, Command{Type: CmdVerifyDeposit, TxRef: "0xabc123", Network: "eth"})
	ev := waitFor(t, conn, EvtError)
	if ev.Code != CodeExternalUnavailable {
		t.Errorf("error code = %q, want %q", ev.Code, CodeExternalUnavailable)
	}
}

func TestRequestWithdrawal(t *testing.T) {
	h := newTestHarness(t)
	h.store.Seed("alice@example.com", "Alice", 10000)

	conn := h.dial(t)
	register(t, conn, "alice@example.com", "Alice")

	send(t, conn, Command{
		Type:    CmdRequestWithdrawal,
		Amount:  4000,
		Address: "0xdest",
		Network: "eth",
	})

	balance := waitFor(t, conn, EvtBalanceUpdate)
	if balance.Balance == nil || *balance.Balance != 6000 {
		t.Errorf("balance = %v, want 6000", balance.Balance)
	}

	history := waitFor(t, conn, EvtWithdrawalHistory)
	if len(history.Withdrawals) != 1 {
		t.Fatalf("len(withdrawals) = %d, want 1", len(history.Withdrawals))
	}
	w := history.Withdrawals[0]
	if w.Status != model.WithdrawalPending {
		t.Errorf("status = %q, want PENDING", w.Status)
	}
	if w.Amount != 4000 || w.Address != "0xdest" {
		t.Errorf("withdrawal = %+v, want amount 4000 to 0xdest", w)
	}
}

func TestRequestWithdrawal_InsufficientFunds(t *testing.T) {
	h := newTestHarness(t)
	h.store.Seed("alice@example.com", "Alice", 100)

	conn := h.dial(t)
	register(t, conn, "alice@example.com", "Alice")

	send(t, conn, Command{
		Type:    CmdRequestWithdrawal,
		Amount:  4000,
		Address: "0xdest",
		Network: "eth",
	})
	ev := waitFor(t, conn, EvtError)
	if ev.Code != CodeInsufficientFunds {
		t.Errorf("error code = %q, want %q", ev.Code, CodeInsufficientFunds)
	}
}

func TestGetBalance(t *testing.T) {
	h := newTestHarness(t)
	conn := h.dial(t)
	register(t, conn, "alice@example.com", "Alice")

	send(t, conn, Command{Type: CmdGetBalance})
	balance := waitFor(t, conn, EvtBalanceUpdate)
	if balance.Balance == nil || *balance.Balance != 0 {
		t.Errorf("balance = %v, want 0", balance.Balance)
	}

	history := waitFor(t, conn, EvtWithdrawalHistory)
	if len(history.Withdrawals) != 0 {
		t.Errorf("len(withdrawals) = %d, want 0", len(history.Withdrawals))
	}
}

func TestMalformedCommand(t *testing.T) {
	h := newTestHarness(t)
	conn := h.dial(t)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	ev := waitFor(t, conn, EvtError)
	if ev.Code != CodeValidation {
		t.Errorf("error code = %q, want %q", ev.Code, CodeValidation)
	}
}
