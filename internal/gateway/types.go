package gateway

import (
	"errors"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/model"
)

// Command types accepted from clients.
const (
	CmdJoinRoom          = "joinRoom"
	CmdLeaveRoom         = "leaveRoom"
	CmdPlaceBid          = "placeBid"
	CmdGetBalance        = "getBalance"
	CmdVerifyDeposit     = "verifyDeposit"
	CmdRequestWithdrawal = "requestWithdrawal"
	CmdRegister          = "register"
	CmdLogin             = "login"
)

// Event types sent to clients.
const (
	EvtRoomState         = "roomState"
	EvtJoined            = "joined"
	EvtLeft              = "left"
	EvtSession           = "session"
	EvtBalanceUpdate     = "balanceUpdate"
	EvtWithdrawalHistory = "withdrawalHistory"
	EvtError             = "error"
)

// Error codes carried on error events.
const (
	CodeValidation          = "validation"
	CodeInsufficientFunds   = "insufficient_funds"
	CodeNotFound            = "not_found"
	CodeDuplicate           = "duplicate"
	CodeExternalUnavailable = "external_unavailable"
	CodeAuth                = "auth"
	CodeRoundClosed         = "round_closed"
	CodeUnknownRoom         = "unknown_room"
)

var (
	// ErrSendBufferFull means a slow client's outbound queue overflowed.
	ErrSendBufferFull = errors.New("gateway: send buffer full")

	// ErrSessionClosed means the connection has been torn down.
	ErrSessionClosed = errors.New("gateway: session closed")
)

// Command is one inbound client message.
type Command struct {
	Type string `json:"type"`

	// joinRoom / leaveRoom / placeBid
	Room string `json:"room,omitempty"`

	// register / login
	Email       string `json:"email,omitempty"`
	Password    string `json:"password,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Token       string `json:"token,omitempty"`

	// verifyDeposit
	TxRef   string `json:"txRef,omitempty"`
	Network string `json:"network,omitempty"`

	// requestWithdrawal
	Amount  model.Cents `json:"amount,omitempty"`
	Address string      `json:"address,omitempty"`
}

// Event is one outbound server message. Fields are populated per type.
type Event struct {
	Type string `json:"type"`

	// roomState
	State    *model.RoundSnapshot `json:"state,omitempty"`
	Presence int64                `json:"presence,omitempty"`

	// joined / left
	Room string `json:"room,omitempty"`

	// session
	Token       string `json:"token,omitempty"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`

	// balanceUpdate / session
	Balance *model.Cents `json:"balance,omitempty"`

	// verifyDeposit acknowledgement
	Credited *model.Cents `json:"credited,omitempty"`

	// withdrawalHistory
	Withdrawals []model.WithdrawalRequest `json:"withdrawals,omitempty"`

	// error
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func errorEvent(code, message string) Event {
	return Event{Type: EvtError, Code: code, Message: message}
}
