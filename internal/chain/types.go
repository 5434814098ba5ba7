package chain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errors
var (
	// ErrTxNotFound means the reference could not be resolved within the
	// retry budget. The caller may retry manually later.
	ErrTxNotFound = errors.New("transaction not found")

	// ErrUnavailable means the lookup endpoint was unreachable or kept
	// failing within the retry budget.
	ErrUnavailable = errors.New("chain lookup unavailable")

	// ErrUnknownNetwork means no endpoint is configured for the network.
	ErrUnknownNetwork = errors.New("unknown network")
)

// TxInfo is the resolved detail of an on-chain transaction.
type TxInfo struct {
	Recipient string          // Address the transaction paid to
	Value     decimal.Decimal // Paid amount in the network's native unit
}

// txResponse is the lookup endpoint's wire format.
type txResponse struct {
	Recipient string `json:"recipient"`
	Value     string `json:"value"`
}

// APIError represents an error response from a lookup endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chain lookup error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether the endpoint says the transaction does not
// exist (yet). Not-found is retried: deposits are often submitted before the
// indexer has seen them.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}
