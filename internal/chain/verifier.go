package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Emmacapella/bidblaze-app-sub000/internal/config"
)

// Verifier resolves transaction references to their on-chain details.
type Verifier interface {
	// Resolve looks up a transaction on the given network, retrying within
	// a fixed budget. Returns ErrUnknownNetwork, ErrTxNotFound, or
	// ErrUnavailable on failure.
	Resolve(ctx context.Context, network, txRef string) (TxInfo, error)

	// Rate returns the conversion rate from on-chain units to cents for a
	// configured network.
	Rate(network string) (decimal.Decimal, bool)
}

// network is one configured lookup endpoint with its conversion rate.
type network struct {
	url    string
	apiKey string
	rate   decimal.Decimal
}

// HTTPVerifier implements Verifier over per-network HTTP lookup endpoints.
type HTTPVerifier struct {
	networks   map[string]network
	httpClient *http.Client
	logger     *slog.Logger

	maxAttempts int
	retryDelay  time.Duration
}

// Option configures an HTTPVerifier.
type Option func(*HTTPVerifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(v *HTTPVerifier) {
		v.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *HTTPVerifier) {
		v.logger = logger
	}
}

// WithRetry sets the retry budget: attempts and the fixed delay between them.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(v *HTTPVerifier) {
		v.maxAttempts = attempts
		v.retryDelay = delay
	}
}

// NewHTTPVerifier creates a verifier from chain config. Network rates must
// already be validated by config.Validate.
func NewHTTPVerifier(cfg config.ChainConfig, opts ...Option) (*HTTPVerifier, error) {
	v := &HTTPVerifier{
		networks: make(map[string]network, len(cfg.Networks)),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:      slog.Default(),
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
	}

	for name, nc := range cfg.Networks {
		rate, err := decimal.NewFromString(nc.Rate)
		if err != nil {
			return nil, fmt.Errorf("network %s rate: %w", name, err)
		}
		v.networks[name] = network{url: nc.URL, apiKey: nc.APIKey, rate: rate}
	}

	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

// Rate returns the configured conversion rate for a network.
func (v *HTTPVerifier) Rate(name string) (decimal.Decimal, bool) {
	net, ok := v.networks[name]
	if !ok {
		return decimal.Decimal{}, false
	}
	return net.rate, true
}

// Resolve looks up a transaction with a bounded fixed-delay retry.
func (v *HTTPVerifier) Resolve(ctx context.Context, networkName, txRef string) (TxInfo, error) {
	net, ok := v.networks[networkName]
	if !ok {
		return TxInfo{}, ErrUnknownNetwork
	}

	var lastErr error
	for attempt := 1; attempt <= v.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return TxInfo{}, ctx.Err()
			case <-time.After(v.retryDelay):
			}
		}

		info, err := v.lookup(ctx, net, txRef)
		if err == nil {
			return info, nil
		}
		lastErr = err

		v.logger.Debug("chain lookup attempt failed",
			"network", networkName,
			"tx_ref", txRef,
			"attempt", attempt,
			"err", err,
		)
	}

	if apiErr, ok := lastErr.(*APIError); ok && apiErr.IsNotFound() {
		return TxInfo{}, ErrTxNotFound
	}
	return TxInfo{}, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// lookup performs a single resolution attempt.
func (v *HTTPVerifier) lookup(ctx context.Context, net network, txRef string) (TxInfo, error) {
	fullURL := net.url + "/" + url.PathEscape(txRef)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return TxInfo{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if net.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+net.apiKey)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return TxInfo{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TxInfo{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return TxInfo{}, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}

	var tx txResponse
	if err := json.Unmarshal(body, &tx); err != nil {
		return TxInfo{}, fmt.Errorf("unmarshal response: %w", err)
	}

	value, err := decimal.NewFromString(tx.Value)
	if err != nil {
		return TxInfo{}, fmt.Errorf("parse value %q: %w", tx.Value, err)
	}

	return TxInfo{Recipient: tx.Recipient, Value: value}, nil
}
