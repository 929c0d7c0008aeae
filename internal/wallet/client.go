// Package wallet is the client for the external operator wallet service.
// All three operations are idempotent at the wallet per transaction id.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Transaction type tags understood by the wallet API.
const (
	TypeDebit    = "debit"
	TypeCredit   = "credit"
	TypeRollback = "rollback"
)

// ErrWalletUnreachable wraps transport-level failures talking to the wallet.
var ErrWalletUnreachable = errors.New("wallet service unreachable")

// Transaction is the request payload of a wallet operation.
type Transaction struct {
	TransactionID   string          `json:"transaction_id"`
	RoundID         string          `json:"round_id"`
	UserID          string          `json:"user_id"`
	Username        string          `json:"username"`
	Amount          decimal.Decimal `json:"amount"`
	Game            string          `json:"game"`
	TransactionType string          `json:"transaction_type"`
	Status          string          `json:"status"`
	Metadata        map[string]any  `json:"metadata,omitempty"`
}

// Result is the wallet's answer to a successful operation.
type Result struct {
	NewBalance decimal.Decimal `json:"newBalance"`
}

// Client is the wallet operation surface the escrow layer consumes.
type Client interface {
	Debit(ctx context.Context, authToken string, tx Transaction) (Result, error)
	Credit(ctx context.Context, authToken string, tx Transaction) (Result, error)
	CreditRollback(ctx context.Context, authToken string, tx Transaction) (Result, error)
}

// HTTPClient talks to the operator wallet REST API.
type HTTPClient struct {
	baseURL string
	passKey string
	http    *http.Client
	log     *logrus.Logger
}

// NewHTTPClient builds a wallet client for baseURL authenticated by passKey.
func NewHTTPClient(baseURL, passKey string, timeout time.Duration, log *logrus.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		passKey: passKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Debit withdraws tx.Amount from the user's balance.
func (c *HTTPClient) Debit(ctx context.Context, authToken string, tx Transaction) (Result, error) {
	tx.TransactionType = TypeDebit
	return c.post(ctx, "/api/operator/wallet/debit", authToken, tx)
}

// Credit deposits tx.Amount into the user's balance.
func (c *HTTPClient) Credit(ctx context.Context, authToken string, tx Transaction) (Result, error) {
	tx.TransactionType = TypeCredit
	return c.post(ctx, "/api/operator/wallet/credit", authToken, tx)
}

// CreditRollback reverses an earlier debit identified by the metadata's
// original transaction id.
func (c *HTTPClient) CreditRollback(ctx context.Context, authToken string, tx Transaction) (Result, error) {
	tx.TransactionType = TypeRollback
	return c.post(ctx, "/api/operator/wallet/credit/rollback", authToken, tx)
}

func (c *HTTPClient) post(ctx context.Context, path, authToken string, tx Transaction) (Result, error) {
	body, err := json.Marshal(tx)
	if err != nil {
		return Result{}, fmt.Errorf("encode wallet transaction: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build wallet request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("pass-key", c.passKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrWalletUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read response: %v", ErrWalletUnreachable, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		c.log.WithFields(logrus.Fields{
			"tx":     tx.TransactionID,
			"type":   tx.TransactionType,
			"status": resp.StatusCode,
		}).Warn("wallet operation rejected")
		return Result{}, fmt.Errorf("wallet %s %s failed: %s", tx.TransactionType, tx.TransactionID, apiErr.Error)
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return Result{}, fmt.Errorf("decode wallet response: %w", err)
	}
	return res, nil
}
