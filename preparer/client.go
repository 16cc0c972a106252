// Package preparer obtains ready-to-sign payment transactions from the
// payment preparation service.
package preparer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/types"
	"github.com/vitwit/checkout/utils"
)

const (
	preparePath  = "/prepare-transaction"
	maxBodyBytes = 1 << 20
)

// PrepareRequest is the body sent to the preparation service.
type PrepareRequest struct {
	PublicKey string      `json:"publicKey" validate:"required,solanaaddr"`
	TokenMint string      `json:"tokenMint" validate:"required,solanaaddr"`
	Amount    json.Number `json:"amount" validate:"required"`
}

type prepareResponse struct {
	Transaction string `json:"transaction"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client calls the preparation service. It never retries.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     logger.Logger
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithLogger(l logger.Logger) Option {
	return func(cl *Client) {
		cl.logger = l
	}
}

// NewClient creates a client for the service at baseURL authenticating with
// the bearer token.
func NewClient(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.NoopLogger{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PrepareTransaction requests a transaction paying amount (reference
// currency) from payer with the token mint.
func (c *Client) PrepareTransaction(
	ctx context.Context,
	payer string,
	mint string,
	amount decimal.Decimal,
) (*types.PreparedTransaction, error) {
	reqBody := PrepareRequest{
		PublicKey: payer,
		TokenMint: mint,
		Amount:    json.Number(amount.String()),
	}
	if err := utils.ValidateStruct(&reqBody); err != nil {
		return nil, types.NewError(types.ErrPreparation, err, "invalid prepare request")
	}
	if !amount.IsPositive() {
		return nil, &types.CheckoutError{
			Code:    types.ErrPreparation,
			Message: fmt.Sprintf("amount must be positive, got %s", amount),
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode prepare request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+preparePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build prepare request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrNetworkError, err, "preparation service unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, types.NewError(types.ErrNetworkError, err, "failed to read preparation response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &types.CheckoutError{
			Code:    types.ErrAuthentication,
			Message: fmt.Sprintf("preparation service rejected credentials (status %d)", resp.StatusCode),
			Data:    errorDetail(raw),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		detail := errorDetail(raw)
		return nil, &types.CheckoutError{
			Code:    types.ErrPreparation,
			Message: fmt.Sprintf("preparation failed with status %d: %s", resp.StatusCode, detail),
			Data:    types.ExtraData{"status": resp.StatusCode, "detail": detail},
		}
	}

	var out prepareResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, types.NewError(types.ErrMalformedResponse, err, "failed to decode preparation response")
	}
	if out.Transaction == "" {
		return nil, &types.CheckoutError{
			Code:    types.ErrMalformedResponse,
			Message: "preparation response has no transaction",
		}
	}

	payload, err := base64.StdEncoding.DecodeString(out.Transaction)
	if err != nil {
		return nil, types.NewError(types.ErrMalformedResponse, err, "prepared transaction is not valid base64")
	}

	c.logger.Debug("transaction prepared", map[string]any{
		"payer":  payer,
		"mint":   mint,
		"amount": amount.String(),
		"bytes":  len(payload),
	})

	return &types.PreparedTransaction{
		Payer:    payer,
		Mint:     mint,
		Amount:   amount,
		Encoded:  out.Transaction,
		Payload:  payload,
		IssuedAt: c.now(),
	}, nil
}

// errorDetail extracts the service's error message, falling back to the raw body.
func errorDetail(raw []byte) string {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
