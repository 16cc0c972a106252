package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/types"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultMaxPolls     = 30
)

// rpcAPI is the part of *rpc.Client the Solana client uses.
type rpcAPI interface {
	SendRawTransactionWithOpts(ctx context.Context, rawTx []byte, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// SolanaClient broadcasts signed transactions over JSON-RPC
type SolanaClient struct {
	network      types.Network
	rpcURL       string
	client       rpcAPI
	closer       func() error
	maxRetries   uint
	pollInterval time.Duration
	maxPolls     uint64
	logger       logger.Logger
}

var _ Broadcaster = (*SolanaClient)(nil)

type SolanaOption func(*SolanaClient)

// WithMaxRetries sets how often the RPC node rebroadcasts; capped at 10.
func WithMaxRetries(n uint) SolanaOption {
	return func(c *SolanaClient) {
		if n > types.MaxBroadcastRetries {
			n = types.MaxBroadcastRetries
		}
		c.maxRetries = n
	}
}

// WithPolling sets the confirmation poll interval and the number of polls
// after the first before giving up.
func WithPolling(interval time.Duration, maxPolls uint64) SolanaOption {
	return func(c *SolanaClient) {
		if interval > 0 {
			c.pollInterval = interval
		}
		if maxPolls > 0 {
			c.maxPolls = maxPolls
		}
	}
}

func WithLogger(l logger.Logger) SolanaOption {
	return func(c *SolanaClient) {
		c.logger = l
	}
}

// NewSolanaClient creates a Solana client
func NewSolanaClient(network types.Network, rpcURL string, opts ...SolanaOption) (*SolanaClient, error) {
	if !network.IsSupported() {
		return nil, &types.CheckoutError{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("unsupported network: %s", network),
		}
	}
	if rpcURL == "" {
		rpcURL = network.DefaultRPCURL()
	}

	rc := rpc.New(rpcURL)
	c := &SolanaClient{
		network:      network,
		rpcURL:       rpcURL,
		client:       rc,
		closer:       rc.Close,
		maxRetries:   types.MaxBroadcastRetries,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
		logger:       logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SendRawTransaction broadcasts the signed wire bytes with preflight at
// finalized commitment.
func (c *SolanaClient) SendRawTransaction(ctx context.Context, raw []byte) (solana.Signature, error) {
	maxRetries := c.maxRetries
	sig, err := c.client.SendRawTransactionWithOpts(ctx, raw, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentFinalized,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		return solana.Signature{}, &types.CheckoutError{
			Code:    types.ErrNetworkError,
			Message: "broadcast failed",
			Data:    types.ExtraData{"reason": ReasonBroadcastFailed, "network": c.network},
			Err:     err,
		}
	}

	c.logger.Debug("transaction broadcast", map[string]any{
		"signature": sig.String(),
		"network":   c.network.String(),
	})
	return sig, nil
}

// WaitForConfirmation polls the signature status until it is finalized or
// reports an error. An on-chain failure is returned as a Confirmation with
// Err set, not as an error.
func (c *SolanaClient) WaitForConfirmation(ctx context.Context, sig solana.Signature) (*types.Confirmation, error) {
	var (
		conf    *types.Confirmation
		lastErr error
	)

	poll := func() error {
		out, err := c.client.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			lastErr = err
			c.logger.Debug("signature status query failed", map[string]any{
				"signature": sig.String(),
				"error":     err,
			})
			return err
		}
		if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
			return errPending
		}

		status := out.Value[0]
		if status.Err == nil && status.ConfirmationStatus != rpc.ConfirmationStatusFinalized {
			return errPending
		}

		conf = &types.Confirmation{
			Signature: sig.String(),
			Slot:      status.Slot,
			Status:    string(status.ConfirmationStatus),
			Err:       status.Err,
		}
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.pollInterval), c.maxPolls),
		ctx,
	)
	if err := backoff.Retry(poll, b); err != nil {
		reason := ReasonConfirmationTimedOut
		if lastErr != nil && err == lastErr {
			reason = ReasonSignatureStatusFailed
		}
		return nil, &types.CheckoutError{
			Code:    types.ErrConfirmationTimeout,
			Message: fmt.Sprintf("transaction %s not finalized", sig),
			Data: types.ExtraData{
				"reason":      reason,
				"signature":   sig.String(),
				"explorerUrl": c.network.ExplorerURL(sig.String()),
			},
			Err: err,
		}
	}

	return conf, nil
}

func (c *SolanaClient) GetNetwork() types.Network { return c.network }

func (c *SolanaClient) Close() {
	if c.closer != nil {
		if err := c.closer(); err != nil {
			c.logger.Warn("failed to close rpc client", map[string]any{"error": err})
		}
	}
}
