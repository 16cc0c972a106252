// Package settlement signs and submits prepared payment transactions.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vitwit/checkout/clients"
	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/types"
	"github.com/vitwit/checkout/verification"
	"github.com/vitwit/checkout/wallet"
)

// Submitter defines the contract for payment submission
type Submitter interface {
	Submit(ctx context.Context, prepared *types.PreparedTransaction, w wallet.Wallet) (*types.SubmissionResult, error)
}

// Pipeline runs decode, sign, broadcast and confirmation strictly in order.
type Pipeline struct {
	broadcaster clients.Broadcaster
	timeout     time.Duration
	logger      logger.Logger
}

var _ Submitter = (*Pipeline)(nil)

type Option func(*Pipeline)

func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// NewPipeline creates a pipeline broadcasting through b. timeout bounds a
// whole submission, the wallet prompt included.
func NewPipeline(b clients.Broadcaster, timeout time.Duration, opts ...Option) *Pipeline {
	p := &Pipeline{
		broadcaster: b,
		timeout:     timeout,
		logger:      logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit signs prepared with w and broadcasts it. Only a finalized
// confirmation without an error counts as success.
func (p *Pipeline) Submit(
	ctx context.Context,
	prepared *types.PreparedTransaction,
	w wallet.Wallet,
) (*types.SubmissionResult, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if w == nil || !w.Connected() {
		return nil, &types.CheckoutError{
			Code:    types.ErrWalletNotConnected,
			Message: "connect a wallet before paying",
		}
	}
	payer := w.PublicKey()

	tx, err := verification.DecodePrepared(prepared)
	if err != nil {
		return nil, err
	}
	if err := verification.VerifyPrepared(tx, payer); err != nil {
		return nil, err
	}

	signed, err := w.SignTransaction(ctx, tx)
	switch {
	case errors.Is(err, wallet.ErrUserRejected):
		p.logger.Info("signature request rejected", map[string]any{"payer": payer.String()})
		return nil, types.NewError(types.ErrUserRejected, err, "transaction rejected in wallet")
	case errors.Is(err, wallet.ErrNotConnected):
		return nil, types.NewError(types.ErrWalletNotConnected, err, "wallet disconnected while signing")
	case err != nil:
		return nil, types.NewError(types.ErrSigningFailed, err, "wallet failed to sign")
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, types.NewError(types.ErrSigningFailed, err, "failed to encode signed transaction")
	}

	network := p.broadcaster.GetNetwork()
	sig, err := p.broadcaster.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, err
	}

	result := &types.SubmissionResult{
		Signature:   sig.String(),
		ExplorerURL: network.ExplorerURL(sig.String()),
	}

	p.logger.Info("transaction submitted", map[string]any{
		"signature": result.Signature,
		"payer":     payer.String(),
		"mint":      prepared.Mint,
		"network":   network.String(),
	})

	conf, err := p.broadcaster.WaitForConfirmation(ctx, sig)
	if err != nil {
		return result, err
	}
	result.Slot = conf.Slot

	if conf.Failed() {
		result.ErrorDetail = conf.Err
		p.logger.Warn("transaction failed on chain", map[string]any{
			"signature": result.Signature,
			"detail":    conf.Err,
		})
		return result, &types.CheckoutError{
			Code:    types.ErrTransactionFailed,
			Message: fmt.Sprintf("transaction failed, see %s", result.ExplorerURL),
			Data: types.ExtraData{
				"detail":      conf.Err,
				"signature":   result.Signature,
				"explorerUrl": result.ExplorerURL,
			},
		}
	}

	result.Confirmed = true
	return result, nil
}
