// Package wallet defines the signing capability a checkout session pays with.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// ErrUserRejected is returned when the wallet holder declines to sign.
var ErrUserRejected = errors.New("wallet: user rejected the request")

// ErrNotConnected is returned when signing is requested from a disconnected wallet.
var ErrNotConnected = errors.New("wallet: not connected")

// Wallet supplies the payer identity and signs transactions on its behalf.
type Wallet interface {
	PublicKey() solana.PublicKey
	Connected() bool
	SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error)
}

// ApproveFunc decides whether a signature request is approved.
type ApproveFunc func(ctx context.Context, tx *solana.Transaction) bool

// KeypairWallet signs with an in-process private key.
type KeypairWallet struct {
	key     solana.PrivateKey
	approve ApproveFunc

	mu        sync.RWMutex
	connected bool
}

var _ Wallet = (*KeypairWallet)(nil)

// NewKeypairWallet returns a connected wallet for key. A nil approve func
// approves every request.
func NewKeypairWallet(key solana.PrivateKey, approve ApproveFunc) *KeypairWallet {
	return &KeypairWallet{
		key:       key,
		approve:   approve,
		connected: true,
	}
}

// LoadKeypairWallet reads a solana-keygen JSON key file.
func LoadKeypairWallet(path string, approve ApproveFunc) (*KeypairWallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}
	return NewKeypairWallet(key, approve), nil
}

func (w *KeypairWallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

func (w *KeypairWallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

func (w *KeypairWallet) Disconnect() {
	w.mu.Lock()
	w.connected = false
	w.mu.Unlock()
}

// SignTransaction places the wallet's signature in its signer slot, leaving
// other signatures untouched.
func (w *KeypairWallet) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	if !w.Connected() {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if w.approve != nil && !w.approve(ctx, tx) {
		return nil, ErrUserRejected
	}

	pub := w.key.PublicKey()
	required := int(tx.Message.Header.NumRequiredSignatures)
	slot := -1
	for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(pub) {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, fmt.Errorf("wallet %s is not a required signer", pub)
	}

	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	sig, err := w.key.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}

	for len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, solana.Signature{})
	}
	tx.Signatures[slot] = sig

	return tx, nil
}
