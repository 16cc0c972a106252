package clients

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/vitwit/checkout/types"
)

// Broadcaster submits signed transactions and waits for their confirmation.
type Broadcaster interface {
	SendRawTransaction(ctx context.Context, raw []byte) (solana.Signature, error)
	WaitForConfirmation(ctx context.Context, sig solana.Signature) (*types.Confirmation, error)
	GetNetwork() types.Network
	Close()
}
