// Package verification checks a prepared transaction before the wallet is
// asked to sign it.
package verification

import (
	"encoding/base64"
	"fmt"

	binary "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/vitwit/checkout/types"
)

// DecodePrepared decodes the prepared payload into a transaction.
func DecodePrepared(prepared *types.PreparedTransaction) (*solana.Transaction, error) {
	if prepared == nil {
		return nil, &types.CheckoutError{
			Code:    types.ErrMalformedResponse,
			Message: "no prepared transaction",
		}
	}

	payload := prepared.Payload
	if len(payload) == 0 {
		data, err := base64.StdEncoding.DecodeString(prepared.Encoded)
		if err != nil {
			return nil, types.NewError(types.ErrMalformedResponse, err, "invalid tx base64")
		}
		payload = data
	}

	tx, err := solana.TransactionFromDecoder(binary.NewBinDecoder(payload))
	if err != nil {
		return nil, types.NewError(types.ErrMalformedResponse, err, "failed to decode transaction")
	}

	return tx, nil
}

// VerifyPrepared checks that tx carries instructions and expects payer's
// signature.
func VerifyPrepared(tx *solana.Transaction, payer solana.PublicKey) error {
	if len(tx.Message.Instructions) == 0 {
		return &types.CheckoutError{
			Code:    types.ErrMalformedResponse,
			Message: "prepared transaction has no instructions",
		}
	}

	if tx.Message.Header.NumRequiredSignatures == 0 {
		return &types.CheckoutError{
			Code:    types.ErrMalformedResponse,
			Message: "prepared transaction requires no signatures",
		}
	}

	if !tx.Message.IsSigner(payer) {
		return &types.CheckoutError{
			Code:    types.ErrMalformedResponse,
			Message: fmt.Sprintf("prepared transaction does not require a signature from %s", payer),
			Data:    types.ExtraData{"payer": payer.String()},
		}
	}

	for _, inst := range tx.Message.Instructions {
		if int(inst.ProgramIDIndex) >= len(tx.Message.AccountKeys) {
			return &types.CheckoutError{
				Code:    types.ErrMalformedResponse,
				Message: fmt.Sprintf("instruction references unknown program index %d", inst.ProgramIDIndex),
			}
		}
	}

	return nil
}
