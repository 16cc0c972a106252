package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/checkout/types"
	"github.com/vitwit/checkout/wallet"
)

type fakeBroadcaster struct {
	sent       [][]byte
	sendErr    error
	conf       *types.Confirmation
	confirmErr error
	waited     int
}

func (f *fakeBroadcaster) SendRawTransaction(_ context.Context, raw []byte) (solana.Signature, error) {
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	f.sent = append(f.sent, raw)
	return solana.Signature{42}, nil
}

func (f *fakeBroadcaster) WaitForConfirmation(_ context.Context, sig solana.Signature) (*types.Confirmation, error) {
	f.waited++
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return f.conf, nil
}

func (f *fakeBroadcaster) GetNetwork() types.Network { return types.NetworkSolanaDevnet }
func (f *fakeBroadcaster) Close()                    {}

func prepared(t *testing.T, payer solana.PublicKey) *types.PreparedTransaction {
	t.Helper()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(1_000_000, payer, solana.NewWallet().PublicKey()).Build(),
		},
		solana.Hash{3},
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return &types.PreparedTransaction{Payer: payer.String(), Mint: "mint", Payload: raw}
}

func TestSubmitSuccess(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	b := &fakeBroadcaster{conf: &types.Confirmation{Slot: 77, Status: "finalized"}}
	p := NewPipeline(b, time.Second)

	res, err := p.Submit(context.Background(), prepared(t, key.PublicKey()), wallet.NewKeypairWallet(key, nil))
	require.NoError(t, err)
	assert.True(t, res.Confirmed)
	assert.Equal(t, uint64(77), res.Slot)
	assert.Equal(t, solana.Signature{42}.String(), res.Signature)
	assert.Contains(t, res.ExplorerURL, "cluster=devnet")

	require.Len(t, b.sent, 1)
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(b.sent[0]))
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 1)
	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	assert.True(t, tx.Signatures[0].Verify(key.PublicKey(), msg), "broadcast bytes carry the wallet signature")
}

func TestSubmitUserRejectedSkipsBroadcast(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	b := &fakeBroadcaster{}
	w := wallet.NewKeypairWallet(key, func(context.Context, *solana.Transaction) bool { return false })

	res, err := NewPipeline(b, time.Second).Submit(context.Background(), prepared(t, key.PublicKey()), w)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, types.IsCode(err, types.ErrUserRejected))
	assert.ErrorIs(t, err, wallet.ErrUserRejected)
	assert.Empty(t, b.sent)
	assert.Zero(t, b.waited)
}

func TestSubmitConfirmationErrorIsFailure(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	detail := map[string]any{"InstructionError": []any{0, map[string]any{"Custom": 1}}}
	b := &fakeBroadcaster{conf: &types.Confirmation{Slot: 9, Status: "processed", Err: detail}}

	res, err := NewPipeline(b, time.Second).Submit(context.Background(), prepared(t, key.PublicKey()), wallet.NewKeypairWallet(key, nil))
	require.Error(t, err)
	require.NotNil(t, res)
	assert.False(t, res.Confirmed)
	assert.Equal(t, detail, res.ErrorDetail)

	var ce *types.CheckoutError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, types.ErrTransactionFailed, ce.Code)
	data := ce.Data.(types.ExtraData)
	assert.Equal(t, detail, data["detail"])
	assert.Equal(t, res.ExplorerURL, data["explorerUrl"])
	assert.Contains(t, ce.Message, res.Signature)
}

func TestSubmitConfirmationTimeout(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	b := &fakeBroadcaster{confirmErr: &types.CheckoutError{Code: types.ErrConfirmationTimeout, Message: "not finalized"}}

	res, err := NewPipeline(b, time.Second).Submit(context.Background(), prepared(t, key.PublicKey()), wallet.NewKeypairWallet(key, nil))
	assert.True(t, types.IsCode(err, types.ErrConfirmationTimeout))
	require.NotNil(t, res)
	assert.False(t, res.Confirmed)
}

func TestSubmitBroadcastError(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	b := &fakeBroadcaster{sendErr: &types.CheckoutError{Code: types.ErrNetworkError, Message: "broadcast failed"}}

	_, err := NewPipeline(b, time.Second).Submit(context.Background(), prepared(t, key.PublicKey()), wallet.NewKeypairWallet(key, nil))
	assert.True(t, types.IsCode(err, types.ErrNetworkError))
	assert.Zero(t, b.waited)
}

func TestSubmitRejectsForeignTransaction(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	b := &fakeBroadcaster{}

	_, err := NewPipeline(b, time.Second).Submit(context.Background(), prepared(t, solana.NewWallet().PublicKey()), wallet.NewKeypairWallet(key, nil))
	assert.True(t, types.IsCode(err, types.ErrMalformedResponse))
	assert.Empty(t, b.sent)
}

func TestSubmitDisconnectedWallet(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	w := wallet.NewKeypairWallet(key, nil)
	w.Disconnect()

	_, err := NewPipeline(&fakeBroadcaster{}, time.Second).Submit(context.Background(), prepared(t, key.PublicKey()), w)
	assert.True(t, types.IsCode(err, types.ErrWalletNotConnected))

	_, err = NewPipeline(&fakeBroadcaster{}, time.Second).Submit(context.Background(), prepared(t, key.PublicKey()), nil)
	assert.True(t, types.IsCode(err, types.ErrWalletNotConnected))
}

type failingWallet struct{ key solana.PrivateKey }

func (f failingWallet) PublicKey() solana.PublicKey { return f.key.PublicKey() }
func (f failingWallet) Connected() bool             { return true }
func (f failingWallet) SignTransaction(context.Context, *solana.Transaction) (*solana.Transaction, error) {
	return nil, errors.New("hardware wallet unplugged")
}

func TestSubmitSigningFailure(t *testing.T) {
	key := solana.NewWallet().PrivateKey

	_, err := NewPipeline(&fakeBroadcaster{}, time.Second).Submit(context.Background(), prepared(t, key.PublicKey()), failingWallet{key})
	assert.True(t, types.IsCode(err, types.ErrSigningFailed))
}
