package clients

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/checkout/types"
)

type fakeRPC struct {
	mu       sync.Mutex
	sendErr  error
	sig      solana.Signature
	sentRaw  []byte
	sentOpts rpc.TransactionOpts

	// statuses are returned in order; the last one repeats.
	statuses  []*rpc.SignatureStatusesResult
	statusErr error
	polls     int
}

func (f *fakeRPC) SendRawTransactionWithOpts(_ context.Context, raw []byte, opts rpc.TransactionOpts) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentRaw = raw
	f.sentOpts = opts
	return f.sig, f.sendErr
}

func (f *fakeRPC) GetSignatureStatuses(_ context.Context, _ bool, _ ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	i := f.polls - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{f.statuses[i]}}, nil
}

func newTestClient(t *testing.T, fake *fakeRPC, opts ...SolanaOption) *SolanaClient {
	t.Helper()
	opts = append([]SolanaOption{WithPolling(time.Millisecond, 5)}, opts...)
	c, err := NewSolanaClient(types.NetworkSolanaDevnet, "", opts...)
	require.NoError(t, err)
	c.client = fake
	c.closer = nil
	return c
}

func TestSendRawTransactionOptions(t *testing.T) {
	fake := &fakeRPC{sig: solana.Signature{7}}
	c := newTestClient(t, fake, WithMaxRetries(50))

	sig, err := c.SendRawTransaction(context.Background(), []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, solana.Signature{7}, sig)
	assert.Equal(t, []byte{1, 2, 3}, fake.sentRaw)
	assert.Equal(t, rpc.CommitmentFinalized, fake.sentOpts.PreflightCommitment)
	require.NotNil(t, fake.sentOpts.MaxRetries)
	assert.Equal(t, uint(10), *fake.sentOpts.MaxRetries)
}

func TestSendRawTransactionError(t *testing.T) {
	c := newTestClient(t, &fakeRPC{sendErr: errors.New("blockhash not found")})

	_, err := c.SendRawTransaction(context.Background(), []byte{1})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrNetworkError))
}

func TestWaitForConfirmationFinalized(t *testing.T) {
	fake := &fakeRPC{statuses: []*rpc.SignatureStatusesResult{
		nil,
		{Slot: 10, ConfirmationStatus: rpc.ConfirmationStatusProcessed},
		{Slot: 11, ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		{Slot: 12, ConfirmationStatus: rpc.ConfirmationStatusFinalized},
	}}
	c := newTestClient(t, fake)

	conf, err := c.WaitForConfirmation(context.Background(), solana.Signature{1})
	require.NoError(t, err)
	assert.False(t, conf.Failed())
	assert.Equal(t, uint64(12), conf.Slot)
	assert.Equal(t, "finalized", conf.Status)
	assert.Equal(t, 4, fake.polls)
}

func TestWaitForConfirmationOnChainError(t *testing.T) {
	detail := map[string]any{"InstructionError": []any{0, "InsufficientFunds"}}
	fake := &fakeRPC{statuses: []*rpc.SignatureStatusesResult{
		{Slot: 5, ConfirmationStatus: rpc.ConfirmationStatusProcessed, Err: detail},
	}}
	c := newTestClient(t, fake)

	conf, err := c.WaitForConfirmation(context.Background(), solana.Signature{1})
	require.NoError(t, err)
	assert.True(t, conf.Failed())
	assert.Equal(t, detail, conf.Err)
	assert.Equal(t, 1, fake.polls)
}

func TestWaitForConfirmationGivesUp(t *testing.T) {
	fake := &fakeRPC{statuses: []*rpc.SignatureStatusesResult{
		{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
	}}
	c := newTestClient(t, fake)

	_, err := c.WaitForConfirmation(context.Background(), solana.Signature{1})
	require.Error(t, err)

	var ce *types.CheckoutError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, types.ErrConfirmationTimeout, ce.Code)
	assert.Equal(t, ReasonConfirmationTimedOut, ce.Data.(types.ExtraData)["reason"])
	assert.Equal(t, 6, fake.polls, "first poll plus five retries")
}

func TestWaitForConfirmationStatusQueryFails(t *testing.T) {
	fake := &fakeRPC{statusErr: errors.New("connection reset")}
	c := newTestClient(t, fake)

	_, err := c.WaitForConfirmation(context.Background(), solana.Signature{1})
	require.Error(t, err)

	var ce *types.CheckoutError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, types.ErrConfirmationTimeout, ce.Code)
	assert.Equal(t, ReasonSignatureStatusFailed, ce.Data.(types.ExtraData)["reason"])
}

func TestWaitForConfirmationRespectsContext(t *testing.T) {
	fake := &fakeRPC{statuses: []*rpc.SignatureStatusesResult{nil}}
	c := newTestClient(t, fake, WithPolling(10*time.Millisecond, 1000))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.WaitForConfirmation(ctx, solana.Signature{1})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrConfirmationTimeout))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewSolanaClientRejectsUnknownNetwork(t *testing.T) {
	_, err := NewSolanaClient(types.Network("polygon"), "")
	assert.True(t, types.IsCode(err, types.ErrConfigError))
}
