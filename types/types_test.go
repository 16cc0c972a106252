package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{Network: NetworkSolanaDevnet, BroadcastMaxRetries: 25}.WithDefaults()

	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultConfirmTimeout, cfg.ConfirmTimeout)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, MaxBroadcastRetries, cfg.BroadcastMaxRetries)
	assert.Equal(t, rpc.DevNet_RPC, cfg.RPCURL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestIsCodeThroughWrapping(t *testing.T) {
	base := NewError(ErrUserRejected, errors.New("declined"), "wallet declined")
	wrapped := fmt.Errorf("submit: %w", base)

	require.True(t, IsCode(wrapped, ErrUserRejected))
	assert.False(t, IsCode(wrapped, ErrNetworkError))
	assert.False(t, IsCode(errors.New("plain"), ErrUserRejected))
	assert.Equal(t, "wallet declined: declined", base.Error())
}

func TestExplorerURL(t *testing.T) {
	assert.Equal(t, "https://explorer.solana.com/tx/abc?cluster=devnet", NetworkSolanaDevnet.ExplorerURL("abc"))
	assert.Equal(t, "https://explorer.solana.com/tx/abc", NetworkSolanaMainnet.ExplorerURL("abc"))
}
