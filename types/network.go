package types

import (
	"fmt"

	"github.com/gagliardetto/solana-go/rpc"
)

// Network selects the cluster payments are broadcast to.
type Network string

const (
	NetworkSolanaMainnet Network = "solana-mainnet"
	NetworkSolanaDevnet  Network = "solana-devnet" // testnet
)

const explorerBase = "https://explorer.solana.com/tx/"

func (n Network) IsTestnet() bool {
	return n == NetworkSolanaDevnet
}

func (n Network) IsSupported() bool {
	return n == NetworkSolanaMainnet || n == NetworkSolanaDevnet
}

// DefaultRPCURL returns the public RPC endpoint of the cluster.
func (n Network) DefaultRPCURL() string {
	if n.IsTestnet() {
		return rpc.DevNet_RPC
	}
	return rpc.MainNetBeta_RPC
}

// ExplorerURL links a signature to the public block explorer.
func (n Network) ExplorerURL(signature string) string {
	if n.IsTestnet() {
		return fmt.Sprintf("%s%s?cluster=devnet", explorerBase, signature)
	}
	return explorerBase + signature
}

func (n Network) String() string {
	return string(n)
}
