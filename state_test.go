package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vitwit/checkout/types"
)

func TestSubmitLabelNeverUnderstatesQuantity(t *testing.T) {
	s := Snapshot{
		Phase:     PhaseReady,
		Connected: true,
		Assets: []types.AssetRecord{
			{Symbol: "USDC", Mint: usdcMint, Decimals: 6},
		},
		Selected: &types.SelectedAsset{Mint: usdcMint, RequiredQuantity: dec("0.1234567")},
	}
	assert.Equal(t, "Pay 0.123457 USDC", s.SubmitLabel())
	assert.True(t, s.CanSubmit())
}

func TestSubmitLabelStates(t *testing.T) {
	sel := &types.SelectedAsset{Name: "Mystery", Mint: junkMint, RequiredQuantity: dec("2")}

	tests := []struct {
		name string
		snap Snapshot
		want string
	}{
		{"disconnected", Snapshot{}, "Connect wallet"},
		{"loading", Snapshot{Connected: true, Phase: PhaseFetchingAssets}, "Loading tokens..."},
		{"submitting", Snapshot{Connected: true, Phase: PhaseSubmitting, Selected: sel}, "Processing..."},
		{"paid", Snapshot{Connected: true, Phase: PhaseSucceeded, Selected: sel}, "Paid"},
		{"no selection", Snapshot{Connected: true, Phase: PhaseReady}, "Select a token"},
		{"unlisted asset uses name", Snapshot{Connected: true, Phase: PhaseReady, Selected: sel}, "Pay 2 Mystery"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snap.SubmitLabel())
		})
	}
}
