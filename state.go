package checkout

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vitwit/checkout/types"
	"github.com/vitwit/checkout/utils"
)

// Phase is the controller's position in the checkout flow.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseFetchingAssets Phase = "fetching_assets"
	PhaseReady          Phase = "ready"
	PhaseSubmitting     Phase = "submitting"
	PhaseSucceeded      Phase = "succeeded"
	PhaseFailed         Phase = "failed"
)

// Status is the coarse state shown to the user.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient message for the user.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message"`
	Link    string      `json:"link,omitempty"`
}

func noticeFromError(err error) *Notice {
	n := &Notice{Level: NoticeError, Message: err.Error()}

	var ce *types.CheckoutError
	if errors.As(err, &ce) {
		n.Code = ce.Code
		n.Message = ce.Message
		if data, ok := ce.Data.(types.ExtraData); ok {
			if link, ok := data["explorerUrl"].(string); ok {
				n.Link = link
			}
		}
	}
	return n
}

// Snapshot is a read-only copy of the session state. Version increases with
// every state change.
type Snapshot struct {
	SessionID           string                  `json:"sessionId"`
	Version             uint64                  `json:"version"`
	Phase               Phase                   `json:"phase"`
	Status              Status                  `json:"status"`
	Connected           bool                    `json:"connected"`
	Owner               string                  `json:"owner,omitempty"`
	Items               []types.CatalogItem     `json:"items"`
	TotalReferencePrice decimal.Decimal         `json:"totalReferencePrice"`
	Assets              []types.AssetRecord     `json:"assets"`
	Selected            *types.SelectedAsset    `json:"selected,omitempty"`
	Notice              *Notice                 `json:"notice,omitempty"`
	LastResult          *types.SubmissionResult `json:"lastResult,omitempty"`
}

// CanSubmit reports whether a submit request would be attempted.
func (s Snapshot) CanSubmit() bool {
	return s.Connected && s.Selected != nil && s.Phase == PhaseReady
}

// Asset looks up a listed asset by mint.
func (s Snapshot) Asset(mint string) (types.AssetRecord, bool) {
	for _, a := range s.Assets {
		if a.Mint == mint {
			return a, true
		}
	}
	return types.AssetRecord{}, false
}

// SubmitLabel is the caption of the submit control.
func (s Snapshot) SubmitLabel() string {
	switch {
	case !s.Connected:
		return "Connect wallet"
	case s.Phase == PhaseFetchingAssets:
		return "Loading tokens..."
	case s.Phase == PhaseSubmitting:
		return "Processing..."
	case s.Phase == PhaseSucceeded:
		return "Paid"
	case s.Selected == nil:
		return "Select a token"
	}

	symbol, decimals := s.Selected.Name, utils.DefaultDisplayDecimals
	if a, ok := s.Asset(s.Selected.Mint); ok {
		if a.Symbol != types.UnknownField {
			symbol = a.Symbol
		}
		decimals = a.Decimals
	}
	return fmt.Sprintf("Pay %s %s", utils.FormatAmount(s.Selected.RequiredQuantity, decimals), symbol)
}
