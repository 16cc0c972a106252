// Package inventory lists the fungible holdings of a wallet through an asset
// indexing service.
package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/vitwit/checkout/logger"
	"github.com/vitwit/checkout/types"
	"github.com/vitwit/checkout/utils"
)

const (
	methodAssetsByOwner = "getAssetsByOwner"
	pageLimit           = 1000
	maxBodyBytes        = 16 << 20
)

// Fetcher queries the indexer for fungible assets. It neither caches nor
// retries.
type Fetcher struct {
	endpoint   string
	httpClient *http.Client
	logger     logger.Logger
}

type Option func(*Fetcher)

func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.httpClient = c
	}
}

func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// NewFetcher creates a fetcher for the indexer at endpoint. A non-empty apiKey
// is sent as the api-key query parameter.
func NewFetcher(endpoint, apiKey string, timeout time.Duration, opts ...Option) (*Fetcher, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, &types.CheckoutError{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("invalid indexer url: %v", err),
			Err:     err,
		}
	}
	if apiKey != "" {
		q := u.Query()
		q.Set("api-key", apiKey)
		u.RawQuery = q.Encode()
	}

	f := &Fetcher{
		endpoint:   u.String(),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.NoopLogger{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// FetchAssets returns the normalized fungible holdings of owner.
func (f *Fetcher) FetchAssets(ctx context.Context, owner string) ([]types.AssetRecord, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  methodAssetsByOwner,
		Params: ownerParams{
			OwnerAddress:   owner,
			Page:           1,
			Limit:          pageLimit,
			DisplayOptions: displayOptions{ShowFungible: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode indexer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build indexer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrNetworkError, err, "indexer unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, types.NewError(types.ErrNetworkError, err, "failed to read indexer response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.CheckoutError{
			Code:    types.ErrNetworkError,
			Message: fmt.Sprintf("indexer returned status %d", resp.StatusCode),
			Data:    types.ExtraData{"status": resp.StatusCode, "body": string(raw)},
		}
	}

	var out rpcResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, types.NewError(types.ErrMalformedResponse, err, "failed to decode indexer response")
	}

	if out.Error != nil {
		return nil, &types.CheckoutError{
			Code:    types.ErrNetworkError,
			Message: fmt.Sprintf("indexer error %d: %s", out.Error.Code, out.Error.Message),
			Data:    out.Error,
		}
	}

	if out.Result == nil || out.Result.Items == nil {
		return nil, &types.CheckoutError{
			Code:    types.ErrMalformedResponse,
			Message: "indexer response has no item list",
		}
	}

	assets := make([]types.AssetRecord, 0, len(*out.Result.Items))
	for i, it := range *out.Result.Items {
		if !fungibleInterfaces[it.Interface] {
			continue
		}

		record, err := normalize(it)
		if err != nil {
			f.logger.Warn("rejecting indexer item", map[string]any{
				"index": i,
				"owner": owner,
				"error": err,
			})
			return nil, err
		}
		assets = append(assets, record)
	}

	f.logger.Debug("fetched assets", map[string]any{
		"owner":    owner,
		"items":    len(*out.Result.Items),
		"fungible": len(assets),
	})

	return assets, nil
}

// normalize turns a wire item into an AssetRecord. Descriptive fields fall
// back to types.UnknownField; fields needed for valuation must be present.
func normalize(it item) (types.AssetRecord, error) {
	if it.ID == nil || *it.ID == "" {
		return types.AssetRecord{}, malformed("fungible item without id")
	}
	mint := *it.ID

	ti := it.TokenInfo
	if ti == nil {
		return types.AssetRecord{}, malformed("asset %s has no token_info", mint)
	}
	if ti.Balance == nil {
		return types.AssetRecord{}, malformed("asset %s has no balance", mint)
	}
	if ti.Decimals == nil {
		return types.AssetRecord{}, malformed("asset %s has no decimals", mint)
	}
	if ti.Balance.IsNegative() {
		return types.AssetRecord{}, malformed("asset %s has negative balance %s", mint, ti.Balance)
	}

	record := types.AssetRecord{
		Name:     types.UnknownField,
		Symbol:   types.UnknownField,
		ImageURL: types.UnknownField,
		Mint:     mint,
		Balance:  utils.ScaleAmount(*ti.Balance, *ti.Decimals),
		Decimals: *ti.Decimals,
	}

	if c := it.Content; c != nil {
		if m := c.Metadata; m != nil {
			record.Name = orUnknown(m.Name)
			record.Symbol = orUnknown(m.Symbol)
		}
		if l := c.Links; l != nil {
			record.ImageURL = orUnknown(l.Image)
		}
	}
	if record.Symbol == types.UnknownField {
		record.Symbol = orUnknown(ti.Symbol)
	}

	if p := ti.PriceInfo; p != nil {
		record.ReferencePrice = p.TotalPrice
		record.PricePerToken = p.PricePerToken
		if p.Currency != nil {
			record.Currency = *p.Currency
		}
	}

	if err := utils.ValidateStruct(&record); err != nil {
		return types.AssetRecord{}, types.NewError(types.ErrMalformedResponse, err, "asset %s failed validation", mint)
	}

	return record, nil
}

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return types.UnknownField
	}
	return *s
}

func malformed(format string, args ...any) *types.CheckoutError {
	return &types.CheckoutError{
		Code:    types.ErrMalformedResponse,
		Message: fmt.Sprintf(format, args...),
	}
}
