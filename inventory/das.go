package inventory

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Wire types of the indexer's getAssetsByOwner method. Every nested field is
// optional on the wire.

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  ownerParams `json:"params"`
}

type ownerParams struct {
	OwnerAddress   string         `json:"ownerAddress"`
	Page           int            `json:"page"`
	Limit          int            `json:"limit"`
	DisplayOptions displayOptions `json:"displayOptions"`
}

type displayOptions struct {
	ShowFungible bool `json:"showFungible"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Result  *result   `json:"result"`
	Error   *rpcError `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type result struct {
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Items *[]item `json:"items"`
}

type item struct {
	Interface string     `json:"interface"`
	ID        *string    `json:"id"`
	Content   *content   `json:"content"`
	TokenInfo *tokenInfo `json:"token_info"`
}

type content struct {
	Metadata *struct {
		Name   *string `json:"name"`
		Symbol *string `json:"symbol"`
	} `json:"metadata"`
	Links *struct {
		Image *string `json:"image"`
	} `json:"links"`
}

type tokenInfo struct {
	Symbol    *string          `json:"symbol"`
	Balance   *decimal.Decimal `json:"balance"`
	Decimals  *int             `json:"decimals"`
	PriceInfo *priceInfo       `json:"price_info"`
}

type priceInfo struct {
	PricePerToken *decimal.Decimal `json:"price_per_token"`
	TotalPrice    *decimal.Decimal `json:"total_price"`
	Currency      *string          `json:"currency"`
}

var fungibleInterfaces = map[string]bool{
	"FungibleToken": true,
	"FungibleAsset": true,
}
