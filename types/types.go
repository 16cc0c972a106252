package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// UnknownField is the value used for descriptive asset fields the indexer omitted.
const UnknownField = "unknown"

// CatalogItem is one purchasable item priced in the reference currency.
type CatalogItem struct {
	ID          int             `json:"id" validate:"gte=0"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	ImageURL    string          `json:"imageUrl"`
}

// AssetRecord is a normalized fungible holding of the connected wallet.
type AssetRecord struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	ImageURL string `json:"imageUrl"`

	// Mint uniquely identifies the token.
	Mint string `json:"mint" validate:"required"`

	// Balance is already scaled by Decimals.
	Balance  decimal.Decimal `json:"balance"`
	Decimals int             `json:"decimals" validate:"gte=0,lte=255"`

	// ReferencePrice is the value of the whole held balance in the reference
	// currency as reported by the indexer. Nil when the indexer has no price.
	ReferencePrice *decimal.Decimal `json:"referencePrice,omitempty"`

	PricePerToken *decimal.Decimal `json:"pricePerToken,omitempty"`
	Currency      string           `json:"currency,omitempty"`
}

// HasValuation reports whether the record can be priced.
func (a AssetRecord) HasValuation() bool {
	return a.ReferencePrice != nil && a.ReferencePrice.IsPositive()
}

// SelectedAsset is derived from an AssetRecord and the catalog total.
type SelectedAsset struct {
	Name             string          `json:"name"`
	Mint             string          `json:"mint"`
	RequiredQuantity decimal.Decimal `json:"requiredQuantity"`
}

// PreparedTransaction is the single-use payload issued by the preparation
// service for one (payer, mint, amount) triple.
type PreparedTransaction struct {
	Payer    string          `json:"payer"`
	Mint     string          `json:"mint"`
	Amount   decimal.Decimal `json:"amount"`
	Encoded  string          `json:"transaction"`
	Payload  []byte          `json:"-"`
	IssuedAt time.Time       `json:"issuedAt"`
}

// Confirmation is the network's answer for a broadcast signature.
type Confirmation struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	Status    string `json:"status"`

	// Err is the raw error reported by the network, nil on success.
	Err any `json:"err,omitempty"`
}

// Failed reports whether the network reported an error for the transaction.
func (c *Confirmation) Failed() bool {
	return c != nil && c.Err != nil
}

// SubmissionResult contains the outcome of a submitted payment.
type SubmissionResult struct {
	Signature   string `json:"signature"`
	Confirmed   bool   `json:"confirmed"`
	Slot        uint64 `json:"slot,omitempty"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
	ErrorDetail any    `json:"errorDetail,omitempty"`
}

// ExtraData contains additional error or result context.
type ExtraData map[string]any

// Config contains the configuration for a checkout session.
type Config struct {
	Network       Network `json:"network" validate:"required,oneof=solana-mainnet solana-devnet"`
	RPCURL        string  `json:"rpcUrl" validate:"omitempty,url"`
	IndexerURL    string  `json:"indexerUrl" validate:"required,url"`
	IndexerAPIKey string  `json:"indexerApiKey,omitempty"`
	PreparerURL   string  `json:"preparerUrl" validate:"required,url"`
	PreparerToken string  `json:"preparerToken" validate:"required"`

	// Timeout bounds every outbound call; ConfirmTimeout bounds the
	// broadcast and confirmation stage.
	Timeout        time.Duration `json:"timeout,omitempty" validate:"gte=0"`
	ConfirmTimeout time.Duration `json:"confirmTimeout,omitempty" validate:"gte=0"`
	PollInterval   time.Duration `json:"pollInterval,omitempty" validate:"gte=0"`

	BroadcastMaxRetries uint   `json:"broadcastMaxRetries,omitempty" validate:"lte=10"`
	LogLevel            string `json:"logLevel,omitempty" validate:"omitempty,oneof=debug info warn error"`
	EnableMetrics       bool   `json:"enableMetrics,omitempty"`
}

// Defaults used when the configuration leaves a value unset.
const (
	DefaultTimeout             = 30 * time.Second
	DefaultConfirmTimeout      = 60 * time.Second
	DefaultPollInterval        = 2 * time.Second
	MaxBroadcastRetries   uint = 10
)

// WithDefaults returns a copy of the config with unset values filled in.
func (c Config) WithDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = DefaultConfirmTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.BroadcastMaxRetries == 0 || c.BroadcastMaxRetries > MaxBroadcastRetries {
		c.BroadcastMaxRetries = MaxBroadcastRetries
	}
	if c.RPCURL == "" {
		c.RPCURL = c.Network.DefaultRPCURL()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

// CheckoutError is the error type returned by every checkout component.
type CheckoutError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Err     error  `json:"-"`
}

func (e *CheckoutError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// NewError builds a CheckoutError with a formatted message.
func NewError(code string, cause error, format string, args ...any) *CheckoutError {
	return &CheckoutError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

// IsCode reports whether err is a CheckoutError carrying code.
func IsCode(err error, code string) bool {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// Common error codes
const (
	ErrNetworkError         = "NETWORK_ERROR"
	ErrMalformedResponse    = "MALFORMED_RESPONSE"
	ErrValuationUnavailable = "VALUATION_UNAVAILABLE"
	ErrAuthentication       = "AUTHENTICATION_ERROR"
	ErrPreparation          = "PREPARATION_ERROR"
	ErrUserRejected         = "USER_REJECTED"
	ErrSigningFailed        = "SIGNING_FAILED"
	ErrTransactionFailed    = "TRANSACTION_FAILED"
	ErrConfirmationTimeout  = "CONFIRMATION_TIMEOUT"
	ErrWalletNotConnected   = "WALLET_NOT_CONNECTED"
	ErrInvalidState         = "INVALID_STATE"
	ErrConfigError          = "CONFIG_ERROR"
)
