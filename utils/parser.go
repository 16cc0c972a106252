package utils

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vitwit/checkout/types"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("solanaaddr", validateSolanaAddressTag); err != nil {
		panic(fmt.Sprintf("utils: register solanaaddr validation: %v", err))
	}
}

// ValidateStruct validates v using its struct tags.
func ValidateStruct(v any) error {
	return validate.Struct(v)
}

// ValidateConfig validates a checkout configuration.
func ValidateConfig(cfg *types.Config) error {
	if err := validate.Struct(cfg); err != nil {
		return &types.CheckoutError{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("validation failed: %v", err),
			Err:     err,
		}
	}
	return nil
}

// configJSON mirrors types.Config with human readable durations.
type configJSON struct {
	types.Config
	Timeout        string `json:"timeout,omitempty"`
	ConfirmTimeout string `json:"confirmTimeout,omitempty"`
	PollInterval   string `json:"pollInterval,omitempty"`
}

// ParseConfig parses and validates a Config from JSON. Durations use
// time.ParseDuration syntax ("30s", "2m").
func ParseConfig(data []byte) (*types.Config, error) {
	var raw configJSON

	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &types.CheckoutError{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("failed to parse config: %v", err),
			Err:     err,
		}
	}

	cfg := raw.Config
	for _, d := range []struct {
		name string
		in   string
		out  *time.Duration
	}{
		{"timeout", raw.Timeout, &cfg.Timeout},
		{"confirmTimeout", raw.ConfirmTimeout, &cfg.ConfirmTimeout},
		{"pollInterval", raw.PollInterval, &cfg.PollInterval},
	} {
		if d.in == "" {
			continue
		}
		v, err := time.ParseDuration(d.in)
		if err != nil {
			return nil, &types.CheckoutError{
				Code:    types.ErrConfigError,
				Message: fmt.Sprintf("invalid %s %q", d.name, d.in),
				Err:     err,
			}
		}
		*d.out = v
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	cfg = cfg.WithDefaults()
	return &cfg, nil
}

func validateSolanaAddressTag(fl validator.FieldLevel) bool {
	return ValidateSolanaAddress(fl.Field().String()) == nil
}
