// Package config loads a checkout configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitwit/checkout/types"
	"github.com/vitwit/checkout/utils"
)

// Environment variables read by Load.
const (
	EnvNetwork             = "CHECKOUT_NETWORK"
	EnvRPCURL              = "CHECKOUT_RPC_URL"
	EnvIndexerURL          = "CHECKOUT_INDEXER_URL"
	EnvIndexerAPIKey       = "CHECKOUT_INDEXER_API_KEY"
	EnvPreparerURL         = "CHECKOUT_PREPARER_URL"
	EnvPreparerToken       = "CHECKOUT_PREPARER_TOKEN"
	EnvTimeout             = "CHECKOUT_TIMEOUT"
	EnvConfirmTimeout      = "CHECKOUT_CONFIRM_TIMEOUT"
	EnvPollInterval        = "CHECKOUT_POLL_INTERVAL"
	EnvBroadcastMaxRetries = "CHECKOUT_BROADCAST_MAX_RETRIES"
	EnvLogLevel            = "CHECKOUT_LOG_LEVEL"
	EnvEnableMetrics       = "CHECKOUT_ENABLE_METRICS"

	// EnvConfigFile names a JSON config file used instead of the variables above.
	EnvConfigFile = "CHECKOUT_CONFIG_FILE"
)

// Load reads the given .env files (".env" when none are named) into the
// process environment and builds a validated Config from CHECKOUT_*
// variables. Missing files are not an error; variables already set in the
// environment take precedence over file values.
func Load(files ...string) (*types.Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, types.NewError(types.ErrConfigError, err, "failed to read %s", f)
		}
	}

	cfg := &types.Config{
		Network:       types.Network(getEnv(EnvNetwork, string(types.NetworkSolanaDevnet))),
		RPCURL:        getEnv(EnvRPCURL, ""),
		IndexerURL:    getEnv(EnvIndexerURL, ""),
		IndexerAPIKey: getEnv(EnvIndexerAPIKey, ""),
		PreparerURL:   getEnv(EnvPreparerURL, ""),
		PreparerToken: getEnv(EnvPreparerToken, ""),
		LogLevel:      getEnv(EnvLogLevel, "info"),
	}

	var err error
	if cfg.Timeout, err = getEnvAsDuration(EnvTimeout, types.DefaultTimeout); err != nil {
		return nil, err
	}
	if cfg.ConfirmTimeout, err = getEnvAsDuration(EnvConfirmTimeout, types.DefaultConfirmTimeout); err != nil {
		return nil, err
	}
	if cfg.PollInterval, err = getEnvAsDuration(EnvPollInterval, types.DefaultPollInterval); err != nil {
		return nil, err
	}

	retries, err := getEnvAsInt(EnvBroadcastMaxRetries, int(types.MaxBroadcastRetries))
	if err != nil {
		return nil, err
	}
	if retries < 0 {
		return nil, &types.CheckoutError{
			Code:    types.ErrConfigError,
			Message: fmt.Sprintf("%s must not be negative", EnvBroadcastMaxRetries),
		}
	}
	cfg.BroadcastMaxRetries = uint(retries)

	if cfg.EnableMetrics, err = getEnvAsBool(EnvEnableMetrics, false); err != nil {
		return nil, err
	}

	if err := utils.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	conf := cfg.WithDefaults()
	return &conf, nil
}

// LoadFile reads a JSON config file. Durations use Go duration syntax.
func LoadFile(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrConfigError, err, "failed to read %s", path)
	}
	return utils.ParseConfig(data)
}

// FromEnv uses LoadFile when CHECKOUT_CONFIG_FILE is set and Load otherwise.
func FromEnv() (*types.Config, error) {
	if path := getEnv(EnvConfigFile, ""); path != "" {
		return LoadFile(path)
	}
	return Load()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, types.NewError(types.ErrConfigError, err, "invalid integer for %s: %q", key, s)
	}
	return v, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, types.NewError(types.ErrConfigError, err, "invalid duration for %s: %q", key, s)
	}
	return v, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, types.NewError(types.ErrConfigError, err, "invalid boolean for %s: %q", key, s)
	}
	return v, nil
}
