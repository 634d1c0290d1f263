// Package config carries the runtime settings for the pen market client.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the settings for the chain client, the catalog backend, and
// the purchase flow.
type Config struct {
	// ChainRPCURL is the JSON-RPC endpoint of the wallet-backed node.
	ChainRPCURL string

	// CatalogURL is the base URL of the catalog backend.
	CatalogURL string

	// NotificationTTL is how long a purchase notification stays visible.
	NotificationTTL time.Duration

	// TransferGas is the gas limit attached to purchase transfers.
	TransferGas uint64

	// HTTPTimeout bounds catalog requests.
	HTTPTimeout time.Duration

	// BuyerID, when set, identifies the signed-in buyer so completed
	// purchases are recorded against their account.
	BuyerID int64
}

// Default returns the configuration the reference deployment uses: a local
// Ganache node and a local catalog backend.
func Default() Config {
	return Config{
		ChainRPCURL:     "http://127.0.0.1:7545",
		CatalogURL:      "http://localhost:8000",
		NotificationTTL: 3 * time.Second,
		TransferGas:     21_000,
		HTTPTimeout:     30 * time.Second,
	}
}

// FromEnv returns Default overlaid with any PENMARKET_* environment
// variables that are set. Malformed values are ignored in favor of the
// default.
func FromEnv() Config {
	cfg := Default()

	if v := os.Getenv("PENMARKET_CHAIN_RPC_URL"); v != "" {
		cfg.ChainRPCURL = v
	}
	if v := os.Getenv("PENMARKET_CATALOG_URL"); v != "" {
		cfg.CatalogURL = v
	}
	if v := os.Getenv("PENMARKET_NOTIFICATION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.NotificationTTL = d
		}
	}
	if v := os.Getenv("PENMARKET_TRANSFER_GAS"); v != "" {
		if gas, err := strconv.ParseUint(v, 10, 64); err == nil && gas > 0 {
			cfg.TransferGas = gas
		}
	}
	if v := os.Getenv("PENMARKET_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.HTTPTimeout = d
		}
	}
	if v := os.Getenv("PENMARKET_BUYER_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			cfg.BuyerID = id
		}
	}
	return cfg
}
