// Broker configuration.
package broker

import (
	"errors"
	"fmt"
	"net/url"
	"os"
)

// Configuration errors.
var (
	ErrNoStreamURL    = errors.New("broker: stream url is required")
	ErrBadStreamURL   = errors.New("broker: stream url must be ws or wss")
	ErrNoKey          = errors.New("broker: prover key is required")
	ErrNoMarket       = errors.New("broker: market address is required")
	ErrZeroChainID    = errors.New("broker: chain id must be nonzero")
	ErrNoProgram      = errors.New("broker: guest program path is required")
	ErrMissingProgram = errors.New("broker: guest program not found")
)

// Config is the broker's resolved configuration.
type Config struct {
	// StreamURL is the ws or wss order-stream endpoint.
	StreamURL string
	// KeyHex is the prover's secp256k1 private key, hex without 0x.
	KeyHex string
	// MarketAddress is the verifying contract address, 0x-hex.
	MarketAddress string
	// ChainID selects the EIP-712 domain.
	ChainID uint64
	// SetBuilderPath and AssessorPath locate the guest binaries.
	SetBuilderPath string
	AssessorPath   string
	// MaxConcurrentProofs bounds simultaneous proving work.
	MaxConcurrentProofs int
	// RequirePayment marks produced fulfillments as payment-required.
	RequirePayment bool
	// Verbosity is the log level, 0-5.
	Verbosity int
}

// DefaultConfig returns the broker defaults.
func DefaultConfig() Config {
	return Config{
		ChainID:             1,
		MaxConcurrentProofs: 2,
		RequirePayment:      true,
		Verbosity:           3,
	}
}

// Validate checks the configuration for the first violation.
func (c *Config) Validate() error {
	if c.StreamURL == "" {
		return ErrNoStreamURL
	}
	u, err := url.Parse(c.StreamURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return ErrBadStreamURL
	}
	if c.KeyHex == "" {
		return ErrNoKey
	}
	if c.MarketAddress == "" {
		return ErrNoMarket
	}
	if c.ChainID == 0 {
		return ErrZeroChainID
	}
	if c.SetBuilderPath == "" || c.AssessorPath == "" {
		return ErrNoProgram
	}
	for _, path := range []string{c.SetBuilderPath, c.AssessorPath} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: %s", ErrMissingProgram, path)
		}
	}
	return nil
}
