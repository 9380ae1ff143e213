package pool

import (
	"math/big"
	"time"
)

// Config captures the runtime configuration for the pool module.
type Config struct {
	// MinOrderSize is the smallest open-order amount accepted on deposit and
	// the smallest remainder a partial fill may leave behind.
	MinOrderSize *big.Int
	// SwapBuffer is the window during which additional borrow fills join the
	// currently open epoch instead of starting a new one.
	SwapBuffer time.Duration
	// MaturityLength is the duration of every epoch's maturity window.
	MaturityLength time.Duration
	// Leverage scales matched lender capital against the borrower's own
	// contribution, expressed as an 18-decimal fixed-point multiplier.
	Leverage *big.Int
	// Spread is the fraction of RWA upside retained by the lender, expressed
	// as an 18-decimal fixed-point fraction. Snapshotted per epoch at first
	// fill.
	Spread *big.Int
}

// Normalize applies defaults for unset fields.
func (c Config) Normalize() Config {
	cfg := c
	if cfg.MinOrderSize == nil {
		cfg.MinOrderSize = big.NewInt(0)
	}
	if cfg.SwapBuffer <= 0 {
		cfg.SwapBuffer = 48 * time.Hour
	}
	if cfg.MaturityLength <= 0 {
		cfg.MaturityLength = 180 * 24 * time.Hour
	}
	if cfg.Leverage == nil || cfg.Leverage.Sign() <= 0 {
		cfg.Leverage = new(big.Int).Mul(big.NewInt(50), wad)
	}
	if cfg.Spread == nil || cfg.Spread.Sign() <= 0 {
		cfg.Spread = mustBigInt("995000000000000000") // 0.995
	}
	return cfg
}
