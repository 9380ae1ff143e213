package pricing

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Chained composes two bidirectional sources through a shared intermediate
// asset: a base/cross source and a cross/quote source answer base/quote
// queries in either orientation. Each hop source must itself be queryable in
// both directions; that is a precondition on the caller wiring the chain,
// not something this layer can verify.
type Chained struct {
	base  common.Address
	cross common.Address
	quote common.Address
	first Source // prices base against cross
	last  Source // prices cross against quote
}

// NewChained wires the two hop sources to the configured pair.
func NewChained(base, cross, quote common.Address, first, last Source) *Chained {
	return &Chained{base: base, cross: cross, quote: quote, first: first, last: last}
}

// Resolve determines the query direction by comparing the requested pair
// against the configured one, then performs the two one-hop conversions in
// sequence. Queries matching neither orientation fail with
// ErrInvalidDirection.
func (c *Chained) Resolve(amount *big.Int, base, quote common.Address) (*big.Int, error) {
	if c == nil || amount == nil {
		return nil, ErrInvalidData
	}
	switch {
	case base == c.base && quote == c.quote:
		mid, err := c.first.Resolve(amount, c.base, c.cross)
		if err != nil {
			return nil, err
		}
		return c.last.Resolve(mid, c.cross, c.quote)
	case base == c.quote && quote == c.base:
		mid, err := c.last.Resolve(amount, c.quote, c.cross)
		if err != nil {
			return nil, err
		}
		return c.first.Resolve(mid, c.cross, c.base)
	default:
		return nil, ErrInvalidDirection
	}
}
