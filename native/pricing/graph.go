package pricing

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrStaleData        = errors.New("pricing: feed data stale")
	ErrInvalidData      = errors.New("pricing: feed reported non-positive value")
	ErrInvalidDirection = errors.New("pricing: query does not match configured pair")
	ErrNoSource         = errors.New("pricing: no source registered for pair")
)

const internalDecimals uint8 = 18

var wad = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Source converts an amount of a base asset into its quote-asset equivalent.
// Implementations must be queryable in both orientations of their pair.
type Source interface {
	Resolve(amount *big.Int, base, quote common.Address) (*big.Int, error)
}

type pairKey [40]byte

// pairOf canonicalises the two asset identifiers into a consistent order so
// registering (A,B) also serves queries for (B,A).
func pairOf(a, b common.Address) pairKey {
	var key pairKey
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	copy(key[:20], a.Bytes())
	copy(key[20:], b.Bytes())
	return key
}

// Graph maps asset pairs to their configured price sources.
type Graph struct {
	sources map[pairKey]Source
}

// NewGraph constructs an empty price resolution graph.
func NewGraph() *Graph {
	return &Graph{sources: make(map[pairKey]Source)}
}

// Register stores the source under the unordered pair key, replacing any
// previous registration for the same pair.
func (g *Graph) Register(a, b common.Address, src Source) {
	if g == nil || src == nil {
		return
	}
	g.sources[pairOf(a, b)] = src
}

// Resolve converts amount of base into an equivalent amount of quote with no
// bid/ask spread assumed. The identity conversion is answered without
// consulting storage.
func (g *Graph) Resolve(amount *big.Int, base, quote common.Address) (*big.Int, error) {
	if amount == nil {
		return nil, ErrInvalidData
	}
	if base == quote {
		return new(big.Int).Set(amount), nil
	}
	if g == nil {
		return nil, ErrNoSource
	}
	src, ok := g.sources[pairOf(base, quote)]
	if !ok {
		return nil, ErrNoSource
	}
	return src.Resolve(amount, base, quote)
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// scaleDecimals rescales value from one fixed-point precision to another.
func scaleDecimals(value *big.Int, from, to uint8) *big.Int {
	out := new(big.Int).Set(value)
	switch {
	case from < to:
		out.Mul(out, pow10(to-from))
	case from > to:
		out.Quo(out, pow10(from-to))
	}
	return out
}
