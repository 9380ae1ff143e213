package pricing

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// DecimalsProber is an optional metadata probe resolving the native decimal
// precision of a priced asset.
type DecimalsProber interface {
	Decimals(asset common.Address) (uint8, error)
}

// Identifiers numerically below this range are reserved for non-token codes
// (fiat currencies and the like) which have no contract to probe.
var reservedRange = big.NewInt(1 << 16)

const maxProbedDecimals = 36

// ResolveDecimals returns the asset's native precision, defaulting to 18 for
// reserved-range identifiers and whenever the probe is absent, fails, or
// reports an implausible size.
func ResolveDecimals(p DecimalsProber, asset common.Address) uint8 {
	if p == nil {
		return internalDecimals
	}
	if new(big.Int).SetBytes(asset.Bytes()).Cmp(reservedRange) < 0 {
		return internalDecimals
	}
	decimals, err := p.Decimals(asset)
	if err != nil || decimals == 0 || decimals > maxProbedDecimals {
		return internalDecimals
	}
	return decimals
}
