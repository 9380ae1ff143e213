package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AssetToken is the narrow transfer capability consumed for the stable and
// RWA assets. Transfer moves funds out of the pool's own holdings;
// TransferFrom pulls from a payer under the pool's allowance. Both must fail
// rather than silently no-op on insufficient balance or allowance.
type AssetToken interface {
	Transfer(receiver common.Address, amount *big.Int) error
	TransferFrom(payer, receiver common.Address, amount *big.Int) error
	BalanceOf(owner common.Address) *big.Int
}

// ReceiptToken is the multi-series fungible receipt keyed by epoch id.
type ReceiptToken interface {
	Mint(id uint64, owner common.Address, amount *big.Int) error
	Burn(id uint64, owner common.Address, amount *big.Int) error
	BalanceOf(id uint64, owner common.Address) *big.Int
	TotalSupply(id uint64) *big.Int
}

// BorrowStrategy is the pluggable purchase/repay capability executing the
// external RWA acquisition and unwind. Purchase receives the stable
// collateral being spent plus an advisory RWA target derived from the price
// graph and reports the RWA actually acquired; the ledger verifies the
// report against its own balance delta. LiquidatableAmount lets a strategy
// unwind a position across several repay calls; the ledger caps the result
// at the currently held amount.
type BorrowStrategy interface {
	Purchase(collateral, rwaTarget *big.Int) (*big.Int, error)
	Liquidate(rwaAmount *big.Int) (*big.Int, error)
	LiquidatableAmount(held *big.Int) *big.Int
}
