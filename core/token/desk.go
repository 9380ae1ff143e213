package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"rwapool/native/pricing"
)

// Desk is a spot execution venue stub satisfying the pool's purchase/repay
// capability: it trades the pool's stable asset against an RWA reserve
// account at the price graph's current rate. Production deployments replace
// it with a strategy that reaches the real acquisition venue.
type Desk struct {
	prices   *pricing.Graph
	stable   *Asset
	rwa      *Asset
	stableID common.Address
	rwaID    common.Address
	pool     common.Address
	reserve  common.Address
}

// NewDesk wires the desk between the pool's funds and the reserve account
// backing the RWA side.
func NewDesk(prices *pricing.Graph, stable, rwa *Asset, stableID, rwaID, pool, reserve common.Address) *Desk {
	return &Desk{
		prices:   prices,
		stable:   stable,
		rwa:      rwa,
		stableID: stableID,
		rwaID:    rwaID,
		pool:     pool,
		reserve:  reserve,
	}
}

// Purchase swaps the pool's stable collateral for RWA at the graph rate. The
// advisory target is ignored; the desk always delivers the spot-equivalent
// amount.
func (d *Desk) Purchase(collateral, _ *big.Int) (*big.Int, error) {
	acquired, err := d.prices.Resolve(collateral, d.stableID, d.rwaID)
	if err != nil {
		return nil, err
	}
	if err := d.stable.Move(d.pool, d.reserve, collateral); err != nil {
		return nil, err
	}
	if err := d.rwa.Move(d.reserve, d.pool, acquired); err != nil {
		return nil, err
	}
	return acquired, nil
}

// Liquidate swaps pool-held RWA back into stable asset at the graph rate.
func (d *Desk) Liquidate(rwaAmount *big.Int) (*big.Int, error) {
	proceeds, err := d.prices.Resolve(rwaAmount, d.rwaID, d.stableID)
	if err != nil {
		return nil, err
	}
	if err := d.rwa.Move(d.pool, d.reserve, rwaAmount); err != nil {
		return nil, err
	}
	if err := d.stable.Move(d.reserve, d.pool, proceeds); err != nil {
		return nil, err
	}
	return proceeds, nil
}

// LiquidatableAmount unwinds everything held in a single call.
func (d *Desk) LiquidatableAmount(held *big.Int) *big.Int {
	if held == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(held)
}
