package pool

import (
	"math/big"
	"time"
)

// Book carries the aggregate matching state: the sum of all open lender
// orders and the id of the most recently opened epoch. Epoch ids are
// allocated monotonically starting at 1.
type Book struct {
	OpenDepth   *big.Int
	LastEpochID uint64
	EpochCount  uint64
}

// Epoch identifies one borrowing cohort. The maturity window [Start, End) is
// fixed at creation and never changes afterwards.
type Epoch struct {
	ID    uint64
	Start time.Time
	End   time.Time
}

// TbyCollateral records the collateral composition of one epoch.
// CurrentRwaAmount only decreases during repay; AssetAmount only increases
// during repay and decreases during redemption withdrawals. The epoch is
// redeemable exactly when CurrentRwaAmount reaches zero.
type TbyCollateral struct {
	// AssetAmount is the stable asset currently claimable from the epoch,
	// accumulated via repayments.
	AssetAmount *big.Int
	// CurrentRwaAmount is the RWA currently held for the epoch.
	CurrentRwaAmount *big.Int
	// OriginalRwaAmount is recorded once, on the first repay touch, and is
	// the denominator for partial-liquidation percentage math.
	OriginalRwaAmount *big.Int
	// LenderAccrued is the cumulative stable value promised to lenders so
	// far, used when re-basing the settlement price during a clawback.
	LenderAccrued *big.Int
}

// RwaPrice is the per-epoch pricing basis. StartPrice and EndPrice are
// normalised to the 18-decimal stable-asset scale. Spread is snapshotted at
// epoch creation so later global spread changes do not retroactively affect
// existing epochs. EndPrice stays nil until a clawback clamps it or the
// epoch is fully liquidated.
type RwaPrice struct {
	StartPrice *big.Int
	EndPrice   *big.Int
	Spread     *big.Int
}

// Returns accumulates the stable asset available for the epoch's lenders and
// borrowers to withdraw. Incremented at repay time, decremented at
// redemption time, never negative.
type Returns struct {
	Lender        *big.Int
	Borrower      *big.Int
	TotalBorrowed *big.Int
	Redeemable    bool
}

// Clone returns a deep copy of the book.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	clone := &Book{LastEpochID: b.LastEpochID, EpochCount: b.EpochCount}
	if b.OpenDepth != nil {
		clone.OpenDepth = new(big.Int).Set(b.OpenDepth)
	}
	return clone
}

// Clone returns a deep copy of the collateral record.
func (c *TbyCollateral) Clone() *TbyCollateral {
	if c == nil {
		return nil
	}
	clone := &TbyCollateral{}
	if c.AssetAmount != nil {
		clone.AssetAmount = new(big.Int).Set(c.AssetAmount)
	}
	if c.CurrentRwaAmount != nil {
		clone.CurrentRwaAmount = new(big.Int).Set(c.CurrentRwaAmount)
	}
	if c.OriginalRwaAmount != nil {
		clone.OriginalRwaAmount = new(big.Int).Set(c.OriginalRwaAmount)
	}
	if c.LenderAccrued != nil {
		clone.LenderAccrued = new(big.Int).Set(c.LenderAccrued)
	}
	return clone
}

// Clone returns a deep copy of the price record.
func (p *RwaPrice) Clone() *RwaPrice {
	if p == nil {
		return nil
	}
	clone := &RwaPrice{}
	if p.StartPrice != nil {
		clone.StartPrice = new(big.Int).Set(p.StartPrice)
	}
	if p.EndPrice != nil {
		clone.EndPrice = new(big.Int).Set(p.EndPrice)
	}
	if p.Spread != nil {
		clone.Spread = new(big.Int).Set(p.Spread)
	}
	return clone
}

// Clone returns a deep copy of the returns accumulators.
func (r *Returns) Clone() *Returns {
	if r == nil {
		return nil
	}
	clone := &Returns{Redeemable: r.Redeemable}
	if r.Lender != nil {
		clone.Lender = new(big.Int).Set(r.Lender)
	}
	if r.Borrower != nil {
		clone.Borrower = new(big.Int).Set(r.Borrower)
	}
	if r.TotalBorrowed != nil {
		clone.TotalBorrowed = new(big.Int).Set(r.TotalBorrowed)
	}
	return clone
}
