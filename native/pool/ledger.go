package pool

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"rwapool/native/pricing"
)

// Ledger maintains solvency-safe collateral accounting per epoch and
// computes the rate used for lender payouts. It exclusively owns the
// TbyCollateral and RwaPrice records; the matching engine reads them only
// through the snapshot views.
type Ledger struct {
	state       ledgerState
	prices      *pricing.Graph
	strategy    BorrowStrategy
	stable      AssetToken
	rwa         AssetToken
	receipt     ReceiptToken
	poolAddr    common.Address
	stableAsset common.Address
	rwaAsset    common.Address
	spread      *big.Int
	now         func() time.Time
}

// NewLedger wires the ledger to its state and external capabilities. The
// stable and rwa identifiers double as nodes in the price graph.
func NewLedger(state State, prices *pricing.Graph, stable, rwa AssetToken, receipt ReceiptToken, poolAddr, stableAsset, rwaAsset common.Address) *Ledger {
	return &Ledger{
		state:       state,
		prices:      prices,
		stable:      stable,
		rwa:         rwa,
		receipt:     receipt,
		poolAddr:    poolAddr,
		stableAsset: stableAsset,
		rwaAsset:    rwaAsset,
		now:         time.Now,
	}
}

// SetStrategy configures the purchase/repay capability used for subsequent
// borrow and repay operations.
func (l *Ledger) SetStrategy(strategy BorrowStrategy) {
	if l == nil {
		return
	}
	l.strategy = strategy
}

// SetSpread updates the global spread applied to epochs created afterwards.
// Existing epochs keep the spread captured at their first fill.
func (l *Ledger) SetSpread(spread *big.Int) {
	if l == nil || spread == nil {
		return
	}
	l.spread = new(big.Int).Set(spread)
}

// SetClock overrides the wall clock, used by tests to step through maturity
// windows.
func (l *Ledger) SetClock(now func() time.Time) {
	if l == nil || now == nil {
		return
	}
	l.now = now
}

// marketPrice reads the live RWA price in stable terms at the 18-decimal
// scale.
func (l *Ledger) marketPrice() (*big.Int, error) {
	price, err := l.prices.Resolve(wad, l.rwaAsset, l.stableAsset)
	if err != nil {
		return nil, fmt.Errorf("pool ledger: market price: %w", err)
	}
	return price, nil
}

// Borrow deploys totalCollateral (matched lender capital plus the borrower's
// own allocation) into RWA through the strategy and folds the implied entry
// price into the epoch's pricing basis. The acquired RWA amount is returned.
func (l *Ledger) Borrow(epochID uint64, borrowerAllocation, totalCollateral *big.Int) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	if totalCollateral == nil || totalCollateral.Sign() <= 0 {
		return nil, errZeroAmount
	}
	if borrowerAllocation != nil && borrowerAllocation.Sign() < 0 {
		return nil, errZeroAmount
	}

	target, err := l.prices.Resolve(totalCollateral, l.stableAsset, l.rwaAsset)
	if err != nil {
		return nil, fmt.Errorf("pool ledger: rwa target: %w", err)
	}

	before := l.rwa.BalanceOf(l.poolAddr)
	acquired, err := l.strategy.Purchase(totalCollateral, target)
	if err != nil {
		return nil, fmt.Errorf("pool ledger: purchase: %w", err)
	}
	delta := new(big.Int).Sub(l.rwa.BalanceOf(l.poolAddr), before)
	if acquired == nil || acquired.Sign() <= 0 || delta.Cmp(acquired) != 0 {
		return nil, errExceedsSlippage
	}

	implied := wadDiv(totalCollateral, acquired)

	collateral, err := l.ensureCollateral(epochID)
	if err != nil {
		return nil, err
	}
	price, err := l.state.GetPrice(epochID)
	if err != nil {
		return nil, err
	}
	if price == nil || price.StartPrice == nil || price.StartPrice.Sign() == 0 {
		spread := l.spread
		if spread == nil {
			spread = wad
		}
		price = &RwaPrice{StartPrice: implied, Spread: new(big.Int).Set(spread)}
	} else {
		// Collateral-weighted average keeps the rate basis fair across
		// partial fills executed at different market prices.
		existing := collateral.CurrentRwaAmount
		numerator := new(big.Int).Mul(existing, price.StartPrice)
		numerator.Add(numerator, new(big.Int).Mul(acquired, implied))
		denominator := new(big.Int).Add(existing, acquired)
		price.StartPrice = numerator.Quo(numerator, denominator)
	}

	collateral.CurrentRwaAmount = new(big.Int).Add(collateral.CurrentRwaAmount, acquired)

	if err := l.state.PutPrice(epochID, price); err != nil {
		return nil, err
	}
	if err := l.state.PutCollateral(epochID, collateral); err != nil {
		return nil, err
	}
	return new(big.Int).Set(acquired), nil
}

// Repay liquidates the strategy-eligible portion of the epoch's RWA back
// into stable asset and splits the proceeds between lenders and the
// borrower side. The lender share is capped at the proceeds actually
// received; when the market has moved below the recorded settlement price
// the epoch's end price is re-based downward so the implied rate reflects
// the value actually backing the epoch.
func (l *Ledger) Repay(epochID uint64) (lenderReturn, borrowerReturn *big.Int, redeemable bool, err error) {
	if l == nil || l.state == nil {
		return nil, nil, false, errNilState
	}
	collateral, err := l.state.GetCollateral(epochID)
	if err != nil {
		return nil, nil, false, err
	}
	price, err := l.state.GetPrice(epochID)
	if err != nil {
		return nil, nil, false, err
	}
	if collateral == nil || price == nil || price.StartPrice == nil || price.StartPrice.Sign() == 0 {
		return nil, nil, false, errInvalidEpoch
	}

	eligible := l.strategy.LiquidatableAmount(collateral.CurrentRwaAmount)
	if eligible == nil || eligible.Sign() <= 0 {
		return nil, nil, false, errZeroAmount
	}
	if collateral.OriginalRwaAmount == nil || collateral.OriginalRwaAmount.Sign() == 0 {
		collateral.OriginalRwaAmount = new(big.Int).Set(collateral.CurrentRwaAmount)
	}
	if eligible.Cmp(collateral.CurrentRwaAmount) > 0 {
		eligible = new(big.Int).Set(collateral.CurrentRwaAmount)
	} else {
		eligible = new(big.Int).Set(eligible)
	}

	percentSwapped := wadDiv(eligible, collateral.OriginalRwaAmount)
	supply := l.receipt.TotalSupply(epochID)
	var tbyAmount *big.Int
	if percentSwapped.Cmp(wad) == 0 {
		// Full unwind redeems the entire supply so no dust is stranded.
		tbyAmount = new(big.Int).Set(supply)
	} else {
		tbyAmount = wadMul(supply, percentSwapped)
	}

	// Rate is computed before this liquidation's proceeds are known.
	rate, err := l.Rate(epochID)
	if err != nil {
		return nil, nil, false, err
	}
	lenderReturn = wadMul(rate, tbyAmount)

	before := l.stable.BalanceOf(l.poolAddr)
	received, err := l.strategy.Liquidate(eligible)
	if err != nil {
		return nil, nil, false, fmt.Errorf("pool ledger: liquidate: %w", err)
	}
	delta := new(big.Int).Sub(l.stable.BalanceOf(l.poolAddr), before)
	if received == nil || received.Sign() < 0 || delta.Cmp(received) != 0 {
		return nil, nil, false, errExceedsSlippage
	}

	spot, err := l.marketPrice()
	if err != nil {
		return nil, nil, false, err
	}

	if lenderReturn.Cmp(received) > 0 {
		lenderReturn = new(big.Int).Set(received)
		if price.EndPrice == nil || spot.Cmp(price.EndPrice) < 0 {
			l.rebaseEndPrice(epochID, collateral, price, eligible, lenderReturn, spot, supply)
		}
	}
	borrowerReturn = new(big.Int).Sub(received, lenderReturn)

	collateral.CurrentRwaAmount = new(big.Int).Sub(collateral.CurrentRwaAmount, eligible)
	collateral.AssetAmount = new(big.Int).Add(collateral.AssetAmount, received)
	collateral.LenderAccrued = new(big.Int).Add(collateral.LenderAccrued, lenderReturn)

	redeemable = collateral.CurrentRwaAmount.Sign() == 0
	if redeemable && price.EndPrice == nil {
		price.EndPrice = spot
	}

	if err := l.state.PutCollateral(epochID, collateral); err != nil {
		return nil, nil, false, err
	}
	if err := l.state.PutPrice(epochID, price); err != nil {
		return nil, nil, false, err
	}
	return lenderReturn, borrowerReturn, redeemable, nil
}

// rebaseEndPrice clamps the epoch's settlement price to the total economic
// value now backing it: lender proceeds already banked plus the remaining
// un-liquidated RWA at the current market price, spread-adjusted. A price
// that was clamped before only ever moves further down.
func (l *Ledger) rebaseEndPrice(epochID uint64, collateral *TbyCollateral, price *RwaPrice, liquidated, lenderReturn, spot, supply *big.Int) {
	remaining := new(big.Int).Sub(collateral.CurrentRwaAmount, liquidated)
	backing := new(big.Int).Add(collateral.LenderAccrued, lenderReturn)
	backing.Add(backing, wadMul(remaining, spot))
	if supply.Sign() == 0 {
		return
	}
	impliedRate := wadDiv(backing, supply)

	var end *big.Int
	if impliedRate.Cmp(wad) >= 0 {
		upside := wadDiv(new(big.Int).Sub(impliedRate, wad), price.Spread)
		end = wadMul(price.StartPrice, new(big.Int).Add(wad, upside))
	} else {
		end = wadMul(price.StartPrice, impliedRate)
	}
	if price.EndPrice != nil && end.Cmp(price.EndPrice) > 0 {
		return
	}
	price.EndPrice = end
}

// Rate returns the epoch's current payout rate at the 18-decimal scale: 1.0
// before the maturity window starts, and afterwards the spread-adjusted
// price appreciation over the entry basis. Upside above 1.0 is shared with
// the borrower through the spread; depreciation passes through undamped.
func (l *Ledger) Rate(epochID uint64) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	price, err := l.state.GetPrice(epochID)
	if err != nil {
		return nil, err
	}
	if price == nil || price.StartPrice == nil || price.StartPrice.Sign() == 0 {
		return nil, errInvalidEpoch
	}
	epoch, err := l.state.GetEpoch(epochID)
	if err != nil {
		return nil, err
	}
	if epoch == nil {
		return nil, errInvalidEpoch
	}
	if !l.now().After(epoch.Start) {
		return new(big.Int).Set(wad), nil
	}

	settle := price.EndPrice
	if settle == nil {
		settle, err = l.marketPrice()
		if err != nil {
			return nil, err
		}
	}
	raw := wadDiv(settle, price.StartPrice)
	if raw.Cmp(wad) <= 0 {
		return raw, nil
	}
	upside := wadMul(new(big.Int).Sub(raw, wad), price.Spread)
	return upside.Add(upside, wad), nil
}

// Withdraw releases stable asset from the epoch's claimable balance to a
// redeemer. The balance is decremented before the transfer is issued.
func (l *Ledger) Withdraw(epochID uint64, to common.Address, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return errZeroAmount
	}
	collateral, err := l.state.GetCollateral(epochID)
	if err != nil {
		return err
	}
	if collateral == nil {
		return errInvalidEpoch
	}
	if collateral.AssetAmount == nil || collateral.AssetAmount.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	collateral.AssetAmount = new(big.Int).Sub(collateral.AssetAmount, amount)
	if err := l.state.PutCollateral(epochID, collateral); err != nil {
		return err
	}
	return l.stable.Transfer(to, amount)
}

// Collateral returns a snapshot of the epoch's collateral record.
func (l *Ledger) Collateral(epochID uint64) (*TbyCollateral, error) {
	collateral, err := l.state.GetCollateral(epochID)
	if err != nil {
		return nil, err
	}
	if collateral == nil {
		return nil, errInvalidEpoch
	}
	return collateral.Clone(), nil
}

// Price returns a snapshot of the epoch's pricing record.
func (l *Ledger) Price(epochID uint64) (*RwaPrice, error) {
	price, err := l.state.GetPrice(epochID)
	if err != nil {
		return nil, err
	}
	if price == nil {
		return nil, errInvalidEpoch
	}
	return price.Clone(), nil
}

func (l *Ledger) ensureCollateral(epochID uint64) (*TbyCollateral, error) {
	collateral, err := l.state.GetCollateral(epochID)
	if err != nil {
		return nil, err
	}
	if collateral == nil {
		collateral = &TbyCollateral{}
	}
	if collateral.AssetAmount == nil {
		collateral.AssetAmount = big.NewInt(0)
	}
	if collateral.CurrentRwaAmount == nil {
		collateral.CurrentRwaAmount = big.NewInt(0)
	}
	if collateral.OriginalRwaAmount == nil {
		collateral.OriginalRwaAmount = big.NewInt(0)
	}
	if collateral.LenderAccrued == nil {
		collateral.LenderAccrued = big.NewInt(0)
	}
	return collateral, nil
}
