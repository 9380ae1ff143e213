package pool

import (
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	nativecommon "rwapool/native/common"
)

var (
	errNilState            = errors.New("pool engine: state not configured")
	errZeroAmount          = errors.New("pool engine: amount must be positive")
	errBelowMinOrder       = errors.New("pool engine: order below minimum size")
	errInsufficientDepth   = errors.New("pool engine: insufficient open depth")
	errInsufficientBalance = errors.New("pool engine: insufficient balance")
	errInvalidEpoch        = errors.New("pool engine: unknown or unpriced epoch")
	errEpochNotMatured     = errors.New("pool engine: epoch not matured")
	errEpochNotRedeemable  = errors.New("pool engine: epoch not redeemable")
	errTotalBorrowedZero   = errors.New("pool engine: no borrower contributions recorded")
	errZeroRewards         = errors.New("pool engine: rewards round to zero")
	errExceedsSlippage     = errors.New("pool engine: strategy under- or over-delivered")
	errUnauthorized        = errors.New("pool engine: borrower not approved")
)

const moduleName = "pool"

// Engine batches lender deposits into open orders, fills them against
// borrower demand into shared epochs, and drives the repay and redemption
// transitions. All mutating calls serialise on the engine mutex; Fill and
// Repay additionally engage a latch for the duration of their external
// capability round trips so reentrant invocation is rejected rather than
// interleaved.
type Engine struct {
	mu        sync.Mutex
	latch     nativecommon.Latch
	state     State
	ledger    *Ledger
	stable    AssetToken
	receipt   ReceiptToken
	poolAddr  common.Address
	cfg       Config
	pauses    nativecommon.PauseView
	borrowers map[common.Address]bool
	now       func() time.Time
}

// NewEngine constructs the matching engine over the shared state and the
// collateral ledger.
func NewEngine(state State, ledger *Ledger, stable AssetToken, receipt ReceiptToken, poolAddr common.Address, cfg Config) *Engine {
	return &Engine{
		state:     state,
		ledger:    ledger,
		stable:    stable,
		receipt:   receipt,
		poolAddr:  poolAddr,
		cfg:       cfg.Normalize(),
		borrowers: make(map[common.Address]bool),
		now:       time.Now,
	}
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetClock overrides the wall clock used for epoch windows. The ledger keeps
// its own clock; wire both in tests.
func (e *Engine) SetClock(now func() time.Time) {
	if e == nil || now == nil {
		return
	}
	e.now = now
}

// SetBorrowerApproval adds or removes a borrower from the allow-list
// consulted by Fill.
func (e *Engine) SetBorrowerApproval(borrower common.Address, approved bool) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if approved {
		e.borrowers[borrower] = true
	} else {
		delete(e.borrowers, borrower)
	}
}

// Ledger exposes the collateral ledger's read-only views.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// Deposit adds the amount to the lender's open order and the aggregate open
// depth, pulling the stable asset into the pool.
func (e *Engine) Deposit(lender common.Address, amount *big.Int) error {
	if err := e.latch.Check(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errZeroAmount
	}
	if amount.Cmp(e.cfg.MinOrderSize) < 0 {
		return errBelowMinOrder
	}

	if err := e.stable.TransferFrom(lender, e.poolAddr, amount); err != nil {
		return err
	}

	order, err := e.openOrder(lender)
	if err != nil {
		return err
	}
	book, err := e.ensureBook()
	if err != nil {
		return err
	}
	order = new(big.Int).Add(order, amount)
	book.OpenDepth = new(big.Int).Add(book.OpenDepth, amount)

	if err := e.state.PutOrder(lender, order); err != nil {
		return err
	}
	return e.state.PutBook(book)
}

// Cancel removes up to the lender's full open order and returns the funds.
func (e *Engine) Cancel(lender common.Address, amount *big.Int) error {
	if err := e.latch.Check(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errZeroAmount
	}

	order, err := e.openOrder(lender)
	if err != nil {
		return err
	}
	if order.Cmp(amount) < 0 {
		return errInsufficientDepth
	}
	book, err := e.ensureBook()
	if err != nil {
		return err
	}

	order = new(big.Int).Sub(order, amount)
	book.OpenDepth = new(big.Int).Sub(book.OpenDepth, amount)

	if err := e.state.PutOrder(lender, order); err != nil {
		return err
	}
	if err := e.state.PutBook(book); err != nil {
		return err
	}
	return e.stable.Transfer(lender, amount)
}

type fillItem struct {
	lender    common.Address
	take      *big.Int
	remainder *big.Int
}

// Fill consumes open-order depth from the supplied lenders, mints receipt
// tokens against the target epoch, pulls the borrower's leveraged
// allocation, and deploys the combined collateral through the ledger. The
// filled lender amount and the epoch id are returned.
func (e *Engine) Fill(borrower common.Address, lenders []common.Address, amount *big.Int) (*big.Int, uint64, error) {
	if err := e.latch.Enter(); err != nil {
		return nil, 0, err
	}
	defer e.latch.Exit()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, 0, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, 0, err
	}
	if !e.borrowers[borrower] {
		return nil, 0, errUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, 0, errZeroAmount
	}

	book, err := e.ensureBook()
	if err != nil {
		return nil, 0, err
	}

	now := e.now()
	epoch, created, err := e.resolveEpoch(book, now)
	if err != nil {
		return nil, 0, err
	}

	// First pass plans the order consumption without mutating anything so a
	// failure below leaves no partial fill behind. Planned remainders are
	// tracked so a lender listed twice is consumed against what the plan
	// already took, not re-read at full size from stored state.
	remaining := new(big.Int).Set(amount)
	items := make([]fillItem, 0, len(lenders))
	planned := make(map[common.Address]*big.Int, len(lenders))
	for _, lender := range lenders {
		if remaining.Sign() == 0 {
			break
		}
		order, ok := planned[lender]
		if !ok {
			order, err = e.openOrder(lender)
			if err != nil {
				return nil, 0, err
			}
		}
		if order.Sign() == 0 {
			continue
		}
		take := new(big.Int).Set(minBig(order, remaining))
		remainder := new(big.Int).Sub(order, take)
		if remainder.Sign() > 0 && remainder.Cmp(e.cfg.MinOrderSize) < 0 {
			return nil, 0, errBelowMinOrder
		}
		planned[lender] = remainder
		items = append(items, fillItem{lender: lender, take: take, remainder: remainder})
		remaining.Sub(remaining, take)
	}
	filled := new(big.Int).Sub(amount, remaining)
	if filled.Sign() == 0 {
		return nil, 0, errInsufficientDepth
	}

	borrowerAllocation := wadDivUp(filled, e.cfg.Leverage)
	if borrowerAllocation.Sign() > 0 {
		if err := e.stable.TransferFrom(borrower, e.poolAddr, borrowerAllocation); err != nil {
			return nil, 0, err
		}
	}

	total := new(big.Int).Add(filled, borrowerAllocation)
	if _, err := e.ledger.Borrow(epoch.ID, borrowerAllocation, total); err != nil {
		// The borrower's margin was already pulled; hand it back before
		// surfacing the failure.
		if borrowerAllocation.Sign() > 0 {
			_ = e.stable.Transfer(borrower, borrowerAllocation)
		}
		return nil, 0, err
	}

	if created {
		if err := e.state.PutEpoch(epoch); err != nil {
			return nil, 0, err
		}
		book.LastEpochID = epoch.ID
		book.EpochCount++
	}
	for _, item := range items {
		if err := e.state.PutOrder(item.lender, item.remainder); err != nil {
			return nil, 0, err
		}
		if err := e.receipt.Mint(epoch.ID, item.lender, item.take); err != nil {
			return nil, 0, err
		}
	}
	book.OpenDepth = new(big.Int).Sub(book.OpenDepth, filled)
	if err := e.state.PutBook(book); err != nil {
		return nil, 0, err
	}

	position, err := e.borrowerAmount(epoch.ID, borrower)
	if err != nil {
		return nil, 0, err
	}
	position = new(big.Int).Add(position, borrowerAllocation)
	if err := e.state.PutBorrowerAmount(epoch.ID, borrower, position); err != nil {
		return nil, 0, err
	}

	returns, err := e.ensureReturns(epoch.ID)
	if err != nil {
		return nil, 0, err
	}
	returns.TotalBorrowed = new(big.Int).Add(returns.TotalBorrowed, borrowerAllocation)
	if err := e.state.PutReturns(epoch.ID, returns); err != nil {
		return nil, 0, err
	}

	return filled, epoch.ID, nil
}

// Repay is permissionless once the epoch has matured. The ledger's returns
// are folded into the epoch's payout accumulators; the epoch becomes
// redeemable when the ledger reports its collateral fully unwound.
func (e *Engine) Repay(epochID uint64) (*big.Int, *big.Int, error) {
	if err := e.latch.Enter(); err != nil {
		return nil, nil, err
	}
	defer e.latch.Exit()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, nil, err
	}

	epoch, err := e.state.GetEpoch(epochID)
	if err != nil {
		return nil, nil, err
	}
	if epoch == nil {
		return nil, nil, errInvalidEpoch
	}
	if e.now().Before(epoch.End) {
		return nil, nil, errEpochNotMatured
	}

	lenderReturn, borrowerReturn, redeemable, err := e.ledger.Repay(epochID)
	if err != nil {
		return nil, nil, err
	}

	returns, err := e.ensureReturns(epochID)
	if err != nil {
		return nil, nil, err
	}
	returns.Lender = new(big.Int).Add(returns.Lender, lenderReturn)
	returns.Borrower = new(big.Int).Add(returns.Borrower, borrowerReturn)
	returns.Redeemable = redeemable
	if err := e.state.PutReturns(epochID, returns); err != nil {
		return nil, nil, err
	}
	return lenderReturn, borrowerReturn, nil
}

// RedeemLender burns the redeemed receipt tokens and pays out the caller's
// pro-rata share of the epoch's lender accumulator. The accumulator is
// decremented before the stable asset leaves the pool.
func (e *Engine) RedeemLender(lender common.Address, epochID uint64, amount *big.Int) (*big.Int, error) {
	if err := e.latch.Check(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errZeroAmount
	}

	returns, err := e.state.GetReturns(epochID)
	if err != nil {
		return nil, err
	}
	if returns == nil || !returns.Redeemable {
		return nil, errEpochNotRedeemable
	}
	if e.receipt.BalanceOf(epochID, lender).Cmp(amount) < 0 {
		return nil, errInsufficientBalance
	}

	supply := e.receipt.TotalSupply(epochID)
	if supply.Sign() == 0 {
		return nil, errZeroRewards
	}
	reward := new(big.Int).Mul(returns.Lender, amount)
	reward.Quo(reward, supply)
	if reward.Sign() == 0 {
		return nil, errZeroRewards
	}

	if err := e.receipt.Burn(epochID, lender, amount); err != nil {
		return nil, err
	}
	returns.Lender = new(big.Int).Sub(returns.Lender, reward)
	if err := e.state.PutReturns(epochID, returns); err != nil {
		return nil, err
	}
	if err := e.ledger.Withdraw(epochID, lender, reward); err != nil {
		return nil, err
	}
	return reward, nil
}

// RedeemBorrower pays out the caller's full recorded contribution share of
// the epoch's borrower accumulator.
func (e *Engine) RedeemBorrower(borrower common.Address, epochID uint64) (*big.Int, error) {
	if err := e.latch.Check(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}

	returns, err := e.state.GetReturns(epochID)
	if err != nil {
		return nil, err
	}
	if returns == nil || !returns.Redeemable {
		return nil, errEpochNotRedeemable
	}
	if returns.TotalBorrowed == nil || returns.TotalBorrowed.Sign() == 0 {
		return nil, errTotalBorrowedZero
	}
	position, err := e.borrowerAmount(epochID, borrower)
	if err != nil {
		return nil, err
	}
	if position.Sign() == 0 {
		return nil, errZeroAmount
	}

	reward := new(big.Int).Mul(returns.Borrower, position)
	reward.Quo(reward, returns.TotalBorrowed)
	if reward.Sign() == 0 {
		return nil, errZeroRewards
	}

	returns.Borrower = new(big.Int).Sub(returns.Borrower, reward)
	returns.TotalBorrowed = new(big.Int).Sub(returns.TotalBorrowed, position)
	if err := e.state.PutReturns(epochID, returns); err != nil {
		return nil, err
	}
	if err := e.state.PutBorrowerAmount(epochID, borrower, big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := e.ledger.Withdraw(epochID, borrower, reward); err != nil {
		return nil, err
	}
	return reward, nil
}

// --- read surface ---

// OpenDepth reports the aggregate outstanding open-order amount.
func (e *Engine) OpenDepth() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	book, err := e.ensureBook()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(book.OpenDepth), nil
}

// OpenOrder reports the lender's outstanding deposit amount.
func (e *Engine) OpenOrder(lender common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.openOrder(lender)
}

// MinOrderSize reports the configured order floor.
func (e *Engine) MinOrderSize() *big.Int {
	return new(big.Int).Set(e.cfg.MinOrderSize)
}

// LastEpochID reports the most recently opened epoch id; ok is false before
// any epoch exists.
func (e *Engine) LastEpochID() (uint64, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	book, err := e.ensureBook()
	if err != nil {
		return 0, false, err
	}
	return book.LastEpochID, book.EpochCount > 0, nil
}

// EpochWindow reports the maturity window of a known epoch.
func (e *Engine) EpochWindow(epochID uint64) (Epoch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	epoch, err := e.state.GetEpoch(epochID)
	if err != nil {
		return Epoch{}, err
	}
	if epoch == nil {
		return Epoch{}, errInvalidEpoch
	}
	return *epoch, nil
}

// EpochReturns reports the epoch's payout accumulators.
func (e *Engine) EpochReturns(epochID uint64) (*Returns, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	returns, err := e.state.GetReturns(epochID)
	if err != nil {
		return nil, err
	}
	if returns == nil {
		return nil, errInvalidEpoch
	}
	return returns.Clone(), nil
}

// BorrowerAmount reports the borrower's recorded contribution to an epoch.
func (e *Engine) BorrowerAmount(epochID uint64, borrower common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.borrowerAmount(epochID, borrower)
}

// --- helpers ---

// resolveEpoch joins the open epoch while it is within the swap buffer and
// opens the next one otherwise. The caller persists a newly created epoch
// only once the fill is known to succeed.
func (e *Engine) resolveEpoch(book *Book, now time.Time) (*Epoch, bool, error) {
	if book.EpochCount > 0 {
		last, err := e.state.GetEpoch(book.LastEpochID)
		if err != nil {
			return nil, false, err
		}
		if last != nil && now.Sub(last.Start) <= e.cfg.SwapBuffer {
			return last, false, nil
		}
	}
	epoch := &Epoch{
		ID:    book.LastEpochID + 1,
		Start: now,
		End:   now.Add(e.cfg.MaturityLength),
	}
	return epoch, true, nil
}

func (e *Engine) openOrder(lender common.Address) (*big.Int, error) {
	order, err := e.state.GetOrder(lender)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return big.NewInt(0), nil
	}
	return order, nil
}

func (e *Engine) borrowerAmount(epochID uint64, borrower common.Address) (*big.Int, error) {
	amount, err := e.state.GetBorrowerAmount(epochID, borrower)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		return big.NewInt(0), nil
	}
	return amount, nil
}

func (e *Engine) ensureBook() (*Book, error) {
	book, err := e.state.GetBook()
	if err != nil {
		return nil, err
	}
	if book == nil {
		book = &Book{}
	}
	if book.OpenDepth == nil {
		book.OpenDepth = big.NewInt(0)
	}
	return book, nil
}

func (e *Engine) ensureReturns(epochID uint64) (*Returns, error) {
	returns, err := e.state.GetReturns(epochID)
	if err != nil {
		return nil, err
	}
	if returns == nil {
		returns = &Returns{}
	}
	if returns.Lender == nil {
		returns.Lender = big.NewInt(0)
	}
	if returns.Borrower == nil {
		returns.Borrower = big.NewInt(0)
	}
	if returns.TotalBorrowed == nil {
		returns.TotalBorrowed = big.NewInt(0)
	}
	return returns, nil
}
