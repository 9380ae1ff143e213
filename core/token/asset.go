package token

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrInvalidAmount         = errors.New("token: amount must be positive")
)

// Asset is an in-memory fungible token ledger. Transfers fail hard on
// insufficient balance or allowance rather than silently no-oping.
type Asset struct {
	mu         sync.RWMutex
	symbol     string
	decimals   uint8
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

// NewAsset constructs an empty ledger for the given symbol and precision.
func NewAsset(symbol string, decimals uint8) *Asset {
	return &Asset{
		symbol:     symbol,
		decimals:   decimals,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (a *Asset) Symbol() string  { return a.symbol }
func (a *Asset) Decimals() uint8 { return a.decimals }

// Mint credits the owner. Used for genesis balances and custody stubs.
func (a *Asset) Mint(owner common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[owner] = new(big.Int).Add(a.balance(owner), amount)
	return nil
}

// Burn debits the owner, failing when the balance does not cover the amount.
func (a *Asset) Burn(owner common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	bal := a.balance(owner)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	a.balances[owner] = new(big.Int).Sub(bal, amount)
	return nil
}

// Approve lets spender move up to amount from owner's balance.
func (a *Asset) Approve(owner, spender common.Address, amount *big.Int) {
	if amount == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	grants, ok := a.allowances[owner]
	if !ok {
		grants = make(map[common.Address]*big.Int)
		a.allowances[owner] = grants
	}
	grants[spender] = new(big.Int).Set(amount)
}

// BalanceOf returns a copy of the owner's balance.
func (a *Asset) BalanceOf(owner common.Address) *big.Int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return new(big.Int).Set(a.balance(owner))
}

// Move transfers between two accounts without an allowance check. Reserved
// for holders moving their own funds.
func (a *Asset) Move(from, to common.Address, amount *big.Int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.move(from, to, amount)
}

// MoveFrom transfers from payer on behalf of spender, consuming allowance.
func (a *Asset) MoveFrom(spender, payer, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	granted := a.allowance(payer, spender)
	if granted.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := a.move(payer, to, amount); err != nil {
		return err
	}
	a.allowances[payer][spender] = new(big.Int).Sub(granted, amount)
	return nil
}

func (a *Asset) balance(owner common.Address) *big.Int {
	if bal, ok := a.balances[owner]; ok {
		return bal
	}
	return big.NewInt(0)
}

func (a *Asset) allowance(owner, spender common.Address) *big.Int {
	if grants, ok := a.allowances[owner]; ok {
		if granted, ok := grants[spender]; ok {
			return granted
		}
	}
	return big.NewInt(0)
}

func (a *Asset) move(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	bal := a.balance(from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	a.balances[from] = new(big.Int).Sub(bal, amount)
	a.balances[to] = new(big.Int).Add(a.balance(to), amount)
	return nil
}

// Bound presents the asset from the viewpoint of a single holder so the pool
// engine can consume the narrow transfer capability without carrying its own
// address through every call.
type Bound struct {
	asset  *Asset
	holder common.Address
}

// Bind fixes the holder account for a transfer capability view.
func (a *Asset) Bind(holder common.Address) *Bound {
	return &Bound{asset: a, holder: holder}
}

// Transfer moves funds out of the bound holder.
func (b *Bound) Transfer(receiver common.Address, amount *big.Int) error {
	return b.asset.Move(b.holder, receiver, amount)
}

// TransferFrom pulls funds from payer under the holder's allowance.
func (b *Bound) TransferFrom(payer, receiver common.Address, amount *big.Int) error {
	return b.asset.MoveFrom(b.holder, payer, receiver, amount)
}

// BalanceOf reports any account's balance.
func (b *Bound) BalanceOf(owner common.Address) *big.Int {
	return b.asset.BalanceOf(owner)
}
