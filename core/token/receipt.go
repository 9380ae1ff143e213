package token

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Receipt is a multi-series fungible token keyed by epoch id. Each series
// tracks its own balances and total supply.
type Receipt struct {
	mu       sync.RWMutex
	symbol   string
	balances map[uint64]map[common.Address]*big.Int
	supply   map[uint64]*big.Int
}

// NewReceipt constructs an empty receipt-token ledger.
func NewReceipt(symbol string) *Receipt {
	return &Receipt{
		symbol:   symbol,
		balances: make(map[uint64]map[common.Address]*big.Int),
		supply:   make(map[uint64]*big.Int),
	}
}

func (r *Receipt) Symbol() string { return r.symbol }

// Mint credits owner within the series and grows its supply.
func (r *Receipt) Mint(id uint64, owner common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	series, ok := r.balances[id]
	if !ok {
		series = make(map[common.Address]*big.Int)
		r.balances[id] = series
	}
	series[owner] = new(big.Int).Add(r.balance(id, owner), amount)
	r.supply[id] = new(big.Int).Add(r.totalSupply(id), amount)
	return nil
}

// Burn debits owner within the series and shrinks its supply.
func (r *Receipt) Burn(id uint64, owner common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	bal := r.balance(id, owner)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	r.balances[id][owner] = new(big.Int).Sub(bal, amount)
	r.supply[id] = new(big.Int).Sub(r.totalSupply(id), amount)
	return nil
}

// BalanceOf reports the owner's holdings within the series.
func (r *Receipt) BalanceOf(id uint64, owner common.Address) *big.Int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return new(big.Int).Set(r.balance(id, owner))
}

// TotalSupply reports the outstanding supply of the series.
func (r *Receipt) TotalSupply(id uint64) *big.Int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return new(big.Int).Set(r.totalSupply(id))
}

func (r *Receipt) balance(id uint64, owner common.Address) *big.Int {
	if series, ok := r.balances[id]; ok {
		if bal, ok := series[owner]; ok {
			return bal
		}
	}
	return big.NewInt(0)
}

func (r *Receipt) totalSupply(id uint64) *big.Int {
	if supply, ok := r.supply[id]; ok {
		return supply
	}
	return big.NewInt(0)
}
