package pool

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// State is the persistence boundary for the matching engine and the
// collateral ledger. Getters return a nil record (and nil error) when the
// entity has never been written, and an independent copy otherwise so a
// failed operation cannot leak partial mutations into stored state; callers
// fill defaults through the ensure helpers. Zeroed entries are kept rather
// than deleted once an epoch is fully unwound.
//
// Put calls for well-formed records must not fail: the engine persists the
// results of a committed fill or repay as a sequence of individual writes
// with no rollback, so a Put error mid-sequence leaves the stored records
// ahead of or behind the token ledgers. Backends that can fail a write
// (a closed database, a full disk) surface the error, which aborts the
// operation; recovering the gap is an operational restore, not something
// the engine re-drives.
type State interface {
	GetBook() (*Book, error)
	PutBook(book *Book) error

	GetOrder(lender common.Address) (*big.Int, error)
	PutOrder(lender common.Address, amount *big.Int) error

	GetEpoch(id uint64) (*Epoch, error)
	PutEpoch(epoch *Epoch) error

	GetReturns(id uint64) (*Returns, error)
	PutReturns(id uint64, returns *Returns) error

	GetBorrowerAmount(id uint64, borrower common.Address) (*big.Int, error)
	PutBorrowerAmount(id uint64, borrower common.Address, amount *big.Int) error

	GetCollateral(id uint64) (*TbyCollateral, error)
	PutCollateral(id uint64, collateral *TbyCollateral) error

	GetPrice(id uint64) (*RwaPrice, error)
	PutPrice(id uint64, price *RwaPrice) error
}

// ledgerState is the subset of State the collateral ledger touches. The
// matching engine reads collateral and price records only through the
// ledger's snapshot views.
type ledgerState interface {
	GetEpoch(id uint64) (*Epoch, error)
	GetCollateral(id uint64) (*TbyCollateral, error)
	PutCollateral(id uint64, collateral *TbyCollateral) error
	GetPrice(id uint64) (*RwaPrice, error)
	PutPrice(id uint64, price *RwaPrice) error
}
