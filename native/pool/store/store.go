// Package store persists the pool engine's state in a key-value database so
// a daemon restart reloads open orders, epochs, and accounting records.
package store

import (
	"encoding/binary"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"rwapool/native/pool"
	"rwapool/storage"
)

var (
	bookKey          = []byte("pool/book")
	orderPrefix      = []byte("pool/order/")
	epochPrefix      = []byte("pool/epoch/")
	returnsPrefix    = []byte("pool/returns/")
	borrowerPrefix   = []byte("pool/borrower/")
	collateralPrefix = []byte("pool/collateral/")
	pricePrefix      = []byte("pool/price/")
)

// Store implements pool.State over a storage.Database, encoding each record
// with RLP under a prefixed key. Decoding always yields fresh copies, which
// gives the engine the copy-on-read isolation its failure atomicity relies
// on.
type Store struct {
	db storage.Database
}

// New creates a pool state store backed by the provided database.
func New(db storage.Database) *Store {
	return &Store{db: db}
}

type bookRecord struct {
	OpenDepth   *big.Int
	LastEpochID uint64
	EpochCount  uint64
}

type epochRecord struct {
	ID    uint64
	Start uint64
	End   uint64
}

type collateralRecord struct {
	AssetAmount       *big.Int
	CurrentRwaAmount  *big.Int
	OriginalRwaAmount *big.Int
	LenderAccrued     *big.Int
}

// EndPrice is optional on the domain type; RLP cannot carry a nil big.Int so
// presence is tracked explicitly.
type priceRecord struct {
	StartPrice  *big.Int
	EndPrice    *big.Int
	EndPriceSet bool
	Spread      *big.Int
}

type returnsRecord struct {
	Lender        *big.Int
	Borrower      *big.Int
	TotalBorrowed *big.Int
	Redeemable    bool
}

func (s *Store) GetBook() (*pool.Book, error) {
	var rec bookRecord
	ok, err := s.get(bookKey, &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &pool.Book{OpenDepth: rec.OpenDepth, LastEpochID: rec.LastEpochID, EpochCount: rec.EpochCount}, nil
}

func (s *Store) PutBook(book *pool.Book) error {
	if book == nil {
		return errors.New("pool store: nil book")
	}
	return s.put(bookKey, bookRecord{
		OpenDepth:   orZero(book.OpenDepth),
		LastEpochID: book.LastEpochID,
		EpochCount:  book.EpochCount,
	})
}

func (s *Store) GetOrder(lender common.Address) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := s.get(orderKey(lender), amount)
	if err != nil || !ok {
		return nil, err
	}
	return amount, nil
}

func (s *Store) PutOrder(lender common.Address, amount *big.Int) error {
	return s.put(orderKey(lender), orZero(amount))
}

func (s *Store) GetEpoch(id uint64) (*pool.Epoch, error) {
	var rec epochRecord
	ok, err := s.get(epochKey(id), &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &pool.Epoch{
		ID:    rec.ID,
		Start: time.Unix(int64(rec.Start), 0).UTC(),
		End:   time.Unix(int64(rec.End), 0).UTC(),
	}, nil
}

func (s *Store) PutEpoch(epoch *pool.Epoch) error {
	if epoch == nil {
		return errors.New("pool store: nil epoch")
	}
	return s.put(epochKey(epoch.ID), epochRecord{
		ID:    epoch.ID,
		Start: uint64(epoch.Start.Unix()),
		End:   uint64(epoch.End.Unix()),
	})
}

func (s *Store) GetReturns(id uint64) (*pool.Returns, error) {
	var rec returnsRecord
	ok, err := s.get(returnsKey(id), &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &pool.Returns{
		Lender:        rec.Lender,
		Borrower:      rec.Borrower,
		TotalBorrowed: rec.TotalBorrowed,
		Redeemable:    rec.Redeemable,
	}, nil
}

func (s *Store) PutReturns(id uint64, returns *pool.Returns) error {
	if returns == nil {
		return errors.New("pool store: nil returns")
	}
	return s.put(returnsKey(id), returnsRecord{
		Lender:        orZero(returns.Lender),
		Borrower:      orZero(returns.Borrower),
		TotalBorrowed: orZero(returns.TotalBorrowed),
		Redeemable:    returns.Redeemable,
	})
}

func (s *Store) GetBorrowerAmount(id uint64, borrower common.Address) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := s.get(borrowerKey(id, borrower), amount)
	if err != nil || !ok {
		return nil, err
	}
	return amount, nil
}

func (s *Store) PutBorrowerAmount(id uint64, borrower common.Address, amount *big.Int) error {
	return s.put(borrowerKey(id, borrower), orZero(amount))
}

func (s *Store) GetCollateral(id uint64) (*pool.TbyCollateral, error) {
	var rec collateralRecord
	ok, err := s.get(collateralKey(id), &rec)
	if err != nil || !ok {
		return nil, err
	}
	return &pool.TbyCollateral{
		AssetAmount:       rec.AssetAmount,
		CurrentRwaAmount:  rec.CurrentRwaAmount,
		OriginalRwaAmount: rec.OriginalRwaAmount,
		LenderAccrued:     rec.LenderAccrued,
	}, nil
}

func (s *Store) PutCollateral(id uint64, collateral *pool.TbyCollateral) error {
	if collateral == nil {
		return errors.New("pool store: nil collateral")
	}
	return s.put(collateralKey(id), collateralRecord{
		AssetAmount:       orZero(collateral.AssetAmount),
		CurrentRwaAmount:  orZero(collateral.CurrentRwaAmount),
		OriginalRwaAmount: orZero(collateral.OriginalRwaAmount),
		LenderAccrued:     orZero(collateral.LenderAccrued),
	})
}

func (s *Store) GetPrice(id uint64) (*pool.RwaPrice, error) {
	var rec priceRecord
	ok, err := s.get(priceKey(id), &rec)
	if err != nil || !ok {
		return nil, err
	}
	price := &pool.RwaPrice{StartPrice: rec.StartPrice, Spread: rec.Spread}
	if rec.EndPriceSet {
		price.EndPrice = rec.EndPrice
	}
	return price, nil
}

func (s *Store) PutPrice(id uint64, price *pool.RwaPrice) error {
	if price == nil {
		return errors.New("pool store: nil price")
	}
	rec := priceRecord{
		StartPrice: orZero(price.StartPrice),
		EndPrice:   orZero(price.EndPrice),
		Spread:     orZero(price.Spread),
	}
	rec.EndPriceSet = price.EndPrice != nil
	return s.put(priceKey(id), rec)
}

func (s *Store) get(key []byte, out interface{}) (bool, error) {
	raw, err := s.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) put(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return s.db.Put(key, encoded)
}

func orderKey(lender common.Address) []byte {
	return append(append([]byte(nil), orderPrefix...), lender.Bytes()...)
}

func epochKey(id uint64) []byte {
	return appendID(epochPrefix, id)
}

func returnsKey(id uint64) []byte {
	return appendID(returnsPrefix, id)
}

func borrowerKey(id uint64, borrower common.Address) []byte {
	return append(appendID(borrowerPrefix, id), borrower.Bytes()...)
}

func collateralKey(id uint64) []byte {
	return appendID(collateralPrefix, id)
}

func priceKey(id uint64) []byte {
	return appendID(pricePrefix, id)
}

func appendID(prefix []byte, id uint64) []byte {
	key := append([]byte(nil), prefix...)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return append(key, buf[:]...)
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
