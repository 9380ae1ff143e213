package pricing

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Feed reports the latest observation of an external price source together
// with the precision the source publishes in.
type Feed interface {
	Latest() (value *big.Int, updatedAt time.Time, err error)
	Decimals() uint8
}

// ManualFeed is an in-memory feed implementation used for tests and manual
// overrides during incident response.
type ManualFeed struct {
	mu        sync.RWMutex
	value     *big.Int
	updatedAt time.Time
	decimals  uint8
}

// NewManualFeed constructs a feed publishing values at the given precision.
func NewManualFeed(decimals uint8) *ManualFeed {
	return &ManualFeed{decimals: decimals}
}

// Set records the supplied observation and timestamp.
func (f *ManualFeed) Set(value *big.Int, ts time.Time) {
	if f == nil || value == nil {
		return
	}
	f.mu.Lock()
	f.value = new(big.Int).Set(value)
	f.updatedAt = ts
	f.mu.Unlock()
}

func (f *ManualFeed) Latest() (*big.Int, time.Time, error) {
	if f == nil {
		return nil, time.Time{}, ErrInvalidData
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.value == nil {
		return nil, time.Time{}, ErrInvalidData
	}
	return new(big.Int).Set(f.value), f.updatedAt, nil
}

func (f *ManualFeed) Decimals() uint8 {
	if f == nil {
		return 0
	}
	return f.decimals
}

// FeedSource adapts a single feed into a bidirectional pair source. The feed
// value is read as "units of quote per whole unit of base" and is normalised
// to the internal 18-decimal scale before any arithmetic.
type FeedSource struct {
	feed          Feed
	base          common.Address
	quote         common.Address
	baseDecimals  uint8
	quoteDecimals uint8
	maxStaleness  time.Duration
	now           func() time.Time
}

// NewFeedSource wires a feed to the asset pair it prices. Asset decimals are
// resolved once at construction through the optional prober.
func NewFeedSource(feed Feed, base, quote common.Address, prober DecimalsProber, maxStaleness time.Duration) *FeedSource {
	return &FeedSource{
		feed:          feed,
		base:          base,
		quote:         quote,
		baseDecimals:  ResolveDecimals(prober, base),
		quoteDecimals: ResolveDecimals(prober, quote),
		maxStaleness:  maxStaleness,
		now:           time.Now,
	}
}

// SetClock overrides the wall clock used for staleness checks.
func (s *FeedSource) SetClock(now func() time.Time) {
	if s == nil || now == nil {
		return
	}
	s.now = now
}

// price18 reads the feed and normalises the value to 18 decimals, enforcing
// the staleness and validity policy.
func (s *FeedSource) price18() (*big.Int, error) {
	value, updatedAt, err := s.feed.Latest()
	if err != nil {
		return nil, err
	}
	if value == nil || value.Sign() <= 0 {
		return nil, ErrInvalidData
	}
	if s.maxStaleness > 0 && s.now().Sub(updatedAt) > s.maxStaleness {
		return nil, ErrStaleData
	}
	return scaleDecimals(value, s.feed.Decimals(), internalDecimals), nil
}

// Resolve converts amount of base into quote, or the reverse when queried in
// the opposite orientation.
func (s *FeedSource) Resolve(amount *big.Int, base, quote common.Address) (*big.Int, error) {
	if s == nil || amount == nil {
		return nil, ErrInvalidData
	}
	price, err := s.price18()
	if err != nil {
		return nil, err
	}
	switch {
	case base == s.base && quote == s.quote:
		// amount/10^bd whole units, times price, into quote native units.
		out := new(big.Int).Mul(amount, price)
		out.Mul(out, pow10(s.quoteDecimals))
		out.Quo(out, wad)
		out.Quo(out, pow10(s.baseDecimals))
		return out, nil
	case base == s.quote && quote == s.base:
		out := new(big.Int).Mul(amount, wad)
		out.Mul(out, pow10(s.baseDecimals))
		out.Quo(out, price)
		out.Quo(out, pow10(s.quoteDecimals))
		return out, nil
	default:
		return nil, ErrInvalidDirection
	}
}
