package pricing

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	assetUSD = common.HexToAddress("0x0000000000000000000000000000000000011111")
	assetRWA = common.HexToAddress("0x0000000000000000000000000000000000022222")
	assetEUR = common.HexToAddress("0x0000000000000000000000000000000000033333")
)

func wadInt(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), wad)
}

func newSource(t *testing.T, base, quote common.Address, price *big.Int) *FeedSource {
	t.Helper()
	feed := NewManualFeed(18)
	feed.Set(price, time.Now())
	return NewFeedSource(feed, base, quote, nil, 0)
}

func TestGraphResolvesIdentityWithoutSource(t *testing.T) {
	g := NewGraph()
	out, err := g.Resolve(wadInt(7), assetUSD, assetUSD)
	if err != nil {
		t.Fatalf("identity: %v", err)
	}
	if out.Cmp(wadInt(7)) != 0 {
		t.Fatalf("identity = %s, want %s", out, wadInt(7))
	}
}

func TestGraphFailsWithoutRegistration(t *testing.T) {
	g := NewGraph()
	if _, err := g.Resolve(wadInt(1), assetUSD, assetRWA); !errors.Is(err, ErrNoSource) {
		t.Fatalf("err = %v, want %v", err, ErrNoSource)
	}
}

func TestGraphPairKeyIsUnordered(t *testing.T) {
	g := NewGraph()
	g.Register(assetRWA, assetUSD, newSource(t, assetRWA, assetUSD, wadInt(100)))

	// Registered as (RWA, USD); query in the opposite order.
	out, err := g.Resolve(wadInt(100), assetUSD, assetRWA)
	if err != nil {
		t.Fatalf("reverse lookup: %v", err)
	}
	if out.Cmp(wadInt(1)) != 0 {
		t.Fatalf("100 USD = %s RWA, want %s", out, wadInt(1))
	}
}

func TestGraphResolvesBothDirections(t *testing.T) {
	g := NewGraph()
	g.Register(assetRWA, assetUSD, newSource(t, assetRWA, assetUSD, wadInt(100)))

	forward, err := g.Resolve(wadInt(2), assetRWA, assetUSD)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if forward.Cmp(wadInt(200)) != 0 {
		t.Fatalf("2 RWA = %s USD, want %s", forward, wadInt(200))
	}

	reverse, err := g.Resolve(wadInt(200), assetUSD, assetRWA)
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if reverse.Cmp(wadInt(2)) != 0 {
		t.Fatalf("200 USD = %s RWA, want %s", reverse, wadInt(2))
	}
}

func TestChainedResolvesThroughCross(t *testing.T) {
	first := newSource(t, assetRWA, assetUSD, wadInt(2))
	last := newSource(t, assetUSD, assetEUR, wadInt(3))
	chained := NewChained(assetRWA, assetUSD, assetEUR, first, last)

	g := NewGraph()
	g.Register(assetRWA, assetEUR, chained)

	out, err := g.Resolve(wadInt(1), assetRWA, assetEUR)
	if err != nil {
		t.Fatalf("forward chain: %v", err)
	}
	if out.Cmp(wadInt(6)) != 0 {
		t.Fatalf("1 RWA = %s EUR, want %s", out, wadInt(6))
	}

	back, err := g.Resolve(wadInt(6), assetEUR, assetRWA)
	if err != nil {
		t.Fatalf("inverse chain: %v", err)
	}
	if back.Cmp(wadInt(1)) != 0 {
		t.Fatalf("6 EUR = %s RWA, want %s", back, wadInt(1))
	}
}

func TestChainedRejectsUnrelatedPair(t *testing.T) {
	first := newSource(t, assetRWA, assetUSD, wadInt(2))
	last := newSource(t, assetUSD, assetEUR, wadInt(3))
	chained := NewChained(assetRWA, assetUSD, assetEUR, first, last)

	if _, err := chained.Resolve(wadInt(1), assetRWA, assetUSD); !errors.Is(err, ErrInvalidDirection) {
		t.Fatalf("err = %v, want %v", err, ErrInvalidDirection)
	}
}
