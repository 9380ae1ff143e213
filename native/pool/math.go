package pool

import "math/big"

var wad = mustBigInt("1000000000000000000") // 1e18 fixed-point scale

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

func wadMul(a, b *big.Int) *big.Int {
	if a == nil || b == nil {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	product.Quo(product, wad)
	return product
}

func wadDiv(a, b *big.Int) *big.Int {
	if a == nil || b == nil || b.Sign() == 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(a, wad)
	numerator.Quo(numerator, b)
	return numerator
}

// wadDivUp rounds toward the divisor's payer so fractional dust cannot leak
// out of the pool.
func wadDivUp(a, b *big.Int) *big.Int {
	if a == nil || b == nil || b.Sign() == 0 {
		return big.NewInt(0)
	}
	numerator := new(big.Int).Mul(a, wad)
	numerator.Add(numerator, new(big.Int).Sub(b, big.NewInt(1)))
	numerator.Quo(numerator, b)
	return numerator
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}
