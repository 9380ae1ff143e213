package token

import (
	"errors"
	"math/big"
	"testing"
)

func TestReceiptSeriesAreIndependent(t *testing.T) {
	receipt := NewReceipt("TBY")
	if err := receipt.Mint(1, alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := receipt.Mint(2, alice, big.NewInt(40)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := receipt.Mint(1, bob, big.NewInt(60)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if got := receipt.TotalSupply(1); got.Cmp(big.NewInt(160)) != 0 {
		t.Fatalf("series 1 supply = %s, want 160", got)
	}
	if got := receipt.TotalSupply(2); got.Cmp(big.NewInt(40)) != 0 {
		t.Fatalf("series 2 supply = %s, want 40", got)
	}
	if got := receipt.BalanceOf(2, bob); got.Sign() != 0 {
		t.Fatalf("bob series 2 = %s, want 0", got)
	}
}

func TestReceiptBurnShrinksSupply(t *testing.T) {
	receipt := NewReceipt("TBY")
	if err := receipt.Mint(1, alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := receipt.Burn(1, alice, big.NewInt(101)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("over-burn err = %v, want %v", err, ErrInsufficientBalance)
	}
	if err := receipt.Burn(1, alice, big.NewInt(100)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := receipt.TotalSupply(1); got.Sign() != 0 {
		t.Fatalf("supply after burn = %s, want 0", got)
	}
	if err := receipt.Burn(1, alice, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero burn err = %v, want %v", err, ErrInvalidAmount)
	}
}
