package models

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSignedQty(t *testing.T) {
	out := StockOperation{ProductId: 1, Qty: dec("3"), Type: StockMovementTypeOut}
	if !out.SignedQty().Equal(dec("-3")) {
		t.Errorf("OUT: expected -3, got %s", out.SignedQty())
	}

	in := StockOperation{ProductId: 1, Qty: dec("3"), Type: StockMovementTypeIn}
	if !in.SignedQty().Equal(dec("3")) {
		t.Errorf("IN: expected 3, got %s", in.SignedQty())
	}

	ret := StockOperation{ProductId: 1, Qty: dec("3"), Type: StockMovementTypeReturn}
	if !ret.SignedQty().Equal(dec("3")) {
		t.Errorf("RETURN: expected 3, got %s", ret.SignedQty())
	}
}

func TestNetStockEffectNetsPerProduct(t *testing.T) {
	// The edit swap pattern: return the old allocation, deduct the new one.
	ops := []StockOperation{
		{ProductId: 1, Qty: dec("3"), Type: StockMovementTypeReturn},
		{ProductId: 1, Qty: dec("1"), Type: StockMovementTypeOut},
		{ProductId: 2, Qty: dec("2"), Type: StockMovementTypeOut},
		{ProductId: 3, Qty: dec("5"), Type: StockMovementTypeReturn},
		{ProductId: 3, Qty: dec("5"), Type: StockMovementTypeOut},
	}

	effects := NetStockEffect(ops)
	if len(effects) != 3 {
		t.Fatalf("expected 3 products, got %d", len(effects))
	}
	if !effects[1].Equal(dec("2")) {
		t.Errorf("product 1: expected net +2, got %s", effects[1])
	}
	if !effects[2].Equal(dec("-2")) {
		t.Errorf("product 2: expected net -2, got %s", effects[2])
	}
	if !effects[3].Equal(decimal.Zero) {
		t.Errorf("product 3: expected net 0, got %s", effects[3])
	}
}

func TestNetStockEffectEmpty(t *testing.T) {
	if effects := NetStockEffect(nil); len(effects) != 0 {
		t.Fatalf("expected empty map, got %v", effects)
	}
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{
		ProductName: "Oil Filter",
		Available:   dec("2"),
		Required:    dec("5"),
	}
	msg := err.Error()
	if !strings.Contains(msg, "Oil Filter") || !strings.Contains(msg, "2") || !strings.Contains(msg, "5") {
		t.Fatalf("message missing detail: %q", msg)
	}
	if msg != "insufficient stock for Oil Filter: available 2, required 5" {
		t.Fatalf("unexpected message: %q", msg)
	}
}
