package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMapServiceDetailsDefaultsRateFromCatalog(t *testing.T) {
	services := map[int]*WorkshopService{
		1: {ID: 1, Name: "Oil Change", BasePrice: dec("35")},
	}
	inputs := []NewServiceOrderServiceDetail{
		{ServiceId: 1, Qty: dec("2")},
	}

	details, err := mapServiceOrderServiceDetails(inputs, services)
	if err != nil {
		t.Fatalf("mapServiceOrderServiceDetails: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 detail, got %d", len(details))
	}
	d := details[0]
	if d.Name != "Oil Change" {
		t.Errorf("name snapshot: got %q", d.Name)
	}
	if !d.DetailUnitRate.Equal(dec("35")) {
		t.Errorf("expected base price used as rate, got %s", d.DetailUnitRate)
	}
	if !d.DetailTotalAmount.Equal(dec("70")) {
		t.Errorf("expected total 70, got %s", d.DetailTotalAmount)
	}
}

func TestMapServiceDetailsExplicitRateAndDiscount(t *testing.T) {
	services := map[int]*WorkshopService{
		1: {ID: 1, Name: "Brake Job", BasePrice: dec("120")},
	}
	rate := dec("100")
	inputs := []NewServiceOrderServiceDetail{
		{ServiceId: 1, Qty: dec("1"), UnitRate: &rate, Discount: dec("15")},
	}

	details, err := mapServiceOrderServiceDetails(inputs, services)
	if err != nil {
		t.Fatalf("mapServiceOrderServiceDetails: %v", err)
	}
	if !details[0].DetailTotalAmount.Equal(dec("85")) {
		t.Errorf("expected 1*100-15=85, got %s", details[0].DetailTotalAmount)
	}
}

func TestMapServiceDetailsRejectsUnknownAndNonPositiveQty(t *testing.T) {
	services := map[int]*WorkshopService{
		1: {ID: 1, Name: "Oil Change", BasePrice: dec("35")},
	}

	if _, err := mapServiceOrderServiceDetails([]NewServiceOrderServiceDetail{
		{ServiceId: 99, Qty: dec("1")},
	}, services); err == nil || err.Error() != "service not found" {
		t.Errorf("unknown service: got %v", err)
	}

	if _, err := mapServiceOrderServiceDetails([]NewServiceOrderServiceDetail{
		{ServiceId: 1, Qty: dec("0")},
	}, services); err == nil || err.Error() != "service qty must be positive" {
		t.Errorf("zero qty: got %v", err)
	}
}

func TestMapPartDetailsDefaultsRateFromSalePrice(t *testing.T) {
	products := map[int]*Product{
		7: {ID: 7, Name: "Oil Filter", SalePrice: dec("12.5")},
	}
	inputs := []NewServiceOrderPartDetail{
		{ProductId: 7, Qty: dec("3")},
	}

	details, err := mapServiceOrderPartDetails(inputs, products)
	if err != nil {
		t.Fatalf("mapServiceOrderPartDetails: %v", err)
	}
	d := details[0]
	if !d.DetailUnitRate.Equal(dec("12.5")) {
		t.Errorf("expected sale price used as rate, got %s", d.DetailUnitRate)
	}
	if !d.DetailTotalAmount.Equal(dec("37.5")) {
		t.Errorf("expected total 37.5, got %s", d.DetailTotalAmount)
	}
	if d.Name != "Oil Filter" {
		t.Errorf("name snapshot: got %q", d.Name)
	}
}

func TestMapPartDetailsRejectsUnknownAndNegativeQty(t *testing.T) {
	products := map[int]*Product{
		7: {ID: 7, Name: "Oil Filter", SalePrice: dec("12.5")},
	}

	if _, err := mapServiceOrderPartDetails([]NewServiceOrderPartDetail{
		{ProductId: 8, Qty: dec("1")},
	}, products); err == nil || err.Error() != "product not found" {
		t.Errorf("unknown product: got %v", err)
	}

	if _, err := mapServiceOrderPartDetails([]NewServiceOrderPartDetail{
		{ProductId: 7, Qty: dec("-1")},
	}, products); err == nil || err.Error() != "part qty must be positive" {
		t.Errorf("negative qty: got %v", err)
	}
}

func TestMapChargesDropsIncompleteRows(t *testing.T) {
	charges := mapServiceOrderCharges([]NewServiceOrderCharge{
		{Description: "Towing", Amount: dec("40")},
		{Description: "", Amount: dec("10")},
		{Description: "   ", Amount: dec("10")},
		{Description: "Disposal", Amount: dec("0")},
		{Description: "Rush fee", Amount: dec("-5")},
	})
	if len(charges) != 1 {
		t.Fatalf("expected 1 kept charge, got %d", len(charges))
	}
	if charges[0].Description != "Towing" || !charges[0].Amount.Equal(dec("40")) {
		t.Errorf("unexpected charge kept: %+v", charges[0])
	}
}

func TestCalculateOrderTotal(t *testing.T) {
	serviceDetails := []ServiceOrderServiceDetail{
		{DetailTotalAmount: dec("70")},
		{DetailTotalAmount: dec("85")},
	}
	partDetails := []ServiceOrderPartDetail{
		{DetailTotalAmount: dec("37.5")},
	}
	charges := []ServiceOrderCharge{
		{Amount: dec("40")},
	}

	total := calculateOrderTotal(serviceDetails, partDetails, charges)
	if !total.Equal(dec("232.5")) {
		t.Fatalf("expected 232.5, got %s", total)
	}

	if !calculateOrderTotal(nil, nil, nil).Equal(decimal.Zero) {
		t.Fatal("empty order must total zero")
	}
}
