package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Pricing is always recomputed from scratch, on create and on every edit.
// Patching the stored total incrementally drifts; a full recompute cannot.

func (item *ServiceOrderServiceDetail) CalculateDetailTotal() {
	item.DetailTotalAmount = item.DetailQty.Mul(item.DetailUnitRate).Sub(item.DetailDiscount)
}

func (item *ServiceOrderPartDetail) CalculateDetailTotal() {
	item.DetailTotalAmount = item.DetailQty.Mul(item.DetailUnitRate).Sub(item.DetailDiscount)
}

// mapServiceOrderServiceDetails materializes requested service lines against
// the resolved labour catalog. The unit rate is snapshotted: the catalog base
// price is copied in when the request carries no explicit rate.
func mapServiceOrderServiceDetails(inputs []NewServiceOrderServiceDetail, services map[int]*WorkshopService) ([]ServiceOrderServiceDetail, error) {
	details := make([]ServiceOrderServiceDetail, 0, len(inputs))
	for _, input := range inputs {
		service, ok := services[input.ServiceId]
		if !ok {
			return nil, errors.New("service not found")
		}
		if !input.Qty.IsPositive() {
			return nil, errors.New("service qty must be positive")
		}

		rate := service.BasePrice
		if input.UnitRate != nil {
			rate = *input.UnitRate
		}

		detail := ServiceOrderServiceDetail{
			ServiceId:      input.ServiceId,
			Name:           service.Name,
			DetailQty:      input.Qty,
			DetailUnitRate: rate,
			DetailDiscount: input.Discount,
		}
		detail.CalculateDetailTotal()
		details = append(details, detail)
	}
	return details, nil
}

// mapServiceOrderPartDetails materializes requested part lines against the
// resolved products, defaulting the rate to the product's current sale price.
func mapServiceOrderPartDetails(inputs []NewServiceOrderPartDetail, products map[int]*Product) ([]ServiceOrderPartDetail, error) {
	details := make([]ServiceOrderPartDetail, 0, len(inputs))
	for _, input := range inputs {
		product, ok := products[input.ProductId]
		if !ok {
			return nil, errors.New("product not found")
		}
		if !input.Qty.IsPositive() {
			return nil, errors.New("part qty must be positive")
		}

		rate := product.SalePrice
		if input.UnitRate != nil {
			rate = *input.UnitRate
		}

		detail := ServiceOrderPartDetail{
			ProductId:      input.ProductId,
			Name:           product.Name,
			DetailQty:      input.Qty,
			DetailUnitRate: rate,
			DetailDiscount: input.Discount,
		}
		detail.CalculateDetailTotal()
		details = append(details, detail)
	}
	return details, nil
}

// mapServiceOrderCharges keeps only charges with a description and a strictly
// positive amount. Anything else is incomplete operator input, dropped
// silently rather than rejected.
func mapServiceOrderCharges(inputs []NewServiceOrderCharge) []ServiceOrderCharge {
	charges := make([]ServiceOrderCharge, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input.Description) == "" {
			continue
		}
		if !input.Amount.IsPositive() {
			continue
		}
		charges = append(charges, ServiceOrderCharge{
			Description: input.Description,
			Amount:      input.Amount,
		})
	}
	return charges
}

func calculateOrderTotal(serviceDetails []ServiceOrderServiceDetail, partDetails []ServiceOrderPartDetail, charges []ServiceOrderCharge) decimal.Decimal {
	var total decimal.Decimal
	for _, d := range serviceDetails {
		total = total.Add(d.DetailTotalAmount)
	}
	for _, d := range partDetails {
		total = total.Add(d.DetailTotalAmount)
	}
	for _, c := range charges {
		total = total.Add(c.Amount)
	}
	return total
}

func fetchWorkshopServicesByIds(tx *gorm.DB, businessId string, inputs []NewServiceOrderServiceDetail) (map[int]*WorkshopService, error) {
	ids := make([]int, 0, len(inputs))
	for _, input := range inputs {
		ids = append(ids, input.ServiceId)
	}
	result := make(map[int]*WorkshopService, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var services []*WorkshopService
	if err := tx.Where("business_id = ? AND id IN ?", businessId, ids).Find(&services).Error; err != nil {
		return nil, err
	}
	for _, s := range services {
		result[s.ID] = s
	}
	return result, nil
}

func fetchProductsByIds(tx *gorm.DB, businessId string, inputs []NewServiceOrderPartDetail) (map[int]*Product, error) {
	ids := make([]int, 0, len(inputs))
	for _, input := range inputs {
		ids = append(ids, input.ProductId)
	}
	result := make(map[int]*Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var products []*Product
	if err := tx.Where("business_id = ? AND id IN ?", businessId, ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}
