package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oficinaplus/workshop_backend/config"
	"github.com/oficinaplus/workshop_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a tenant-scoped part in the workshop's inventory. StockQty is
// mutated only through ExecuteStockOperations, never by direct assignment, so
// it can never be driven negative.
type Product struct {
	ID                   int              `gorm:"primary_key" json:"id"`
	BusinessId           string           `gorm:"index;not null;uniqueIndex:uniq_products_business_code" json:"business_id"`
	Code                 string           `gorm:"size:100;not null;uniqueIndex:uniq_products_business_code" json:"code"`
	Name                 string           `gorm:"size:255;not null" json:"name"`
	Unit                 string           `gorm:"size:20" json:"unit"`
	StockQty             decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"stock_qty"`
	MinStockQty          decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"min_stock_qty"`
	PurchasePrice        decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"purchase_price"`
	CurrentPurchasePrice decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"current_purchase_price"`
	SalePrice            decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"sale_price"`
	BulkPrice            *decimal.Decimal `gorm:"type:decimal(20,4)" json:"bulk_price"`
	CreatedAt            time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Code                 string           `json:"code" validate:"required"`
	Name                 string           `json:"name" validate:"required"`
	Unit                 string           `json:"unit"`
	StockQty             decimal.Decimal  `json:"stock_qty"`
	MinStockQty          decimal.Decimal  `json:"min_stock_qty"`
	PurchasePrice        decimal.Decimal  `json:"purchase_price"`
	CurrentPurchasePrice decimal.Decimal  `json:"current_purchase_price"`
	SalePrice            decimal.Decimal  `json:"sale_price"`
	BulkPrice            *decimal.Decimal `json:"bulk_price"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewProduct) validate(ctx context.Context, businessId string, id int) error {
	if err := utils.ValidateUnique[Product](ctx, businessId, "code", input.Code, id); err != nil {
		return err
	}
	if input.StockQty.IsNegative() {
		return errors.New("stock qty cannot be negative")
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, 0); err != nil {
		return nil, err
	}

	product := Product{
		BusinessId:           businessId,
		Code:                 input.Code,
		Name:                 input.Name,
		Unit:                 input.Unit,
		MinStockQty:          input.MinStockQty,
		PurchasePrice:        input.PurchasePrice,
		CurrentPurchasePrice: input.CurrentPurchasePrice,
		SalePrice:            input.SalePrice,
		BulkPrice:            input.BulkPrice,
	}

	db := config.GetDB()
	// Opening quantity goes through the ledger so the movement history fully
	// accounts for the cached quantity from day one.
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		if input.StockQty.IsPositive() {
			ops := []StockOperation{{
				BusinessId:  businessId,
				ProductId:   product.ID,
				Qty:         input.StockQty,
				Type:        StockMovementTypeIn,
				Reason:      "opening stock",
				DocumentRef: fmt.Sprintf("OPEN-%d", product.ID),
			}}
			if err := ExecuteStockOperations(tx, config.GetLogger(), ops); err != nil {
				return err
			}
			product.StockQty = input.StockQty
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct updates catalog fields only. StockQty is owned by the stock
// ledger and is not part of this input.
func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId, id); err != nil {
		return nil, err
	}

	product, err := utils.FetchModel[Product](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	// db action
	err = db.WithContext(ctx).Model(product).
		Updates(map[string]interface{}{
			"Code":                 input.Code,
			"Name":                 input.Name,
			"Unit":                 input.Unit,
			"MinStockQty":          input.MinStockQty,
			"PurchasePrice":        input.PurchasePrice,
			"CurrentPurchasePrice": input.CurrentPurchasePrice,
			"SalePrice":            input.SalePrice,
			"BulkPrice":            input.BulkPrice,
		}).Error
	if err != nil {
		return nil, err
	}
	return product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Product](ctx, businessId, id)
}

func GetProductsAll(ctx context.Context, name *string) ([]*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Product

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetProductsBelowMinimum lists products whose on-hand quantity has fallen to
// or below their minimum-stock threshold. Feeds the replenishment dashboard.
func GetProductsBelowMinimum(ctx context.Context) ([]*Product, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Product
	err := db.WithContext(ctx).
		Where("business_id = ? AND min_stock_qty > 0 AND stock_qty <= min_stock_qty", businessId).
		Order("name").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
