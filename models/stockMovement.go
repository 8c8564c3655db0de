package models

import (
	"context"
	"errors"
	"time"

	"github.com/oficinaplus/workshop_backend/config"
	"github.com/oficinaplus/workshop_backend/utils"
	"github.com/shopspring/decimal"
)

// StockMovement is one immutable signed change to a product's on-hand
// quantity. Rows are correlated to the originating business document only by
// DocumentRef (the order number), not a foreign key, so the audit trail stays
// queryable after the document itself is deleted.
type StockMovement struct {
	ID          int               `gorm:"primary_key" json:"id"`
	BusinessId  string            `gorm:"index;not null" json:"business_id"`
	ProductId   int               `gorm:"index;not null" json:"product_id"`
	Qty         decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"qty"`
	Type        StockMovementType `gorm:"type:enum('IN','OUT','RETURN');not null" json:"type"`
	Reason      string            `gorm:"size:255" json:"reason"`
	DocumentRef string            `gorm:"index;size:100" json:"document_ref"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// GetStockMovementsByDocumentRef returns the full audit trail recorded
// against one document reference, oldest first.
func GetStockMovementsByDocumentRef(ctx context.Context, documentRef string) ([]*StockMovement, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*StockMovement
	err := db.WithContext(ctx).
		Where("business_id = ? AND document_ref = ?", businessId, documentRef).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetStockMovementsByProduct returns a product's movement history, newest first.
func GetStockMovementsByProduct(ctx context.Context, productId int) ([]*StockMovement, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*StockMovement
	err := db.WithContext(ctx).
		Where("business_id = ? AND product_id = ?", businessId, productId).
		Order("id DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
