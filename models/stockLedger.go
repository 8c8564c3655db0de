package models

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StockOperation is one requested change to a product's on-hand quantity.
// Qty is always a positive magnitude; Type decides the sign.
type StockOperation struct {
	BusinessId  string
	ProductId   int
	Qty         decimal.Decimal
	Type        StockMovementType
	Reason      string
	DocumentRef string
}

// SignedQty converts the operation to its ledger effect: OUT subtracts,
// IN and RETURN add.
func (op StockOperation) SignedQty() decimal.Decimal {
	if op.Type == StockMovementTypeOut {
		return op.Qty.Neg()
	}
	return op.Qty
}

// InsufficientStockError is returned when the net effect of a batch would
// drive a product's on-hand quantity negative. It carries enough detail to
// show an operator what to adjust.
type InsufficientStockError struct {
	ProductName string
	Available   decimal.Decimal
	Required    decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %s, required %s",
		e.ProductName, e.Available.String(), e.Required.String())
}

// NetStockEffect sums the signed effect of a batch per product. An edit batch
// typically holds both a RETURN of old quantities and an OUT of new ones for
// the same product; only this net change is meaningful against on-hand stock.
func NetStockEffect(operations []StockOperation) map[int]decimal.Decimal {
	net := make(map[int]decimal.Decimal, len(operations))
	for _, op := range operations {
		net[op.ProductId] = net[op.ProductId].Add(op.SignedQty())
	}
	return net
}

// ValidateStockOperations rejects the whole batch if any product's net effect
// would leave its on-hand quantity below zero. Run it on the transaction that
// will execute the batch, while the business posting lock is held, so the
// quantities it reads are the ones the execute phase mutates.
func ValidateStockOperations(tx *gorm.DB, operations []StockOperation) error {
	if len(operations) == 0 {
		return nil
	}
	businessId := operations[0].BusinessId

	net := NetStockEffect(operations)
	for productId, effect := range net {
		if !effect.IsNegative() {
			continue
		}
		var product Product
		if err := tx.Where("business_id = ? AND id = ?", businessId, productId).First(&product).Error; err != nil {
			return fmt.Errorf("product %d not found", productId)
		}
		if product.StockQty.Add(effect).IsNegative() {
			return &InsufficientStockError{
				ProductName: product.Name,
				Available:   product.StockQty,
				Required:    effect.Neg(),
			}
		}
	}
	return nil
}

// ExecuteStockOperations applies the batch inside the caller's ambient
// transaction: one signed increment to products.stock_qty and one appended
// StockMovement row per operation. Any failure aborts the whole transaction,
// so a partial apply is never visible.
func ExecuteStockOperations(tx *gorm.DB, logger *logrus.Logger, operations []StockOperation) error {
	for _, op := range operations {
		signed := op.SignedQty()

		result := tx.Model(&Product{}).
			Where("business_id = ? AND id = ?", op.BusinessId, op.ProductId).
			UpdateColumn("stock_qty", gorm.Expr("stock_qty + ?", signed))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("product %d not found", op.ProductId)
		}

		movement := StockMovement{
			BusinessId:  op.BusinessId,
			ProductId:   op.ProductId,
			Qty:         signed,
			Type:        op.Type,
			Reason:      op.Reason,
			DocumentRef: op.DocumentRef,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}

		if logger != nil {
			logger.WithFields(logrus.Fields{
				"business_id":  op.BusinessId,
				"product_id":   op.ProductId,
				"qty":          signed.String(),
				"type":         op.Type,
				"document_ref": op.DocumentRef,
			}).Debug("stock movement applied")
		}
	}
	return nil
}

// HasStockMovements reports whether any movement rows were ever recorded
// against a document reference. Cancel and delete use it to avoid reversing
// stock that was never actually deducted.
func HasStockMovements(tx *gorm.DB, businessId string, documentRef string) (bool, error) {
	var count int64
	err := tx.Model(&StockMovement{}).
		Where("business_id = ? AND document_ref = ?", businessId, documentRef).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
