package models

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// reverseServiceOrderStock returns the given part lines to stock, but only
// when the order actually produced movements under its document ref. Orders
// that never deducted anything (all lines rejected, or created with no parts)
// must not be credited.
func reverseServiceOrderStock(tx *gorm.DB, logger *logrus.Logger, businessId string, orderNumber string, partDetails []ServiceOrderPartDetail, reason string) error {
	if len(partDetails) == 0 {
		return nil
	}
	hasMovements, err := HasStockMovements(tx, businessId, orderNumber)
	if err != nil {
		return err
	}
	if !hasMovements {
		return nil
	}
	ops := partStockOperations(businessId, partDetails, StockMovementTypeReturn, reason, orderNumber)
	return ExecuteStockOperations(tx, logger, ops)
}
