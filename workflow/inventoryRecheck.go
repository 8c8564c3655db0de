package workflow

import (
	"github.com/oficinaplus/workshop_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StockDrift is a product whose cached on-hand quantity disagrees with the
// sum of its movement rows.
type StockDrift struct {
	ProductId   int
	ProductName string
	CachedQty   decimal.Decimal
	LedgerQty   decimal.Decimal
}

func (d StockDrift) Delta() decimal.Decimal {
	return d.CachedQty.Sub(d.LedgerQty)
}

// RecheckBusinessStock compares products.stock_qty against the signed sum of
// stock movements for every product of the business. Movements are the source
// of truth; the cached column only exists as a fast read. Returns one entry
// per drifting product.
func RecheckBusinessStock(tx *gorm.DB, logger *logrus.Logger, businessId string) ([]StockDrift, error) {
	type row struct {
		ProductId   int
		ProductName string
		CachedQty   decimal.Decimal
		LedgerQty   decimal.Decimal
	}
	var rows []row

	// Opening stock is itself a movement, so a product with no rows at all
	// must reconcile to zero. The left join keeps such products in the check.
	err := tx.Raw(`
		SELECT p.id AS product_id,
		       p.name AS product_name,
		       p.stock_qty AS cached_qty,
		       COALESCE(SUM(sm.qty), 0) AS ledger_qty
		FROM products p
		LEFT JOIN stock_movements sm
		       ON sm.business_id = p.business_id AND sm.product_id = p.id
		WHERE p.business_id = ?
		GROUP BY p.id, p.name, p.stock_qty
	`, businessId).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var drifts []StockDrift
	for _, r := range rows {
		if r.CachedQty.Equal(r.LedgerQty) {
			continue
		}
		drifts = append(drifts, StockDrift{
			ProductId:   r.ProductId,
			ProductName: r.ProductName,
			CachedQty:   r.CachedQty,
			LedgerQty:   r.LedgerQty,
		})
	}

	logger.WithFields(logrus.Fields{
		"businessId": businessId,
		"products":   len(rows),
		"drifting":   len(drifts),
	}).Info("stock recheck finished")

	return drifts, nil
}

// RepairBusinessStock rewrites the cached quantity of every drifting product
// from its movement sum. Runs under the business posting lock so no posting
// can interleave between recomputing and rewriting.
func RepairBusinessStock(tx *gorm.DB, logger *logrus.Logger, businessId string) ([]StockDrift, error) {
	if err := models.AcquireBusinessPostingLock(tx, businessId); err != nil {
		return nil, err
	}
	defer models.ReleaseBusinessPostingLock(tx, businessId)

	drifts, err := RecheckBusinessStock(tx, logger, businessId)
	if err != nil {
		return nil, err
	}

	for _, d := range drifts {
		result := tx.Model(&models.Product{}).
			Where("business_id = ? AND id = ?", businessId, d.ProductId).
			UpdateColumn("stock_qty", d.LedgerQty)
		if result.Error != nil {
			return nil, result.Error
		}
		logger.WithFields(logrus.Fields{
			"businessId": businessId,
			"productId":  d.ProductId,
			"cachedQty":  d.CachedQty.String(),
			"ledgerQty":  d.LedgerQty.String(),
		}).Warn("stock quantity repaired")
	}

	return drifts, nil
}
