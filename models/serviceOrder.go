package models

import (
	"context"
	"errors"
	"time"

	"github.com/oficinaplus/workshop_backend/config"
	"github.com/oficinaplus/workshop_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrorOrderNotDeletable guards finished work: a completed or delivered order
// carries billed history and must be reversed through an explicit correction
// flow, never removed.
var ErrorOrderNotDeletable = errors.New("completed or delivered service orders cannot be deleted")

// ErrorCancelledOrderNotEditable rejects line edits on a cancelled order.
// Cancellation already returned the allocated parts to stock; a line replace
// after that would RETURN the old lines a second time.
var ErrorCancelledOrderNotEditable = errors.New("cancelled service orders cannot have their lines edited")

type ServiceOrder struct {
	ID               int                `gorm:"primary_key" json:"id"`
	BusinessId       string             `gorm:"not null;uniqueIndex:uniq_service_orders_business_number" json:"business_id"`
	OrderNumber      string             `gorm:"size:20;not null;uniqueIndex:uniq_service_orders_business_number" json:"order_number"`
	SequenceNo       int64              `gorm:"not null;default:0" json:"sequence_no"`
	VehicleId        int                `gorm:"index;not null" json:"vehicle_id"`
	CurrentStatus    ServiceOrderStatus `gorm:"type:enum('Scheduled','InProgress','AwaitingParts','Completed','Delivered','Cancelled');not null" json:"current_status"`
	ScheduledAt      *time.Time         `json:"scheduled_at"`
	StartedAt        *time.Time         `json:"started_at"`
	CompletedAt      *time.Time         `json:"completed_at"`
	KmEntry          *int               `json:"km_entry"`
	Notes            string             `gorm:"type:text" json:"notes"`
	PaymentMethod    *string            `gorm:"size:50" json:"payment_method"`
	OrderTotalAmount decimal.Decimal    `gorm:"type:decimal(20,4);default:0" json:"order_total_amount"`
	CreatedAt        time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"autoUpdateTime" json:"updated_at"`

	ServiceDetails []ServiceOrderServiceDetail `gorm:"foreignKey:ServiceOrderId" json:"service_details"`
	PartDetails    []ServiceOrderPartDetail    `gorm:"foreignKey:ServiceOrderId" json:"part_details"`
	Charges        []ServiceOrderCharge        `gorm:"foreignKey:ServiceOrderId" json:"charges"`
}

type ServiceOrderServiceDetail struct {
	ID                int             `gorm:"primary_key" json:"id"`
	ServiceOrderId    int             `gorm:"index;not null" json:"service_order_id"`
	ServiceId         int             `gorm:"index;not null" json:"service_id"`
	Name              string          `gorm:"size:255" json:"name"`
	DetailQty         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_qty"`
	DetailUnitRate    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_unit_rate"`
	DetailDiscount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_discount"`
	DetailTotalAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_total_amount"`
}

type ServiceOrderPartDetail struct {
	ID                int             `gorm:"primary_key" json:"id"`
	ServiceOrderId    int             `gorm:"index;not null" json:"service_order_id"`
	ProductId         int             `gorm:"index;not null" json:"product_id"`
	Name              string          `gorm:"size:255" json:"name"`
	DetailQty         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_qty"`
	DetailUnitRate    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_unit_rate"`
	DetailDiscount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_discount"`
	DetailTotalAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"detail_total_amount"`
}

type ServiceOrderCharge struct {
	ID             int             `gorm:"primary_key" json:"id"`
	ServiceOrderId int             `gorm:"index;not null" json:"service_order_id"`
	Description    string          `gorm:"size:255;not null" json:"description"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
}

type NewServiceOrderServiceDetail struct {
	ServiceId int              `json:"service_id" validate:"required,gt=0"`
	Qty       decimal.Decimal  `json:"qty"`
	UnitRate  *decimal.Decimal `json:"unit_rate"`
	Discount  decimal.Decimal  `json:"discount"`
}

type NewServiceOrderPartDetail struct {
	ProductId int              `json:"product_id" validate:"required,gt=0"`
	Qty       decimal.Decimal  `json:"qty"`
	UnitRate  *decimal.Decimal `json:"unit_rate"`
	Discount  decimal.Decimal  `json:"discount"`
}

type NewServiceOrderCharge struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type NewServiceOrder struct {
	VehicleId      int                            `json:"vehicle_id" validate:"required,gt=0"`
	ScheduledAt    *time.Time                     `json:"scheduled_at"`
	KmEntry        *int                           `json:"km_entry" validate:"omitempty,gte=0"`
	Notes          string                         `json:"notes"`
	PaymentMethod  *string                        `json:"payment_method"`
	ServiceDetails []NewServiceOrderServiceDetail `json:"service_details" validate:"dive"`
	PartDetails    []NewServiceOrderPartDetail    `json:"part_details" validate:"dive"`
	Charges        []NewServiceOrderCharge        `json:"charges"`
}

// EditServiceOrder carries partial updates. Nil scalar fields are left
// untouched; a nil line collection keeps the stored rows, while a non-nil one
// (even empty) replaces that collection wholesale.
type EditServiceOrder struct {
	CurrentStatus  *ServiceOrderStatus            `json:"current_status"`
	ScheduledAt    *time.Time                     `json:"scheduled_at"`
	KmEntry        *int                           `json:"km_entry" validate:"omitempty,gte=0"`
	Notes          *string                        `json:"notes"`
	PaymentMethod  *string                        `json:"payment_method"`
	ServiceDetails []NewServiceOrderServiceDetail `json:"service_details" validate:"omitempty,dive"`
	PartDetails    []NewServiceOrderPartDetail    `json:"part_details" validate:"omitempty,dive"`
	Charges        []NewServiceOrderCharge        `json:"charges"`
}

func (input *NewServiceOrder) validate(ctx context.Context, businessId string) error {
	if err := utils.ValidateResourceId[Vehicle](ctx, businessId, input.VehicleId); err != nil {
		return errors.New("vehicle not found")
	}
	return nil
}

// nextServiceOrderSequence reads the tenant's last sequence number inside the
// caller's transaction. Runs under the business posting lock; the composite
// unique index on (business_id, order_number) is the backstop.
func nextServiceOrderSequence(tx *gorm.DB, businessId string) (int64, error) {
	var last int64
	if err := tx.Model(&ServiceOrder{}).Select("COALESCE(MAX(sequence_no), 0)").
		Where("business_id = ?", businessId).
		Scan(&last).Error; err != nil {
		return 0, err
	}
	return last + 1, nil
}

func partStockOperations(businessId string, details []ServiceOrderPartDetail, opType StockMovementType, reason string, documentRef string) []StockOperation {
	ops := make([]StockOperation, 0, len(details))
	for _, d := range details {
		ops = append(ops, StockOperation{
			BusinessId:  businessId,
			ProductId:   d.ProductId,
			Qty:         d.DetailQty,
			Type:        opType,
			Reason:      reason,
			DocumentRef: documentRef,
		})
	}
	return ops
}

func CreateServiceOrder(ctx context.Context, input *NewServiceOrder) (*ServiceOrder, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := input.validate(ctx, businessId); err != nil {
		return nil, err
	}

	var order *ServiceOrder
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
			return err
		}
		defer ReleaseBusinessPostingLock(tx, businessId)

		services, err := fetchWorkshopServicesByIds(tx, businessId, input.ServiceDetails)
		if err != nil {
			return err
		}
		products, err := fetchProductsByIds(tx, businessId, input.PartDetails)
		if err != nil {
			return err
		}
		serviceDetails, err := mapServiceOrderServiceDetails(input.ServiceDetails, services)
		if err != nil {
			return err
		}
		partDetails, err := mapServiceOrderPartDetails(input.PartDetails, products)
		if err != nil {
			return err
		}
		charges := mapServiceOrderCharges(input.Charges)

		seq, err := nextServiceOrderSequence(tx, businessId)
		if err != nil {
			return err
		}
		orderNumber := utils.FormatOrderNumber(seq)

		stockOps := partStockOperations(businessId, partDetails, StockMovementTypeOut, "parts issued for service order", orderNumber)
		if err := ValidateStockOperations(tx, stockOps); err != nil {
			return err
		}

		newOrder := ServiceOrder{
			BusinessId:       businessId,
			OrderNumber:      orderNumber,
			SequenceNo:       seq,
			VehicleId:        input.VehicleId,
			CurrentStatus:    ServiceOrderStatusScheduled,
			ScheduledAt:      input.ScheduledAt,
			KmEntry:          input.KmEntry,
			Notes:            input.Notes,
			PaymentMethod:    input.PaymentMethod,
			OrderTotalAmount: calculateOrderTotal(serviceDetails, partDetails, charges),
			ServiceDetails:   serviceDetails,
			PartDetails:      partDetails,
			Charges:          charges,
		}
		if err := tx.Create(&newOrder).Error; err != nil {
			return err
		}

		if input.KmEntry != nil {
			if err := SyncVehicleOdometer(tx, businessId, input.VehicleId, *input.KmEntry); err != nil {
				return err
			}
		}

		if len(stockOps) > 0 {
			if err := ExecuteStockOperations(tx, logger, stockOps); err != nil {
				return err
			}
		}

		order = &newOrder
		return nil
	})
	if err != nil {
		config.LogError(logger, "serviceOrder", "CreateServiceOrder", "transaction", input, err)
		return nil, err
	}
	return order, nil
}

func UpdateServiceOrder(ctx context.Context, id int, input *EditServiceOrder) (*ServiceOrder, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}

	order, err := utils.FetchModel[ServiceOrder](ctx, businessId, id, "ServiceDetails", "PartDetails", "Charges")
	if err != nil {
		return nil, err
	}

	// Status legality is checked before any other work so an illegal request
	// never reaches the line or stock machinery.
	if input.CurrentStatus != nil && *input.CurrentStatus != order.CurrentStatus {
		if err := ValidateStatusTransition(order.CurrentStatus, *input.CurrentStatus); err != nil {
			return nil, err
		}
	}
	lineEdit := input.ServiceDetails != nil || input.PartDetails != nil || input.Charges != nil
	if lineEdit && order.CurrentStatus == ServiceOrderStatusCancelled {
		return nil, ErrorCancelledOrderNotEditable
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
			return err
		}
		defer ReleaseBusinessPostingLock(tx, businessId)

		// Re-read under the lock. A concurrent edit may have replaced the
		// lines since the fetch above, and the RETURN leg of a part swap must
		// be built from the rows actually committed.
		var current ServiceOrder
		if err := tx.Preload("ServiceDetails").Preload("PartDetails").Preload("Charges").
			Where("business_id = ?", businessId).
			First(&current, id).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		order = &current

		statusChanging := input.CurrentStatus != nil && *input.CurrentStatus != order.CurrentStatus
		if statusChanging {
			if err := ValidateStatusTransition(order.CurrentStatus, *input.CurrentStatus); err != nil {
				return err
			}
		}
		if lineEdit && order.CurrentStatus == ServiceOrderStatusCancelled {
			return ErrorCancelledOrderNotEditable
		}

		serviceDetails := order.ServiceDetails
		partDetails := order.PartDetails
		charges := order.Charges

		if lineEdit {
			var stockOps []StockOperation

			if input.ServiceDetails != nil {
				services, err := fetchWorkshopServicesByIds(tx, businessId, input.ServiceDetails)
				if err != nil {
					return err
				}
				serviceDetails, err = mapServiceOrderServiceDetails(input.ServiceDetails, services)
				if err != nil {
					return err
				}
			}
			if input.PartDetails != nil {
				products, err := fetchProductsByIds(tx, businessId, input.PartDetails)
				if err != nil {
					return err
				}
				newPartDetails, err := mapServiceOrderPartDetails(input.PartDetails, products)
				if err != nil {
					return err
				}
				// The swap is one batch: RETURN of everything currently
				// committed plus OUT of everything requested. Only the net
				// effect per product is held against on-hand stock.
				stockOps = append(stockOps, partStockOperations(businessId, order.PartDetails, StockMovementTypeReturn, "service order parts replaced", order.OrderNumber)...)
				stockOps = append(stockOps, partStockOperations(businessId, newPartDetails, StockMovementTypeOut, "service order parts replaced", order.OrderNumber)...)
				partDetails = newPartDetails
			}
			if input.Charges != nil {
				charges = mapServiceOrderCharges(input.Charges)
			}

			// Nothing is deleted until the whole batch validates; a rejected
			// edit leaves lines and stock exactly as they were.
			if err := ValidateStockOperations(tx, stockOps); err != nil {
				return err
			}

			if input.ServiceDetails != nil {
				if err := tx.Where("service_order_id = ?", order.ID).Delete(&ServiceOrderServiceDetail{}).Error; err != nil {
					return err
				}
				for i := range serviceDetails {
					serviceDetails[i].ID = 0
					serviceDetails[i].ServiceOrderId = order.ID
				}
				if len(serviceDetails) > 0 {
					if err := tx.Create(&serviceDetails).Error; err != nil {
						return err
					}
				}
			}
			if input.PartDetails != nil {
				if err := tx.Where("service_order_id = ?", order.ID).Delete(&ServiceOrderPartDetail{}).Error; err != nil {
					return err
				}
				for i := range partDetails {
					partDetails[i].ID = 0
					partDetails[i].ServiceOrderId = order.ID
				}
				if len(partDetails) > 0 {
					if err := tx.Create(&partDetails).Error; err != nil {
						return err
					}
				}
				if err := ExecuteStockOperations(tx, logger, stockOps); err != nil {
					return err
				}
			}
			if input.Charges != nil {
				if err := tx.Where("service_order_id = ?", order.ID).Delete(&ServiceOrderCharge{}).Error; err != nil {
					return err
				}
				for i := range charges {
					charges[i].ID = 0
					charges[i].ServiceOrderId = order.ID
				}
				if len(charges) > 0 {
					if err := tx.Create(&charges).Error; err != nil {
						return err
					}
				}
			}

			order.OrderTotalAmount = calculateOrderTotal(serviceDetails, partDetails, charges)
		}

		if input.ScheduledAt != nil {
			order.ScheduledAt = input.ScheduledAt
		}
		if input.Notes != nil {
			order.Notes = *input.Notes
		}
		if input.PaymentMethod != nil {
			order.PaymentMethod = input.PaymentMethod
		}
		if input.KmEntry != nil {
			order.KmEntry = input.KmEntry
			if err := SyncVehicleOdometer(tx, businessId, order.VehicleId, *input.KmEntry); err != nil {
				return err
			}
		}

		if statusChanging {
			order.applyStatusChange(*input.CurrentStatus, time.Now().UTC())
			if order.CurrentStatus == ServiceOrderStatusCancelled {
				if err := reverseServiceOrderStock(tx, logger, businessId, order.OrderNumber, partDetails, "service order cancelled"); err != nil {
					return err
				}
			}
		}

		return tx.Model(order).Updates(map[string]interface{}{
			"CurrentStatus":    order.CurrentStatus,
			"ScheduledAt":      order.ScheduledAt,
			"StartedAt":        order.StartedAt,
			"CompletedAt":      order.CompletedAt,
			"KmEntry":          order.KmEntry,
			"Notes":            order.Notes,
			"PaymentMethod":    order.PaymentMethod,
			"OrderTotalAmount": order.OrderTotalAmount,
		}).Error
	})
	if err != nil {
		config.LogError(logger, "serviceOrder", "UpdateServiceOrder", "transaction", id, err)
		return nil, err
	}

	return utils.FetchModel[ServiceOrder](ctx, businessId, id, "ServiceDetails", "PartDetails", "Charges")
}

func DeleteServiceOrder(ctx context.Context, id int) (*ServiceOrder, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	order, err := utils.FetchModel[ServiceOrder](ctx, businessId, id, "ServiceDetails", "PartDetails", "Charges")
	if err != nil {
		return nil, err
	}

	if order.CurrentStatus == ServiceOrderStatusCompleted || order.CurrentStatus == ServiceOrderStatusDelivered {
		return nil, ErrorOrderNotDeletable
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := AcquireBusinessPostingLock(tx, businessId); err != nil {
			return err
		}
		defer ReleaseBusinessPostingLock(tx, businessId)

		// Re-read under the lock so the reversal is built from the part
		// lines actually committed, not a stale pre-lock snapshot.
		var current ServiceOrder
		if err := tx.Preload("ServiceDetails").Preload("PartDetails").Preload("Charges").
			Where("business_id = ?", businessId).
			First(&current, id).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		order = &current
		if order.CurrentStatus == ServiceOrderStatusCompleted || order.CurrentStatus == ServiceOrderStatusDelivered {
			return ErrorOrderNotDeletable
		}

		// A cancelled order already had its parts returned; reversing again
		// here would credit stock twice.
		if order.CurrentStatus != ServiceOrderStatusCancelled {
			if err := reverseServiceOrderStock(tx, logger, businessId, order.OrderNumber, order.PartDetails, "service order deleted"); err != nil {
				return err
			}
		}

		if err := tx.Where("service_order_id = ?", order.ID).Delete(&ServiceOrderServiceDetail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("service_order_id = ?", order.ID).Delete(&ServiceOrderPartDetail{}).Error; err != nil {
			return err
		}
		if err := tx.Where("service_order_id = ?", order.ID).Delete(&ServiceOrderCharge{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ServiceOrder{}, order.ID).Error
	})
	if err != nil {
		config.LogError(logger, "serviceOrder", "DeleteServiceOrder", "transaction", id, err)
		return nil, err
	}
	return order, nil
}

func GetServiceOrder(ctx context.Context, id int) (*ServiceOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[ServiceOrder](ctx, businessId, id, "ServiceDetails", "PartDetails", "Charges")
}

func GetServiceOrdersAll(ctx context.Context, status *ServiceOrderStatus, vehicleId *int) ([]*ServiceOrder, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*ServiceOrder

	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if status != nil {
		dbCtx = dbCtx.Where("current_status = ?", *status)
	}
	if vehicleId != nil {
		dbCtx = dbCtx.Where("vehicle_id = ?", *vehicleId)
	}
	// db query
	err := dbCtx.Preload("ServiceDetails").Preload("PartDetails").Preload("Charges").
		Order("sequence_no DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
