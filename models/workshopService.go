package models

import (
	"context"
	"errors"
	"time"

	"github.com/oficinaplus/workshop_backend/config"
	"github.com/oficinaplus/workshop_backend/utils"
	"github.com/shopspring/decimal"
)

// WorkshopService is a labour catalog entry. BasePrice is the default unit
// rate for service lines that do not carry an explicit price.
type WorkshopService struct {
	ID         int             `gorm:"primary_key" json:"id"`
	BusinessId string          `gorm:"index;not null" json:"business_id"`
	Name       string          `gorm:"size:255;not null" json:"name"`
	BasePrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"base_price"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewWorkshopService struct {
	Name      string          `json:"name" validate:"required"`
	BasePrice decimal.Decimal `json:"base_price"`
}

func CreateWorkshopService(ctx context.Context, input *NewWorkshopService) (*WorkshopService, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[WorkshopService](ctx, businessId, "name", input.Name, 0); err != nil {
		return nil, err
	}

	service := WorkshopService{
		BusinessId: businessId,
		Name:       input.Name,
		BasePrice:  input.BasePrice,
	}

	db := config.GetDB()
	// db action
	err := db.WithContext(ctx).Create(&service).Error
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func GetWorkshopService(ctx context.Context, id int) (*WorkshopService, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[WorkshopService](ctx, businessId, id)
}

func GetWorkshopServicesAll(ctx context.Context) ([]*WorkshopService, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchAllModels[WorkshopService](ctx, businessId)
}
