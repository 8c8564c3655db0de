package models

import (
	"context"
	"errors"
	"time"

	"github.com/oficinaplus/workshop_backend/config"
	"github.com/oficinaplus/workshop_backend/utils"
	"gorm.io/gorm"
)

// Vehicle is the unit of work for service orders. CurrentKm is raised only
// through SyncVehicleOdometer; InitialKm is the odometer recorded at intake
// and acts as a fallback when no reading has been synced yet.
type Vehicle struct {
	ID          int       `gorm:"primary_key" json:"id"`
	BusinessId  string    `gorm:"index;not null" json:"business_id"`
	PlateNumber string    `gorm:"size:20;not null" json:"plate_number"`
	Description string    `gorm:"size:255" json:"description"`
	CurrentKm   *int      `json:"current_km"`
	InitialKm   *int      `json:"initial_km"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVehicle struct {
	PlateNumber string `json:"plate_number" validate:"required"`
	Description string `json:"description"`
	InitialKm   *int   `json:"initial_km"`
}

func CreateVehicle(ctx context.Context, input *NewVehicle) (*Vehicle, error) {

	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Vehicle](ctx, businessId, "plate_number", input.PlateNumber, 0); err != nil {
		return nil, err
	}

	vehicle := Vehicle{
		BusinessId:  businessId,
		PlateNumber: input.PlateNumber,
		Description: input.Description,
		InitialKm:   input.InitialKm,
	}

	db := config.GetDB()
	// db action
	err := db.WithContext(ctx).Create(&vehicle).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func GetVehicle(ctx context.Context, id int) (*Vehicle, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return utils.FetchModel[Vehicle](ctx, businessId, id)
}

// SyncVehicleOdometer raises the vehicle's recorded odometer when a service
// order reports a higher entry reading. Lower or equal readings are operator
// noise and are ignored; the recorded odometer never decreases.
// Must run inside the caller's transaction.
func SyncVehicleOdometer(tx *gorm.DB, businessId string, vehicleId int, km int) error {
	var vehicle Vehicle
	if err := tx.Where("business_id = ? AND id = ?", businessId, vehicleId).First(&vehicle).Error; err != nil {
		return utils.ErrorRecordNotFound
	}

	current := vehicle.CurrentKm
	if current == nil {
		current = vehicle.InitialKm
	}
	if current != nil && km <= *current {
		return nil
	}

	return tx.Model(&vehicle).Update("CurrentKm", km).Error
}
