package models

import (
	"log"

	"github.com/oficinaplus/workshop_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Product{},
		&Vehicle{},
		&WorkshopService{},
		&ServiceOrder{}, &ServiceOrderServiceDetail{}, &ServiceOrderPartDetail{}, &ServiceOrderCharge{},
		&StockMovement{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
