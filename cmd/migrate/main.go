package main

import (
	"fmt"
	"os"

	"github.com/oficinaplus/workshop_backend/config"
	"github.com/oficinaplus/workshop_backend/models"
)

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	models.MigrateTable()
	fmt.Println("migration complete")
}
