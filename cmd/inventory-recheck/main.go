package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/oficinaplus/workshop_backend/config"
	"github.com/oficinaplus/workshop_backend/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// inventory-recheck compares each product's cached on-hand quantity against
// the signed sum of its stock movement rows and prints any drift. With --fix
// it rewrites the cached quantity from the movement sum.
//
// Example:
//
//	go run ./cmd/inventory-recheck/ \
//	  -business-id=a195a02a-ee0c-4047-a6f4-443633d0aca4 \
//	  -fix
func main() {
	businessID := flag.String("business-id", "", "Required: business id (uuid)")
	fix := flag.Bool("fix", false, "Rewrite drifting cached quantities from the movement ledger")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "--business-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := logrus.New()

	var drifts []workflow.StockDrift
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if *fix {
			drifts, err = workflow.RepairBusinessStock(tx, logger, *businessID)
		} else {
			drifts, err = workflow.RecheckBusinessStock(tx, logger, *businessID)
		}
		return err
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "recheck failed: %v\n", err)
		os.Exit(1)
	}

	if len(drifts) == 0 {
		fmt.Printf("business_id=%s all products reconcile\n", *businessID)
		return
	}

	for _, d := range drifts {
		fmt.Printf("product_id=%d name=%q cached=%s ledger=%s delta=%s\n",
			d.ProductId, d.ProductName, d.CachedQty.String(), d.LedgerQty.String(), d.Delta().String())
	}
	if *fix {
		fmt.Printf("repaired %d product(s)\n", len(drifts))
	} else {
		fmt.Printf("%d product(s) drifting (re-run with -fix to repair)\n", len(drifts))
		os.Exit(2)
	}
}
