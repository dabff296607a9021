// verify-db checks that every drug's stock equals its initial stock plus the sum of its
// inventory log, and that the prescription refill bound holds. It exits 1 on any drift.
//
// Usage: go run ./cmd/verify-db
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"pharmacy-orders/internal/config"
	"pharmacy-orders/internal/core"
	"pharmacy-orders/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Print(err)
		return 1
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.Print(err)
		return 1
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("[CONNECT] %v", err)
		return 1
	}
	defer pool.Close()

	reportingDB := db.NewReportingDB(pool)
	defer reportingDB.Close()
	log.Println("[CONNECT] success")

	reporting := core.NewReportingService(reportingDB)
	drift, err := reporting.Reconcile(ctx)
	if err != nil {
		log.Printf("[RECONCILE] %v", err)
		return 1
	}

	var overdrawn int
	if err := reportingDB.GetContext(ctx, &overdrawn,
		`SELECT COUNT(*) FROM prescriptions WHERE status <> 'rejected' AND refill_used > refill_allowed`); err != nil {
		log.Printf("[PRESCRIPTIONS] %v", err)
		return 1
	}

	for _, d := range drift {
		fmt.Printf("[DRIFT] drug %d %q: stock %d, initial %d + log %d = %d\n",
			d.DrugID, d.Name, d.Stock, d.InitialStock, d.LogSum, d.Expected())
	}
	if overdrawn > 0 {
		fmt.Printf("[DRIFT] %d prescriptions exceed their refill allowance\n", overdrawn)
	}

	if len(drift) > 0 || overdrawn > 0 {
		return 1
	}
	log.Println("[DONE] inventory and prescriptions are consistent")
	return 0
}
