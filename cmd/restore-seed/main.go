// restore-seed loads the drug catalog from CSV and creates the demo users.
// Run it against an empty database after migrations; drugs are always inserted, so
// running it twice duplicates the catalog. Existing users are left untouched.
//
// Usage: go run ./cmd/restore-seed [catalog.csv]
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"pharmacy-orders/internal/config"
	"pharmacy-orders/internal/core"
	"pharmacy-orders/internal/db"
	"pharmacy-orders/internal/seed"
	"pharmacy-orders/migrations"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal(err)
	}

	csvPath := "data/drugs.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	log.Println("Creating users...")
	users := core.NewUserService(pool)
	seedUsers := []struct {
		username string
		envKey   string
		role     core.Role
	}{
		{"admin", "SEED_ADMIN_PASSWORD", core.RoleAdmin},
		{"pharmacist", "SEED_PHARMACIST_PASSWORD", core.RolePharmacist},
		{"customer", "SEED_CUSTOMER_PASSWORD", core.RoleCustomer},
	}
	for _, u := range seedUsers {
		password := os.Getenv(u.envKey)
		if password == "" {
			log.Printf("  %s: %s not set, skipped", u.username, u.envKey)
			continue
		}
		_, err := users.CreateUser(ctx, u.username, u.username+"@pharmacy.local", password, u.role)
		switch {
		case errors.Is(err, core.ErrDuplicate):
			log.Printf("  %s: already exists", u.username)
		case err != nil:
			log.Fatalf("Failed to create user %s: %v", u.username, err)
		default:
			log.Printf("  %s: created (%s)", u.username, u.role)
		}
	}

	log.Printf("Loading drug catalog from %s...", csvPath)
	file, err := os.Open(csvPath)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer file.Close()

	drugs, err := seed.ParseDrugs(file)
	if err != nil {
		log.Fatalf("Failed to parse catalog: %v", err)
	}

	ledger := core.NewInventoryLedger(pool, cfg.LockTimeout)
	for _, in := range drugs {
		drug, err := ledger.CreateDrug(ctx, in, nil)
		if err != nil {
			log.Fatalf("Failed to create drug %q: %v", in.Name, err)
		}
		log.Printf("  #%d %s (stock %d)", drug.ID, drug.Name, drug.Stock)
	}

	log.Printf("Seed complete: %d drugs.", len(drugs))
}
