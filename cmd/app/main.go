package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"pharmacy-orders/internal/adapters/cli"
	"pharmacy-orders/internal/app"
	"pharmacy-orders/internal/config"
	"pharmacy-orders/internal/core"
	"pharmacy-orders/internal/db"
	"pharmacy-orders/internal/observability"
	"pharmacy-orders/migrations"

	"github.com/joho/godotenv"
)

// The CLI acts as the user named by CLI_USER (default "admin"). Role checks are the
// same as over HTTP.
func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one command and returns the process exit code: 0 on success, 1 when
// reconcile finds drift or the command fails, 2 on usage errors. Returning instead of
// exiting lets the deferred closes run.
func run(args []string) int {
	_ = godotenv.Load()

	if len(args) == 0 || args[0] == "help" {
		fmt.Fprintln(os.Stderr, cli.Usage)
		return 2
	}

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
		log.Printf("Unable to connect to database: %v", err)
		return 1
	}
	defer pool.Close()

	if args[0] == "migrate" {
		if err := migrations.Apply(ctx, pool); err != nil {
			log.Printf("Migration failed: %v", err)
			return 1
		}
		fmt.Println("Migrations applied.")
		return 0
	}

	logger, err := observability.NewLogger(cfg.LogLevel, "console")
	if err != nil {
		log.Print(err)
		return 1
	}
	defer logger.Sync()

	reportingDB := db.NewReportingDB(pool)
	defer reportingDB.Close()

	users := core.NewUserService(pool)
	username := os.Getenv("CLI_USER")
	if username == "" {
		username = "admin"
	}
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		log.Printf("Unable to load CLI user %q: %v", username, err)
		return 1
	}

	ledger := core.NewInventoryLedger(pool, cfg.LockTimeout)
	svc := app.NewAppService(
		pool,
		users,
		ledger,
		core.NewOrderService(pool, ledger, cfg.LockTimeout),
		core.NewPrescriptionService(pool, cfg.LockTimeout),
		core.NewReportingService(reportingDB),
		logger,
		cfg.LowStockThreshold,
	)

	if err := cli.Run(ctx, svc, user.Actor(), os.Stdout, args); err != nil {
		if !errors.Is(err, cli.ErrDrift) {
			log.Print(err)
		}
		return 1
	}
	return 0
}
