package core_test

import (
	"context"
	"testing"
	"time"

	"pharmacy-orders/internal/core"
	"pharmacy-orders/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
)

func setupReporting(t *testing.T, pool *pgxpool.Pool) core.ReportingService {
	t.Helper()
	rdb := db.NewReportingDB(pool)
	t.Cleanup(func() { rdb.Close() })
	return core.NewReportingService(rdb)
}

func TestReporting_InventoryLogFeed(t *testing.T) {
	pool := setupTestDB(t)
	reporting := setupReporting(t, pool)
	ledger := core.NewInventoryLedger(pool, time.Second)
	orders := core.NewOrderService(pool, ledger, time.Second)
	ctx := context.Background()

	drug := createDrug(t, ledger, "Losartan", 9, 20)
	user := int64(5)
	if _, err := ledger.AdjustStock(ctx, core.StockChange{
		DrugID: drug.ID, UserID: &user, ChangeType: core.ChangeRestock, Delta: 10, Reason: "delivery",
	}); err != nil {
		t.Fatalf("AdjustStock failed: %v", err)
	}
	if _, err := orders.SubmitOrder(ctx, 6, []core.OrderItemInput{{DrugID: drug.ID, Quantity: 3}}); err != nil {
		t.Fatalf("SubmitOrder failed: %v", err)
	}

	entries, err := reporting.InventoryLog(ctx, drug.ID, 10)
	if err != nil {
		t.Fatalf("InventoryLog failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	wantTypes := []core.ChangeType{core.ChangeSale, core.ChangeRestock, core.ChangeCreation}
	wantQty := []int{-3, 10, 0}
	for i, e := range entries {
		if e.ChangeType != wantTypes[i] || e.QuantityChanged != wantQty[i] {
			t.Errorf("entry %d: expected %s %d, got %s %d", i, wantTypes[i], wantQty[i], e.ChangeType, e.QuantityChanged)
		}
	}
	if entries[0].UserID == nil || *entries[0].UserID != 6 || entries[0].Reason != "Order placed" {
		t.Errorf("Unexpected sale entry: %+v", entries[0])
	}
	if entries[2].UserID != nil {
		t.Errorf("Expected creation entry without user, got %v", *entries[2].UserID)
	}
}

func TestReporting_LowStockAndReconcile(t *testing.T) {
	pool := setupTestDB(t)
	reporting := setupReporting(t, pool)
	ledger := core.NewInventoryLedger(pool, time.Second)
	ctx := context.Background()

	low := createDrug(t, ledger, "Warfarin", 3, 2)
	createDrug(t, ledger, "Heparin", 3, 50)

	drugs, err := reporting.LowStock(ctx, 5)
	if err != nil {
		t.Fatalf("LowStock failed: %v", err)
	}
	if len(drugs) != 1 || drugs[0].ID != low.ID {
		t.Errorf("Expected only Warfarin, got %+v", drugs)
	}

	drift, err := reporting.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(drift) != 0 {
		t.Fatalf("Expected a balanced ledger, got %+v", drift)
	}

	// Bypass the ledger to simulate an out-of-band write.
	if _, err := pool.Exec(ctx, "UPDATE drugs SET stock = stock + 7 WHERE id = $1", low.ID); err != nil {
		t.Fatalf("direct update failed: %v", err)
	}
	drift, err = reporting.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(drift) != 1 || drift[0].DrugID != low.ID || drift[0].Stock != 9 || drift[0].Expected() != 2 {
		t.Errorf("Expected drift for Warfarin (stock 9, expected 2), got %+v", drift)
	}
}
