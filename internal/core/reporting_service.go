package core

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ── Report types ──────────────────────────────────────────────────────────────

// LedgerDrift is a drug whose stock no longer equals initial stock plus the sum of its
// inventory log. A healthy ledger reports none.
type LedgerDrift struct {
	DrugID       int64  `json:"drug_id" db:"drug_id"`
	Name         string `json:"name" db:"name"`
	Stock        int    `json:"stock" db:"stock"`
	InitialStock int    `json:"initial_stock" db:"initial_stock"`
	LogSum       int    `json:"log_sum" db:"log_sum"`
}

// Expected returns the stock implied by the log.
func (d LedgerDrift) Expected() int {
	return d.InitialStock + d.LogSum
}

// ReportingService provides read-only views over the inventory ledger for audit tools
// and low-stock alerting. It never takes row locks.
type ReportingService interface {
	// InventoryLog returns the newest log entries for a drug, newest first.
	InventoryLog(ctx context.Context, drugID int64, limit int) ([]InventoryLogEntry, error)
	// LowStock returns active drugs whose stock is at or below threshold, lowest first.
	LowStock(ctx context.Context, threshold int) ([]Drug, error)
	// Reconcile returns every drug whose stock disagrees with its log.
	Reconcile(ctx context.Context) ([]LedgerDrift, error)
}

type reportingService struct {
	db *sqlx.DB
}

// NewReportingService constructs a ReportingService over a database/sql handle.
func NewReportingService(db *sqlx.DB) ReportingService {
	return &reportingService{db: db}
}

func (s *reportingService) InventoryLog(ctx context.Context, drugID int64, limit int) ([]InventoryLogEntry, error) {
	limit = clampLimit(limit)

	entries := []InventoryLogEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, drug_id, user_id, change_type, quantity_changed, reason, created_at
		FROM inventory_logs
		WHERE drug_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, drugID, limit)
	if err != nil {
		return nil, classifyDBError(fmt.Sprintf("failed to read inventory log for drug %d", drugID), err, ErrInternal)
	}
	return entries, nil
}

func (s *reportingService) LowStock(ctx context.Context, threshold int) ([]Drug, error) {
	if threshold < 0 {
		return nil, validationErrorf("threshold must not be negative, got %d", threshold)
	}

	drugs := []Drug{}
	err := s.db.SelectContext(ctx, &drugs, `
		SELECT `+drugColumns+`
		FROM drugs
		WHERE is_active = true AND stock <= $1
		ORDER BY stock, id
	`, threshold)
	if err != nil {
		return nil, classifyDBError("failed to query low stock drugs", err, ErrInternal)
	}
	return drugs, nil
}

func (s *reportingService) Reconcile(ctx context.Context) ([]LedgerDrift, error) {
	drift := []LedgerDrift{}
	err := s.db.SelectContext(ctx, &drift, `
		SELECT d.id AS drug_id, d.name, d.stock, d.initial_stock,
		       COALESCE(SUM(l.quantity_changed), 0)::int AS log_sum
		FROM drugs d
		LEFT JOIN inventory_logs l ON l.drug_id = d.id
		GROUP BY d.id, d.name, d.stock, d.initial_stock
		HAVING d.stock <> d.initial_stock + COALESCE(SUM(l.quantity_changed), 0)
		ORDER BY d.id
	`)
	if err != nil {
		return nil, classifyDBError("failed to reconcile inventory ledger", err, ErrInternal)
	}
	return drift, nil
}
