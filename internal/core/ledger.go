package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryLedger is the only code path that writes drugs.stock. Every write is paired,
// in the same transaction, with an append-only inventory_logs row.
type InventoryLedger interface {
	// Standalone operations (manage their own transactions).

	// CreateDrug inserts a drug with stock = initial_stock and logs a creation entry.
	CreateDrug(ctx context.Context, in DrugInput, userID *int64) (*Drug, error)
	GetDrug(ctx context.Context, drugID int64) (*Drug, error)
	// AdjustStock records a manual stock change (restock, adjustment, ...) in its own transaction.
	AdjustStock(ctx context.Context, change StockChange) (*Drug, error)

	// TX-scoped operations: work within a caller-provided transaction.

	// LockDrugTx takes the exclusive row lock on a drug and returns its current state.
	LockDrugTx(ctx context.Context, tx pgx.Tx, drugID int64) (*Drug, error)
	// RecordChangeTx locks the drug, applies change.Delta and appends the log entry.
	// It fails with ErrInsufficientStock rather than clamping; the caller must roll back.
	// A zero delta is accepted only for ChangeUpdate, which records a catalog change
	// without stock movement.
	RecordChangeTx(ctx context.Context, tx pgx.Tx, change StockChange) (*Drug, error)
}

type inventoryLedger struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewInventoryLedger constructs an InventoryLedger backed by PostgreSQL.
func NewInventoryLedger(pool *pgxpool.Pool, lockTimeout time.Duration) InventoryLedger {
	return &inventoryLedger{pool: pool, lockTimeout: lockTimeout}
}

const drugColumns = `id, name, generic_name, manufacturer, dosage_form, price, stock, initial_stock,
	requires_prescription, is_active, created_at, updated_at`

func scanDrug(row pgx.Row) (*Drug, error) {
	var d Drug
	err := row.Scan(&d.ID, &d.Name, &d.GenericName, &d.Manufacturer, &d.DosageForm, &d.Price,
		&d.Stock, &d.InitialStock, &d.RequiresPrescription, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ── Standalone operations ─────────────────────────────────────────────────────

func (l *inventoryLedger) CreateDrug(ctx context.Context, in DrugInput, userID *int64) (*Drug, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, validationErrorf("drug name is required")
	}
	if in.Price.IsNegative() {
		return nil, validationErrorf("price cannot be negative, got %s", in.Price)
	}
	if in.InitialStock < 0 {
		return nil, validationErrorf("initial stock cannot be negative, got %d", in.InitialStock)
	}

	tx, err := beginTx(ctx, l.pool, l.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	drug, err := scanDrug(tx.QueryRow(ctx, `
		INSERT INTO drugs (name, generic_name, manufacturer, dosage_form, price, stock, initial_stock, requires_prescription)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		RETURNING `+drugColumns,
		in.Name, in.GenericName, in.Manufacturer, in.DosageForm, in.Price.Round(2), in.InitialStock, in.RequiresPrescription,
	))
	if err != nil {
		return nil, classifyDBError("failed to insert drug", err, ErrInternal)
	}

	// The creation entry carries no delta: the ledger sums changes relative to initial_stock.
	if err := appendLogTx(ctx, tx, StockChange{
		DrugID:     drug.ID,
		UserID:     userID,
		ChangeType: ChangeCreation,
		Delta:      0,
		Reason:     fmt.Sprintf("Drug created with initial stock %d", in.InitialStock),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyDBError("failed to commit drug creation", err, ErrInternal)
	}
	return drug, nil
}

func (l *inventoryLedger) GetDrug(ctx context.Context, drugID int64) (*Drug, error) {
	drug, err := scanDrug(l.pool.QueryRow(ctx, "SELECT "+drugColumns+" FROM drugs WHERE id = $1", drugID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: drug %d", ErrNotFound, drugID)
		}
		return nil, classifyDBError(fmt.Sprintf("failed to fetch drug %d", drugID), err, ErrInternal)
	}
	return drug, nil
}

func (l *inventoryLedger) AdjustStock(ctx context.Context, change StockChange) (*Drug, error) {
	if !change.ChangeType.Manual() {
		return nil, validationErrorf("change type %q cannot be recorded as a stock adjustment", change.ChangeType)
	}

	tx, err := beginTx(ctx, l.pool, l.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	drug, err := l.RecordChangeTx(ctx, tx, change)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyDBError("failed to commit stock adjustment", err, ErrInternal)
	}
	return drug, nil
}

// ── TX-scoped operations ──────────────────────────────────────────────────────

func (l *inventoryLedger) LockDrugTx(ctx context.Context, tx pgx.Tx, drugID int64) (*Drug, error) {
	drug, err := scanDrug(tx.QueryRow(ctx, "SELECT "+drugColumns+" FROM drugs WHERE id = $1 FOR UPDATE", drugID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: drug %d", ErrNotFound, drugID)
		}
		return nil, classifyDBError(fmt.Sprintf("failed to lock drug %d", drugID), err, ErrInternal)
	}
	return drug, nil
}

func (l *inventoryLedger) RecordChangeTx(ctx context.Context, tx pgx.Tx, change StockChange) (*Drug, error) {
	if !change.ChangeType.Valid() {
		return nil, validationErrorf("unknown change type %q", change.ChangeType)
	}
	if change.Delta == 0 && change.ChangeType != ChangeUpdate {
		return nil, validationErrorf("quantity change must not be zero for %s", change.ChangeType)
	}

	drug, err := l.LockDrugTx(ctx, tx, change.DrugID)
	if err != nil {
		return nil, err
	}

	newStock, err := applyDelta(drug, change.Delta)
	if err != nil {
		return nil, err
	}

	updated, err := scanDrug(tx.QueryRow(ctx, `
		UPDATE drugs SET stock = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+drugColumns,
		newStock, drug.ID,
	))
	if err != nil {
		return nil, classifyDBError(fmt.Sprintf("failed to update stock for drug %d", drug.ID), err, ErrInternal)
	}

	if err := appendLogTx(ctx, tx, change); err != nil {
		return nil, err
	}
	return updated, nil
}

// appendLogTx inserts one inventory_logs row. Rows are never updated or deleted afterwards;
// a trigger in the schema rejects both.
func appendLogTx(ctx context.Context, tx pgx.Tx, change StockChange) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO inventory_logs (drug_id, user_id, change_type, quantity_changed, reason)
		VALUES ($1, $2, $3, $4, $5)
	`, change.DrugID, change.UserID, string(change.ChangeType), change.Delta, strings.TrimSpace(change.Reason))
	if err != nil {
		return classifyDBError(fmt.Sprintf("failed to append inventory log for drug %d", change.DrugID), err, ErrInternal)
	}
	return nil
}
