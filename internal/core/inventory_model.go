package core

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Drug is a catalog entry with a stock counter owned by the InventoryLedger.
// Stock and InitialStock are only ever written by ledger code.
type Drug struct {
	ID                   int64           `json:"id" db:"id"`
	Name                 string          `json:"name" db:"name"`
	GenericName          string          `json:"generic_name" db:"generic_name"`
	Manufacturer         string          `json:"manufacturer" db:"manufacturer"`
	DosageForm           string          `json:"dosage_form" db:"dosage_form"`
	Price                decimal.Decimal `json:"price" db:"price"`
	Stock                int             `json:"stock" db:"stock"`
	InitialStock         int             `json:"initial_stock" db:"initial_stock"`
	RequiresPrescription bool            `json:"requires_prescription" db:"requires_prescription"`
	IsActive             bool            `json:"is_active" db:"is_active"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// ChangeType classifies an inventory log entry.
type ChangeType string

const (
	ChangeCreation        ChangeType = "creation"
	ChangeRestock         ChangeType = "restock"
	ChangeUpdate          ChangeType = "update"
	ChangeSale            ChangeType = "sale"
	ChangeDeletion        ChangeType = "deletion"
	ChangeStockAdjustment ChangeType = "stock_adjustment"
	ChangeStockUpdate     ChangeType = "stock_update"
)

// Valid reports whether c is a known change type.
func (c ChangeType) Valid() bool {
	switch c {
	case ChangeCreation, ChangeRestock, ChangeUpdate, ChangeSale,
		ChangeDeletion, ChangeStockAdjustment, ChangeStockUpdate:
		return true
	}
	return false
}

// Manual reports whether c may be recorded through a direct stock adjustment.
// Creation entries belong to CreateDrug and sale entries to checkout.
func (c ChangeType) Manual() bool {
	return c.Valid() && c != ChangeCreation && c != ChangeSale
}

// InventoryLogEntry is an append-only record of one stock mutation.
type InventoryLogEntry struct {
	ID              int64      `json:"id" db:"id"`
	DrugID          int64      `json:"drug_id" db:"drug_id"`
	UserID          *int64     `json:"user_id,omitempty" db:"user_id"`
	ChangeType      ChangeType `json:"change_type" db:"change_type"`
	QuantityChanged int        `json:"quantity_changed" db:"quantity_changed"`
	Reason          string     `json:"reason" db:"reason"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// StockChange is the input to InventoryLedger.RecordChangeTx.
type StockChange struct {
	DrugID     int64
	UserID     *int64
	ChangeType ChangeType
	Delta      int
	Reason     string
}

// DrugInput is used when creating a new drug.
type DrugInput struct {
	Name                 string
	GenericName          string
	Manufacturer         string
	DosageForm           string
	Price                decimal.Decimal
	InitialStock         int
	RequiresPrescription bool
}

// maxStock is the largest value the INTEGER stock column holds.
const maxStock = math.MaxInt32

// applyDelta returns stock+delta, or ErrInsufficientStock if the result would be negative.
// Deltas whose result would not fit the stock column are validation errors.
func applyDelta(drug *Drug, delta int) (int, error) {
	if delta > maxStock || delta < -maxStock {
		return 0, validationErrorf("quantity change %d is out of range", delta)
	}
	next := drug.Stock + delta
	if next > maxStock {
		return 0, validationErrorf("stock for drug %d would exceed %d", drug.ID, maxStock)
	}
	if next < 0 {
		return 0, &StockError{
			Kind:      ErrInsufficientStock,
			DrugID:    drug.ID,
			DrugName:  drug.Name,
			Available: drug.Stock,
			Requested: -delta,
		}
	}
	return next, nil
}
