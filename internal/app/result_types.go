package app

import "pharmacy-orders/internal/core"

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	Role     core.Role `json:"role"`
}

// UserResult is returned by GetUser.
type UserResult struct {
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     core.Role `json:"role"`
}

// DrugResult is returned by drug and stock operations.
type DrugResult struct {
	Drug *core.Drug `json:"drug"`
}

// InventoryLogResult is returned by InventoryLog.
type InventoryLogResult struct {
	DrugID  int64                    `json:"drug_id"`
	Entries []core.InventoryLogEntry `json:"entries"`
}

// LowStockResult is returned by LowStock.
type LowStockResult struct {
	Threshold int         `json:"threshold"`
	Drugs     []core.Drug `json:"drugs"`
}

// ReconcileResult is returned by Reconcile. Balanced is true when Drift is empty.
type ReconcileResult struct {
	Balanced bool               `json:"balanced"`
	Drift    []core.LedgerDrift `json:"drift"`
}

// OrderResult is returned by order lifecycle operations.
type OrderResult struct {
	Order *core.Order `json:"order"`
}

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Orders []core.Order `json:"orders"`
}

// PrescriptionResult is returned by prescription operations. Dispenses is only
// populated by GetPrescription.
type PrescriptionResult struct {
	Prescription *core.Prescription `json:"prescription"`
	Remaining    int                `json:"remaining"`
	Dispenses    []core.Dispense    `json:"dispenses,omitempty"`
}

// PrescriptionListResult is returned by ListPrescriptions.
type PrescriptionListResult struct {
	Prescriptions []core.Prescription `json:"prescriptions"`
}
