package app

import (
	"context"

	"pharmacy-orders/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
//
// Every operation takes the authenticated core.Actor; role checks happen here so
// that all adapters share the same UNAUTHORIZED behavior.
type ApplicationService interface {
	// Ping reports whether the database is reachable.
	Ping(ctx context.Context) error

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int64) (*UserResult, error)

	// CreateDrug adds a drug to the catalog with its initial stock. Staff only.
	CreateDrug(ctx context.Context, actor core.Actor, req CreateDrugRequest) (*DrugResult, error)

	// GetDrug returns a single drug with its current stock.
	GetDrug(ctx context.Context, actor core.Actor, drugID int64) (*DrugResult, error)

	// AdjustStock records a manual stock change through the inventory ledger. Staff only.
	AdjustStock(ctx context.Context, actor core.Actor, req AdjustStockRequest) (*DrugResult, error)

	// InventoryLog returns the append-only audit feed for a drug. Staff only.
	InventoryLog(ctx context.Context, actor core.Actor, drugID int64, limit int) (*InventoryLogResult, error)

	// LowStock lists active drugs at or below threshold. A nil threshold uses the
	// configured default. Staff only.
	LowStock(ctx context.Context, actor core.Actor, threshold *int) (*LowStockResult, error)

	// Reconcile compares every drug's stock with its inventory log. Admin only.
	Reconcile(ctx context.Context, actor core.Actor) (*ReconcileResult, error)

	// SubmitOrder checks out a cart for the acting user, all-or-nothing.
	SubmitOrder(ctx context.Context, actor core.Actor, req SubmitOrderRequest) (*OrderResult, error)

	// GetOrder returns an order. Customers may only read their own orders.
	GetOrder(ctx context.Context, actor core.Actor, orderID int64) (*OrderResult, error)

	// ListOrders returns the actor's orders, or every order for staff.
	ListOrders(ctx context.Context, actor core.Actor, limit int) (*OrderListResult, error)

	// CancelOrder cancels a pending order and returns its stock. Staff only.
	CancelOrder(ctx context.Context, actor core.Actor, orderID int64) (*OrderResult, error)

	// CompleteOrder marks a pending order as completed. Staff only.
	CompleteOrder(ctx context.Context, actor core.Actor, orderID int64) (*OrderResult, error)

	// UploadPrescription hashes the uploaded content and registers the prescription
	// for the acting user. The content itself is not stored.
	UploadPrescription(ctx context.Context, actor core.Actor, req UploadPrescriptionRequest) (*PrescriptionResult, error)

	// GetPrescription returns a prescription with its dispense history.
	// Customers may only read their own prescriptions.
	GetPrescription(ctx context.Context, actor core.Actor, prescriptionID int64) (*PrescriptionResult, error)

	// ListPrescriptions returns the actor's prescriptions, or every prescription for staff.
	ListPrescriptions(ctx context.Context, actor core.Actor, limit int) (*PrescriptionListResult, error)

	// DispensePrescription consumes one refill. Pharmacist or admin only.
	DispensePrescription(ctx context.Context, actor core.Actor, req DispenseRequest) (*PrescriptionResult, error)

	// RejectPrescription moves a prescription to the terminal rejected state.
	// Pharmacist or admin only.
	RejectPrescription(ctx context.Context, actor core.Actor, req RejectRequest) (*PrescriptionResult, error)
}
