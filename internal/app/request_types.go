package app

import (
	"io"

	"github.com/shopspring/decimal"
)

// CreateDrugRequest is the input for adding a drug to the catalog.
type CreateDrugRequest struct {
	Name                 string          `json:"name" validate:"required,max=200"`
	GenericName          string          `json:"generic_name" validate:"max=200"`
	Manufacturer         string          `json:"manufacturer" validate:"max=200"`
	DosageForm           string          `json:"dosage_form" validate:"max=100"`
	Price                decimal.Decimal `json:"price" validate:"gte=0"`
	InitialStock         int             `json:"initial_stock" validate:"gte=0,lte=1000000"`
	RequiresPrescription bool            `json:"requires_prescription"`
}

// AdjustStockRequest is the input for a manual stock change. Delta is signed and may be
// zero only for an "update" entry.
type AdjustStockRequest struct {
	DrugID     int64  `json:"drug_id" validate:"gt=0"`
	ChangeType string `json:"change_type" validate:"required,oneof=restock update deletion stock_adjustment stock_update"`
	Delta      int    `json:"delta" validate:"required_unless=ChangeType update,min=-1000000,max=1000000"`
	Reason     string `json:"reason" validate:"max=500"`
}

// SubmitOrderRequest is a cart to check out.
type SubmitOrderRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

// OrderItemRequest is a single line within a SubmitOrderRequest.
type OrderItemRequest struct {
	DrugID   int64 `json:"drug_id" validate:"gt=0"`
	Quantity int   `json:"quantity" validate:"gt=0,lte=1000"`
}

// UploadPrescriptionRequest carries the prescription file. Its SHA-256 becomes the uid.
type UploadPrescriptionRequest struct {
	Content       io.Reader `json:"-" validate:"required"`
	RefillAllowed int       `json:"refill_allowed" validate:"gte=0,lte=99"`
}

// DispenseRequest is the input for consuming one refill.
type DispenseRequest struct {
	PrescriptionID        int64 `json:"prescription_id" validate:"gt=0"`
	OverrideRefillAllowed *int  `json:"override_refill_allowed" validate:"omitempty,gte=0,lte=99"`
}

// RejectRequest is the input for rejecting a prescription.
type RejectRequest struct {
	PrescriptionID int64  `json:"prescription_id" validate:"gt=0"`
	Reason         string `json:"reason" validate:"required,max=500"`
}
