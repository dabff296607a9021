package core

import (
	"fmt"
	"time"
)

// PrescriptionStatus is the refill state of a prescription.
//
//	pending → partially_filled → fulfilled
//	pending | partially_filled → rejected (terminal)
type PrescriptionStatus string

const (
	PrescriptionPending         PrescriptionStatus = "pending"
	PrescriptionPartiallyFilled PrescriptionStatus = "partially_filled"
	PrescriptionFulfilled       PrescriptionStatus = "fulfilled"
	PrescriptionRejected        PrescriptionStatus = "rejected"
)

// Prescription tracks how many refills of an uploaded prescription have been dispensed.
// UID is the content hash of the uploaded file and is unique across all users.
type Prescription struct {
	ID              int64              `json:"id"`
	UID             string             `json:"uid"`
	UserID          int64              `json:"user_id"`
	RefillAllowed   int                `json:"refill_allowed"`
	RefillUsed      int                `json:"refill_used"`
	Status          PrescriptionStatus `json:"status"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Remaining returns the number of refills still available.
func (p *Prescription) Remaining() int {
	if p.Status == PrescriptionRejected || p.RefillUsed >= p.RefillAllowed {
		return 0
	}
	return p.RefillAllowed - p.RefillUsed
}

// Dispense is one recorded refill.
type Dispense struct {
	ID             int64     `json:"id"`
	PrescriptionID int64     `json:"prescription_id"`
	PharmacistID   int64     `json:"pharmacist_id"`
	RefillNumber   int       `json:"refill_number"`
	CreatedAt      time.Time `json:"created_at"`
}

// dispense applies one refill to p in memory. The caller persists p only on success.
// An override replaces RefillAllowed before the bound check; it may not drop below the
// refills already used.
func (p *Prescription) dispense(overrideRefillAllowed *int) error {
	if p.Status == PrescriptionRejected {
		return fmt.Errorf("%w: prescription %d is rejected", ErrTerminal, p.ID)
	}

	if overrideRefillAllowed != nil {
		n := *overrideRefillAllowed
		if n < 0 {
			return validationErrorf("override refill allowed must not be negative, got %d", n)
		}
		if n < p.RefillUsed {
			return validationErrorf("override refill allowed %d is below refills already used (%d)", n, p.RefillUsed)
		}
		p.RefillAllowed = n
	}

	if p.RefillUsed >= p.RefillAllowed {
		return fmt.Errorf("%w: prescription %d has used %d of %d refills",
			ErrAlreadyFulfilled, p.ID, p.RefillUsed, p.RefillAllowed)
	}

	p.RefillUsed++
	if p.RefillUsed == p.RefillAllowed {
		p.Status = PrescriptionFulfilled
	} else {
		p.Status = PrescriptionPartiallyFilled
	}
	return nil
}

// reject moves p to the terminal rejected state.
func (p *Prescription) reject(reason string) error {
	switch p.Status {
	case PrescriptionRejected:
		return fmt.Errorf("%w: prescription %d is already rejected", ErrTerminal, p.ID)
	case PrescriptionFulfilled:
		return fmt.Errorf("%w: prescription %d cannot be rejected", ErrAlreadyFulfilled, p.ID)
	}
	p.Status = PrescriptionRejected
	p.RejectionReason = reason
	return nil
}
