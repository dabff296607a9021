package core

import (
	"errors"
	"testing"
)

func intPtr(n int) *int { return &n }

func TestPrescriptionDispense(t *testing.T) {
	p := &Prescription{ID: 1, RefillAllowed: 2, Status: PrescriptionPending}

	if err := p.dispense(nil); err != nil {
		t.Fatalf("first dispense: %v", err)
	}
	if p.RefillUsed != 1 || p.Status != PrescriptionPartiallyFilled || p.Remaining() != 1 {
		t.Errorf("after first dispense got %+v", p)
	}
	if err := p.dispense(nil); err != nil {
		t.Fatalf("second dispense: %v", err)
	}
	if p.Status != PrescriptionFulfilled || p.Remaining() != 0 {
		t.Errorf("after second dispense got %+v", p)
	}
	if err := p.dispense(nil); !errors.Is(err, ErrAlreadyFulfilled) {
		t.Errorf("expected ErrAlreadyFulfilled, got %v", err)
	}
	if p.RefillUsed != 2 {
		t.Errorf("failed dispense changed counter to %d", p.RefillUsed)
	}
}

func TestPrescriptionDispense_Override(t *testing.T) {
	p := &Prescription{ID: 1, RefillAllowed: 1, RefillUsed: 1, Status: PrescriptionFulfilled}

	if err := p.dispense(intPtr(0)); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for override below used, got %v", err)
	}
	if err := p.dispense(intPtr(-1)); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for negative override, got %v", err)
	}
	if err := p.dispense(intPtr(1)); !errors.Is(err, ErrAlreadyFulfilled) {
		t.Errorf("expected ErrAlreadyFulfilled at the bound, got %v", err)
	}
	if err := p.dispense(intPtr(3)); err != nil {
		t.Fatalf("override dispense: %v", err)
	}
	if p.RefillAllowed != 3 || p.RefillUsed != 2 || p.Status != PrescriptionPartiallyFilled {
		t.Errorf("unexpected state %+v", p)
	}
}

func TestPrescriptionRejected(t *testing.T) {
	p := &Prescription{ID: 1, RefillAllowed: 2, RefillUsed: 1, Status: PrescriptionPartiallyFilled}
	if err := p.reject("expired"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if p.Status != PrescriptionRejected || p.Remaining() != 0 {
		t.Errorf("unexpected state %+v", p)
	}
	if err := p.dispense(intPtr(5)); !errors.Is(err, ErrTerminal) {
		t.Errorf("expected ErrTerminal even with override, got %v", err)
	}
	if err := p.reject("again"); !errors.Is(err, ErrTerminal) {
		t.Errorf("expected ErrTerminal, got %v", err)
	}

	done := &Prescription{ID: 2, RefillAllowed: 1, RefillUsed: 1, Status: PrescriptionFulfilled}
	if err := done.reject("late"); !errors.Is(err, ErrAlreadyFulfilled) {
		t.Errorf("expected ErrAlreadyFulfilled, got %v", err)
	}
}

func TestActorRoles(t *testing.T) {
	pharmacist := Actor{UserID: 1, Role: RolePharmacist}
	customer := Actor{UserID: 2, Role: RoleCustomer}

	if !pharmacist.IsStaff() || customer.IsStaff() {
		t.Error("unexpected staff classification")
	}
	if err := customer.RequireRole(RolePharmacist, RoleAdmin); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if err := pharmacist.RequireRole(RolePharmacist); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if Role("root").Valid() {
		t.Error("expected unknown role to be invalid")
	}
}
