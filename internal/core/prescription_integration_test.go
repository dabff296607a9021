package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pharmacy-orders/internal/core"
)

func setupPrescriptionTest(t *testing.T) (core.PrescriptionService, context.Context) {
	pool := setupTestDB(t)
	return core.NewPrescriptionService(pool, 3*time.Second), context.Background()
}

func TestPrescription_DuplicateUploadAcrossUsers(t *testing.T) {
	svc, ctx := setupPrescriptionTest(t)

	p, err := svc.Upload(ctx, 1, "abc123", 2)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if p.Status != core.PrescriptionPending || p.RefillUsed != 0 {
		t.Errorf("Expected pending with 0 used, got %s/%d", p.Status, p.RefillUsed)
	}

	_, err = svc.Upload(ctx, 2, "abc123", 5)
	if !errors.Is(err, core.ErrDuplicate) {
		t.Fatalf("Expected ErrDuplicate for a different user, got %v", err)
	}
}

func TestPrescription_DispenseSequence(t *testing.T) {
	svc, ctx := setupPrescriptionTest(t)
	p, err := svc.Upload(ctx, 1, "rx-seq", 2)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	p, err = svc.Dispense(ctx, p.ID, 50, nil)
	if err != nil {
		t.Fatalf("first Dispense failed: %v", err)
	}
	if p.RefillUsed != 1 || p.Status != core.PrescriptionPartiallyFilled {
		t.Errorf("Expected 1 used, partially_filled; got %d/%s", p.RefillUsed, p.Status)
	}

	p, err = svc.Dispense(ctx, p.ID, 50, nil)
	if err != nil {
		t.Fatalf("second Dispense failed: %v", err)
	}
	if p.RefillUsed != 2 || p.Status != core.PrescriptionFulfilled {
		t.Errorf("Expected 2 used, fulfilled; got %d/%s", p.RefillUsed, p.Status)
	}

	if _, err := svc.Dispense(ctx, p.ID, 50, nil); !errors.Is(err, core.ErrAlreadyFulfilled) {
		t.Errorf("Expected ErrAlreadyFulfilled, got %v", err)
	}

	stored, _ := svc.GetPrescription(ctx, p.ID)
	if stored.RefillUsed != 2 {
		t.Errorf("Expected failed dispense to leave counters unchanged, got %d", stored.RefillUsed)
	}

	dispenses, err := svc.ListDispenses(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListDispenses failed: %v", err)
	}
	if len(dispenses) != 2 || dispenses[1].RefillNumber != 2 || dispenses[0].PharmacistID != 50 {
		t.Errorf("Unexpected dispense history: %+v", dispenses)
	}
}

func TestPrescription_OverrideRefillAllowed(t *testing.T) {
	svc, ctx := setupPrescriptionTest(t)
	p, _ := svc.Upload(ctx, 1, "rx-override", 0)

	if _, err := svc.Dispense(ctx, p.ID, 50, nil); !errors.Is(err, core.ErrAlreadyFulfilled) {
		t.Fatalf("Expected ErrAlreadyFulfilled with zero refills, got %v", err)
	}

	three := 3
	p, err := svc.Dispense(ctx, p.ID, 50, &three)
	if err != nil {
		t.Fatalf("Dispense with override failed: %v", err)
	}
	if p.RefillAllowed != 3 || p.RefillUsed != 1 || p.Status != core.PrescriptionPartiallyFilled {
		t.Errorf("Unexpected state after override: %+v", p)
	}

	zero := 0
	if _, err := svc.Dispense(ctx, p.ID, 50, &zero); !errors.Is(err, core.ErrValidation) {
		t.Errorf("Expected ErrValidation for override below used, got %v", err)
	}
}

func TestPrescription_RejectIsTerminal(t *testing.T) {
	svc, ctx := setupPrescriptionTest(t)
	p, _ := svc.Upload(ctx, 1, "rx-reject", 3)

	p, err := svc.Reject(ctx, p.ID, 50, "illegible signature")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if p.Status != core.PrescriptionRejected || p.RejectionReason != "illegible signature" {
		t.Errorf("Unexpected rejected state: %+v", p)
	}

	if _, err := svc.Dispense(ctx, p.ID, 50, nil); !errors.Is(err, core.ErrTerminal) {
		t.Errorf("Expected ErrTerminal dispensing a rejected prescription, got %v", err)
	}
	if _, err := svc.Reject(ctx, p.ID, 50, "again"); !errors.Is(err, core.ErrTerminal) {
		t.Errorf("Expected ErrTerminal rejecting twice, got %v", err)
	}

	full, _ := svc.Upload(ctx, 1, "rx-full", 1)
	if _, err := svc.Dispense(ctx, full.ID, 50, nil); err != nil {
		t.Fatalf("Dispense failed: %v", err)
	}
	if _, err := svc.Reject(ctx, full.ID, 50, "late"); !errors.Is(err, core.ErrAlreadyFulfilled) {
		t.Errorf("Expected ErrAlreadyFulfilled rejecting a fulfilled prescription, got %v", err)
	}
}

func TestPrescription_ConcurrentDispenseRespectsBound(t *testing.T) {
	svc, ctx := setupPrescriptionTest(t)
	p, _ := svc.Upload(ctx, 1, "rx-concurrent", 3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Dispense(ctx, p.ID, 50, nil)
			if err != nil && !errors.Is(err, core.ErrAlreadyFulfilled) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 {
		t.Errorf("Expected exactly 3 successful dispenses, got %d", succeeded)
	}
	stored, _ := svc.GetPrescription(ctx, p.ID)
	if stored.RefillUsed != 3 || stored.Status != core.PrescriptionFulfilled {
		t.Errorf("Expected 3 used and fulfilled, got %d/%s", stored.RefillUsed, stored.Status)
	}
}

func TestPrescription_NotFoundAndList(t *testing.T) {
	svc, ctx := setupPrescriptionTest(t)
	if _, err := svc.Dispense(ctx, 777, 50, nil); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	_, _ = svc.Upload(ctx, 1, "rx-a", 1)
	_, _ = svc.Upload(ctx, 2, "rx-b", 1)
	user := int64(2)
	list, err := svc.ListPrescriptions(ctx, &user, 10)
	if err != nil {
		t.Fatalf("ListPrescriptions failed: %v", err)
	}
	if len(list) != 1 || list[0].UID != "rx-b" {
		t.Errorf("Expected only rx-b for user 2, got %+v", list)
	}
}
