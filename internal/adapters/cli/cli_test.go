package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"pharmacy-orders/internal/app"
	"pharmacy-orders/internal/core"

	"github.com/shopspring/decimal"
)

type fakeService struct {
	app.ApplicationService

	adjust   app.AdjustStockRequest
	dispense app.DispenseRequest
	drift    []core.LedgerDrift
}

func (f *fakeService) AdjustStock(ctx context.Context, actor core.Actor, req app.AdjustStockRequest) (*app.DrugResult, error) {
	if err := actor.RequireRole(core.RolePharmacist, core.RoleAdmin); err != nil {
		return nil, err
	}
	f.adjust = req
	return &app.DrugResult{Drug: &core.Drug{ID: req.DrugID, Name: "Amoxil", Stock: 5 + req.Delta, Price: decimal.NewFromInt(10)}}, nil
}

func (f *fakeService) DispensePrescription(ctx context.Context, actor core.Actor, req app.DispenseRequest) (*app.PrescriptionResult, error) {
	f.dispense = req
	return &app.PrescriptionResult{
		Prescription: &core.Prescription{ID: req.PrescriptionID, RefillAllowed: 3, RefillUsed: 1, Status: core.PrescriptionPartiallyFilled},
		Remaining:    2,
	}, nil
}

func (f *fakeService) Reconcile(ctx context.Context, actor core.Actor) (*app.ReconcileResult, error) {
	return &app.ReconcileResult{Balanced: len(f.drift) == 0, Drift: f.drift}, nil
}

var admin = core.Actor{UserID: 1, Role: core.RoleAdmin}

func TestAdjustParsesArguments(t *testing.T) {
	svc := &fakeService{}
	var out bytes.Buffer

	err := Run(context.Background(), svc, admin, &out, []string{"adjust", "4", "restock", "20", "weekly", "delivery"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := app.AdjustStockRequest{DrugID: 4, ChangeType: "restock", Delta: 20, Reason: "weekly delivery"}
	if svc.adjust != want {
		t.Errorf("Expected %+v, got %+v", want, svc.adjust)
	}
	if !strings.Contains(out.String(), "now 25") {
		t.Errorf("Unexpected output: %q", out.String())
	}
}

func TestAdjustPropagatesRoleError(t *testing.T) {
	customer := core.Actor{UserID: 9, Role: core.RoleCustomer}
	err := Run(context.Background(), &fakeService{}, customer, &bytes.Buffer{}, []string{"adjust", "4", "restock", "1"})
	if !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestDispenseOverride(t *testing.T) {
	svc := &fakeService{}
	var out bytes.Buffer
	if err := Run(context.Background(), svc, admin, &out, []string{"dispense", "12", "5"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if svc.dispense.PrescriptionID != 12 || svc.dispense.OverrideRefillAllowed == nil || *svc.dispense.OverrideRefillAllowed != 5 {
		t.Errorf("Unexpected request: %+v", svc.dispense)
	}
	if !strings.Contains(out.String(), "2 remaining") {
		t.Errorf("Unexpected output: %q", out.String())
	}
}

func TestReconcileReportsDrift(t *testing.T) {
	var out bytes.Buffer
	if err := Run(context.Background(), &fakeService{}, admin, &out, []string{"reconcile"}); err != nil {
		t.Errorf("Expected no error when balanced, got %v", err)
	}

	svc := &fakeService{drift: []core.LedgerDrift{{DrugID: 3, Name: "Ibuprofen", Stock: 7, InitialStock: 10, LogSum: -2}}}
	out.Reset()
	err := Run(context.Background(), svc, admin, &out, []string{"reconcile"})
	if !errors.Is(err, ErrDrift) {
		t.Fatalf("Expected ErrDrift, got %v", err)
	}
	if !strings.Contains(out.String(), "Ibuprofen") {
		t.Errorf("Expected drifting drug in output: %q", out.String())
	}
}

func TestArgumentErrors(t *testing.T) {
	cases := [][]string{
		{},
		{"bogus"},
		{"stock"},
		{"stock", "abc"},
		{"adjust", "1", "restock", "many"},
		{"reject", "1"},
		{"audit", "1", "x"},
	}
	for _, args := range cases {
		if err := Run(context.Background(), &fakeService{}, admin, &bytes.Buffer{}, args); err == nil {
			t.Errorf("Expected error for args %v", args)
		}
	}
}
