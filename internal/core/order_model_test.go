package core

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeOrderItems(t *testing.T) {
	got, err := normalizeOrderItems([]OrderItemInput{
		{DrugID: 9, Quantity: 1},
		{DrugID: 2, Quantity: 3},
		{DrugID: 9, Quantity: 4},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []OrderItemInput{{DrugID: 2, Quantity: 3}, {DrugID: 9, Quantity: 5}}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestNormalizeOrderItems_Invalid(t *testing.T) {
	cases := map[string][]OrderItemInput{
		"empty":         nil,
		"zero quantity": {{DrugID: 1, Quantity: 0}},
		"negative qty":  {{DrugID: 1, Quantity: -2}},
		"bad drug id":   {{DrugID: 0, Quantity: 1}},
	}
	for name, items := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := normalizeOrderItems(items); !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestCheckAvailability(t *testing.T) {
	drug := &Drug{ID: 1, Name: "Aspirin", Stock: 0}
	if err := checkAvailability(drug, 1); !errors.Is(err, ErrOutOfStock) {
		t.Errorf("expected ErrOutOfStock at zero stock, got %v", err)
	}

	drug.Stock = 2
	err := checkAvailability(drug, 3)
	var se *StockError
	if !errors.As(err, &se) || se.Kind != ErrInsufficientStock || se.Available != 2 || se.Requested != 3 {
		t.Errorf("expected insufficient stock detail, got %v", err)
	}
	if err := checkAvailability(drug, 2); err != nil {
		t.Errorf("expected exact quantity to be available, got %v", err)
	}
}

func TestSnapshotItem(t *testing.T) {
	drug := &Drug{ID: 4, Name: "Zinc", Price: decimal.RequireFromString("2.35")}
	item := snapshotItem(drug, 3)
	if !item.Subtotal.Equal(decimal.RequireFromString("7.05")) {
		t.Errorf("expected subtotal 7.05, got %s", item.Subtotal)
	}
	drug.Price = decimal.NewFromInt(100)
	if !item.PriceAtPurchase.Equal(decimal.RequireFromString("2.35")) {
		t.Errorf("snapshot changed with catalog price: %s", item.PriceAtPurchase)
	}
}

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderPending, OrderCanceled, true},
		{OrderPending, OrderCompleted, true},
		{OrderCanceled, OrderCompleted, false},
		{OrderCompleted, OrderCanceled, false},
		{OrderPending, OrderPending, false},
	}
	for _, c := range cases {
		err := c.from.canTransition(c.to)
		if c.ok && err != nil {
			t.Errorf("%s → %s: unexpected error %v", c.from, c.to, err)
		}
		if !c.ok && !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("%s → %s: expected ErrInvalidTransition, got %v", c.from, c.to, err)
		}
	}
}

func TestApplyDelta(t *testing.T) {
	drug := &Drug{ID: 1, Name: "x", Stock: 5}
	if n, err := applyDelta(drug, -5); err != nil || n != 0 {
		t.Errorf("expected 0, got %d (%v)", n, err)
	}
	if _, err := applyDelta(drug, -6); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}
	if !ChangeRestock.Manual() || ChangeSale.Manual() || ChangeCreation.Manual() || ChangeType("gift").Valid() {
		t.Error("unexpected change type classification")
	}
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{-5: 100, 0: 100, 1: 1, 250: 250, 500: 500, 501: 500}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestApplyDeltaRejectsOverflow(t *testing.T) {
	drug := &Drug{ID: 1, Name: "x", Stock: 5}

	for _, delta := range []int{math.MaxInt64, math.MinInt64 + 1, math.MaxInt32 + 1, -(math.MaxInt32 + 1)} {
		_, err := applyDelta(drug, delta)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("delta %d: expected ErrValidation, got %v", delta, err)
		}
		if errors.Is(err, ErrInsufficientStock) {
			t.Errorf("delta %d: must not be reported as insufficient stock", delta)
		}
	}

	if _, err := applyDelta(drug, math.MaxInt32-4); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation when stock would exceed the column range, got %v", err)
	}
	if n, err := applyDelta(drug, math.MaxInt32-5); err != nil || n != math.MaxInt32 {
		t.Errorf("expected %d, got %d (%v)", math.MaxInt32, n, err)
	}
}
