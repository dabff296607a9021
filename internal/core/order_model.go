package core

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfillment state of an order.
//
//	pending → completed
//	pending → canceled (stock is returned through the ledger)
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCanceled  OrderStatus = "canceled"
	OrderCompleted OrderStatus = "completed"
)

// Order is a committed checkout. Items is a snapshot taken at checkout time and is
// never re-derived from the live catalog.
type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Items       []OrderItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// OrderItem is one line of an order snapshot. It is stored as JSONB.
type OrderItem struct {
	DrugID          int64           `json:"drug_id"`
	Name            string          `json:"name"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	Quantity        int             `json:"quantity"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// OrderItemInput is a requested (drug, quantity) pair.
type OrderItemInput struct {
	DrugID   int64
	Quantity int
}

// normalizeOrderItems validates a cart, merges repeated drugs into one line and sorts
// the result by ascending drug id, which is the order row locks are taken in.
func normalizeOrderItems(items []OrderItemInput) ([]OrderItemInput, error) {
	if len(items) == 0 {
		return nil, validationErrorf("order must have at least one item")
	}

	merged := make(map[int64]int, len(items))
	for i, it := range items {
		if it.DrugID <= 0 {
			return nil, validationErrorf("item %d: invalid drug id %d", i+1, it.DrugID)
		}
		if it.Quantity <= 0 {
			return nil, validationErrorf("item %d: quantity must be positive, got %d", i+1, it.Quantity)
		}
		merged[it.DrugID] += it.Quantity
	}

	out := make([]OrderItemInput, 0, len(merged))
	for id, qty := range merged {
		out = append(out, OrderItemInput{DrugID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DrugID < out[j].DrugID })
	return out, nil
}

// checkAvailability reports whether qty units of drug can be sold.
func checkAvailability(drug *Drug, qty int) error {
	if drug.Stock == 0 {
		return &StockError{Kind: ErrOutOfStock, DrugID: drug.ID, DrugName: drug.Name, Requested: qty}
	}
	if drug.Stock < qty {
		return &StockError{
			Kind:      ErrInsufficientStock,
			DrugID:    drug.ID,
			DrugName:  drug.Name,
			Available: drug.Stock,
			Requested: qty,
		}
	}
	return nil
}

// snapshotItem captures the price and name of drug at checkout time.
func snapshotItem(drug *Drug, qty int) OrderItem {
	return OrderItem{
		DrugID:          drug.ID,
		Name:            drug.Name,
		PriceAtPurchase: drug.Price,
		Quantity:        qty,
		Subtotal:        drug.Price.Mul(decimal.NewFromInt(int64(qty))),
	}
}

// canTransition reports whether an order may move from s to next.
func (s OrderStatus) canTransition(next OrderStatus) error {
	if s == OrderPending && (next == OrderCanceled || next == OrderCompleted) {
		return nil
	}
	return fmt.Errorf("%w: order is %s, cannot become %s", ErrInvalidTransition, s, next)
}
