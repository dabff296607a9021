package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// OrderService turns a cart into exactly one committed order, or none at all,
// and drives the order through its fulfillment transitions.
type OrderService interface {
	// SubmitOrder locks every requested drug in ascending id order, records a sale
	// through the ledger for each, and persists the order snapshot. Any failure rolls
	// back the whole checkout.
	SubmitOrder(ctx context.Context, userID int64, items []OrderItemInput) (*Order, error)
	// CancelOrder transitions pending → canceled and returns the stock through the ledger.
	CancelOrder(ctx context.Context, orderID int64, actorID int64) (*Order, error)
	// CompleteOrder transitions pending → completed.
	CompleteOrder(ctx context.Context, orderID int64) (*Order, error)

	GetOrder(ctx context.Context, orderID int64) (*Order, error)
	// ListOrders returns orders newest first. A nil userID lists every user's orders.
	ListOrders(ctx context.Context, userID *int64, limit int) ([]Order, error)
}

type orderService struct {
	pool        *pgxpool.Pool
	ledger      InventoryLedger
	lockTimeout time.Duration
}

func NewOrderService(pool *pgxpool.Pool, ledger InventoryLedger, lockTimeout time.Duration) OrderService {
	return &orderService{pool: pool, ledger: ledger, lockTimeout: lockTimeout}
}

const orderColumns = "id, user_id, items, total_amount, status, created_at, updated_at"

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	if err := row.Scan(&o.ID, &o.UserID, &o.Items, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// orderFailure marks an unexpected storage error raised during checkout as ErrOrderFailed.
// Domain errors (stock, validation, busy) pass through unchanged.
func orderFailure(err error) error {
	if KindOf(err) != KindInternal || errors.Is(err, ErrOrderFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrOrderFailed, err)
}

// ── Checkout ──────────────────────────────────────────────────────────────────

func (s *orderService) SubmitOrder(ctx context.Context, userID int64, items []OrderItemInput) (*Order, error) {
	if userID <= 0 {
		return nil, validationErrorf("invalid user id %d", userID)
	}
	lines, err := normalizeOrderItems(items)
	if err != nil {
		return nil, err
	}

	tx, err := beginTx(ctx, s.pool, s.lockTimeout)
	if err != nil {
		return nil, orderFailure(err)
	}
	defer tx.Rollback(ctx)

	snapshot := make([]OrderItem, 0, len(lines))
	total := decimal.Zero
	actor := userID

	for _, line := range lines {
		drug, err := s.ledger.LockDrugTx(ctx, tx, line.DrugID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, &StockError{Kind: ErrItemNotFound, DrugID: line.DrugID, Requested: line.Quantity}
			}
			return nil, orderFailure(err)
		}
		if !drug.IsActive {
			return nil, &StockError{Kind: ErrItemNotFound, DrugID: drug.ID, DrugName: drug.Name, Requested: line.Quantity}
		}
		if err := checkAvailability(drug, line.Quantity); err != nil {
			return nil, err
		}

		if _, err := s.ledger.RecordChangeTx(ctx, tx, StockChange{
			DrugID:     drug.ID,
			UserID:     &actor,
			ChangeType: ChangeSale,
			Delta:      -line.Quantity,
			Reason:     "Order placed",
		}); err != nil {
			return nil, orderFailure(err)
		}

		item := snapshotItem(drug, line.Quantity)
		total = total.Add(item.Subtotal)
		snapshot = append(snapshot, item)
	}

	order, err := scanOrder(tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, items, total_amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+orderColumns,
		userID, snapshot, total.Round(2), string(OrderPending),
	))
	if err != nil {
		return nil, classifyDBError("failed to insert order", err, ErrOrderFailed)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyDBError("failed to commit order", err, ErrOrderFailed)
	}
	return order, nil
}

// ── Fulfillment transitions ───────────────────────────────────────────────────

func (s *orderService) CancelOrder(ctx context.Context, orderID int64, actorID int64) (*Order, error) {
	tx, err := beginTx(ctx, s.pool, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	order, err := s.lockOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.Status.canTransition(OrderCanceled); err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, err)
	}

	items := append([]OrderItem(nil), order.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].DrugID < items[j].DrugID })

	actor := actorID
	for _, it := range items {
		if _, err := s.ledger.RecordChangeTx(ctx, tx, StockChange{
			DrugID:     it.DrugID,
			UserID:     &actor,
			ChangeType: ChangeRestock,
			Delta:      it.Quantity,
			Reason:     fmt.Sprintf("Order %d canceled", orderID),
		}); err != nil {
			return nil, fmt.Errorf("failed to restock drug %d: %w", it.DrugID, err)
		}
	}

	updated, err := s.setStatusTx(ctx, tx, orderID, OrderCanceled)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyDBError("failed to commit cancel order", err, ErrInternal)
	}
	return updated, nil
}

func (s *orderService) CompleteOrder(ctx context.Context, orderID int64) (*Order, error) {
	tx, err := beginTx(ctx, s.pool, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	order, err := s.lockOrderTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.Status.canTransition(OrderCompleted); err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, err)
	}

	updated, err := s.setStatusTx(ctx, tx, orderID, OrderCompleted)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyDBError("failed to commit complete order", err, ErrInternal)
	}
	return updated, nil
}

func (s *orderService) lockOrderTx(ctx context.Context, tx pgx.Tx, orderID int64) (*Order, error) {
	order, err := scanOrder(tx.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, classifyDBError(fmt.Sprintf("failed to lock order %d", orderID), err, ErrInternal)
	}
	return order, nil
}

func (s *orderService) setStatusTx(ctx context.Context, tx pgx.Tx, orderID int64, status OrderStatus) (*Order, error) {
	order, err := scanOrder(tx.QueryRow(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+orderColumns,
		string(status), orderID,
	))
	if err != nil {
		return nil, classifyDBError(fmt.Sprintf("failed to update order %d", orderID), err, ErrInternal)
	}
	return order, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *orderService) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	order, err := scanOrder(s.pool.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, classifyDBError(fmt.Sprintf("failed to fetch order %d", orderID), err, ErrInternal)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID *int64, limit int) ([]Order, error) {
	limit = clampLimit(limit)

	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1::bigint IS NULL OR user_id = $1)
		ORDER BY id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, classifyDBError("failed to query orders", err, ErrInternal)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyDBError("failed to iterate orders", err, ErrInternal)
	}
	return orders, nil
}
