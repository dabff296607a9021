package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned (wrapped) by the core services. Match with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrOutOfStock        = errors.New("out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyFulfilled  = errors.New("prescription already fulfilled")
	ErrDuplicate         = errors.New("duplicate")
	ErrTerminal          = errors.New("terminal state")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrBusy              = errors.New("resource busy, retry later")
	ErrOrderFailed       = errors.New("order failed")
	ErrInternal          = errors.New("internal error")
)

// Kind groups errors into the categories exposed to callers.
type Kind string

const (
	KindValidation   Kind = "VALIDATION_ERROR"
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindBusy         Kind = "BUSY"
	KindInternal     Kind = "INTERNAL"
)

var errorCodes = []struct {
	err  error
	kind Kind
	code string
}{
	{ErrValidation, KindValidation, "VALIDATION_ERROR"},
	{ErrItemNotFound, KindNotFound, "ITEM_NOT_FOUND"},
	{ErrNotFound, KindNotFound, "NOT_FOUND"},
	{ErrOutOfStock, KindConflict, "OUT_OF_STOCK"},
	{ErrInsufficientStock, KindConflict, "INSUFFICIENT_STOCK"},
	{ErrAlreadyFulfilled, KindConflict, "ALREADY_FULFILLED"},
	{ErrDuplicate, KindConflict, "DUPLICATE"},
	{ErrTerminal, KindConflict, "TERMINAL"},
	{ErrInvalidTransition, KindConflict, "INVALID_TRANSITION"},
	{ErrUnauthorized, KindUnauthorized, "UNAUTHORIZED"},
	{ErrBusy, KindBusy, "BUSY"},
	{ErrOrderFailed, KindInternal, "ORDER_FAILED"},
}

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.kind
		}
	}
	return KindInternal
}

// CodeOf returns the machine-readable code for err, e.g. "OUT_OF_STOCK".
func CodeOf(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "INTERNAL"
}

// IsRetryable reports whether the caller may retry the operation unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy)
}

// StockError describes a checkout or ledger failure for a single drug.
// Kind is one of ErrItemNotFound, ErrOutOfStock or ErrInsufficientStock.
type StockError struct {
	Kind      error
	DrugID    int64
	DrugName  string
	Available int
	Requested int
}

func (e *StockError) Error() string {
	switch e.Kind {
	case ErrItemNotFound:
		return fmt.Sprintf("drug %d not found", e.DrugID)
	case ErrOutOfStock:
		return fmt.Sprintf("%s is out of stock", e.DrugName)
	default:
		return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
			e.DrugName, e.Available, e.Requested)
	}
}

func (e *StockError) Unwrap() error { return e.Kind }

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Postgres SQLSTATE codes the core reacts to.
const (
	pgLockNotAvailable     = "55P03"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgQueryCanceled        = "57014"
	pgUniqueViolation      = "23505"
	pgCheckViolation       = "23514"
)

// classifyDBError wraps a storage failure with the sentinel that matches its cause:
// lock waits, deadlocks and expired deadlines become ErrBusy, unique violations
// ErrDuplicate, everything else fallback. Errors that already carry a core sentinel
// are returned unchanged.
func classifyDBError(op string, err error, fallback error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindInternal || errors.Is(err, ErrOrderFailed) || errors.Is(err, ErrInternal) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, ErrBusy, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgDeadlockDetected, pgSerializationFailure, pgQueryCanceled:
			return fmt.Errorf("%s: %w: %w", op, ErrBusy, err)
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w: %w", op, ErrDuplicate, err)
		case pgCheckViolation:
			return fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
		}
	}
	return fmt.Errorf("%s: %w: %w", op, fallback, err)
}
