package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PrescriptionService is the refill state machine. Refill counters are written only
// here, and only while the prescription row is locked.
type PrescriptionService interface {
	// Upload registers a prescription identified by the content hash of its file.
	// Deduplication is global: a hash already uploaded by any user yields ErrDuplicate.
	Upload(ctx context.Context, userID int64, uid string, refillAllowed int) (*Prescription, error)
	// Dispense consumes one refill. overrideRefillAllowed, when non-nil, replaces the
	// allowed count before the bound check.
	Dispense(ctx context.Context, prescriptionID, pharmacistID int64, overrideRefillAllowed *int) (*Prescription, error)
	// Reject moves a pending or partially filled prescription to the terminal rejected state.
	Reject(ctx context.Context, prescriptionID, pharmacistID int64, reason string) (*Prescription, error)

	GetPrescription(ctx context.Context, prescriptionID int64) (*Prescription, error)
	// ListPrescriptions returns prescriptions newest first. A nil userID lists all.
	ListPrescriptions(ctx context.Context, userID *int64, limit int) ([]Prescription, error)
	ListDispenses(ctx context.Context, prescriptionID int64) ([]Dispense, error)
}

type prescriptionService struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func NewPrescriptionService(pool *pgxpool.Pool, lockTimeout time.Duration) PrescriptionService {
	return &prescriptionService{pool: pool, lockTimeout: lockTimeout}
}

// HashContent returns the hex SHA-256 digest of r, used as a prescription uid.
func HashContent(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

const prescriptionColumns = `id, uid, user_id, refill_allowed, refill_used, status, rejection_reason, created_at, updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.UID, &p.UserID, &p.RefillAllowed, &p.RefillUsed, &p.Status,
		&p.RejectionReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func fetchPrescription(ctx context.Context, q pgxQuerier, prescriptionID int64, forUpdate bool) (*Prescription, error) {
	query := "SELECT " + prescriptionColumns + " FROM prescriptions WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	p, err := scanPrescription(q.QueryRow(ctx, query, prescriptionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: prescription %d", ErrNotFound, prescriptionID)
		}
		return nil, classifyDBError(fmt.Sprintf("failed to fetch prescription %d", prescriptionID), err, ErrInternal)
	}
	return p, nil
}

// ── Transitions ───────────────────────────────────────────────────────────────

func (s *prescriptionService) Upload(ctx context.Context, userID int64, uid string, refillAllowed int) (*Prescription, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, validationErrorf("prescription uid is required")
	}
	if userID <= 0 {
		return nil, validationErrorf("invalid user id %d", userID)
	}
	if refillAllowed < 0 {
		return nil, validationErrorf("refill allowed must not be negative, got %d", refillAllowed)
	}

	p, err := scanPrescription(s.pool.QueryRow(ctx, `
		INSERT INTO prescriptions (uid, user_id, refill_allowed, refill_used, status)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (uid) DO NOTHING
		RETURNING `+prescriptionColumns,
		uid, userID, refillAllowed, string(PrescriptionPending),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: prescription %s already uploaded", ErrDuplicate, uid)
		}
		return nil, classifyDBError("failed to insert prescription", err, ErrInternal)
	}
	return p, nil
}

func (s *prescriptionService) Dispense(ctx context.Context, prescriptionID, pharmacistID int64, overrideRefillAllowed *int) (*Prescription, error) {
	tx, err := beginTx(ctx, s.pool, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := fetchPrescription(ctx, tx, prescriptionID, true)
	if err != nil {
		return nil, err
	}
	if err := p.dispense(overrideRefillAllowed); err != nil {
		return nil, err
	}

	updated, err := scanPrescription(tx.QueryRow(ctx, `
		UPDATE prescriptions
		SET refill_allowed = $1, refill_used = $2, status = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING `+prescriptionColumns,
		p.RefillAllowed, p.RefillUsed, string(p.Status), p.ID,
	))
	if err != nil {
		return nil, classifyDBError(fmt.Sprintf("failed to update prescription %d", p.ID), err, ErrInternal)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO prescription_dispenses (prescription_id, pharmacist_id, refill_number)
		VALUES ($1, $2, $3)
	`, p.ID, pharmacistID, p.RefillUsed)
	if err != nil {
		return nil, classifyDBError(fmt.Sprintf("failed to record dispense for prescription %d", p.ID), err, ErrInternal)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyDBError("failed to commit dispense", err, ErrInternal)
	}
	return updated, nil
}

func (s *prescriptionService) Reject(ctx context.Context, prescriptionID, pharmacistID int64, reason string) (*Prescription, error) {
	tx, err := beginTx(ctx, s.pool, s.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := fetchPrescription(ctx, tx, prescriptionID, true)
	if err != nil {
		return nil, err
	}
	if err := p.reject(strings.TrimSpace(reason)); err != nil {
		return nil, err
	}

	updated, err := scanPrescription(tx.QueryRow(ctx, `
		UPDATE prescriptions
		SET status = $1, rejection_reason = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+prescriptionColumns,
		string(p.Status), p.RejectionReason, p.ID,
	))
	if err != nil {
		return nil, classifyDBError(fmt.Sprintf("failed to reject prescription %d (by %d)", p.ID, pharmacistID), err, ErrInternal)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classifyDBError("failed to commit rejection", err, ErrInternal)
	}
	return updated, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *prescriptionService) GetPrescription(ctx context.Context, prescriptionID int64) (*Prescription, error) {
	return fetchPrescription(ctx, s.pool, prescriptionID, false)
}

func (s *prescriptionService) ListPrescriptions(ctx context.Context, userID *int64, limit int) ([]Prescription, error) {
	limit = clampLimit(limit)

	rows, err := s.pool.Query(ctx, `
		SELECT `+prescriptionColumns+`
		FROM prescriptions
		WHERE ($1::bigint IS NULL OR user_id = $1)
		ORDER BY id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, classifyDBError("failed to query prescriptions", err, ErrInternal)
	}
	defer rows.Close()

	var out []Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prescription: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyDBError("failed to iterate prescriptions", err, ErrInternal)
	}
	return out, nil
}

func (s *prescriptionService) ListDispenses(ctx context.Context, prescriptionID int64) ([]Dispense, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, prescription_id, pharmacist_id, refill_number, created_at
		FROM prescription_dispenses
		WHERE prescription_id = $1
		ORDER BY refill_number
	`, prescriptionID)
	if err != nil {
		return nil, classifyDBError(fmt.Sprintf("failed to query dispenses for prescription %d", prescriptionID), err, ErrInternal)
	}
	defer rows.Close()

	var out []Dispense
	for rows.Next() {
		var d Dispense
		if err := rows.Scan(&d.ID, &d.PrescriptionID, &d.PharmacistID, &d.RefillNumber, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dispense: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyDBError("failed to iterate dispenses", err, ErrInternal)
	}
	return out, nil
}
