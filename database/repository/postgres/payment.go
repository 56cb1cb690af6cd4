package postgresRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fastaid/apperrors"
	"fastaid/models"
)

const paymentColumns = `id, booking_id, order_ref, amount, currency, outcome, created_at, settled_at`

// PostgresPaymentRepo stores payment transactions in the payment_transactions table.
type PostgresPaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PostgresPaymentRepo {
	return &PostgresPaymentRepo{db: db}
}

func scanPayment(s scanner) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	var outcome string
	var settledAt sql.NullTime
	if err := s.Scan(&tx.ID, &tx.BookingID, &tx.OrderRef, &tx.Amount, &tx.Currency, &outcome, &tx.CreatedAt, &settledAt); err != nil {
		return nil, err
	}
	tx.Outcome = models.PaymentOutcome(outcome)
	tx.SettledAt = timePtr(settledAt)
	return &tx, nil
}

// Create relies on payment_one_pending_idx to reject a second pending row.
func (r *PostgresPaymentRepo) Create(ctx context.Context, tx *models.PaymentTransaction) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_transactions (`+paymentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ID, tx.BookingID, tx.OrderRef, tx.Amount, tx.Currency, string(tx.Outcome), tx.CreatedAt, nullTime(tx.SettledAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyHandled("postgres.Payments.Create", "booking %s already has a pending payment", tx.BookingID)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *PostgresPaymentRepo) GetByOrderRef(ctx context.Context, orderRef string) (*models.PaymentTransaction, error) {
	if orderRef == "" {
		return nil, apperrors.NotFound("postgres.Payments.GetByOrderRef", "empty order reference")
	}
	return r.queryOne(ctx, "postgres.Payments.GetByOrderRef",
		`SELECT `+paymentColumns+` FROM payment_transactions WHERE order_ref = $1`, orderRef)
}

func (r *PostgresPaymentRepo) GetPendingByBooking(ctx context.Context, bookingID string) (*models.PaymentTransaction, error) {
	return r.queryOne(ctx, "postgres.Payments.GetPendingByBooking",
		`SELECT `+paymentColumns+` FROM payment_transactions WHERE booking_id = $1 AND outcome = $2`,
		bookingID, string(models.PaymentPending))
}

func (r *PostgresPaymentRepo) AttachOrderRef(ctx context.Context, id, orderRef string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, `UPDATE payment_transactions SET order_ref = $1 WHERE id = $2`, orderRef, id)
	if err != nil {
		return fmt.Errorf("failed to attach order to payment %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("postgres.Payments.AttachOrderRef", "payment %s", id)
	}
	return nil
}

func (r *PostgresPaymentRepo) Settle(ctx context.Context, id string, outcome models.PaymentOutcome, at time.Time) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx,
		`UPDATE payment_transactions SET outcome = $1, settled_at = $2 WHERE id = $3 AND outcome = $4`,
		string(outcome), at, id, string(models.PaymentPending))
	if err != nil {
		return false, fmt.Errorf("failed to settle payment %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresPaymentRepo) queryOne(ctx context.Context, op, query string, args ...any) (*models.PaymentTransaction, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	tx, err := scanPayment(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound(op, "payment not found")
		}
		return nil, fmt.Errorf("payment query failed: %w", err)
	}
	return tx, nil
}
