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

const bookingColumns = `id, requester_id, resource_id, pickup_lat, pickup_lon, destination_lat, destination_lon,
	status, estimated_cost, currency, estimated_time_sec, eta_known, route_distance_meters,
	payment_status, created_at, updated_at, accepted_at, closed_at`

// PostgresBookingRepo stores bookings in the bookings table.
type PostgresBookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *PostgresBookingRepo {
	return &PostgresBookingRepo{db: db}
}

func scanBooking(s scanner) (*models.Booking, error) {
	var b models.Booking
	var pLat, pLon, dLat, dLon float64
	var status string
	var acceptedAt, closedAt sql.NullTime
	err := s.Scan(&b.ID, &b.RequesterID, &b.ResourceID, &pLat, &pLon, &dLat, &dLon,
		&status, &b.EstimatedCost, &b.Currency, &b.EstimatedTimeSec, &b.ETAKnown, &b.RouteDistanceMeters,
		&b.PaymentStatus, &b.CreatedAt, &b.UpdatedAt, &acceptedAt, &closedAt)
	if err != nil {
		return nil, err
	}
	b.Pickup = models.NewPoint(pLat, pLon)
	b.Destination = models.NewPoint(dLat, dLon)
	b.Status = models.BookingStatus(status)
	b.AcceptedAt = timePtr(acceptedAt)
	b.ClosedAt = timePtr(closedAt)
	return &b, nil
}

func (r *PostgresBookingRepo) Create(ctx context.Context, b *models.Booking) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		b.ID, b.RequesterID, b.ResourceID,
		b.Pickup.Lat(), b.Pickup.Lon(), b.Destination.Lat(), b.Destination.Lon(),
		string(b.Status), b.EstimatedCost, b.Currency, b.EstimatedTimeSec, b.ETAKnown, b.RouteDistanceMeters,
		b.PaymentStatus, b.CreatedAt, b.UpdatedAt, nullTime(b.AcceptedAt), nullTime(b.ClosedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyHandled("postgres.Bookings.Create", "booking %s exists", b.ID)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *PostgresBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("postgres.Bookings.GetByID", "booking %s", id)
		}
		return nil, fmt.Errorf("failed to fetch booking with id %s: %w", id, err)
	}
	return b, nil
}

// TransitionStatus is one conditional UPDATE; a zero row count means the
// booking was not in an allowed status (or not held by resourceID).
func (r *PostgresBookingRepo) TransitionStatus(ctx context.Context, id string, from []models.BookingStatus, next models.BookingStatus, resourceID string, at time.Time) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var acceptedAt, closedAt sql.NullTime
	if next == models.BookingAccepted {
		acceptedAt = sql.NullTime{Time: at, Valid: true}
	}
	if next.Terminal() {
		closedAt = sql.NullTime{Time: at, Valid: true}
	}

	in, statusArgs := statusPlaceholders(5, from)
	query := `UPDATE bookings SET status = $1, updated_at = $2,
		accepted_at = COALESCE($3, accepted_at), closed_at = COALESCE($4, closed_at)
		WHERE status IN (` + in + `) AND id = $` + fmt.Sprint(5+len(from))
	args := append([]any{string(next), at, acceptedAt, closedAt}, statusArgs...)
	args = append(args, id)
	if resourceID != "" {
		query += ` AND resource_id = $` + fmt.Sprint(6+len(from))
		args = append(args, resourceID)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to transition booking %s to %s: %w", id, next, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresBookingRepo) SetPaymentStatus(ctx context.Context, id string, paid bool) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET payment_status = $1, updated_at = $2 WHERE id = $3`, paid, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update payment status of booking %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("postgres.Bookings.SetPaymentStatus", "booking %s", id)
	}
	return nil
}

func (r *PostgresBookingRepo) ListByRequester(ctx context.Context, requesterID string) ([]models.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE requester_id = $1
		ORDER BY created_at DESC, id`, requesterID)
}

func (r *PostgresBookingRepo) ListByResource(ctx context.Context, resourceID string, statuses []models.BookingStatus) ([]models.Booking, error) {
	if len(statuses) == 0 {
		return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE resource_id = $1
			ORDER BY created_at DESC, id`, resourceID)
	}
	in, args := statusPlaceholders(2, statuses)
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE resource_id = $1 AND status IN (`+in+`)
		ORDER BY created_at DESC, id`, append([]any{resourceID}, args...)...)
}

func (r *PostgresBookingRepo) CountActive(ctx context.Context, requesterID string) (int64, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	in, args := statusPlaceholders(1, models.ActiveStatuses)
	query := `SELECT COUNT(*) FROM bookings WHERE status IN (` + in + `)`
	if requesterID != "" {
		query += ` AND requester_id = $` + fmt.Sprint(1+len(args))
		args = append(args, requesterID)
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active bookings: %w", err)
	}
	return n, nil
}

func (r *PostgresBookingRepo) RecentCompleted(ctx context.Context, limit int) ([]models.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE status = $1
		ORDER BY created_at DESC, id LIMIT $2`, string(models.BookingCompleted), limit)
}

func (r *PostgresBookingRepo) query(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("booking query failed: %w", err)
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return out, nil
}
