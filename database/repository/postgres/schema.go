package postgresRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fastaid/models"

	"github.com/jackc/pgx/v5/pgconn"
)

const schema = `
CREATE TABLE IF NOT EXISTS requesters (
	id           TEXT PRIMARY KEY,
	phone_number TEXT NOT NULL,
	name         TEXT NOT NULL,
	lat          DOUBLE PRECISION NOT NULL,
	lon          DOUBLE PRECISION NOT NULL,
	fcm_token    TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS resources (
	id             TEXT PRIMARY KEY,
	operator_name  TEXT NOT NULL,
	operator_phone TEXT NOT NULL,
	license_id     TEXT NOT NULL,
	lat            DOUBLE PRECISION NOT NULL,
	lon            DOUBLE PRECISION NOT NULL,
	available      BOOLEAN NOT NULL DEFAULT TRUE,
	verified       BOOLEAN NOT NULL DEFAULT FALSE,
	fcm_token      TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS resources_bookable_idx ON resources (lat, lon) WHERE available AND verified;

CREATE TABLE IF NOT EXISTS bookings (
	id                    TEXT PRIMARY KEY,
	requester_id          TEXT NOT NULL REFERENCES requesters (id),
	resource_id           TEXT NOT NULL REFERENCES resources (id),
	pickup_lat            DOUBLE PRECISION NOT NULL,
	pickup_lon            DOUBLE PRECISION NOT NULL,
	destination_lat       DOUBLE PRECISION NOT NULL,
	destination_lon       DOUBLE PRECISION NOT NULL,
	status                TEXT NOT NULL,
	estimated_cost        BIGINT NOT NULL,
	currency              TEXT NOT NULL,
	estimated_time_sec    INTEGER NOT NULL,
	eta_known             BOOLEAN NOT NULL,
	route_distance_meters DOUBLE PRECISION NOT NULL,
	payment_status        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL,
	accepted_at           TIMESTAMPTZ,
	closed_at             TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS bookings_requester_idx ON bookings (requester_id, created_at DESC);
CREATE INDEX IF NOT EXISTS bookings_resource_idx ON bookings (resource_id, status);

CREATE TABLE IF NOT EXISTS payment_transactions (
	id         TEXT PRIMARY KEY,
	booking_id TEXT NOT NULL REFERENCES bookings (id),
	order_ref  TEXT NOT NULL DEFAULT '',
	amount     BIGINT NOT NULL,
	currency   TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	settled_at TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS payment_one_pending_idx ON payment_transactions (booking_id) WHERE outcome = 'pending';
CREATE INDEX IF NOT EXISTS payment_order_ref_idx ON payment_transactions (order_ref) WHERE order_ref <> '';
`

// Migrate applies the schema. Every statement is idempotent.
func Migrate(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func newContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// statusPlaceholders renders "$n, $n+1, ..." for an IN list starting at position start.
func statusPlaceholders(start int, statuses []models.BookingStatus) (string, []any) {
	holders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		holders[i] = fmt.Sprintf("$%d", start+i)
		args[i] = string(s)
	}
	return strings.Join(holders, ", "), args
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

type scanner interface {
	Scan(dest ...any) error
}
