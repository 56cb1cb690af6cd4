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

// PostgresRequesterRepo stores requesters in the requesters table.
type PostgresRequesterRepo struct {
	db *sql.DB
}

func NewRequesterRepo(db *sql.DB) *PostgresRequesterRepo {
	return &PostgresRequesterRepo{db: db}
}

func (r *PostgresRequesterRepo) Create(ctx context.Context, requester *models.Requester) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO requesters (id, phone_number, name, lat, lon, fcm_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		requester.ID, requester.PhoneNumber, requester.Name,
		requester.Location.Lat(), requester.Location.Lon(), requester.FCMToken,
		requester.CreatedAt, requester.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyHandled("postgres.Requesters.Create", "requester %s exists", requester.ID)
		}
		return fmt.Errorf("failed to create requester: %w", err)
	}
	return nil
}

func (r *PostgresRequesterRepo) GetByID(ctx context.Context, id string) (*models.Requester, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	row := r.db.QueryRowContext(ctx,
		`SELECT id, phone_number, name, lat, lon, fcm_token, created_at, updated_at
		 FROM requesters WHERE id = $1`, id)

	var req models.Requester
	var lat, lon float64
	err := row.Scan(&req.ID, &req.PhoneNumber, &req.Name, &lat, &lon, &req.FCMToken, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("postgres.Requesters.GetByID", "requester %s", id)
		}
		return nil, fmt.Errorf("failed to fetch requester with id %s: %w", id, err)
	}
	req.Location = models.NewPoint(lat, lon)
	return &req, nil
}

func (r *PostgresRequesterRepo) UpdateLocation(ctx context.Context, id string, location models.GeoPoint) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx,
		`UPDATE requesters SET lat = $1, lon = $2, updated_at = $3 WHERE id = $4`,
		location.Lat(), location.Lon(), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update requester with id %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("postgres.Requesters.UpdateLocation", "requester %s", id)
	}
	return nil
}
