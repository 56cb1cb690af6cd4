package postgresRepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"fastaid/apperrors"
	"fastaid/models"
	"fastaid/utils"
)

const resourceColumns = `id, operator_name, operator_phone, license_id, lat, lon, available, verified, fcm_token, created_at, updated_at`

// PostgresResourceRepo stores transport resources in the resources table.
type PostgresResourceRepo struct {
	db *sql.DB
}

func NewResourceRepo(db *sql.DB) *PostgresResourceRepo {
	return &PostgresResourceRepo{db: db}
}

func scanResource(s scanner) (*models.Resource, error) {
	var res models.Resource
	var lat, lon float64
	err := s.Scan(&res.ID, &res.OperatorName, &res.OperatorPhone, &res.LicenseID, &lat, &lon,
		&res.Available, &res.Verified, &res.FCMToken, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	res.Location = models.NewPoint(lat, lon)
	return &res, nil
}

func (r *PostgresResourceRepo) Create(ctx context.Context, resource *models.Resource) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO resources (`+resourceColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		resource.ID, resource.OperatorName, resource.OperatorPhone, resource.LicenseID,
		resource.Location.Lat(), resource.Location.Lon(), resource.Available, resource.Verified,
		resource.FCMToken, resource.CreatedAt, resource.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyHandled("postgres.Resources.Create", "resource %s exists", resource.ID)
		}
		return fmt.Errorf("failed to create resource: %w", err)
	}
	return nil
}

func (r *PostgresResourceRepo) GetByID(ctx context.Context, id string) (*models.Resource, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = $1`, id)
	res, err := scanResource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("postgres.Resources.GetByID", "resource %s", id)
		}
		return nil, fmt.Errorf("failed to fetch resource with id %s: %w", id, err)
	}
	return res, nil
}

func (r *PostgresResourceRepo) UpdateLocation(ctx context.Context, id string, location models.GeoPoint) error {
	return r.exec(ctx, "postgres.Resources.UpdateLocation", id,
		`UPDATE resources SET lat = $1, lon = $2, updated_at = $3 WHERE id = $4`,
		location.Lat(), location.Lon(), time.Now(), id)
}

// NearestAvailable prefilters with a bounding box in SQL and applies the exact
// radius and ordering in Go.
func (r *PostgresResourceRepo) NearestAvailable(ctx context.Context, point models.GeoPoint, radiusMeters float64, limit int) ([]models.ResourceDistance, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	minLat, maxLat, minLon, maxLon := utils.BoundingBox(point, radiusMeters)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+resourceColumns+` FROM resources
		 WHERE available AND verified
		   AND lat BETWEEN $1 AND $2
		   AND lon BETWEEN $3 AND $4`,
		minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, fmt.Errorf("nearest resource query failed: %w", err)
	}
	defer rows.Close()

	var out []models.ResourceDistance
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decode resource: %w", err)
		}
		d := utils.DistanceMeters(point, res.Location)
		if d > radiusMeters {
			continue
		}
		out = append(out, models.ResourceDistance{Resource: *res, DistanceMeters: d})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].Resource.ID < out[j].Resource.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *PostgresResourceRepo) SwapAvailable(ctx context.Context, id string, expected, next bool) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx,
		`UPDATE resources SET available = $1, updated_at = $2 WHERE id = $3 AND available = $4`,
		next, time.Now(), id, expected)
	if err != nil {
		return false, fmt.Errorf("failed to swap availability of %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM resources WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check resource %s: %w", id, err)
	}
	if !exists {
		return false, apperrors.NotFound("postgres.Resources.SwapAvailable", "resource %s", id)
	}
	return false, nil
}

func (r *PostgresResourceRepo) SetAvailable(ctx context.Context, id string, available bool) error {
	return r.exec(ctx, "postgres.Resources.SetAvailable", id,
		`UPDATE resources SET available = $1, updated_at = $2 WHERE id = $3`, available, time.Now(), id)
}

func (r *PostgresResourceRepo) SetVerified(ctx context.Context, id string, verified bool) error {
	return r.exec(ctx, "postgres.Resources.SetVerified", id,
		`UPDATE resources SET verified = $1, updated_at = $2 WHERE id = $3`, verified, time.Now(), id)
}

func (r *PostgresResourceRepo) CountAvailable(ctx context.Context) (int64, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources WHERE available AND verified`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count available resources: %w", err)
	}
	return n, nil
}

func (r *PostgresResourceRepo) exec(ctx context.Context, op, id, query string, args ...any) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update resource with id %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound(op, "resource %s", id)
	}
	return nil
}
