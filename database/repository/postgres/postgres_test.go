package postgresRepo

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"fastaid/apperrors"
	"fastaid/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return db, mock, func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	}
}

func TestTransitionStatusReportsWinner(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewBookingRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	from := []models.BookingStatus{models.BookingPending}
	ok, err := repo.TransitionStatus(context.Background(), "b1", from, models.BookingAccepted, "r1", time.Now())
	if err != nil || !ok {
		t.Fatalf("expected first transition to win, got %v, %v", ok, err)
	}
	ok, err = repo.TransitionStatus(context.Background(), "b1", from, models.BookingAccepted, "r1", time.Now())
	if err != nil || ok {
		t.Fatalf("expected second transition to lose, got %v, %v", ok, err)
	}
}

func TestTransitionStatusQueryShape(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewBookingRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE status IN ($5, $6) AND id = $7")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	from := []models.BookingStatus{models.BookingPending, models.BookingAccepted}
	if _, err := repo.TransitionStatus(context.Background(), "b1", from, models.BookingCancelled, "", time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSwapAvailableMissingResource(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewResourceRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE resources SET available = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.SwapAvailable(context.Background(), "ghost", true, false)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSwapAvailableLostRace(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewResourceRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE resources SET available = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.SwapAvailable(context.Background(), "r1", true, false)
	if err != nil || ok {
		t.Fatalf("expected lost claim without error, got %v, %v", ok, err)
	}
}

func TestAffectedRowsErrorSurfaces(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	resources := NewResourceRepo(db)
	bookings := NewBookingRepo(db)
	driverErr := errors.New("driver cannot report affected rows")

	mock.ExpectExec(regexp.QuoteMeta("UPDATE resources SET available = $1")).
		WillReturnResult(sqlmock.NewErrorResult(driverErr))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE resources SET verified = $1")).
		WillReturnResult(sqlmock.NewErrorResult(driverErr))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET payment_status = $1")).
		WillReturnResult(sqlmock.NewErrorResult(driverErr))

	ok, err := resources.SwapAvailable(context.Background(), "r1", true, false)
	if !errors.Is(err, driverErr) || ok {
		t.Fatalf("swap: expected driver error, got %v, %v", ok, err)
	}
	if err := resources.SetVerified(context.Background(), "r1", true); !errors.Is(err, driverErr) {
		t.Fatalf("set verified: expected driver error, got %v", err)
	}
	if err := bookings.SetPaymentStatus(context.Background(), "b1", true); !errors.Is(err, driverErr) {
		t.Fatalf("set payment status: expected driver error, got %v", err)
	}
}

func TestNearestAvailableOrdersByDistanceThenID(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewResourceRepo(db)

	now := time.Now()
	cols := []string{"id", "operator_name", "operator_phone", "license_id", "lat", "lon",
		"available", "verified", "fcm_token", "created_at", "updated_at"}
	rows := sqlmock.NewRows(cols).
		AddRow("C", "c", "", "", 10.0108, 10.0, true, true, "", now, now).
		AddRow("A", "a", "", "", 10.027, 10.0, true, true, "", now, now).
		AddRow("B", "b", "", "", 10.0108, 10.0, true, true, "", now, now).
		AddRow("Z", "z", "", "", 10.05, 10.0, true, true, "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM resources")).WillReturnRows(rows)

	got, err := repo.NearestAvailable(context.Background(), models.NewPoint(10, 10), 5000, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Z sits ~5.6 km away and falls outside the exact radius.
	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[0].Resource.ID != "B" || got[1].Resource.ID != "C" || got[2].Resource.ID != "A" {
		t.Fatalf("unexpected order: %s %s %s", got[0].Resource.ID, got[1].Resource.ID, got[2].Resource.ID)
	}
}

func TestCreatePaymentDuplicatePending(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewPaymentRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payment_transactions")).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	err := repo.Create(context.Background(), &models.PaymentTransaction{
		ID: "p2", BookingID: "b1", Amount: 4500, Currency: "inr", Outcome: models.PaymentPending, CreatedAt: time.Now(),
	})
	if !errors.Is(err, apperrors.ErrAlreadyHandled) {
		t.Fatalf("expected already handled, got %v", err)
	}
}

func TestGetBookingNotFound(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewBookingRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSettleOnlyFromPending(t *testing.T) {
	db, mock, done := newMock(t)
	defer done()
	repo := NewPaymentRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE payment_transactions SET outcome = $1")).
		WithArgs("success", sqlmock.AnyArg(), "p1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Settle(context.Background(), "p1", models.PaymentSuccess, time.Now())
	if err != nil || ok {
		t.Fatalf("expected no-op settle, got %v, %v", ok, err)
	}
}
