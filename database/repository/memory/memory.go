// Package memoryRepo is a mutex-guarded in-process store. Every conditional
// write runs under the same lock so it behaves like a single-row CAS.
package memoryRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"fastaid/apperrors"
	"fastaid/models"
	"fastaid/utils"
)

// DB holds all entity maps behind one lock.
type DB struct {
	mu         sync.RWMutex
	requesters map[string]models.Requester
	resources  map[string]models.Resource
	bookings   map[string]models.Booking
	payments   map[string]models.PaymentTransaction
}

func New() *DB {
	return &DB{
		requesters: make(map[string]models.Requester),
		resources:  make(map[string]models.Resource),
		bookings:   make(map[string]models.Booking),
		payments:   make(map[string]models.PaymentTransaction),
	}
}

func (db *DB) Requesters() *RequesterRepo { return &RequesterRepo{db: db} }
func (db *DB) Resources() *ResourceRepo   { return &ResourceRepo{db: db} }
func (db *DB) Bookings() *BookingRepo     { return &BookingRepo{db: db} }
func (db *DB) Payments() *PaymentRepo     { return &PaymentRepo{db: db} }

// RequesterRepo implements the requester repository in memory.
type RequesterRepo struct{ db *DB }

func (r *RequesterRepo) Create(_ context.Context, requester *models.Requester) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.requesters[requester.ID]; ok {
		return apperrors.AlreadyHandled("memory.Requesters.Create", "requester %s exists", requester.ID)
	}
	r.db.requesters[requester.ID] = *requester
	return nil
}

func (r *RequesterRepo) GetByID(_ context.Context, id string) (*models.Requester, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	req, ok := r.db.requesters[id]
	if !ok {
		return nil, apperrors.NotFound("memory.Requesters.GetByID", "requester %s", id)
	}
	return &req, nil
}

func (r *RequesterRepo) UpdateLocation(_ context.Context, id string, location models.GeoPoint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	req, ok := r.db.requesters[id]
	if !ok {
		return apperrors.NotFound("memory.Requesters.UpdateLocation", "requester %s", id)
	}
	req.Location = location
	req.UpdatedAt = time.Now()
	r.db.requesters[id] = req
	return nil
}

// ResourceRepo implements the resource repository in memory.
type ResourceRepo struct{ db *DB }

func (r *ResourceRepo) Create(_ context.Context, resource *models.Resource) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.resources[resource.ID]; ok {
		return apperrors.AlreadyHandled("memory.Resources.Create", "resource %s exists", resource.ID)
	}
	r.db.resources[resource.ID] = *resource
	return nil
}

func (r *ResourceRepo) GetByID(_ context.Context, id string) (*models.Resource, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	res, ok := r.db.resources[id]
	if !ok {
		return nil, apperrors.NotFound("memory.Resources.GetByID", "resource %s", id)
	}
	return &res, nil
}

func (r *ResourceRepo) UpdateLocation(_ context.Context, id string, location models.GeoPoint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	res, ok := r.db.resources[id]
	if !ok {
		return apperrors.NotFound("memory.Resources.UpdateLocation", "resource %s", id)
	}
	res.Location = location
	res.UpdatedAt = time.Now()
	r.db.resources[id] = res
	return nil
}

// NearestAvailable scans every resource; fine for the sizes this store serves.
func (r *ResourceRepo) NearestAvailable(_ context.Context, point models.GeoPoint, radiusMeters float64, limit int) ([]models.ResourceDistance, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var out []models.ResourceDistance
	for _, res := range r.db.resources {
		if !res.Bookable() {
			continue
		}
		d := utils.DistanceMeters(point, res.Location)
		if d > radiusMeters {
			continue
		}
		out = append(out, models.ResourceDistance{Resource: res, DistanceMeters: d})
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

func (r *ResourceRepo) SwapAvailable(_ context.Context, id string, expected, next bool) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	res, ok := r.db.resources[id]
	if !ok {
		return false, apperrors.NotFound("memory.Resources.SwapAvailable", "resource %s", id)
	}
	if res.Available != expected {
		return false, nil
	}
	res.Available = next
	res.UpdatedAt = time.Now()
	r.db.resources[id] = res
	return true, nil
}

func (r *ResourceRepo) SetAvailable(_ context.Context, id string, available bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	res, ok := r.db.resources[id]
	if !ok {
		return apperrors.NotFound("memory.Resources.SetAvailable", "resource %s", id)
	}
	res.Available = available
	res.UpdatedAt = time.Now()
	r.db.resources[id] = res
	return nil
}

func (r *ResourceRepo) SetVerified(_ context.Context, id string, verified bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	res, ok := r.db.resources[id]
	if !ok {
		return apperrors.NotFound("memory.Resources.SetVerified", "resource %s", id)
	}
	res.Verified = verified
	res.UpdatedAt = time.Now()
	r.db.resources[id] = res
	return nil
}

func (r *ResourceRepo) CountAvailable(_ context.Context) (int64, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var n int64
	for _, res := range r.db.resources {
		if res.Bookable() {
			n++
		}
	}
	return n, nil
}

// BookingRepo implements the booking repository in memory.
type BookingRepo struct{ db *DB }

func (r *BookingRepo) Create(_ context.Context, booking *models.Booking) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.bookings[booking.ID]; ok {
		return apperrors.AlreadyHandled("memory.Bookings.Create", "booking %s exists", booking.ID)
	}
	r.db.bookings[booking.ID] = *booking
	return nil
}

func (r *BookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	b, ok := r.db.bookings[id]
	if !ok {
		return nil, apperrors.NotFound("memory.Bookings.GetByID", "booking %s", id)
	}
	return &b, nil
}

func (r *BookingRepo) TransitionStatus(_ context.Context, id string, from []models.BookingStatus, next models.BookingStatus, resourceID string, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bookings[id]
	if !ok {
		return false, nil
	}
	if !containsStatus(from, b.Status) {
		return false, nil
	}
	if resourceID != "" && b.ResourceID != resourceID {
		return false, nil
	}
	b.Status = next
	b.UpdatedAt = at
	if next == models.BookingAccepted {
		b.AcceptedAt = &at
	}
	if next.Terminal() {
		b.ClosedAt = &at
	}
	r.db.bookings[id] = b
	return true, nil
}

func (r *BookingRepo) SetPaymentStatus(_ context.Context, id string, paid bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	b, ok := r.db.bookings[id]
	if !ok {
		return apperrors.NotFound("memory.Bookings.SetPaymentStatus", "booking %s", id)
	}
	b.PaymentStatus = paid
	b.UpdatedAt = time.Now()
	r.db.bookings[id] = b
	return nil
}

func (r *BookingRepo) ListByRequester(_ context.Context, requesterID string) ([]models.Booking, error) {
	return r.filter(func(b models.Booking) bool { return b.RequesterID == requesterID }), nil
}

func (r *BookingRepo) ListByResource(_ context.Context, resourceID string, statuses []models.BookingStatus) ([]models.Booking, error) {
	return r.filter(func(b models.Booking) bool {
		return b.ResourceID == resourceID && (len(statuses) == 0 || containsStatus(statuses, b.Status))
	}), nil
}

func (r *BookingRepo) CountActive(_ context.Context, requesterID string) (int64, error) {
	active := r.filter(func(b models.Booking) bool {
		return (requesterID == "" || b.RequesterID == requesterID) && containsStatus(models.ActiveStatuses, b.Status)
	})
	return int64(len(active)), nil
}

func (r *BookingRepo) RecentCompleted(_ context.Context, limit int) ([]models.Booking, error) {
	out := r.filter(func(b models.Booking) bool { return b.Status == models.BookingCompleted })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// filter returns matching bookings, newest first.
func (r *BookingRepo) filter(keep func(models.Booking) bool) []models.Booking {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []models.Booking
	for _, b := range r.db.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func containsStatus(statuses []models.BookingStatus, s models.BookingStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// PaymentRepo implements the payment repository in memory.
type PaymentRepo struct{ db *DB }

func (r *PaymentRepo) Create(_ context.Context, tx *models.PaymentTransaction) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if tx.Outcome == models.PaymentPending {
		for _, existing := range r.db.payments {
			if existing.BookingID == tx.BookingID && existing.Outcome == models.PaymentPending {
				return apperrors.AlreadyHandled("memory.Payments.Create", "booking %s already has a pending payment", tx.BookingID)
			}
		}
	}
	r.db.payments[tx.ID] = *tx
	return nil
}

func (r *PaymentRepo) GetByOrderRef(_ context.Context, orderRef string) (*models.PaymentTransaction, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, tx := range r.db.payments {
		if orderRef != "" && tx.OrderRef == orderRef {
			return &tx, nil
		}
	}
	return nil, apperrors.NotFound("memory.Payments.GetByOrderRef", "order %s", orderRef)
}

func (r *PaymentRepo) GetPendingByBooking(_ context.Context, bookingID string) (*models.PaymentTransaction, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, tx := range r.db.payments {
		if tx.BookingID == bookingID && tx.Outcome == models.PaymentPending {
			return &tx, nil
		}
	}
	return nil, apperrors.NotFound("memory.Payments.GetPendingByBooking", "pending payment for booking %s", bookingID)
}

func (r *PaymentRepo) AttachOrderRef(_ context.Context, id, orderRef string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	tx, ok := r.db.payments[id]
	if !ok {
		return apperrors.NotFound("memory.Payments.AttachOrderRef", "payment %s", id)
	}
	tx.OrderRef = orderRef
	r.db.payments[id] = tx
	return nil
}

func (r *PaymentRepo) Settle(_ context.Context, id string, outcome models.PaymentOutcome, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	tx, ok := r.db.payments[id]
	if !ok || tx.Outcome != models.PaymentPending {
		return false, nil
	}
	tx.Outcome = outcome
	tx.SettledAt = &at
	r.db.payments[id] = tx
	return true, nil
}
