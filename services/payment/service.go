package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fastaid/apperrors"
	"fastaid/database/repository"
	"fastaid/metrics"
	"fastaid/models"
	"fastaid/services/propagation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService correlates external payment orders with bookings.
type PaymentService interface {
	CreateOrder(ctx context.Context, bookingID string, amountMinor int64) (*CreatedOrder, error)
	ReportOutcome(ctx context.Context, bookingID, orderRef string, outcome models.PaymentOutcome) (*models.PaymentTransaction, error)
	SyncOutcome(ctx context.Context, bookingID, orderRef string) (*models.PaymentTransaction, error)
}

// CreatedOrder is a reserved transaction plus what the client needs to pay it.
type CreatedOrder struct {
	Transaction  models.PaymentTransaction `json:"transaction"`
	ClientSecret string                    `json:"clientSecret,omitempty"`
}

type DefaultPaymentService struct {
	Bookings        repository.BookingRepository
	Payments        repository.PaymentRepository
	Gateway         Gateway
	Notifier        propagation.Notifier
	DefaultCurrency string
	Logger          *zap.Logger
}

func NewPaymentService(store *repository.Store, gateway Gateway, notifier propagation.Notifier, currency string, logger *zap.Logger) *DefaultPaymentService {
	if notifier == nil {
		notifier = propagation.NopNotifier{}
	}
	return &DefaultPaymentService{
		Bookings:        store.Bookings,
		Payments:        store.Payments,
		Gateway:         gateway,
		Notifier:        notifier,
		DefaultCurrency: currency,
		Logger:          logger,
	}
}

// CreateOrder reserves a pending transaction for an accepted booking and
// opens the matching order with the gateway.
func (s *DefaultPaymentService) CreateOrder(ctx context.Context, bookingID string, amountMinor int64) (*CreatedOrder, error) {
	const op = "payment.CreateOrder"

	if amountMinor <= 0 {
		return nil, apperrors.InvalidArgument(op, "amount must be positive, got %d", amountMinor)
	}
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Internal(op, err)
	}
	if b.Status != models.BookingAccepted {
		return nil, apperrors.InvalidTransition(op, "booking %s is %s, payment needs an accepted booking", bookingID, b.Status)
	}

	currency := b.Currency
	if currency == "" {
		currency = s.DefaultCurrency
	}
	tx := &models.PaymentTransaction{
		ID:        uuid.New().String(),
		BookingID: bookingID,
		Amount:    amountMinor,
		Currency:  currency,
		Outcome:   models.PaymentPending,
		CreatedAt: time.Now(),
	}
	if err := s.Payments.Create(ctx, tx); err != nil {
		return nil, apperrors.Internal(op, err)
	}

	order, err := s.Gateway.CreateOrder(ctx, models.OrderRequest{
		BookingID:   bookingID,
		Amount:      amountMinor,
		Currency:    currency,
		Receipt:     tx.ID,
		Description: fmt.Sprintf("Ambulance booking %s", bookingID),
		Metadata:    map[string]string{"transactionId": tx.ID},
	})
	if err != nil {
		return nil, s.abandon(ctx, op, tx, err)
	}

	if err := s.Payments.AttachOrderRef(ctx, tx.ID, order.Ref); err != nil {
		s.Logger.Error("Failed to attach order reference",
			zap.String("transactionID", tx.ID),
			zap.String("orderRef", order.Ref),
			zap.Error(err))
		return nil, apperrors.Internal(op, err)
	}
	tx.OrderRef = order.Ref

	s.Logger.Info("Payment order created",
		zap.String("bookingID", bookingID),
		zap.String("transactionID", tx.ID),
		zap.String("orderRef", order.Ref),
		zap.Int64("amount", amountMinor))
	s.Notifier.Notify(paymentSignals(b, tx.ID, models.ChangePaymentCreated)...)
	return &CreatedOrder{Transaction: *tx, ClientSecret: order.ClientSecret}, nil
}

// abandon settles the reservation after a failed gateway call. A caller
// deadline leaves it pending: the gateway may still have opened the order and
// its outcome will arrive through ReportOutcome.
func (s *DefaultPaymentService) abandon(ctx context.Context, op string, tx *models.PaymentTransaction, cause error) error {
	if ctx.Err() != nil {
		s.Logger.Warn("Payment order timed out, reservation stays pending",
			zap.String("transactionID", tx.ID), zap.Error(cause))
		return apperrors.Wrap(apperrors.KindExternalServiceUnavailable, op, cause)
	}

	outcome := models.PaymentCancelled
	kind := apperrors.KindExternalServiceUnavailable
	if errors.Is(cause, apperrors.ErrPaymentFailed) {
		outcome = models.PaymentFailed
		kind = apperrors.KindPaymentFailed
	}
	if _, err := s.Payments.Settle(context.WithoutCancel(ctx), tx.ID, outcome, time.Now()); err != nil {
		s.Logger.Error("Failed to settle abandoned reservation",
			zap.String("transactionID", tx.ID), zap.Error(err))
	}
	metrics.PaymentOutcomes.WithLabelValues(string(outcome)).Inc()
	s.Logger.Warn("Payment order failed",
		zap.String("bookingID", tx.BookingID),
		zap.String("outcome", string(outcome)),
		zap.Error(cause))
	return apperrors.Wrap(kind, op, cause)
}

// ReportOutcome records the terminal outcome of an order. It is the only
// writer of a transaction's outcome, and re-reporting the same outcome is a
// no-op.
func (s *DefaultPaymentService) ReportOutcome(ctx context.Context, bookingID, orderRef string, outcome models.PaymentOutcome) (*models.PaymentTransaction, error) {
	const op = "payment.ReportOutcome"

	if !outcome.Terminal() {
		return nil, apperrors.InvalidArgument(op, "outcome %q is not terminal", outcome)
	}
	tx, err := s.lookup(ctx, op, bookingID, orderRef)
	if err != nil {
		return nil, err
	}

	if tx.Outcome.Terminal() {
		return s.alreadySettled(ctx, op, tx, outcome)
	}

	at := time.Now()
	ok, err := s.Payments.Settle(ctx, tx.ID, outcome, at)
	if err != nil {
		return nil, apperrors.Internal(op, err)
	}
	if !ok {
		current, err := s.Payments.GetByOrderRef(ctx, orderRef)
		if err != nil {
			return nil, apperrors.Internal(op, err)
		}
		return s.alreadySettled(ctx, op, current, outcome)
	}
	tx.Outcome = outcome
	tx.SettledAt = &at
	metrics.PaymentOutcomes.WithLabelValues(string(outcome)).Inc()

	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, apperrors.Internal(op, err)
	}
	if outcome == models.PaymentSuccess {
		if err := s.Bookings.SetPaymentStatus(ctx, bookingID, true); err != nil {
			return nil, apperrors.Internal(op, err)
		}
		s.Notifier.Notify(propagation.BookingSignals(b, models.ChangeBookingPaid)...)
	}

	s.Logger.Info("Payment settled",
		zap.String("bookingID", bookingID),
		zap.String("orderRef", orderRef),
		zap.String("outcome", string(outcome)))
	s.Notifier.Notify(paymentSignals(b, tx.ID, models.ChangePaymentSettled)...)
	return tx, nil
}

// lookup finds the transaction for an order. A reservation whose gateway call
// timed out has no reference yet; the first outcome for its booking claims it.
func (s *DefaultPaymentService) lookup(ctx context.Context, op, bookingID, orderRef string) (*models.PaymentTransaction, error) {
	if orderRef == "" {
		return nil, apperrors.InvalidArgument(op, "order reference is required")
	}
	tx, err := s.Payments.GetByOrderRef(ctx, orderRef)
	if err == nil {
		if tx.BookingID != bookingID {
			return nil, apperrors.NotFound(op, "order %s does not belong to booking %s", orderRef, bookingID)
		}
		return tx, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.Internal(op, err)
	}

	pending, err := s.Payments.GetPendingByBooking(ctx, bookingID)
	if err != nil || pending.OrderRef != "" {
		return nil, apperrors.NotFound(op, "order %s for booking %s", orderRef, bookingID)
	}
	if err := s.Payments.AttachOrderRef(ctx, pending.ID, orderRef); err != nil {
		return nil, apperrors.Internal(op, err)
	}
	pending.OrderRef = orderRef
	return pending, nil
}

// alreadySettled answers a repeated outcome. A repeated success writes the
// booking's paid flag again, since the first report may have settled the
// transaction and then failed before reaching the booking.
func (s *DefaultPaymentService) alreadySettled(ctx context.Context, op string, tx *models.PaymentTransaction, outcome models.PaymentOutcome) (*models.PaymentTransaction, error) {
	if tx.Outcome != outcome {
		return nil, apperrors.AlreadyHandled(op, "order %s already settled as %s", tx.OrderRef, tx.Outcome)
	}
	if outcome != models.PaymentSuccess {
		return tx, nil
	}
	b, err := s.Bookings.GetByID(ctx, tx.BookingID)
	if err != nil {
		return nil, apperrors.Internal(op, err)
	}
	if b.PaymentStatus {
		return tx, nil
	}
	if err := s.Bookings.SetPaymentStatus(ctx, tx.BookingID, true); err != nil {
		return nil, apperrors.Internal(op, err)
	}
	s.Logger.Warn("Payment flag repaired on repeated outcome",
		zap.String("bookingID", tx.BookingID),
		zap.String("orderRef", tx.OrderRef))
	s.Notifier.Notify(propagation.BookingSignals(b, models.ChangeBookingPaid)...)
	return tx, nil
}

// SyncOutcome settles an order from the gateway's own view of it. Clients
// use it after checkout; a pending order is returned unchanged.
func (s *DefaultPaymentService) SyncOutcome(ctx context.Context, bookingID, orderRef string) (*models.PaymentTransaction, error) {
	const op = "payment.SyncOutcome"

	if orderRef == "" {
		return nil, apperrors.InvalidArgument(op, "order reference is required")
	}
	state, err := s.Gateway.GetOrder(ctx, orderRef)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.KindExternalServiceUnavailable, op, err)
	}
	if state.BookingID != bookingID {
		return nil, apperrors.NotFound(op, "order %s does not belong to booking %s", orderRef, bookingID)
	}
	if !state.Outcome.Terminal() {
		return s.lookup(ctx, op, bookingID, orderRef)
	}
	return s.ReportOutcome(ctx, bookingID, orderRef, state.Outcome)
}

func paymentSignals(b *models.Booking, transactionID, change string) []models.ChangeSignal {
	signals := propagation.BookingSignals(b, change)
	for i := range signals {
		signals[i].Entity = models.EntityPayment
		signals[i].EntityID = transactionID
	}
	return signals
}
