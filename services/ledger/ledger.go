package ledger

import (
	"context"

	"fastaid/apperrors"
	"fastaid/database/repository"
	"fastaid/metrics"
	"fastaid/models"
	"fastaid/services/propagation"

	"go.uber.org/zap"
)

// Ledger is the only writer of a resource's available flag.
type Ledger interface {
	SetAvailable(ctx context.Context, resourceID string, available bool) error
	IsAvailable(ctx context.Context, resourceID string) (bool, error)
	// Claim flips available true->false and reports whether this caller won.
	Claim(ctx context.Context, resourceID string) (bool, error)
	// Release flips available false->true. Releasing a free resource is a no-op.
	Release(ctx context.Context, resourceID string) error
}

type DefaultLedger struct {
	Resources repository.ResourceRepository
	Notifier  propagation.Notifier
	Logger    *zap.Logger
}

func NewLedger(resources repository.ResourceRepository, notifier propagation.Notifier, logger *zap.Logger) *DefaultLedger {
	if notifier == nil {
		notifier = propagation.NopNotifier{}
	}
	return &DefaultLedger{Resources: resources, Notifier: notifier, Logger: logger}
}

func (l *DefaultLedger) SetAvailable(ctx context.Context, resourceID string, available bool) error {
	if err := l.Resources.SetAvailable(ctx, resourceID, available); err != nil {
		return apperrors.Internal("ledger.SetAvailable", err)
	}
	l.Logger.Info("Resource availability set",
		zap.String("resourceID", resourceID),
		zap.Bool("available", available))
	l.Notifier.Notify(propagation.ResourceSignal(resourceID, models.ChangeResourceAvailable))
	return nil
}

func (l *DefaultLedger) IsAvailable(ctx context.Context, resourceID string) (bool, error) {
	res, err := l.Resources.GetByID(ctx, resourceID)
	if err != nil {
		return false, apperrors.Internal("ledger.IsAvailable", err)
	}
	return res.Available, nil
}

func (l *DefaultLedger) Claim(ctx context.Context, resourceID string) (bool, error) {
	ok, err := l.Resources.SwapAvailable(ctx, resourceID, true, false)
	if err != nil {
		return false, apperrors.Internal("ledger.Claim", err)
	}
	if !ok {
		metrics.LedgerClaims.WithLabelValues("lost").Inc()
		l.Logger.Debug("Resource claim lost", zap.String("resourceID", resourceID))
		return false, nil
	}
	metrics.LedgerClaims.WithLabelValues("won").Inc()
	l.Notifier.Notify(propagation.ResourceSignal(resourceID, models.ChangeResourceAvailable))
	return true, nil
}

func (l *DefaultLedger) Release(ctx context.Context, resourceID string) error {
	ok, err := l.Resources.SwapAvailable(ctx, resourceID, false, true)
	if err != nil {
		return apperrors.Internal("ledger.Release", err)
	}
	if !ok {
		l.Logger.Warn("Released resource was already available", zap.String("resourceID", resourceID))
		return nil
	}
	l.Notifier.Notify(propagation.ResourceSignal(resourceID, models.ChangeResourceAvailable))
	return nil
}
