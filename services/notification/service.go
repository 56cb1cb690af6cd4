package notification

import (
	"context"
	"errors"
	"fmt"

	"fastaid/apperrors"
	"fastaid/database/repository"
	"fastaid/models"

	"go.uber.org/zap"
)

// PushService delivers a composed push to its target's device.
type PushService interface {
	Deliver(ctx context.Context, p models.PushPayload) error
}

type DefaultPushService struct {
	Requesters repository.RequesterRepository
	Resources  repository.ResourceRepository
	Pusher     Pusher
	Logger     *zap.Logger
}

func NewPushService(store *repository.Store, pusher Pusher, logger *zap.Logger) *DefaultPushService {
	return &DefaultPushService{
		Requesters: store.Requesters,
		Resources:  store.Resources,
		Pusher:     pusher,
		Logger:     logger,
	}
}

// Deliver resolves the device token and sends. A target that no longer exists
// or never registered a device is skipped without error so the task is not retried.
func (s *DefaultPushService) Deliver(ctx context.Context, p models.PushPayload) error {
	token, err := s.token(ctx, p)
	if errors.Is(err, apperrors.ErrNotFound) {
		s.Logger.Warn("Push target not found", zap.String("target", p.Target), zap.String("id", p.TargetID))
		return nil
	}
	if err != nil {
		return err
	}
	if token == "" {
		s.Logger.Debug("Push target has no device token", zap.String("target", p.Target), zap.String("id", p.TargetID))
		return nil
	}

	data := map[string]string{
		"role":     p.Target,
		"change":   p.Change,
		"entityId": p.EntityID,
	}
	if err := s.Pusher.Push(ctx, token, p.Title, p.Body, data); err != nil {
		return fmt.Errorf("Deliver: %w", err)
	}
	s.Logger.Info("Push delivered",
		zap.String("target", p.Target),
		zap.String("id", p.TargetID),
		zap.String("change", p.Change))
	return nil
}

func (s *DefaultPushService) token(ctx context.Context, p models.PushPayload) (string, error) {
	switch p.Target {
	case TargetRequester:
		r, err := s.Requesters.GetByID(ctx, p.TargetID)
		if err != nil {
			return "", err
		}
		return r.FCMToken, nil
	case TargetResource:
		r, err := s.Resources.GetByID(ctx, p.TargetID)
		if err != nil {
			return "", err
		}
		return r.FCMToken, nil
	default:
		return "", apperrors.NotFound("notification.Deliver", "unknown target %q", p.Target)
	}
}
