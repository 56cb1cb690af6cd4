package fleet

import (
	"context"
	"strings"
	"time"

	"fastaid/apperrors"
	"fastaid/database/repository"
	"fastaid/models"
	"fastaid/services/propagation"
	"fastaid/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FleetService enrols requesters and resources and keeps their positions fresh.
type FleetService interface {
	RegisterRequester(ctx context.Context, req models.RegisterRequesterRequest) (*models.Requester, error)
	GetRequester(ctx context.Context, id string) (*models.Requester, error)
	UpdateRequesterLocation(ctx context.Context, id string, location models.GeoPoint) error
	RegisterResource(ctx context.Context, req models.RegisterResourceRequest) (*models.Resource, error)
	GetResource(ctx context.Context, id string) (*models.Resource, error)
	UpdateResourceLocation(ctx context.Context, id string, location models.GeoPoint) error
	VerifyResource(ctx context.Context, id string, verified bool) error
}

type DefaultFleetService struct {
	Requesters repository.RequesterRepository
	Resources  repository.ResourceRepository
	Notifier   propagation.Notifier
	Logger     *zap.Logger
}

func NewFleetService(store *repository.Store, notifier propagation.Notifier, logger *zap.Logger) *DefaultFleetService {
	if notifier == nil {
		notifier = propagation.NopNotifier{}
	}
	return &DefaultFleetService{
		Requesters: store.Requesters,
		Resources:  store.Resources,
		Notifier:   notifier,
		Logger:     logger,
	}
}

func (s *DefaultFleetService) RegisterRequester(ctx context.Context, req models.RegisterRequesterRequest) (*models.Requester, error) {
	const op = "fleet.RegisterRequester"
	location := req.Location.Point()
	if !utils.ValidPoint(location) {
		return nil, apperrors.InvalidArgument(op, "invalid coordinates")
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, apperrors.InvalidArgument(op, "phone number is required")
	}

	now := time.Now()
	requester := &models.Requester{
		ID:          uuid.New().String(),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Name:        strings.TrimSpace(req.Name),
		Location:    location,
		FCMToken:    req.FCMToken,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Requesters.Create(ctx, requester); err != nil {
		return nil, apperrors.Internal(op, err)
	}
	s.Logger.Info("Requester registered", zap.String("requesterID", requester.ID))
	return requester, nil
}

func (s *DefaultFleetService) GetRequester(ctx context.Context, id string) (*models.Requester, error) {
	r, err := s.Requesters.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("fleet.GetRequester", err)
	}
	return r, nil
}

func (s *DefaultFleetService) UpdateRequesterLocation(ctx context.Context, id string, location models.GeoPoint) error {
	const op = "fleet.UpdateRequesterLocation"
	if !utils.ValidPoint(location) {
		return apperrors.InvalidArgument(op, "invalid coordinates")
	}
	if err := s.Requesters.UpdateLocation(ctx, id, location); err != nil {
		return apperrors.Internal(op, err)
	}
	return nil
}

// RegisterResource enrols a resource as available but unverified; it is not
// bookable until an admin verifies it.
func (s *DefaultFleetService) RegisterResource(ctx context.Context, req models.RegisterResourceRequest) (*models.Resource, error) {
	const op = "fleet.RegisterResource"
	location := req.Location.Point()
	if !utils.ValidPoint(location) {
		return nil, apperrors.InvalidArgument(op, "invalid coordinates")
	}
	if strings.TrimSpace(req.LicenseID) == "" {
		return nil, apperrors.InvalidArgument(op, "license id is required")
	}

	now := time.Now()
	resource := &models.Resource{
		ID:            uuid.New().String(),
		OperatorName:  strings.TrimSpace(req.OperatorName),
		OperatorPhone: strings.TrimSpace(req.OperatorPhone),
		LicenseID:     strings.TrimSpace(req.LicenseID),
		Location:      location,
		Available:     true,
		Verified:      false,
		FCMToken:      req.FCMToken,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Resources.Create(ctx, resource); err != nil {
		return nil, apperrors.Internal(op, err)
	}
	s.Logger.Info("Resource registered",
		zap.String("resourceID", resource.ID),
		zap.String("licenseID", resource.LicenseID))
	return resource, nil
}

func (s *DefaultFleetService) GetResource(ctx context.Context, id string) (*models.Resource, error) {
	r, err := s.Resources.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("fleet.GetResource", err)
	}
	return r, nil
}

func (s *DefaultFleetService) UpdateResourceLocation(ctx context.Context, id string, location models.GeoPoint) error {
	const op = "fleet.UpdateResourceLocation"
	if !utils.ValidPoint(location) {
		return apperrors.InvalidArgument(op, "invalid coordinates")
	}
	if err := s.Resources.UpdateLocation(ctx, id, location); err != nil {
		return apperrors.Internal(op, err)
	}
	s.Notifier.Notify(propagation.ResourceSignal(id, models.ChangeResourceMoved))
	return nil
}

func (s *DefaultFleetService) VerifyResource(ctx context.Context, id string, verified bool) error {
	if err := s.Resources.SetVerified(ctx, id, verified); err != nil {
		return apperrors.Internal("fleet.VerifyResource", err)
	}
	s.Logger.Info("Resource verification changed", zap.String("resourceID", id), zap.Bool("verified", verified))
	return nil
}
