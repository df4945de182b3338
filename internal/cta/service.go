package cta

import (
	"context"

	"github.com/google/uuid"

	"github.com/lumenlive/backend/internal/models"
	"github.com/lumenlive/backend/pkg/apperr"
)

// WebinarGetter resolves webinars for existence and bounds checks.
type WebinarGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
}

// Store is the activation-set persistence contract. Add and Remove must be
// atomic set operations.
type Store interface {
	Add(ctx context.Context, webinarID uuid.UUID, index int) error
	Remove(ctx context.Context, webinarID uuid.UUID, index int) error
	ListActive(ctx context.Context, webinarID uuid.UUID) ([]int, error)
}

// Service maintains the visible-CTA subset. Activation is strictly validated
// against the configured CTA list; deactivation is permissively idempotent.
type Service struct {
	store    Store
	webinars WebinarGetter
}

// NewService creates a CTA activation service.
func NewService(store Store, webinars WebinarGetter) *Service {
	return &Service{store: store, webinars: webinars}
}

// Activate adds index to the active set. An index outside [0, len(ctas)) is a
// validation error.
func (s *Service) Activate(ctx context.Context, webinarID uuid.UUID, index int) error {
	w, err := s.webinars.GetByID(ctx, webinarID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(w.CTAs) {
		return apperr.Validation("cta index %d out of range [0, %d)", index, len(w.CTAs))
	}
	return s.store.Add(ctx, webinarID, index)
}

// Deactivate removes index from the active set. An absent or out-of-range
// index is a no-op, not an error.
func (s *Service) Deactivate(ctx context.Context, webinarID uuid.UUID, index int) error {
	if _, err := s.webinars.GetByID(ctx, webinarID); err != nil {
		return err
	}
	return s.store.Remove(ctx, webinarID, index)
}

// GetActive returns the active indices, order-independent.
func (s *Service) GetActive(ctx context.Context, webinarID uuid.UUID) ([]int, error) {
	if _, err := s.webinars.GetByID(ctx, webinarID); err != nil {
		return nil, err
	}
	return s.store.ListActive(ctx, webinarID)
}
