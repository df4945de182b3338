package attendance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlive/backend/internal/models"
	"github.com/lumenlive/backend/pkg/apperr"
)

// WebinarGetter resolves webinars for existence and status checks.
type WebinarGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
}

// Store is the attendance persistence contract. Implementations must make each
// mutation a single atomic conditional operation; see Repository.
type Store interface {
	Insert(ctx context.Context, rec *models.AttendanceRecord) error
	Remove(ctx context.Context, webinarID, userID uuid.UUID) error
	MarkAttended(ctx context.Context, webinarID, userID uuid.UUID) (bool, error)
	MarkWatchedIfNotAttended(ctx context.Context, webinarID, userID uuid.UUID) (bool, error)
	Get(ctx context.Context, webinarID, userID uuid.UUID) (*models.AttendanceRecord, error)
	ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]models.AttendanceRecord, error)
	CountByWebinar(ctx context.Context, webinarID uuid.UUID) (int, error)
}

// Identity is the caller's resolved identity from the auth token.
type Identity struct {
	UserID   uuid.UUID
	Email    string
	FullName string
}

// Service enforces the registration and attendance transition rules over the
// store's atomic operations.
type Service struct {
	store    Store
	webinars WebinarGetter
	logger   *zap.Logger
}

// NewService creates an attendance service.
func NewService(store Store, webinars WebinarGetter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, webinars: webinars, logger: logger}
}

// Register creates a Registered record for the user. Fails with NotFound for an
// unknown webinar, Conflict for a duplicate, CapacityExceeded for a full roster.
func (s *Service) Register(ctx context.Context, webinarID uuid.UUID, who Identity) (*models.AttendanceRecord, error) {
	if _, err := s.webinars.GetByID(ctx, webinarID); err != nil {
		return nil, err
	}
	rec := &models.AttendanceRecord{
		WebinarID: webinarID,
		UserID:    who.UserID,
		Email:     who.Email,
		FullName:  who.FullName,
		Status:    models.AttendanceRegistered,
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Unregister removes the user's record. Removal is unconditional and not
// reversible; a missing webinar or record is NotFound.
func (s *Service) Unregister(ctx context.Context, webinarID, userID uuid.UUID) error {
	if _, err := s.webinars.GetByID(ctx, webinarID); err != nil {
		return err
	}
	return s.store.Remove(ctx, webinarID, userID)
}

// MarkAttended advances the user's record to Attended, idempotently. When no
// record exists and the webinar is in progress, the user is auto-enrolled:
// joining live counts as registering. Otherwise the call fails NotFound.
func (s *Service) MarkAttended(ctx context.Context, webinarID uuid.UUID, who Identity) error {
	updated, err := s.store.MarkAttended(ctx, webinarID, who.UserID)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}
	w, err := s.webinars.GetByID(ctx, webinarID)
	if err != nil {
		return err
	}
	if w.Status != models.StatusInProgress {
		return apperr.NotFound("registration")
	}
	rec := &models.AttendanceRecord{
		WebinarID: webinarID,
		UserID:    who.UserID,
		Email:     who.Email,
		FullName:  who.FullName,
		Status:    models.AttendanceAttended,
	}
	err = s.store.Insert(ctx, rec)
	if errors.Is(err, apperr.ErrConflict) {
		// Lost a race with a concurrent registration; the record now exists.
		_, err = s.store.MarkAttended(ctx, webinarID, who.UserID)
	}
	return err
}

// MarkWatched sets the user's record to Watched. Attended is sticky: an
// existing Attended record makes this a no-op, never a regression. An absent
// record is auto-enrolled as Watched, subject to capacity and uniqueness.
func (s *Service) MarkWatched(ctx context.Context, webinarID uuid.UUID, who Identity) error {
	updated, err := s.store.MarkWatchedIfNotAttended(ctx, webinarID, who.UserID)
	if err != nil {
		return err
	}
	if updated {
		return nil
	}
	if _, err := s.store.Get(ctx, webinarID, who.UserID); err == nil {
		// Record exists but was not updated: it is Attended. Sticky, no-op.
		return nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if _, err := s.webinars.GetByID(ctx, webinarID); err != nil {
		return err
	}
	rec := &models.AttendanceRecord{
		WebinarID: webinarID,
		UserID:    who.UserID,
		Email:     who.Email,
		FullName:  who.FullName,
		Status:    models.AttendanceWatched,
	}
	err = s.store.Insert(ctx, rec)
	if errors.Is(err, apperr.ErrConflict) {
		// Record appeared concurrently; apply the guarded update instead.
		_, err = s.store.MarkWatchedIfNotAttended(ctx, webinarID, who.UserID)
	}
	return err
}

// Roster returns the webinar's attendee list, guarding the capacity invariant
// at read time.
func (s *Service) Roster(ctx context.Context, webinarID uuid.UUID) ([]models.AttendanceRecord, error) {
	w, err := s.webinars.GetByID(ctx, webinarID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListByWebinar(ctx, webinarID)
	if err != nil {
		return nil, err
	}
	if len(list) > w.Capacity {
		s.logger.Error("roster exceeds capacity",
			zap.String("webinar_id", webinarID.String()),
			zap.Int("roster", len(list)),
			zap.Int("capacity", w.Capacity),
		)
		return nil, apperr.Invariant("roster size %d exceeds capacity %d", len(list), w.Capacity)
	}
	return list, nil
}
