package reminders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlive/backend/internal/attendance"
	"github.com/lumenlive/backend/internal/models"
	"github.com/lumenlive/backend/pkg/apperr"
)

// GetByID lets fakeWebinarStore double as the attendance service's webinar
// lookup in the lifecycle test.
func (f *fakeWebinarStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.webinars[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, apperr.NotFound("webinar %s", id)
}

// memRoster implements attendance.Store and RosterStore with the repository's
// atomic contract: capacity and uniqueness checked under one lock.
type memRoster struct {
	mu       sync.Mutex
	capacity int
	records  map[uuid.UUID]*models.AttendanceRecord
}

func newMemRoster(capacity int) *memRoster {
	return &memRoster{capacity: capacity, records: make(map[uuid.UUID]*models.AttendanceRecord)}
}

func (m *memRoster) Insert(ctx context.Context, rec *models.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.UserID]; ok {
		return apperr.Conflict("already registered")
	}
	if len(m.records) >= m.capacity {
		return apperr.CapacityExceeded("webinar full")
	}
	cp := *rec
	m.records[rec.UserID] = &cp
	return nil
}

func (m *memRoster) Remove(ctx context.Context, webinarID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[userID]; !ok {
		return apperr.NotFound("registration")
	}
	delete(m.records, userID)
	return nil
}

func (m *memRoster) MarkAttended(ctx context.Context, webinarID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok {
		return false, nil
	}
	rec.Status = models.AttendanceAttended
	return true, nil
}

func (m *memRoster) MarkWatchedIfNotAttended(ctx context.Context, webinarID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok || rec.Status == models.AttendanceAttended {
		return false, nil
	}
	rec.Status = models.AttendanceWatched
	return true, nil
}

func (m *memRoster) Get(ctx context.Context, webinarID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[userID]
	if !ok {
		return nil, apperr.NotFound("registration")
	}
	cp := *rec
	return &cp, nil
}

func (m *memRoster) ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AttendanceRecord
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (m *memRoster) CountByWebinar(ctx context.Context, webinarID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records), nil
}

// Full lifecycle: fill a capacity-2 webinar, reject the third registration,
// verify Attended stays sticky, then watch the sweep claim and dispatch once.
func TestWebinarLifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	w := &models.Webinar{
		ID:          uuid.New(),
		Slug:        "capacity-two",
		Title:       "Capacity Two",
		Status:      models.StatusScheduled,
		ScheduledAt: now.Add(15 * time.Minute),
		Capacity:    2,
	}
	roster := newMemRoster(w.Capacity)
	store := newFakeWebinarStore(roster, w)
	svc := attendance.NewService(roster, store, nil)

	u1 := attendance.Identity{UserID: uuid.New(), Email: "u1@example.com"}
	u2 := attendance.Identity{UserID: uuid.New(), Email: "u2@example.com"}
	u3 := attendance.Identity{UserID: uuid.New(), Email: "u3@example.com"}

	_, err := svc.Register(ctx, w.ID, u1)
	require.NoError(t, err)
	_, err = svc.Register(ctx, w.ID, u2)
	require.NoError(t, err)
	_, err = svc.Register(ctx, w.ID, u3)
	require.ErrorIs(t, err, apperr.ErrCapacityExceeded)

	require.NoError(t, svc.MarkAttended(ctx, w.ID, u1))
	require.NoError(t, svc.MarkWatched(ctx, w.ID, u1))
	rec, err := roster.Get(ctx, w.ID, u1.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAttended, rec.Status)

	notifier := &fakeNotifier{}
	s := NewSweeper(store, roster, notifier, nil, nil, nil, Options{
		LeadTime:  15 * time.Minute,
		Tolerance: time.Minute,
		Now:       fixedClock(now),
	})

	require.NoError(t, s.SweepOnce(ctx))
	assert.ElementsMatch(t, []string{"u1@example.com", "u2@example.com"}, notifier.sent)
	assert.True(t, store.webinars[w.ID].ReminderSent)

	require.NoError(t, s.SweepOnce(ctx))
	assert.Len(t, notifier.sent, 2)
}
