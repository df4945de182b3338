package attendance

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlive/backend/internal/models"
	"github.com/lumenlive/backend/pkg/apperr"
)

// fakeWebinarRepo implements WebinarGetter for tests.
type fakeWebinarRepo struct {
	byID map[uuid.UUID]*models.Webinar
}

func newFakeWebinarRepo(ws ...*models.Webinar) *fakeWebinarRepo {
	f := &fakeWebinarRepo{byID: make(map[uuid.UUID]*models.Webinar)}
	for _, w := range ws {
		f.byID[w.ID] = w
	}
	return f
}

func (f *fakeWebinarRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	if w, ok := f.byID[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, apperr.NotFound("webinar %s", id)
}

// fakeStore implements Store in memory with the repository's transaction
// contract: Insert takes a per-webinar lock first (the row lock), then counts
// the roster, so a caller that waited on the lock re-counts and sees every
// insert that completed while it waited.
type fakeStore struct {
	mu       sync.Mutex
	rowLocks map[uuid.UUID]*sync.Mutex
	capacity map[uuid.UUID]int
	records  map[uuid.UUID]map[uuid.UUID]*models.AttendanceRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rowLocks: make(map[uuid.UUID]*sync.Mutex),
		capacity: make(map[uuid.UUID]int),
		records:  make(map[uuid.UUID]map[uuid.UUID]*models.AttendanceRecord),
	}
}

func (f *fakeStore) setCapacity(webinarID uuid.UUID, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.capacity[webinarID] = n
}

func (f *fakeStore) lockWebinar(webinarID uuid.UUID) *sync.Mutex {
	f.mu.Lock()
	lock, ok := f.rowLocks[webinarID]
	if !ok {
		lock = &sync.Mutex{}
		f.rowLocks[webinarID] = lock
	}
	f.mu.Unlock()
	lock.Lock()
	return lock
}

func (f *fakeStore) Insert(ctx context.Context, rec *models.AttendanceRecord) error {
	lock := f.lockWebinar(rec.WebinarID)
	defer lock.Unlock()

	// Count after the lock is held, never before.
	f.mu.Lock()
	defer f.mu.Unlock()
	roster := f.records[rec.WebinarID]
	if roster == nil {
		roster = make(map[uuid.UUID]*models.AttendanceRecord)
		f.records[rec.WebinarID] = roster
	}
	if _, ok := roster[rec.UserID]; ok {
		return apperr.Conflict("already registered")
	}
	if limit, ok := f.capacity[rec.WebinarID]; ok && len(roster) >= limit {
		return apperr.CapacityExceeded("webinar full")
	}
	rec.ID = uuid.New()
	cp := *rec
	roster[rec.UserID] = &cp
	return nil
}

func (f *fakeStore) Remove(ctx context.Context, webinarID, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	roster := f.records[webinarID]
	if _, ok := roster[userID]; !ok {
		return apperr.NotFound("registration")
	}
	delete(roster, userID)
	return nil
}

func (f *fakeStore) MarkAttended(ctx context.Context, webinarID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[webinarID][userID]
	if !ok {
		return false, nil
	}
	rec.Status = models.AttendanceAttended
	return true, nil
}

func (f *fakeStore) MarkWatchedIfNotAttended(ctx context.Context, webinarID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[webinarID][userID]
	if !ok || rec.Status == models.AttendanceAttended {
		return false, nil
	}
	rec.Status = models.AttendanceWatched
	return true, nil
}

func (f *fakeStore) Get(ctx context.Context, webinarID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[webinarID][userID]
	if !ok {
		return nil, apperr.NotFound("registration")
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]models.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.AttendanceRecord
	for _, rec := range f.records[webinarID] {
		out = append(out, *rec)
	}
	return out, nil
}

func (f *fakeStore) CountByWebinar(ctx context.Context, webinarID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records[webinarID]), nil
}

func (f *fakeStore) status(webinarID, userID uuid.UUID) models.AttendanceStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[webinarID][userID].Status
}

func testWebinar(status models.WebinarStatus, capacity int) *models.Webinar {
	return &models.Webinar{
		ID:       uuid.New(),
		Slug:     "go-in-production",
		Title:    "Go in Production",
		Status:   status,
		Capacity: capacity,
	}
}

func identity() Identity {
	return Identity{UserID: uuid.New(), Email: uuid.NewString() + "@example.com", FullName: "Test User"}
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	w := testWebinar(models.StatusScheduled, 10)
	store := newFakeStore()
	store.setCapacity(w.ID, w.Capacity)
	svc := NewService(store, newFakeWebinarRepo(w), nil)

	who := identity()
	rec, err := svc.Register(ctx, w.ID, who)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceRegistered, rec.Status)
	assert.Equal(t, who.UserID, rec.UserID)

	// Duplicate registration is a conflict, not a second record.
	_, err = svc.Register(ctx, w.ID, who)
	require.ErrorIs(t, err, apperr.ErrConflict)
	count, err := store.CountByWebinar(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestService_Register_UnknownWebinar(t *testing.T) {
	svc := NewService(newFakeStore(), newFakeWebinarRepo(), nil)
	_, err := svc.Register(context.Background(), uuid.New(), identity())
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_Register_CapacityUnderContention(t *testing.T) {
	ctx := context.Background()
	const capacity = 10
	const attempts = 50

	w := testWebinar(models.StatusScheduled, capacity)
	store := newFakeStore()
	store.setCapacity(w.ID, capacity)
	svc := NewService(store, newFakeWebinarRepo(w), nil)

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, w.ID, identity())
		}(i)
	}
	wg.Wait()

	var ok, full int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, apperr.ErrCapacityExceeded)
			full++
		}
	}
	assert.Equal(t, capacity, ok)
	assert.Equal(t, attempts-capacity, full)

	count, err := store.CountByWebinar(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, capacity, count)
}

func TestService_Unregister(t *testing.T) {
	ctx := context.Background()
	w := testWebinar(models.StatusScheduled, 10)
	store := newFakeStore()
	store.setCapacity(w.ID, w.Capacity)
	svc := NewService(store, newFakeWebinarRepo(w), nil)

	who := identity()
	_, err := svc.Register(ctx, w.ID, who)
	require.NoError(t, err)

	require.NoError(t, svc.Unregister(ctx, w.ID, who.UserID))
	err = svc.Unregister(ctx, w.ID, who.UserID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	// The freed seat is reusable.
	_, err = svc.Register(ctx, w.ID, who)
	require.NoError(t, err)
}

func TestService_MarkAttended(t *testing.T) {
	ctx := context.Background()
	w := testWebinar(models.StatusInProgress, 10)
	store := newFakeStore()
	store.setCapacity(w.ID, w.Capacity)
	svc := NewService(store, newFakeWebinarRepo(w), nil)

	who := identity()
	_, err := svc.Register(ctx, w.ID, who)
	require.NoError(t, err)

	require.NoError(t, svc.MarkAttended(ctx, w.ID, who))
	assert.Equal(t, models.AttendanceAttended, store.status(w.ID, who.UserID))

	// Idempotent.
	require.NoError(t, svc.MarkAttended(ctx, w.ID, who))
	assert.Equal(t, models.AttendanceAttended, store.status(w.ID, who.UserID))
}

func TestService_MarkAttended_AutoEnrollsWhenLive(t *testing.T) {
	ctx := context.Background()
	w := testWebinar(models.StatusInProgress, 10)
	store := newFakeStore()
	store.setCapacity(w.ID, w.Capacity)
	svc := NewService(store, newFakeWebinarRepo(w), nil)

	who := identity()
	require.NoError(t, svc.MarkAttended(ctx, w.ID, who))
	assert.Equal(t, models.AttendanceAttended, store.status(w.ID, who.UserID))
}

func TestService_MarkAttended_NoRecordNotLive(t *testing.T) {
	ctx := context.Background()
	w := testWebinar(models.StatusScheduled, 10)
	store := newFakeStore()
	store.setCapacity(w.ID, w.Capacity)
	svc := NewService(store, newFakeWebinarRepo(w), nil)

	err := svc.MarkAttended(ctx, w.ID, identity())
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_AttendedIsSticky(t *testing.T) {
	ctx := context.Background()
	w := testWebinar(models.StatusInProgress, 10)

	t.Run("attended then watched", func(t *testing.T) {
		store := newFakeStore()
		store.setCapacity(w.ID, w.Capacity)
		svc := NewService(store, newFakeWebinarRepo(w), nil)
		who := identity()
		_, err := svc.Register(ctx, w.ID, who)
		require.NoError(t, err)

		require.NoError(t, svc.MarkAttended(ctx, w.ID, who))
		require.NoError(t, svc.MarkWatched(ctx, w.ID, who))
		assert.Equal(t, models.AttendanceAttended, store.status(w.ID, who.UserID))
	})

	t.Run("watched then attended", func(t *testing.T) {
		store := newFakeStore()
		store.setCapacity(w.ID, w.Capacity)
		svc := NewService(store, newFakeWebinarRepo(w), nil)
		who := identity()
		_, err := svc.Register(ctx, w.ID, who)
		require.NoError(t, err)

		require.NoError(t, svc.MarkWatched(ctx, w.ID, who))
		assert.Equal(t, models.AttendanceWatched, store.status(w.ID, who.UserID))
		require.NoError(t, svc.MarkAttended(ctx, w.ID, who))
		assert.Equal(t, models.AttendanceAttended, store.status(w.ID, who.UserID))
	})
}

func TestService_MarkWatched_AutoEnrolls(t *testing.T) {
	ctx := context.Background()
	w := testWebinar(models.StatusEnded, 10)
	store := newFakeStore()
	store.setCapacity(w.ID, w.Capacity)
	svc := NewService(store, newFakeWebinarRepo(w), nil)

	who := identity()
	require.NoError(t, svc.MarkWatched(ctx, w.ID, who))
	assert.Equal(t, models.AttendanceWatched, store.status(w.ID, who.UserID))
}

func TestService_MarkWatched_RespectsCapacity(t *testing.T) {
	ctx := context.Background()
	w := testWebinar(models.StatusEnded, 1)
	store := newFakeStore()
	store.setCapacity(w.ID, 1)
	svc := NewService(store, newFakeWebinarRepo(w), nil)

	_, err := svc.Register(ctx, w.ID, identity())
	require.NoError(t, err)

	err = svc.MarkWatched(ctx, w.ID, identity())
	require.ErrorIs(t, err, apperr.ErrCapacityExceeded)
}

func TestService_Roster_InvariantGuard(t *testing.T) {
	ctx := context.Background()
	w := testWebinar(models.StatusScheduled, 2)
	store := newFakeStore()
	// No capacity set on the fake store: corrupt state with 3 records against
	// a declared capacity of 2.
	svc := NewService(store, newFakeWebinarRepo(w), nil)
	for i := 0; i < 3; i++ {
		_, err := svc.Register(ctx, w.ID, identity())
		require.NoError(t, err)
	}

	_, err := svc.Roster(ctx, w.ID)
	require.ErrorIs(t, err, apperr.ErrInvariant)
}
