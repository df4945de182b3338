package cta

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlive/backend/internal/models"
	"github.com/lumenlive/backend/pkg/apperr"
)

type fakeWebinarRepo struct {
	byID map[uuid.UUID]*models.Webinar
}

func (f *fakeWebinarRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	if w, ok := f.byID[id]; ok {
		return w, nil
	}
	return nil, apperr.NotFound("webinar %s", id)
}

// fakeActiveSet implements Store as an in-memory set with set semantics:
// Add of a member is a no-op, Remove of a non-member is a no-op.
type fakeActiveSet struct {
	mu   sync.Mutex
	sets map[uuid.UUID]map[int]struct{}
}

func newFakeActiveSet() *fakeActiveSet {
	return &fakeActiveSet{sets: make(map[uuid.UUID]map[int]struct{})}
}

func (f *fakeActiveSet) Add(ctx context.Context, webinarID uuid.UUID, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sets[webinarID] == nil {
		f.sets[webinarID] = make(map[int]struct{})
	}
	f.sets[webinarID][index] = struct{}{}
	return nil
}

func (f *fakeActiveSet) Remove(ctx context.Context, webinarID uuid.UUID, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sets[webinarID], index)
	return nil
}

func (f *fakeActiveSet) ListActive(ctx context.Context, webinarID uuid.UUID) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int, 0, len(f.sets[webinarID]))
	for i := range f.sets[webinarID] {
		out = append(out, i)
	}
	sort.Ints(out)
	return out, nil
}

func newTestService(ctas int) (*Service, *fakeActiveSet, *models.Webinar) {
	w := &models.Webinar{ID: uuid.New(), Slug: "launch-day", Status: models.StatusInProgress}
	for i := 0; i < ctas; i++ {
		w.CTAs = append(w.CTAs, models.CTA{Label: "Offer", Link: "https://example.com/offer"})
	}
	store := newFakeActiveSet()
	svc := NewService(store, &fakeWebinarRepo{byID: map[uuid.UUID]*models.Webinar{w.ID: w}})
	return svc, store, w
}

func TestService_Activate(t *testing.T) {
	ctx := context.Background()
	svc, _, w := newTestService(3)

	require.NoError(t, svc.Activate(ctx, w.ID, 1))
	active, err := svc.GetActive(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, active)

	// Re-activating the same index leaves the set unchanged.
	require.NoError(t, svc.Activate(ctx, w.ID, 1))
	active, err = svc.GetActive(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, active)

	require.NoError(t, svc.Activate(ctx, w.ID, 0))
	active, err = svc.GetActive(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, active)
}

func TestService_Activate_OutOfRange(t *testing.T) {
	ctx := context.Background()
	svc, store, w := newTestService(3)

	for _, index := range []int{-1, 3, 99} {
		err := svc.Activate(ctx, w.ID, index)
		require.ErrorIs(t, err, apperr.ErrValidation, "index %d", index)
	}
	assert.Empty(t, store.sets[w.ID])
}

func TestService_Activate_UnknownWebinar(t *testing.T) {
	svc, _, _ := newTestService(3)
	err := svc.Activate(context.Background(), uuid.New(), 0)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_Deactivate(t *testing.T) {
	ctx := context.Background()
	svc, _, w := newTestService(3)

	require.NoError(t, svc.Activate(ctx, w.ID, 0))
	require.NoError(t, svc.Activate(ctx, w.ID, 2))

	require.NoError(t, svc.Deactivate(ctx, w.ID, 0))
	active, err := svc.GetActive(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, active)

	// Deactivating an inactive or out-of-range index is a no-op.
	require.NoError(t, svc.Deactivate(ctx, w.ID, 0))
	require.NoError(t, svc.Deactivate(ctx, w.ID, 99))
	active, err = svc.GetActive(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, active)
}

func TestService_GetActive_Empty(t *testing.T) {
	svc, _, w := newTestService(2)
	active, err := svc.GetActive(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}
