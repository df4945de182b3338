package cta

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the CTA activation set as one row per active index.
// Set-add and set-remove are single statements, so concurrent toggles on the
// same webinar are never lost to a read-modify-write race.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a CTA activation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Add inserts the index into the active set. Idempotent: re-activating an
// already active index is a no-op at the store.
func (r *Repository) Add(ctx context.Context, webinarID uuid.UUID, index int) error {
	const q = `INSERT INTO webinar_active_ctas (webinar_id, cta_index)
		VALUES ($1, $2)
		ON CONFLICT (webinar_id, cta_index) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, webinarID, index)
	return err
}

// Remove deletes the index from the active set. Removing an absent index
// affects zero rows, which is not an error.
func (r *Repository) Remove(ctx context.Context, webinarID uuid.UUID, index int) error {
	const q = `DELETE FROM webinar_active_ctas WHERE webinar_id = $1 AND cta_index = $2`
	_, err := r.pool.Exec(ctx, q, webinarID, index)
	return err
}

// ListActive returns the currently active indices for a webinar.
func (r *Repository) ListActive(ctx context.Context, webinarID uuid.UUID) ([]int, error) {
	const q = `SELECT cta_index FROM webinar_active_ctas WHERE webinar_id = $1 ORDER BY cta_index`
	rows, err := r.pool.Query(ctx, q, webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	indices := make([]int, 0)
	for rows.Next() {
		var i int
		if err := rows.Scan(&i); err != nil {
			return nil, err
		}
		indices = append(indices, i)
	}
	return indices, rows.Err()
}
