package attendance

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenlive/backend/internal/models"
	"github.com/lumenlive/backend/pkg/apperr"
)

// Repository handles attendance record persistence. Every mutation is a single
// conditional statement or a short row-locked transaction; the roster is never
// read, modified in memory, and written back in full.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attendance repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert adds a record if the user has none and the roster is under capacity.
// The check and the insert run in one transaction behind a row lock on the
// webinar: callers serialize per webinar, and a caller that waited on the lock
// counts in a fresh statement snapshot, so it sees every row committed while it
// waited. N concurrent callers against remaining room R produce exactly
// min(N, R) rows. Returns apperr.ErrConflict for a duplicate and
// apperr.ErrCapacityExceeded when the roster is full.
func (r *Repository) Insert(ctx context.Context, rec *models.AttendanceRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var capacity int
	err = tx.QueryRow(ctx, `SELECT capacity FROM webinars WHERE id = $1 FOR UPDATE`, rec.WebinarID).Scan(&capacity)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("webinar")
	}
	if err != nil {
		return err
	}

	// This count must be a separate statement after the lock is held. Folding
	// it into the locking statement re-checks only the locked webinar tuple
	// under read committed; rows another caller inserted while we waited would
	// still be counted against the stale snapshot.
	var roster int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM attendance_records WHERE webinar_id = $1`, rec.WebinarID,
	).Scan(&roster); err != nil {
		return err
	}
	if roster >= capacity {
		return apperr.CapacityExceeded("webinar is full")
	}

	const q = `INSERT INTO attendance_records (id, webinar_id, user_id, email, full_name, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, registered_at, updated_at`
	err = tx.QueryRow(ctx, q, rec.WebinarID, rec.UserID, rec.Email, rec.FullName, rec.Status).
		Scan(&rec.ID, &rec.RegisteredAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperr.Conflict("already registered")
		}
		return err
	}
	return tx.Commit(ctx)
}

// Remove deletes the record. Returns apperr.ErrNotFound when no record exists.
func (r *Repository) Remove(ctx context.Context, webinarID, userID uuid.UUID) error {
	const q = `DELETE FROM attendance_records WHERE webinar_id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, webinarID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("registration")
	}
	return nil
}

// MarkAttended sets status to attended. Attended is terminal, so the update is
// unconditional on current status and idempotent on repeat calls. Returns
// whether a record was matched.
func (r *Repository) MarkAttended(ctx context.Context, webinarID, userID uuid.UUID) (bool, error) {
	const q = `UPDATE attendance_records SET status = 'attended', updated_at = NOW()
		WHERE webinar_id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, q, webinarID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkWatchedIfNotAttended sets status to watched unless the record is already
// attended. The status guard lives in the statement so a reordered Watched call
// can never overwrite a prior Attended. Returns whether a row was updated.
func (r *Repository) MarkWatchedIfNotAttended(ctx context.Context, webinarID, userID uuid.UUID) (bool, error) {
	const q = `UPDATE attendance_records SET status = 'watched', updated_at = NOW()
		WHERE webinar_id = $1 AND user_id = $2 AND status <> 'attended'`
	tag, err := r.pool.Exec(ctx, q, webinarID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Get returns the record for (webinar, user), or apperr.ErrNotFound.
func (r *Repository) Get(ctx context.Context, webinarID, userID uuid.UUID) (*models.AttendanceRecord, error) {
	const q = `SELECT id, webinar_id, user_id, email, full_name, status, registered_at, updated_at
		FROM attendance_records WHERE webinar_id = $1 AND user_id = $2`
	var rec models.AttendanceRecord
	err := r.pool.QueryRow(ctx, q, webinarID, userID).Scan(
		&rec.ID, &rec.WebinarID, &rec.UserID, &rec.Email, &rec.FullName, &rec.Status, &rec.RegisteredAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("registration")
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByWebinar returns the full roster, oldest registration first.
func (r *Repository) ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]models.AttendanceRecord, error) {
	const q = `SELECT id, webinar_id, user_id, email, full_name, status, registered_at, updated_at
		FROM attendance_records WHERE webinar_id = $1 ORDER BY registered_at ASC`
	rows, err := r.pool.Query(ctx, q, webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.AttendanceRecord
	for rows.Next() {
		var rec models.AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.WebinarID, &rec.UserID, &rec.Email, &rec.FullName, &rec.Status, &rec.RegisteredAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// CountByWebinar returns the roster size.
func (r *Repository) CountByWebinar(ctx context.Context, webinarID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_records WHERE webinar_id = $1`, webinarID).Scan(&n)
	return n, err
}
