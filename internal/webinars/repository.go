package webinars

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumenlive/backend/internal/models"
	"github.com/lumenlive/backend/pkg/apperr"
)

const webinarColumns = `id, slug, title, description, scheduled_at, status, capacity, ctas, reminder_sent, reminder_sent_at, audience_list_id, created_by, created_at, updated_at`

// Repository handles webinar persistence. Engine-owned columns (reminder_sent,
// reminder_sent_at, audience_list_id) are mutated only through the dedicated
// methods below, never through paths reachable from attendee requests.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a webinar repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new webinar. A duplicate slug yields apperr.ErrConflict.
func (r *Repository) Create(ctx context.Context, w *models.Webinar) error {
	ctas, err := json.Marshal(append([]models.CTA{}, w.CTAs...))
	if err != nil {
		return err
	}
	const q = `INSERT INTO webinars (id, slug, title, description, scheduled_at, status, capacity, ctas, created_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	err = r.pool.QueryRow(ctx, q, w.Slug, w.Title, w.Description, w.ScheduledAt, w.Status, w.Capacity, ctas, w.CreatedBy).
		Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if isUniqueViolation(err) {
		return apperr.Conflict("slug %q already in use", w.Slug)
	}
	return err
}

// GetByID returns a webinar by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	return r.get(ctx, `SELECT `+webinarColumns+` FROM webinars WHERE id = $1`, id)
}

// GetBySlug returns a webinar by its slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Webinar, error) {
	return r.get(ctx, `SELECT `+webinarColumns+` FROM webinars WHERE slug = $1`, slug)
}

func (r *Repository) get(ctx context.Context, q string, arg interface{}) (*models.Webinar, error) {
	row := r.pool.QueryRow(ctx, q, arg)
	w, err := scanWebinar(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("webinar")
		}
		return nil, err
	}
	return w, nil
}

// List returns all webinars, newest scheduled first.
func (r *Repository) List(ctx context.Context) ([]models.Webinar, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+webinarColumns+` FROM webinars ORDER BY scheduled_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWebinars(rows)
}

// AdvanceStatus moves a webinar to the given status. The WHERE clause enforces
// the forward-only progression at the store, so concurrent admin calls cannot
// race a webinar backwards.
func (r *Repository) AdvanceStatus(ctx context.Context, id uuid.UUID, next models.WebinarStatus) error {
	const q = `UPDATE webinars SET status = $1, updated_at = NOW()
		WHERE id = $2
		  AND array_position(ARRAY['scheduled','waiting','in_progress','ended'], status)
		    < array_position(ARRAY['scheduled','waiting','in_progress','ended'], $1::text)`
	tag, err := r.pool.Exec(ctx, q, string(next), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return apperr.Validation("status cannot move backwards to %s", next)
	}
	return nil
}

// AppendCTA appends a CTA to the webinar's list and returns its index.
// Existing positions are never reordered.
func (r *Repository) AppendCTA(ctx context.Context, id uuid.UUID, cta models.CTA) (int, error) {
	body, err := json.Marshal(cta)
	if err != nil {
		return 0, err
	}
	const q = `UPDATE webinars SET ctas = ctas || jsonb_build_array($1::jsonb), updated_at = NOW()
		WHERE id = $2
		RETURNING jsonb_array_length(ctas) - 1`
	var index int
	err = r.pool.QueryRow(ctx, q, body, id).Scan(&index)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, apperr.NotFound("webinar")
	}
	return index, err
}

// DueForReminder returns webinars whose scheduled_at falls in [from, to] with
// status scheduled, reminder not yet sent, and a non-empty roster.
func (r *Repository) DueForReminder(ctx context.Context, from, to time.Time) ([]models.Webinar, error) {
	const q = `SELECT ` + webinarColumns + ` FROM webinars w
		WHERE w.status = 'scheduled'
		  AND w.reminder_sent = FALSE
		  AND w.scheduled_at >= $1 AND w.scheduled_at <= $2
		  AND EXISTS (SELECT 1 FROM attendance_records a WHERE a.webinar_id = w.id)`
	rows, err := r.pool.Query(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWebinars(rows)
}

// ClaimReminder atomically flips reminder_sent false -> true. Returns true only
// for the single caller that wins the claim; losers must not dispatch.
func (r *Repository) ClaimReminder(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `UPDATE webinars SET reminder_sent = TRUE, updated_at = NOW()
		WHERE id = $1 AND reminder_sent = FALSE`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RecordReminderSentAt persists the dispatch completion time. The boolean flag
// was already claimed before dispatch started.
func (r *Repository) RecordReminderSentAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	const q = `UPDATE webinars SET reminder_sent_at = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, at, id)
	return err
}

// SetAudienceListID persists the lazily created external list id. The first
// writer wins; a reconcile that lost the race keeps the stored id.
func (r *Repository) SetAudienceListID(ctx context.Context, id uuid.UUID, listID string) error {
	const q = `UPDATE webinars SET audience_list_id = $1, updated_at = NOW()
		WHERE id = $2 AND audience_list_id IS NULL`
	_, err := r.pool.Exec(ctx, q, listID, id)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWebinar(row rowScanner) (*models.Webinar, error) {
	var w models.Webinar
	var ctas []byte
	err := row.Scan(
		&w.ID, &w.Slug, &w.Title, &w.Description, &w.ScheduledAt, &w.Status, &w.Capacity,
		&ctas, &w.ReminderSent, &w.ReminderSentAt, &w.AudienceListID, &w.CreatedBy, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ctas, &w.CTAs); err != nil {
		return nil, err
	}
	return &w, nil
}

func collectWebinars(rows pgx.Rows) ([]models.Webinar, error) {
	var list []models.Webinar
	for rows.Next() {
		w, err := scanWebinar(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *w)
	}
	return list, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
