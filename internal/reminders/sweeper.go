package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenlive/backend/internal/models"
	"github.com/lumenlive/backend/internal/notify"
	"github.com/lumenlive/backend/pkg/queue"
)

// WebinarStore is the webinar-side contract for the sweeper: window selection,
// the atomic claim, and dispatch-time recording.
type WebinarStore interface {
	DueForReminder(ctx context.Context, from, to time.Time) ([]models.Webinar, error)
	ClaimReminder(ctx context.Context, id uuid.UUID) (bool, error)
	RecordReminderSentAt(ctx context.Context, id uuid.UUID, at time.Time) error
}

// RosterStore lists the attendees a dispatch fans out to.
type RosterStore interface {
	ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]models.AttendanceRecord, error)
}

// DeliveryLog records per-recipient delivery outcomes.
type DeliveryLog interface {
	Record(ctx context.Context, log *models.EmailLog) error
}

// SyncEnqueuer schedules audience reconciliation after a dispatch.
type SyncEnqueuer interface {
	EnqueueAudienceSync(ctx context.Context, payload queue.AudienceSyncPayload) error
}

// Options configure the sweep cadence and the reminder window.
type Options struct {
	Interval   time.Duration // sweep tick, e.g. 1m
	LeadTime   time.Duration // reminder goes out this long before start, e.g. 15m
	Tolerance  time.Duration // window half-width absorbing tick jitter, e.g. 1m
	TemplateID string
	BaseURL    string // public site base for join links
	Locale     string // BCP 47 tag for date rendering
	Now        func() time.Time
}

// Sweeper runs the periodic reminder sweep. Each webinar goes through
// NotDue -> Due (window selection) -> Claimed (atomic flag flip) -> Sent.
// A claim that fails means another sweep got there first; that is silence,
// not an error.
type Sweeper struct {
	webinars WebinarStore
	roster   RosterStore
	notifier notify.Notifier
	log      DeliveryLog
	syncer   SyncEnqueuer
	logger   *zap.Logger
	opts     Options
}

// NewSweeper creates the reminder sweeper. syncer and log may be nil.
func NewSweeper(webinars WebinarStore, roster RosterStore, notifier notify.Notifier, log DeliveryLog, syncer SyncEnqueuer, logger *zap.Logger, opts Options) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.LeadTime <= 0 {
		opts.LeadTime = 15 * time.Minute
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = time.Minute
	}
	return &Sweeper{
		webinars: webinars,
		roster:   roster,
		notifier: notifier,
		log:      log,
		syncer:   syncer,
		logger:   logger,
		opts:     opts,
	}
}

// Run executes sweeps until ctx is done. Sweeps never overlap: the next tick
// waits for the previous SweepOnce to return.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	s.logger.Info("reminder sweeper started",
		zap.Duration("interval", s.opts.Interval),
		zap.Duration("lead_time", s.opts.LeadTime),
		zap.Duration("tolerance", s.opts.Tolerance),
	)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reminder sweeper stopping")
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce selects webinars inside the reminder window and dispatches each
// claimed one. Webinars are processed in parallel so a slow dispatch cannot
// delay the others; per-webinar failures are logged, never propagated.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	now := s.opts.Now()
	from := now.Add(s.opts.LeadTime - s.opts.Tolerance)
	to := now.Add(s.opts.LeadTime + s.opts.Tolerance)

	due, err := s.webinars.DueForReminder(ctx, from, to)
	if err != nil {
		return fmt.Errorf("select due webinars: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	for i := range due {
		w := due[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleWebinar(ctx, &w)
		}()
	}
	wg.Wait()
	return nil
}

func (s *Sweeper) handleWebinar(ctx context.Context, w *models.Webinar) {
	claimed, err := s.webinars.ClaimReminder(ctx, w.ID)
	if err != nil {
		s.logger.Error("reminder claim failed", zap.String("webinar_id", w.ID.String()), zap.Error(err))
		return
	}
	if !claimed {
		// Another sweep won the claim. Not an error.
		return
	}

	sent, failed := s.Dispatch(ctx, w, models.EmailTypeReminder)
	if err := s.webinars.RecordReminderSentAt(ctx, w.ID, s.opts.Now()); err != nil {
		s.logger.Error("record reminder_sent_at failed", zap.String("webinar_id", w.ID.String()), zap.Error(err))
	}
	s.logger.Info("reminder dispatched",
		zap.String("webinar_id", w.ID.String()),
		zap.String("slug", w.Slug),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)

	if s.syncer != nil {
		if err := s.syncer.EnqueueAudienceSync(ctx, queue.AudienceSyncPayload{WebinarID: w.ID}); err != nil {
			s.logger.Warn("audience sync enqueue failed", zap.String("webinar_id", w.ID.String()), zap.Error(err))
		}
	}
}

// Dispatch fans the reminder out to every attendee. Per-recipient failures are
// recorded and do not abort delivery to the rest. Returns sent/failed counts.
// The webinar is considered handled even if every send fails (best effort,
// at most once per webinar).
func (s *Sweeper) Dispatch(ctx context.Context, w *models.Webinar, emailType string) (sent, failed int) {
	attendees, err := s.roster.ListByWebinar(ctx, w.ID)
	if err != nil {
		s.logger.Error("load roster failed", zap.String("webinar_id", w.ID.String()), zap.Error(err))
		return 0, 0
	}
	fields := s.mergeFields(w)
	for _, a := range attendees {
		sendErr := s.notifier.SendTemplateNotification(ctx, a.Email, s.opts.TemplateID, fields)
		if sendErr != nil {
			failed++
			s.logger.Warn("reminder send failed",
				zap.String("webinar_id", w.ID.String()),
				zap.String("recipient", a.Email),
				zap.Error(sendErr),
			)
		} else {
			sent++
		}
		s.recordLog(ctx, w, &a, emailType, sendErr)
	}
	return sent, failed
}

func (s *Sweeper) mergeFields(w *models.Webinar) map[string]string {
	return map[string]string{
		"event_name": w.Title,
		"event_time": formatLocalized(w.ScheduledAt, s.opts.Locale),
		"join_link":  fmt.Sprintf("%s/join/%s", s.opts.BaseURL, w.Slug),
	}
}

func (s *Sweeper) recordLog(ctx context.Context, w *models.Webinar, a *models.AttendanceRecord, emailType string, sendErr error) {
	if s.log == nil {
		return
	}
	now := s.opts.Now()
	entry := &models.EmailLog{
		WebinarID:      &w.ID,
		UserID:         &a.UserID,
		EmailType:      emailType,
		RecipientEmail: a.Email,
		Subject:        "Reminder: " + w.Title,
		Status:         models.EmailLogStatusSent,
		SentAt:         &now,
	}
	if sendErr != nil {
		entry.Status = models.EmailLogStatusFailed
		entry.SentAt = nil
		entry.ErrorMessage = sendErr.Error()
	}
	if err := s.log.Record(ctx, entry); err != nil {
		s.logger.Warn("email log write failed", zap.String("webinar_id", w.ID.String()), zap.Error(err))
	}
}

// formatLocalized renders the start time for the reminder body. Times are
// stored UTC; the locale picks a display convention.
func formatLocalized(t time.Time, locale string) string {
	t = t.UTC()
	switch locale {
	case "en-GB", "de-DE", "fr-FR":
		return t.Format("02 Jan 2006 15:04 MST")
	default:
		return t.Format("Jan 2, 2006 3:04 PM MST")
	}
}
