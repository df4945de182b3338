package models

import (
	"time"

	"github.com/google/uuid"
)

// WebinarStatus is the lifecycle state of a webinar. Progression is forward
// only: scheduled -> waiting -> in_progress -> ended.
type WebinarStatus string

const (
	StatusScheduled  WebinarStatus = "scheduled"
	StatusWaiting    WebinarStatus = "waiting"
	StatusInProgress WebinarStatus = "in_progress"
	StatusEnded      WebinarStatus = "ended"
)

// statusRank orders statuses for forward-only transition checks.
var statusRank = map[WebinarStatus]int{
	StatusScheduled:  0,
	StatusWaiting:    1,
	StatusInProgress: 2,
	StatusEnded:      3,
}

// Valid reports whether s is a known webinar status.
func (s WebinarStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanAdvanceTo reports whether moving from s to next is a forward transition.
func (s WebinarStatus) CanAdvanceTo(next WebinarStatus) bool {
	a, ok1 := statusRank[s]
	b, ok2 := statusRank[next]
	return ok1 && ok2 && b > a
}

// CTA is a labeled link configured on a webinar. Positions in the webinar's
// CTA list are immutable once created; the list is append only.
type CTA struct {
	Label string `json:"label"`
	Link  string `json:"link"`
}

// Webinar represents a scheduled online event.
type Webinar struct {
	ID             uuid.UUID     `json:"id"`
	Slug           string        `json:"slug"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	ScheduledAt    time.Time     `json:"scheduled_at"`
	Status         WebinarStatus `json:"status"`
	Capacity       int           `json:"capacity"`
	CTAs           []CTA         `json:"ctas"`
	ReminderSent   bool          `json:"reminder_sent"`
	ReminderSentAt *time.Time    `json:"reminder_sent_at,omitempty"`
	AudienceListID *string       `json:"audience_list_id,omitempty"`
	CreatedBy      uuid.UUID     `json:"created_by"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// DefaultCapacity is applied when a webinar is created without one.
const DefaultCapacity = 100
