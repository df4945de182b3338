package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceStatus is the per-user attendance state. Attended is terminal:
// once set it is never overwritten by Watched.
type AttendanceStatus string

const (
	AttendanceRegistered AttendanceStatus = "registered"
	AttendanceAttended   AttendanceStatus = "attended"
	AttendanceWatched    AttendanceStatus = "watched"
)

// AttendanceRecord is the per-user, per-webinar attendance record. At most one
// record exists per (webinar, user) pair.
type AttendanceRecord struct {
	ID           uuid.UUID        `json:"id"`
	WebinarID    uuid.UUID        `json:"webinar_id"`
	UserID       uuid.UUID        `json:"user_id"`
	Email        string           `json:"email"`
	FullName     string           `json:"full_name"`
	Status       AttendanceStatus `json:"status"`
	RegisteredAt time.Time        `json:"registered_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}
