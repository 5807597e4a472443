package models

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceSession is one open attendance window for a course/room. Rows are
// immutable once written and are kept forever for audit; validity is decided
// by comparing the clock against ExpiresAt, never by mutation.
type AttendanceSession struct {
	SessionID string     `json:"session_id"`
	Token     string     `json:"token"`
	TeacherID uuid.UUID  `json:"teacher_id"`
	CourseID  *uuid.UUID `json:"course_id"`
	Room      *string    `json:"room"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

type SessionState string

const (
	SessionActive   SessionState = "ACTIVE"
	SessionExpired  SessionState = "EXPIRED"
	SessionNotFound SessionState = "NOT_FOUND"
)

// SessionValidation is the result of a validate call. Session is nil when
// State is NOT_FOUND.
type SessionValidation struct {
	State   SessionState       `json:"state"`
	Session *AttendanceSession `json:"session,omitempty"`
}

type CreateSessionRequest struct {
	TeacherID       uuid.UUID  `json:"teacher_id"`
	CourseID        *uuid.UUID `json:"course_id"`
	Room            *string    `json:"room"`
	DurationMinutes *int       `json:"duration_minutes"`
}
