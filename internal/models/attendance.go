package models

import (
	"time"

	"github.com/google/uuid"
)

type AttendanceRecord struct {
	ID         uuid.UUID `json:"id"`
	StudentID  uuid.UUID `json:"student_id"`
	SessionID  string    `json:"session_id"`
	RecordedAt time.Time `json:"recorded_at"`
}

type AttendanceStatus string

const (
	AttendanceRecorded  AttendanceStatus = "RECORDED"
	AttendanceDuplicate AttendanceStatus = "DUPLICATE"
)

// AttendanceResult is a tagged result, not an error: a duplicate scan is an
// expected outcome and callers branch on Status.
type AttendanceResult struct {
	Status AttendanceStatus  `json:"status"`
	Record *AttendanceRecord `json:"record,omitempty"`
}

type RecordAttendanceRequest struct {
	StudentID string `json:"student_id"`
	SessionID string `json:"session_id"`
	// Token is required on the public scan path; trusted callers that have
	// already validated the session may omit it.
	Token string `json:"token,omitempty"`
}

// SessionAttendee is one roster line for a session report.
type SessionAttendee struct {
	RecordID         uuid.UUID `json:"record_id"`
	StudentID        uuid.UUID `json:"student_id"`
	StudentMatricule string    `json:"student_matricule"`
	StudentName      string    `json:"student_name"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// StudentAttendance is one line of a student's own history.
type StudentAttendance struct {
	RecordID         uuid.UUID `json:"record_id"`
	SessionID        string    `json:"session_id"`
	CourseTitle      *string   `json:"course_title"`
	Room             *string   `json:"room"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// TeacherAttendance is one line of a teacher's day sheet or course report.
type TeacherAttendance struct {
	RecordID         uuid.UUID `json:"record_id"`
	SessionID        string    `json:"session_id"`
	StudentID        uuid.UUID `json:"student_id"`
	StudentMatricule string    `json:"student_matricule"`
	StudentName      string    `json:"student_name"`
	CourseTitle      *string   `json:"course_title"`
	Room             *string   `json:"room"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// ScanEvent is published on the live feed when a presence is recorded.
type ScanEvent struct {
	Type             string    `json:"type"`
	SessionID        string    `json:"session_id"`
	StudentID        uuid.UUID `json:"student_id"`
	StudentMatricule string    `json:"student_matricule,omitempty"`
	StudentName      string    `json:"student_name,omitempty"`
	RecordedAt       time.Time `json:"recorded_at"`
}
