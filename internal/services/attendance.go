package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"presencia-backend/internal/models"
	"presencia-backend/internal/repository"
)

// AttendanceStore is the persistence contract of the recorder. The insert is
// expected to fail with repository.ErrDuplicateAttendance when a row for the
// same (student, session) pair exists; that constraint, not the recorder, is
// what makes concurrent duplicate scans safe.
type AttendanceStore interface {
	Insert(ctx context.Context, rec *models.AttendanceRecord) error
}

// AttendanceService records one presence per (student, session). It does not
// check session expiry: the scan flow validates first, and trusted entry
// points (bulk import) validate on their own terms. Keeping expiry out of
// here means the rule lives in exactly one place, the lifecycle manager.
type AttendanceService struct {
	store AttendanceStore
}

func NewAttendanceService(store AttendanceStore) *AttendanceService {
	return &AttendanceService{store: store}
}

// Record is idempotent from the caller's perspective: a repeat scan returns
// DUPLICATE, never an error, and leaves exactly one row behind.
func (s *AttendanceService) Record(ctx context.Context, studentID uuid.UUID, sessionID string) (*models.AttendanceResult, error) {
	fieldErrors := make(map[string]string)
	if studentID == uuid.Nil {
		fieldErrors["student_id"] = "Student ID is required"
	}
	if sessionID == "" {
		fieldErrors["session_id"] = "Session ID is required"
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	rec := &models.AttendanceRecord{
		StudentID: studentID,
		SessionID: sessionID,
	}

	if err := s.store.Insert(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrDuplicateAttendance) {
			return &models.AttendanceResult{Status: models.AttendanceDuplicate}, nil
		}
		return nil, err
	}

	return &models.AttendanceResult{Status: models.AttendanceRecorded, Record: rec}, nil
}
