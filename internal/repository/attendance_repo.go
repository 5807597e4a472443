package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"presencia-backend/internal/models"
)

type AttendanceRepo struct {
	pool *pgxpool.Pool
}

func NewAttendanceRepo(pool *pgxpool.Pool) *AttendanceRepo {
	return &AttendanceRepo{pool: pool}
}

// Insert writes one presence row. A violation of uq_attendance_once comes
// back as ErrDuplicateAttendance so callers can treat it as a result rather
// than a failure.
func (r *AttendanceRepo) Insert(ctx context.Context, rec *models.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (student_id, session_id)
		VALUES ($1, $2)
		RETURNING id, recorded_at`

	err := r.pool.QueryRow(ctx, query, rec.StudentID, rec.SessionID).Scan(&rec.ID, &rec.RecordedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateAttendance
	}
	return err
}

func (r *AttendanceRepo) CountForPair(ctx context.Context, studentID uuid.UUID, sessionID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM attendance_records WHERE student_id = $1 AND session_id = $2",
		studentID, sessionID,
	).Scan(&count)
	return count, err
}

func (r *AttendanceRepo) ListBySession(ctx context.Context, sessionID string) ([]models.SessionAttendee, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.student_id, u.matricule,
		       TRIM(u.full_name || ' ' || COALESCE(u.first_name, '')),
		       p.recorded_at
		FROM attendance_records p
		INNER JOIN users u ON p.student_id = u.id
		WHERE p.session_id = $1
		ORDER BY p.recorded_at DESC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attendees := make([]models.SessionAttendee, 0)
	for rows.Next() {
		var a models.SessionAttendee
		if err := rows.Scan(&a.RecordID, &a.StudentID, &a.StudentMatricule, &a.StudentName, &a.RecordedAt); err != nil {
			return nil, err
		}
		attendees = append(attendees, a)
	}
	return attendees, rows.Err()
}

func (r *AttendanceRepo) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]models.StudentAttendance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, s.session_id, c.title, s.room, s.expires_at, p.recorded_at
		FROM attendance_records p
		INNER JOIN attendance_sessions s ON p.session_id = s.session_id
		LEFT JOIN courses c ON s.course_id = c.id
		WHERE p.student_id = $1
		ORDER BY p.recorded_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]models.StudentAttendance, 0)
	for rows.Next() {
		var h models.StudentAttendance
		if err := rows.Scan(&h.RecordID, &h.SessionID, &h.CourseTitle, &h.Room, &h.SessionExpiresAt, &h.RecordedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// ListByTeacherOnDate returns every presence recorded for the teacher's
// sessions within the given calendar day.
func (r *AttendanceRepo) ListByTeacherOnDate(ctx context.Context, teacherID uuid.UUID, day time.Time) ([]models.TeacherAttendance, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	return r.listForTeacher(ctx, `
		SELECT p.id, s.session_id, p.student_id, u.matricule,
		       TRIM(u.full_name || ' ' || COALESCE(u.first_name, '')),
		       c.title, s.room, p.recorded_at
		FROM attendance_records p
		INNER JOIN attendance_sessions s ON p.session_id = s.session_id
		INNER JOIN users u ON p.student_id = u.id
		LEFT JOIN courses c ON s.course_id = c.id
		WHERE s.teacher_id = $1
		  AND p.recorded_at >= $2
		  AND p.recorded_at < $3
		ORDER BY p.recorded_at DESC
	`, teacherID, start, end)
}

func (r *AttendanceRepo) ListByTeacherCourse(ctx context.Context, teacherID, courseID uuid.UUID, from, to time.Time) ([]models.TeacherAttendance, error) {
	return r.listForTeacher(ctx, `
		SELECT p.id, s.session_id, p.student_id, u.matricule,
		       TRIM(u.full_name || ' ' || COALESCE(u.first_name, '')),
		       c.title, s.room, p.recorded_at
		FROM attendance_records p
		INNER JOIN attendance_sessions s ON p.session_id = s.session_id
		INNER JOIN users u ON p.student_id = u.id
		LEFT JOIN courses c ON s.course_id = c.id
		WHERE s.teacher_id = $1
		  AND s.course_id = $2
		  AND p.recorded_at >= $3
		  AND p.recorded_at < $4
		ORDER BY p.recorded_at DESC
	`, teacherID, courseID, from, to.Add(24*time.Hour))
}

func (r *AttendanceRepo) listForTeacher(ctx context.Context, query string, args ...any) ([]models.TeacherAttendance, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.TeacherAttendance, 0)
	for rows.Next() {
		var rec models.TeacherAttendance
		if err := rows.Scan(&rec.RecordID, &rec.SessionID, &rec.StudentID, &rec.StudentMatricule,
			&rec.StudentName, &rec.CourseTitle, &rec.Room, &rec.RecordedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
