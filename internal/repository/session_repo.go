package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"presencia-backend/internal/models"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Create(ctx context.Context, s *models.AttendanceSession) error {
	query := `
		INSERT INTO attendance_sessions (session_id, token, teacher_id, course_id, room, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		s.SessionID, s.Token, s.TeacherID, s.CourseID, s.Room, s.ExpiresAt,
	).Scan(&s.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateSession
	}
	return err
}

// GetByIDAndToken matches on both fields so that a wrong token is
// indistinguishable from an unknown session id. Returns pgx.ErrNoRows when
// nothing matches.
func (r *SessionRepo) GetByIDAndToken(ctx context.Context, sessionID, token string) (*models.AttendanceSession, error) {
	s := &models.AttendanceSession{}
	query := `SELECT session_id, token, teacher_id, course_id, room, expires_at, created_at
		FROM attendance_sessions WHERE session_id = $1 AND token = $2`

	err := r.pool.QueryRow(ctx, query, sessionID, token).Scan(
		&s.SessionID, &s.Token, &s.TeacherID, &s.CourseID, &s.Room, &s.ExpiresAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepo) GetByID(ctx context.Context, sessionID string) (*models.AttendanceSession, error) {
	s := &models.AttendanceSession{}
	query := `SELECT session_id, token, teacher_id, course_id, room, expires_at, created_at
		FROM attendance_sessions WHERE session_id = $1`

	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&s.SessionID, &s.Token, &s.TeacherID, &s.CourseID, &s.Room, &s.ExpiresAt, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepo) ListByTeacher(ctx context.Context, teacherID uuid.UUID, limit int) ([]models.AttendanceSession, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT session_id, token, teacher_id, course_id, room, expires_at, created_at
		FROM attendance_sessions
		WHERE teacher_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, teacherID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.AttendanceSession, 0)
	for rows.Next() {
		var s models.AttendanceSession
		if err := rows.Scan(&s.SessionID, &s.Token, &s.TeacherID, &s.CourseID, &s.Room, &s.ExpiresAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
