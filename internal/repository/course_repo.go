package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"presencia-backend/internal/models"
)

type CourseRepo struct {
	pool *pgxpool.Pool
}

func NewCourseRepo(pool *pgxpool.Pool) *CourseRepo {
	return &CourseRepo{pool: pool}
}

func (r *CourseRepo) List(ctx context.Context) ([]models.Course, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, title, created_at FROM courses ORDER BY title")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := make([]models.Course, 0)
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *CourseRepo) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]models.Course, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.title, c.created_at
		FROM courses c
		INNER JOIN teacher_courses tc ON c.id = tc.course_id
		WHERE tc.teacher_id = $1
		ORDER BY c.title
	`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := make([]models.Course, 0)
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
