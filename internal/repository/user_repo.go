package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"presencia-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, matricule, password_hash, full_name, first_name, email, phone, role, status, avatar_url, created_at, last_login_at`

func (r *UserRepo) scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID, &u.Matricule, &u.PasswordHash, &u.FullName, &u.FirstName, &u.Email,
		&u.Phone, &u.Role, &u.Status, &u.AvatarURL, &u.CreatedAt, &u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) GetByMatricule(ctx context.Context, matricule string) (*models.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE matricule = $1`, matricule))
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepo) ExistsByMatricule(ctx context.Context, matricule string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE matricule = $1)", matricule).Scan(&exists)
	return exists, err
}

func (r *UserRepo) ExistsByMatriculeOrEmail(ctx context.Context, matricule, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE matricule = $1 OR email = $2)", matricule, email).Scan(&exists)
	return exists, err
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_login_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}

// CreateStudent inserts the user row and, when profile is non-nil, the
// registry profile in the same transaction.
func (r *UserRepo) CreateStudent(ctx context.Context, user *models.User, profile *models.StudentProfile) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	user.ID = uuid.New()
	user.Role = models.RoleStudent
	user.Status = models.StatusActive

	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, matricule, password_hash, full_name, first_name, email, phone, role, status, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		user.ID, user.Matricule, user.PasswordHash, user.FullName, user.FirstName,
		user.Email, user.Phone, user.Role, user.Status, user.AvatarURL,
	).Scan(&user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateUser
	}
	if err != nil {
		return err
	}

	if profile != nil {
		profile.UserID = user.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO student_profiles (user_id, directory_id, faculty, orientation, gender, birthday, birthplace, promotion_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			profile.UserID, profile.DirectoryID, profile.Faculty, profile.Orientation,
			profile.Gender, profile.Birthday, profile.Birthplace, profile.PromotionID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// CreateTeacher inserts the user row (status pending, awaiting activation)
// plus the teacher profile.
func (r *UserRepo) CreateTeacher(ctx context.Context, user *models.User, profile *models.TeacherProfile) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	user.ID = uuid.New()
	user.Role = models.RoleTeacher
	user.Status = models.StatusPending

	err = tx.QueryRow(ctx, `
		INSERT INTO users (id, matricule, password_hash, full_name, first_name, email, phone, role, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		user.ID, user.Matricule, user.PasswordHash, user.FullName, user.FirstName,
		user.Email, user.Phone, user.Role, user.Status,
	).Scan(&user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateUser
	}
	if err != nil {
		return err
	}

	profile.UserID = user.ID
	_, err = tx.Exec(ctx, `
		INSERT INTO teacher_profiles (user_id, department, grade, institutional_email)
		VALUES ($1, $2, $3, $4)`,
		profile.UserID, profile.Department, profile.Grade, profile.InstitutionalEmail,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// LogDirectoryLookup records the outcome of a registry import for audit.
func (r *UserRepo) LogDirectoryLookup(ctx context.Context, matricule string, success bool, responseData []byte) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO directory_lookup_logs (matricule, success, response_data)
		VALUES ($1, $2, $3)`,
		matricule, success, responseData,
	)
	return err
}
