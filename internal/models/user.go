package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"

	StatusActive    = "active"
	StatusPending   = "pending"
	StatusSuspended = "suspended"
)

type User struct {
	ID           uuid.UUID  `json:"id"`
	Matricule    string     `json:"matricule"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	FirstName    *string    `json:"first_name"`
	Email        *string    `json:"email"`
	Phone        *string    `json:"phone"`
	Role         string     `json:"role"`
	Status       string     `json:"status"`
	AvatarURL    *string    `json:"avatar_url"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at"`
}

// StudentProfile carries the registry data imported at registration.
type StudentProfile struct {
	UserID      uuid.UUID `json:"user_id"`
	DirectoryID *string   `json:"directory_id"`
	Faculty     *string   `json:"faculty"`
	Orientation *string   `json:"orientation"`
	Gender      *string   `json:"gender"`
	Birthday    *string   `json:"birthday"`
	Birthplace  *string   `json:"birthplace"`
	PromotionID *int      `json:"promotion_id"`
}

type TeacherProfile struct {
	UserID             uuid.UUID `json:"user_id"`
	Department         *string   `json:"department"`
	Grade              *string   `json:"grade"`
	InstitutionalEmail *string   `json:"institutional_email"`
}

type LoginRequest struct {
	Matricule string `json:"matricule"`
	Password  string `json:"password"`
}

type RegisterStudentRequest struct {
	Matricule     string          `json:"matricule"`
	Password      string          `json:"password"`
	FullName      string          `json:"full_name"`
	FirstName     *string         `json:"first_name"`
	Email         *string         `json:"email"`
	Phone         *string         `json:"phone"`
	AvatarURL     *string         `json:"avatar_url"`
	DirectoryData json.RawMessage `json:"directory_data,omitempty"`
}

type RegisterTeacherRequest struct {
	Matricule          string  `json:"matricule"`
	Password           string  `json:"password"`
	FullName           string  `json:"full_name"`
	FirstName          *string `json:"first_name"`
	Email              string  `json:"email"`
	Phone              *string `json:"phone"`
	Department         *string `json:"department"`
	Grade              *string `json:"grade"`
	InstitutionalEmail *string `json:"institutional_email"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
