package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"presencia-backend/internal/middleware"
	"presencia-backend/internal/models"
	"presencia-backend/internal/repository"
)

type AuthService struct {
	userRepo *repository.UserRepo
	redis    *redis.Client
	jwt      *middleware.JWTAuth
}

func NewAuthService(userRepo *repository.UserRepo, redisClient *redis.Client, jwt *middleware.JWTAuth) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		redis:    redisClient,
		jwt:      jwt,
	}
}

// Login is a bare matricule+password check plus the account status flag.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, *models.AuthTokens, error) {
	fieldErrors := make(map[string]string)
	if req.Matricule == "" {
		fieldErrors["matricule"] = "Matricule is required"
	}
	if req.Password == "" {
		fieldErrors["password"] = "Password is required"
	}
	if len(fieldErrors) > 0 {
		return nil, nil, &ValidationError{Fields: fieldErrors}
	}

	user, err := s.userRepo.GetByMatricule(ctx, req.Matricule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, &UnauthorizedError{Message: "Invalid matricule or password"}
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, &UnauthorizedError{Message: "Invalid matricule or password"}
	}

	switch user.Status {
	case models.StatusActive:
	case models.StatusPending:
		return nil, nil, &ForbiddenError{Message: "Account is awaiting validation"}
	default:
		return nil, nil, &UnauthorizedError{Message: "Account is suspended"}
	}

	s.userRepo.UpdateLastLogin(ctx, user.ID)

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *AuthService) RegisterStudent(ctx context.Context, req models.RegisterStudentRequest) (*models.User, error) {
	fieldErrors := make(map[string]string)
	if req.Matricule == "" {
		fieldErrors["matricule"] = "Matricule is required"
	}
	if req.Password == "" {
		fieldErrors["password"] = "Password is required"
	}
	if req.FullName == "" {
		fieldErrors["full_name"] = "Full name is required"
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	exists, err := s.userRepo.ExistsByMatricule(ctx, req.Matricule)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &ConflictError{Message: "Matricule is already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Matricule:    req.Matricule,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		FirstName:    req.FirstName,
		Email:        req.Email,
		Phone:        req.Phone,
		AvatarURL:    req.AvatarURL,
	}

	profile := studentProfileFromDirectory(req.DirectoryData)

	if err := s.userRepo.CreateStudent(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, &ConflictError{Message: "Matricule is already registered"}
		}
		return nil, err
	}

	if len(req.DirectoryData) > 0 {
		s.userRepo.LogDirectoryLookup(ctx, req.Matricule, true, req.DirectoryData)
	}

	return user, nil
}

func (s *AuthService) RegisterTeacher(ctx context.Context, req models.RegisterTeacherRequest) (*models.User, error) {
	fieldErrors := make(map[string]string)
	if req.Matricule == "" {
		fieldErrors["matricule"] = "Matricule is required"
	}
	if req.Password == "" {
		fieldErrors["password"] = "Password is required"
	}
	if req.FullName == "" {
		fieldErrors["full_name"] = "Full name is required"
	}
	if req.Email == "" {
		fieldErrors["email"] = "Email is required"
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	exists, err := s.userRepo.ExistsByMatriculeOrEmail(ctx, req.Matricule, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &ConflictError{Message: "Matricule or email is already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	institutional := req.InstitutionalEmail
	if institutional == nil {
		institutional = &req.Email
	}

	user := &models.User{
		Matricule:    req.Matricule,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		FirstName:    req.FirstName,
		Email:        &req.Email,
		Phone:        req.Phone,
	}
	profile := &models.TeacherProfile{
		Department:         req.Department,
		Grade:              req.Grade,
		InstitutionalEmail: institutional,
	}

	if err := s.userRepo.CreateTeacher(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, &ConflictError{Message: "Matricule or email is already registered"}
		}
		return nil, err
	}

	return user, nil
}

func (s *AuthService) CheckMatricule(ctx context.Context, matricule string) (bool, error) {
	if matricule == "" {
		return false, &ValidationError{Fields: map[string]string{"matricule": "Matricule is required"}}
	}
	return s.userRepo.ExistsByMatricule(ctx, matricule)
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	userIDStr, err := s.redis.Get(ctx, "refresh:"+refreshToken).Result()
	if err != nil {
		return nil, &UnauthorizedError{Message: "Invalid or expired refresh token. Please log in again."}
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	// Delete old token (rotation)
	s.redis.Del(ctx, "refresh:"+refreshToken)

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.Status != models.StatusActive {
		return nil, &UnauthorizedError{Message: "Account is not active"}
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.redis.Del(ctx, "refresh:"+refreshToken).Err()
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	access, err := s.jwt.GenerateAccessToken(user.ID, user.Matricule, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := randomHex(32)
	if err != nil {
		return nil, err
	}

	if err := s.redis.Set(ctx, "refresh:"+refresh, user.ID.String(), 30*24*time.Hour).Err(); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int((15 * time.Minute).Seconds()),
	}, nil
}

// studentProfileFromDirectory pulls the fields we keep out of the raw
// registry payload. Unknown or missing fields are simply left nil; the
// payload itself is logged verbatim for audit.
func studentProfileFromDirectory(data json.RawMessage) *models.StudentProfile {
	if len(data) == 0 {
		return nil
	}

	var raw struct {
		Matricule  *string `json:"matricule"`
		Gender     *string `json:"gender"`
		Birthday   *string `json:"birthday"`
		Birthplace *string `json:"birthplace"`
		Promotion  *int    `json:"promotionId"`
		Filieres   *struct {
			ShortName *string `json:"shortName"`
		} `json:"schoolFilieres"`
		Orientations *struct {
			Title *string `json:"title"`
		} `json:"schoolOrientations"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	profile := &models.StudentProfile{
		DirectoryID: raw.Matricule,
		Gender:      raw.Gender,
		Birthday:    raw.Birthday,
		Birthplace:  raw.Birthplace,
		PromotionID: raw.Promotion,
	}
	if raw.Filieres != nil {
		profile.Faculty = raw.Filieres.ShortName
	}
	if raw.Orientations != nil {
		profile.Orientation = raw.Orientations.Title
	}
	return profile
}
