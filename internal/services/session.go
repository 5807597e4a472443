package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"presencia-backend/internal/models"
	"presencia-backend/internal/repository"
)

// SessionStore is the persistence contract the lifecycle manager depends on.
// *repository.SessionRepo satisfies it; tests inject fakes.
type SessionStore interface {
	Create(ctx context.Context, s *models.AttendanceSession) error
	GetByIDAndToken(ctx context.Context, sessionID, token string) (*models.AttendanceSession, error)
}

// SessionService owns the session lifecycle: ACTIVE until expires_at passes,
// then permanently EXPIRED. There is no renewal and no explicit cancellation;
// the transition is time-driven only.
type SessionService struct {
	store           SessionStore
	tokens          *TokenGenerator
	baseURL         string
	defaultDuration time.Duration
	now             func() time.Time
}

func NewSessionService(store SessionStore, tokens *TokenGenerator, baseURL string, defaultMinutes int) *SessionService {
	if defaultMinutes <= 0 {
		defaultMinutes = 5
	}
	return &SessionService{
		store:           store,
		tokens:          tokens,
		baseURL:         baseURL,
		defaultDuration: time.Duration(defaultMinutes) * time.Minute,
		now:             time.Now,
	}
}

func (s *SessionService) Create(ctx context.Context, req models.CreateSessionRequest) (*models.AttendanceSession, string, error) {
	fieldErrors := make(map[string]string)
	if req.TeacherID == uuid.Nil {
		fieldErrors["teacher_id"] = "Teacher ID is required"
	}
	if req.DurationMinutes != nil && *req.DurationMinutes <= 0 {
		fieldErrors["duration_minutes"] = "Duration must be a positive number of minutes"
	}
	if len(fieldErrors) > 0 {
		return nil, "", &ValidationError{Fields: fieldErrors}
	}

	sessionID, err := s.tokens.NewSessionID()
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.NewToken()
	if err != nil {
		return nil, "", err
	}

	duration := s.defaultDuration
	if req.DurationMinutes != nil {
		duration = time.Duration(*req.DurationMinutes) * time.Minute
	}

	session := &models.AttendanceSession{
		SessionID: sessionID,
		Token:     token,
		TeacherID: req.TeacherID,
		CourseID:  req.CourseID,
		Room:      req.Room,
		ExpiresAt: s.now().Add(duration),
	}

	if err := s.store.Create(ctx, session); err != nil {
		// No retry loop: generator entropy makes collisions a deployment
		// problem, not something to paper over silently.
		if errors.Is(err, repository.ErrDuplicateSession) {
			return nil, "", &ConflictError{Message: "Session ID collision, please retry"}
		}
		return nil, "", err
	}

	return session, s.ShareURL(session), nil
}

// ShareURL derives the link encoded into the QR code.
func (s *SessionService) ShareURL(session *models.AttendanceSession) string {
	q := url.Values{}
	q.Set("session_id", session.SessionID)
	q.Set("token", session.Token)
	return fmt.Sprintf("%s/scan?%s", s.baseURL, q.Encode())
}

// Validate looks up the session by exact (id, token) match. A token mismatch
// is indistinguishable from an unknown id so enumeration of session ids leaks
// nothing. Bad input is NOT_FOUND, never an error; only store failures
// propagate.
func (s *SessionService) Validate(ctx context.Context, sessionID, token string) (*models.SessionValidation, error) {
	if sessionID == "" || token == "" {
		return &models.SessionValidation{State: models.SessionNotFound}, nil
	}

	session, err := s.store.GetByIDAndToken(ctx, sessionID, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &models.SessionValidation{State: models.SessionNotFound}, nil
		}
		return nil, err
	}

	if s.now().After(session.ExpiresAt) {
		return &models.SessionValidation{State: models.SessionExpired, Session: session}, nil
	}

	return &models.SessionValidation{State: models.SessionActive, Session: session}, nil
}
