package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"presencia-backend/internal/middleware"
	"presencia-backend/internal/models"
	"presencia-backend/internal/repository"
	"presencia-backend/internal/services"
)

type SessionHandler struct {
	sessionService *services.SessionService
	sessionRepo    *repository.SessionRepo
}

func NewSessionHandler(sessionService *services.SessionService, sessionRepo *repository.SessionRepo) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, sessionRepo: sessionRepo}
}

// Create opens a new attendance window. The teacher id comes from the JWT,
// not the payload, so a teacher can only open sessions as themselves.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CourseID        *uuid.UUID `json:"course_id"`
		Room            *string    `json:"room"`
		DurationMinutes *int       `json:"duration_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	session, shareURL, err := h.sessionService.Create(r.Context(), models.CreateSessionRequest{
		TeacherID:       middleware.GetUserID(r.Context()),
		CourseID:        req.CourseID,
		Room:            req.Room,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session":   session,
		"share_url": shareURL,
	})
}

// Validate reports the session state. It always answers 200 with a state
// field; an unknown id and a wrong token look identical on purpose.
func (h *SessionHandler) Validate(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	token := r.URL.Query().Get("token")

	validation, err := h.sessionService.Validate(r.Context(), sessionID, token)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, validation)
}

// QR renders the share link as a PNG. The secret token must be presented, so
// only someone who already holds the full share link (the teacher) can fetch
// the image.
func (h *SessionHandler) QR(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	token := r.URL.Query().Get("token")

	validation, err := h.sessionService.Validate(r.Context(), sessionID, token)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if validation.State == models.SessionNotFound {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
		return
	}

	png, err := qrcode.Encode(h.sessionService.ShareURL(validation.Session), qrcode.Medium, 256)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to render QR code", r))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// List returns the authenticated teacher's recent sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessionRepo.ListByTeacher(r.Context(), middleware.GetUserID(r.Context()), 50)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load sessions", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}
