package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"presencia-backend/internal/models"
	"presencia-backend/internal/repository"
	"presencia-backend/internal/services"
)

// StudentDirectory resolves a student for scan feed enrichment.
// *repository.UserRepo satisfies it; tests inject fakes.
type StudentDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// FeedPublisher pushes scan events onto the live feed channel.
type FeedPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// NewRedisFeed adapts a redis client to the FeedPublisher contract.
func NewRedisFeed(client *redis.Client) FeedPublisher {
	return redisFeed{client: client}
}

type redisFeed struct{ client *redis.Client }

func (f redisFeed) Publish(ctx context.Context, channel string, payload []byte) error {
	return f.client.Publish(ctx, channel, payload).Err()
}

type AttendanceHandler struct {
	attendanceService *services.AttendanceService
	sessionService    *services.SessionService
	attendanceRepo    *repository.AttendanceRepo
	students          StudentDirectory
	feed              FeedPublisher
}

func NewAttendanceHandler(
	attendanceService *services.AttendanceService,
	sessionService *services.SessionService,
	attendanceRepo *repository.AttendanceRepo,
	students StudentDirectory,
	feed FeedPublisher,
) *AttendanceHandler {
	return &AttendanceHandler{
		attendanceService: attendanceService,
		sessionService:    sessionService,
		attendanceRepo:    attendanceRepo,
		students:          students,
		feed:              feed,
	}
}

// Record registers a presence. On the scan path the request carries the
// session token and we validate before recording; the recorder itself never
// checks expiry.
func (h *AttendanceHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req models.RecordAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	fieldErrors := make(map[string]string)
	if req.StudentID == "" {
		fieldErrors["student_id"] = "Student ID is required"
	}
	if req.SessionID == "" {
		fieldErrors["session_id"] = "Session ID is required"
	}
	if len(fieldErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fieldErrors, r))
		return
	}

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"student_id": "Invalid student ID"}, r))
		return
	}

	var session *models.AttendanceSession
	if req.Token != "" {
		validation, err := h.sessionService.Validate(r.Context(), req.SessionID, req.Token)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		switch validation.State {
		case models.SessionNotFound:
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found", r))
			return
		case models.SessionExpired:
			writeJSON(w, http.StatusGone, errorResp("SESSION_EXPIRED", "Session has expired", r))
			return
		}
		session = validation.Session
	}

	result, err := h.attendanceService.Record(r.Context(), studentID, req.SessionID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if result.Status == models.AttendanceRecorded && session != nil {
		h.publishScan(r, session, result.Record)
	}

	status := http.StatusCreated
	if result.Status == models.AttendanceDuplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// publishScan pushes the new presence onto the teacher's live feed channel.
// Feed delivery is best effort; a publish failure never fails the scan.
func (h *AttendanceHandler) publishScan(r *http.Request, session *models.AttendanceSession, rec *models.AttendanceRecord) {
	event := models.ScanEvent{
		Type:       "attendance_recorded",
		SessionID:  session.SessionID,
		StudentID:  rec.StudentID,
		RecordedAt: rec.RecordedAt,
	}
	if student, err := h.students.GetByID(r.Context(), rec.StudentID); err == nil {
		event.StudentMatricule = student.Matricule
		event.StudentName = student.FullName
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.feed.Publish(r.Context(), "scan_feed:"+session.TeacherID.String(), payload)
}

func (h *AttendanceHandler) BySession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"session_id": "Session ID is required"}, r))
		return
	}

	attendees, err := h.attendanceRepo.ListBySession(r.Context(), sessionID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load attendance", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": attendees})
}

func (h *AttendanceHandler) ByStudent(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(r.URL.Query().Get("student_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"student_id": "Valid student ID is required"}, r))
		return
	}

	history, err := h.attendanceRepo.ListByStudent(r.Context(), studentID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load attendance", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": history})
}

func (h *AttendanceHandler) ByTeacherDate(w http.ResponseWriter, r *http.Request) {
	teacherID, err := uuid.Parse(r.URL.Query().Get("teacher_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"teacher_id": "Valid teacher ID is required"}, r))
		return
	}

	day := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		day, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"date": "Date must be YYYY-MM-DD"}, r))
			return
		}
	}

	records, err := h.attendanceRepo.ListByTeacherOnDate(r.Context(), teacherID, day)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load attendance", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": records})
}

func (h *AttendanceHandler) ByTeacherCourse(w http.ResponseWriter, r *http.Request) {
	teacherID, err := uuid.Parse(r.URL.Query().Get("teacher_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"teacher_id": "Valid teacher ID is required"}, r))
		return
	}
	courseID, err := uuid.Parse(r.URL.Query().Get("course_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"course_id": "Valid course ID is required"}, r))
		return
	}

	// Default window: the last 30 days.
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if raw := r.URL.Query().Get("start_date"); raw != "" {
		from, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"start_date": "Date must be YYYY-MM-DD"}, r))
			return
		}
	}
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		to, err = time.Parse("2006-01-02", raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
				map[string]string{"end_date": "Date must be YYYY-MM-DD"}, r))
			return
		}
	}

	records, err := h.attendanceRepo.ListByTeacherCourse(r.Context(), teacherID, courseID, from, to)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load attendance", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": records})
}
