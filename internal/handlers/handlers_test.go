package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"presencia-backend/internal/models"
	"presencia-backend/internal/repository"
	"presencia-backend/internal/services"
)

// ─── Fakes ───

type stubSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.AttendanceSession
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]*models.AttendanceSession)}
}

func (s *stubSessionStore) Create(ctx context.Context, session *models.AttendanceSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.SessionID]; exists {
		return repository.ErrDuplicateSession
	}
	session.CreatedAt = time.Now()
	clone := *session
	s.sessions[session.SessionID] = &clone
	return nil
}

func (s *stubSessionStore) GetByIDAndToken(ctx context.Context, sessionID, token string) (*models.AttendanceSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.Token != token {
		return nil, pgx.ErrNoRows
	}
	clone := *session
	return &clone, nil
}

func (s *stubSessionStore) add(session *models.AttendanceSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
}

type stubAttendanceStore struct {
	mu   sync.Mutex
	rows map[string]bool
}

func newStubAttendanceStore() *stubAttendanceStore {
	return &stubAttendanceStore{rows: make(map[string]bool)}
}

func (s *stubAttendanceStore) Insert(ctx context.Context, rec *models.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rec.StudentID.String() + "|" + rec.SessionID
	if s.rows[key] {
		return repository.ErrDuplicateAttendance
	}
	rec.ID = uuid.New()
	rec.RecordedAt = time.Now()
	s.rows[key] = true
	return nil
}

type stubStudentDirectory struct {
	users map[uuid.UUID]*models.User
}

func (s *stubStudentDirectory) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

type stubFeed struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func (f *stubFeed) Publish(ctx context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.published == nil {
		f.published = make(map[string][][]byte)
	}
	f.published[channel] = append(f.published[channel], payload)
	return nil
}

func (f *stubFeed) events(channel string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[channel]
}

func newTestSessionHandler(store *stubSessionStore) *SessionHandler {
	svc := services.NewSessionService(store, services.NewTokenGenerator(), "http://localhost:8080", 5)
	return NewSessionHandler(svc, nil)
}

// ─── Session Validate Handler ───

func TestValidateHandler_States(t *testing.T) {
	store := newStubSessionStore()
	store.add(&models.AttendanceSession{
		SessionID: "session_100_aaaa1111",
		Token:     "tok-active",
		TeacherID: uuid.New(),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	})
	store.add(&models.AttendanceSession{
		SessionID: "session_200_bbbb2222",
		Token:     "tok-expired",
		TeacherID: uuid.New(),
		ExpiresAt: time.Now().Add(-1 * time.Minute),
	})

	h := newTestSessionHandler(store)

	tests := []struct {
		name      string
		sessionID string
		token     string
		expected  models.SessionState
	}{
		{"active session", "session_100_aaaa1111", "tok-active", models.SessionActive},
		{"expired session", "session_200_bbbb2222", "tok-expired", models.SessionExpired},
		{"unknown session", "session_999_cccc3333", "tok-active", models.SessionNotFound},
		{"wrong token", "session_100_aaaa1111", "tok-expired", models.SessionNotFound},
		{"missing params", "", "", models.SessionNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			url := fmt.Sprintf("/api/v1/sessions/validate?session_id=%s&token=%s", tc.sessionID, tc.token)
			req := httptest.NewRequest(http.MethodGet, url, nil)
			rr := httptest.NewRecorder()

			h.Validate(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rr.Code)
			}

			var result models.SessionValidation
			if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if result.State != tc.expected {
				t.Errorf("Expected state %s, got %s", tc.expected, result.State)
			}
		})
	}
}

// ─── QR Handler ───

func TestQRHandler(t *testing.T) {
	store := newStubSessionStore()
	store.add(&models.AttendanceSession{
		SessionID: "session_100_aaaa1111",
		Token:     "tok-active",
		TeacherID: uuid.New(),
		ExpiresAt: time.Now().Add(5 * time.Minute),
	})

	h := newTestSessionHandler(store)

	r := chi.NewRouter()
	r.Get("/sessions/{sessionID}/qr", h.QR)

	req := httptest.NewRequest(http.MethodGet, "/sessions/session_100_aaaa1111/qr?token=tok-active", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}
	if rr.Body.Len() == 0 {
		t.Error("Expected PNG bytes in response")
	}

	// Wrong token must 404, not leak the QR
	req = httptest.NewRequest(http.MethodGet, "/sessions/session_100_aaaa1111/qr?token=wrong", nil)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for wrong token, got %d", rr.Code)
	}
}

// ─── Record Attendance Handler ───

func newTestAttendanceHandler(sessionStore *stubSessionStore, attendanceStore *stubAttendanceStore, students *stubStudentDirectory, feed *stubFeed) *AttendanceHandler {
	sessionSvc := services.NewSessionService(sessionStore, services.NewTokenGenerator(), "http://localhost:8080", 5)
	attendanceSvc := services.NewAttendanceService(attendanceStore)
	return NewAttendanceHandler(attendanceSvc, sessionSvc, nil, students, feed)
}

func recordRequest(t *testing.T, body map[string]string) *http.Request {
	t.Helper()
	jsonBody, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/record", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRecordHandler_MissingFields(t *testing.T) {
	h := newTestAttendanceHandler(newStubSessionStore(), newStubAttendanceStore(), &stubStudentDirectory{}, &stubFeed{})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing student", map[string]string{"session_id": "session_1_aa"}},
		{"missing session", map[string]string{"student_id": uuid.NewString()}},
		{"empty body", map[string]string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.Record(rr, recordRequest(t, tc.body))

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestRecordHandler_RecordedThenDuplicate(t *testing.T) {
	h := newTestAttendanceHandler(newStubSessionStore(), newStubAttendanceStore(), &stubStudentDirectory{}, &stubFeed{})

	body := map[string]string{
		"student_id": uuid.NewString(),
		"session_id": "session_1741600000_abcd1234",
	}

	rr := httptest.NewRecorder()
	h.Record(rr, recordRequest(t, body))
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201 on first record, got %d", rr.Code)
	}
	var first models.AttendanceResult
	json.NewDecoder(rr.Body).Decode(&first)
	if first.Status != models.AttendanceRecorded {
		t.Errorf("Expected RECORDED, got %s", first.Status)
	}

	rr = httptest.NewRecorder()
	h.Record(rr, recordRequest(t, body))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 on duplicate, got %d", rr.Code)
	}
	var second models.AttendanceResult
	json.NewDecoder(rr.Body).Decode(&second)
	if second.Status != models.AttendanceDuplicate {
		t.Errorf("Expected DUPLICATE, got %s", second.Status)
	}
}

func TestRecordHandler_ScanFlowPublishesToFeed(t *testing.T) {
	teacherID := uuid.New()
	studentID := uuid.New()

	sessionStore := newStubSessionStore()
	sessionStore.add(&models.AttendanceSession{
		SessionID: "session_300_dddd4444",
		Token:     "tok-live",
		TeacherID: teacherID,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	})

	students := &stubStudentDirectory{users: map[uuid.UUID]*models.User{
		studentID: {ID: studentID, Matricule: "05/23.09876", FullName: "Test Student"},
	}}
	feed := &stubFeed{}

	h := newTestAttendanceHandler(sessionStore, newStubAttendanceStore(), students, feed)

	body := map[string]string{
		"student_id": studentID.String(),
		"session_id": "session_300_dddd4444",
		"token":      "tok-live",
	}

	rr := httptest.NewRecorder()
	h.Record(rr, recordRequest(t, body))

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201 for a valid scan, got %d", rr.Code)
	}
	var result models.AttendanceResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if result.Status != models.AttendanceRecorded {
		t.Errorf("Expected RECORDED, got %s", result.Status)
	}

	events := feed.events("scan_feed:" + teacherID.String())
	if len(events) != 1 {
		t.Fatalf("Expected 1 published event, got %d", len(events))
	}
	var event models.ScanEvent
	if err := json.Unmarshal(events[0], &event); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if event.Type != "attendance_recorded" {
		t.Errorf("Expected attendance_recorded event, got %q", event.Type)
	}
	if event.SessionID != "session_300_dddd4444" {
		t.Errorf("Expected event for the scanned session, got %q", event.SessionID)
	}
	if event.StudentMatricule != "05/23.09876" {
		t.Errorf("Expected enriched matricule, got %q", event.StudentMatricule)
	}

	// A repeat scan is a DUPLICATE and must not publish again
	rr = httptest.NewRecorder()
	h.Record(rr, recordRequest(t, body))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 on duplicate scan, got %d", rr.Code)
	}
	if n := len(feed.events("scan_feed:" + teacherID.String())); n != 1 {
		t.Errorf("Expected no event for a duplicate scan, got %d total", n)
	}
}

func TestRecordHandler_ScanFlowRejectsBadSessions(t *testing.T) {
	sessionStore := newStubSessionStore()
	sessionStore.add(&models.AttendanceSession{
		SessionID: "session_200_bbbb2222",
		Token:     "tok-expired",
		TeacherID: uuid.New(),
		ExpiresAt: time.Now().Add(-1 * time.Minute),
	})

	h := newTestAttendanceHandler(sessionStore, newStubAttendanceStore(), &stubStudentDirectory{}, &stubFeed{})

	tests := []struct {
		name     string
		body     map[string]string
		expected int
	}{
		{
			"expired session",
			map[string]string{
				"student_id": uuid.NewString(),
				"session_id": "session_200_bbbb2222",
				"token":      "tok-expired",
			},
			http.StatusGone,
		},
		{
			"unknown session",
			map[string]string{
				"student_id": uuid.NewString(),
				"session_id": "session_999_cccc3333",
				"token":      "tok-whatever",
			},
			http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.Record(rr, recordRequest(t, tc.body))

			if rr.Code != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, rr.Code)
			}
		})
	}
}

// ─── Create Session Handler ───

func TestCreateSessionHandler_InvalidBody(t *testing.T) {
	h := newTestSessionHandler(newStubSessionStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	h.Create(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rr.Code)
	}
}

// ─── Error envelope ───

func TestErrorEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")

	writeJSON(rr, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Validation failed", req))

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error envelope: %v", err)
	}
	if resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %q", resp.Error.Code)
	}
	if resp.Error.RequestID != "req-123" {
		t.Errorf("Expected request id to round-trip, got %q", resp.Error.RequestID)
	}
}
