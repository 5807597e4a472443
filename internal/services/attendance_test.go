package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"presencia-backend/internal/models"
	"presencia-backend/internal/repository"
)

// fakeAttendanceStore mimics the unique constraint on (student, session):
// the insert is atomic and the second writer for a pair loses.
type fakeAttendanceStore struct {
	mu   sync.Mutex
	rows map[string]models.AttendanceRecord
}

func newFakeAttendanceStore() *fakeAttendanceStore {
	return &fakeAttendanceStore{rows: make(map[string]models.AttendanceRecord)}
}

func (f *fakeAttendanceStore) Insert(ctx context.Context, rec *models.AttendanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := rec.StudentID.String() + "|" + rec.SessionID
	if _, exists := f.rows[key]; exists {
		return repository.ErrDuplicateAttendance
	}

	rec.ID = uuid.New()
	rec.RecordedAt = time.Now()
	f.rows[key] = *rec
	return nil
}

func (f *fakeAttendanceStore) count(studentID uuid.UUID, sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.rows[studentID.String()+"|"+sessionID]; exists {
		return 1
	}
	return 0
}

func TestRecordAttendance_FirstThenDuplicate(t *testing.T) {
	store := newFakeAttendanceStore()
	svc := NewAttendanceService(store)

	studentID := uuid.New()
	sessionID := "session_1741600000_abcd1234"

	first, err := svc.Record(context.Background(), studentID, sessionID)
	if err != nil {
		t.Fatalf("First record failed: %v", err)
	}
	if first.Status != models.AttendanceRecorded {
		t.Errorf("Expected RECORDED, got %s", first.Status)
	}
	if first.Record == nil || first.Record.RecordedAt.IsZero() {
		t.Error("Expected a populated record on RECORDED")
	}

	second, err := svc.Record(context.Background(), studentID, sessionID)
	if err != nil {
		t.Fatalf("Second record errored, expected DUPLICATE result: %v", err)
	}
	if second.Status != models.AttendanceDuplicate {
		t.Errorf("Expected DUPLICATE, got %s", second.Status)
	}

	if n := store.count(studentID, sessionID); n != 1 {
		t.Errorf("Expected exactly 1 stored record, got %d", n)
	}
}

func TestRecordAttendance_IndependentPairs(t *testing.T) {
	store := newFakeAttendanceStore()
	svc := NewAttendanceService(store)

	studentA := uuid.New()
	studentB := uuid.New()

	for _, pair := range []struct {
		student uuid.UUID
		session string
	}{
		{studentA, "session_1_aa"},
		{studentA, "session_2_bb"},
		{studentB, "session_1_aa"},
	} {
		result, err := svc.Record(context.Background(), pair.student, pair.session)
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if result.Status != models.AttendanceRecorded {
			t.Errorf("Expected RECORDED for independent pair, got %s", result.Status)
		}
	}
}

func TestRecordAttendance_Validation(t *testing.T) {
	svc := NewAttendanceService(newFakeAttendanceStore())

	tests := []struct {
		name      string
		studentID uuid.UUID
		sessionID string
		field     string
	}{
		{"missing student", uuid.Nil, "session_1_aa", "student_id"},
		{"missing session", uuid.New(), "", "session_id"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), tc.studentID, tc.sessionID)
			valErr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Expected *ValidationError, got %v", err)
			}
			if _, present := valErr.Fields[tc.field]; !present {
				t.Errorf("Expected field error for %q, got %v", tc.field, valErr.Fields)
			}
		})
	}
}

func TestRecordAttendance_ConcurrentDuplicates(t *testing.T) {
	store := newFakeAttendanceStore()
	svc := NewAttendanceService(store)

	studentID := uuid.New()
	sessionID := "session_1741600000_ffff0000"

	const attempts = 8
	results := make([]models.AttendanceStatus, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := svc.Record(context.Background(), studentID, sessionID)
			if err != nil {
				t.Errorf("Concurrent record errored: %v", err)
				return
			}
			results[i] = result.Status
		}(i)
	}
	wg.Wait()

	recorded := 0
	for _, status := range results {
		if status == models.AttendanceRecorded {
			recorded++
		}
	}
	if recorded != 1 {
		t.Errorf("Expected exactly 1 RECORDED among %d concurrent attempts, got %d", attempts, recorded)
	}
	if n := store.count(studentID, sessionID); n != 1 {
		t.Errorf("Expected exactly 1 stored record, got %d", n)
	}
}
