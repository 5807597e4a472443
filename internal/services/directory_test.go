package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// testRedis returns a client pointing nowhere: every cache call fails fast,
// which exercises the fetch path without a running redis.
func testRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestDirectoryStudent_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("matricule"); got != "05/23.09876" {
			t.Errorf("Expected matricule forwarded, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fullname":"Test Student","matricule":"05/23.09876"}`))
	}))
	defer server.Close()

	svc := NewDirectoryService(server.URL, 5*time.Second, testRedis())

	data, err := svc.StudentByMatricule(context.Background(), "05/23.09876")
	if err != nil {
		t.Fatalf("StudentByMatricule failed: %v", err)
	}
	if len(data) == 0 {
		t.Error("Expected a response body")
	}
}

func TestDirectoryStudent_MissingMatricule(t *testing.T) {
	svc := NewDirectoryService("http://example.invalid", 5*time.Second, testRedis())

	_, err := svc.StudentByMatricule(context.Background(), "")
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("Expected *ValidationError, got %v", err)
	}
}

func TestDirectoryStudent_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	svc := NewDirectoryService(server.URL, 1*time.Second, testRedis())

	_, err := svc.StudentByMatricule(context.Background(), "05/23.09876")
	upstream, ok := err.(*UpstreamError)
	if !ok {
		t.Fatalf("Expected *UpstreamError, got %v", err)
	}
	if upstream.Reason != "unreachable" {
		t.Errorf("Expected reason 'unreachable', got %q", upstream.Reason)
	}
}

func TestDirectoryStructure_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	svc := NewDirectoryService(server.URL, 5*time.Second, testRedis())

	_, err := svc.Structure(context.Background())
	upstream, ok := err.(*UpstreamError)
	if !ok {
		t.Fatalf("Expected *UpstreamError, got %v", err)
	}
	if upstream.Reason != "malformed-response" {
		t.Errorf("Expected reason 'malformed-response', got %q", upstream.Reason)
	}
}
