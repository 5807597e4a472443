package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	directoryCacheTTL  = 15 * time.Minute
	structureCacheKey  = "directory:structure"
	studentCachePrefix = "directory:student:"
)

// DirectoryService proxies the university registry API. It is deliberately
// outside the session/attendance core: its failures map to UpstreamError and
// never affect recording.
type DirectoryService struct {
	baseURL string
	client  *http.Client
	redis   *redis.Client
}

func NewDirectoryService(baseURL string, timeout time.Duration, redisClient *redis.Client) *DirectoryService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &DirectoryService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		redis:   redisClient,
	}
}

// StudentByMatricule fetches one student's registry record, serving from the
// redis cache when possible.
func (s *DirectoryService) StudentByMatricule(ctx context.Context, matricule string) (json.RawMessage, error) {
	if matricule == "" {
		return nil, &ValidationError{Fields: map[string]string{"matricule": "Matricule is required"}}
	}

	cacheKey := studentCachePrefix + matricule
	if cached, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
		return json.RawMessage(cached), nil
	}

	endpoint := fmt.Sprintf("%s/school-students/read-by-matricule?matricule=%s",
		s.baseURL, url.QueryEscape(matricule))

	body, err := s.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	s.redis.Set(ctx, cacheKey, []byte(body), directoryCacheTTL)
	return body, nil
}

// Structure fetches the faculties/promotions tree. It changes rarely, so the
// cache takes most of the traffic off the registry.
func (s *DirectoryService) Structure(ctx context.Context) (json.RawMessage, error) {
	if cached, err := s.redis.Get(ctx, structureCacheKey).Bytes(); err == nil {
		return json.RawMessage(cached), nil
	}

	endpoint := s.baseURL + "/school/entity-main-list?promotion_id=1"

	body, err := s.fetch(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	s.redis.Set(ctx, structureCacheKey, []byte(body), directoryCacheTTL)
	return body, nil
}

func (s *DirectoryService) fetch(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Reason: "unreachable", Message: "Registry API is unreachable"}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Reason: "unreachable", Message: "Registry API is unreachable"}
	}

	if !json.Valid(body) {
		return nil, &UpstreamError{Reason: "malformed-response", Message: "Registry API returned an invalid response"}
	}

	return json.RawMessage(body), nil
}
