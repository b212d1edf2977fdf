package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kanmind/backend/internal/cache"
	"kanmind/backend/internal/config"
	"kanmind/backend/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestApplicationStartup(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.False(t, cfg.Redis.Enabled)
}

type APISuite struct {
	suite.Suite
	pool   *database.DatabasePool
	app    *application
	router *gin.Engine
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	poolConfig := database.DefaultPoolConfig()
	poolConfig.Driver = database.DriverSQLite
	poolConfig.DSN = ":memory:"
	poolConfig.Logger = log
	pool, err := database.NewDatabasePool(poolConfig)
	s.Require().NoError(err)
	s.Require().NoError(database.Migrate(pool.DB))
	s.pool = pool

	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		Redis:  config.RedisConfig{UserCacheTTL: time.Minute},
		Auth: config.AuthConfig{
			JWTSecret:       "integration-secret",
			Issuer:          "kanmind-test",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
			BCryptCost:      4,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:5500"}},
	}
	s.app = newApplication(cfg, log, pool, cache.NewMultiLevelCache(nil, nil))
	s.router = s.app.routes()
}

func (s *APISuite) TearDownTest() {
	s.app.stop()
	s.pool.Close()
}

func (s *APISuite) call(method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

type account struct {
	id      uint
	token   string
	refresh string
}

func (s *APISuite) register(name, email string) account {
	w, body := s.call(http.MethodPost, "/api/registration/", "", map[string]string{
		"fullname":          name,
		"email":             email,
		"password":          "s3cret-pass",
		"repeated_password": "s3cret-pass",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return account{
		id:      uint(body["user_id"].(float64)),
		token:   body["token"].(string),
		refresh: body["refresh_token"].(string),
	}
}

func (s *APISuite) TestHealthAndMetricsAreOpen() {
	w, body := s.call(http.MethodGet, "/health/ready", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.NotEmpty(body)

	w, _ = s.call(http.MethodGet, "/health/live", "", nil)
	s.Equal(http.StatusOK, w.Code)

	w, _ = s.call(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *APISuite) TestProtectedRoutesNeedToken() {
	w, body := s.call(http.MethodGet, "/api/boards/", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("missing_token", body["error"])

	w, _ = s.call(http.MethodGet, "/api/boards/", "not-a-jwt", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APISuite) TestRegistrationAndLogin() {
	alice := s.register("Alice Doe", "alice@example.com")
	s.NotZero(alice.id)

	w, body := s.call(http.MethodPost, "/api/registration/", "", map[string]string{
		"fullname":          "Second Alice",
		"email":             "alice@example.com",
		"password":          "pw",
		"repeated_password": "pw",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(body["details"], "email")

	w, body = s.call(http.MethodPost, "/api/login/", "", map[string]string{
		"email":    "alice@example.com",
		"password": "s3cret-pass",
	})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("Alice Doe", body["fullname"])

	w, body = s.call(http.MethodPost, "/api/login/", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal(map[string]interface{}{"non_field_errors": []interface{}{"Email or password is not match"}}, body["details"])
}

func (s *APISuite) TestBoardTaskCommentFlow() {
	alice := s.register("Alice Doe", "alice@example.com")
	bob := s.register("Bob Roe", "bob@example.com")
	carol := s.register("Carol Poe", "carol@example.com")

	w, body := s.call(http.MethodPost, "/api/boards/", alice.token, map[string]interface{}{
		"title":   "Launch",
		"members": []uint{bob.id},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	boardID := uint(body["id"].(float64))
	s.Equal(float64(1), body["member_count"])

	w, _ = s.call(http.MethodGet, fmt.Sprintf("/api/boards/%d/", boardID), carol.token, nil)
	s.Equal(http.StatusForbidden, w.Code)
	w, _ = s.call(http.MethodGet, "/api/boards/999/", carol.token, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, body = s.call(http.MethodPost, "/api/tasks/", bob.token, map[string]interface{}{
		"board":       boardID,
		"title":       "Write release notes",
		"status":      "to-do",
		"priority":    "high",
		"assignee_id": bob.id,
		"reviewer_id": alice.id,
		"due_date":    "2025-06-30",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	taskID := uint(body["id"].(float64))
	s.Equal("2025-06-30", body["due_date"])

	w, body = s.call(http.MethodPost, "/api/tasks/", carol.token, map[string]interface{}{
		"board": boardID,
		"title": "Sneaky",
	})
	s.Equal(http.StatusForbidden, w.Code)

	w, _ = s.call(http.MethodGet, "/api/tasks/assigned-to-me/", bob.token, nil)
	s.Equal(http.StatusOK, w.Code)
	var assigned []map[string]interface{}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &assigned))
	s.Len(assigned, 1)

	w, _ = s.call(http.MethodGet, "/api/tasks/reviewing/", alice.token, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Write release notes")

	w, body = s.call(http.MethodPatch, fmt.Sprintf("/api/tasks/%d/", taskID), alice.token, map[string]interface{}{
		"status":      "review",
		"assignee_id": nil,
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Equal("review", body["status"])
	s.Nil(body["assignee"])

	w, body = s.call(http.MethodPost, fmt.Sprintf("/api/tasks/%d/comments/", taskID), bob.token, map[string]string{
		"content": "Draft is up",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	commentID := uint(body["id"].(float64))
	s.Equal("Bob Roe", body["author"])

	w, _ = s.call(http.MethodDelete, fmt.Sprintf("/api/tasks/%d/comments/%d/", taskID, commentID), alice.token, nil)
	s.Equal(http.StatusForbidden, w.Code)
	w, _ = s.call(http.MethodDelete, fmt.Sprintf("/api/tasks/%d/comments/%d/", taskID, commentID), bob.token, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w, _ = s.call(http.MethodGet, fmt.Sprintf("/api/boards/%d/", boardID), bob.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"comments_count":0`)

	w, _ = s.call(http.MethodDelete, fmt.Sprintf("/api/boards/%d/", boardID), bob.token, nil)
	s.Equal(http.StatusForbidden, w.Code)
	w, _ = s.call(http.MethodDelete, fmt.Sprintf("/api/boards/%d/", boardID), alice.token, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w, _ = s.call(http.MethodGet, fmt.Sprintf("/api/tasks/%d/", taskID), alice.token, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APISuite) TestRefreshAndLogout() {
	alice := s.register("Alice Doe", "alice@example.com")

	w, body := s.call(http.MethodPost, "/api/token/refresh/", "", map[string]string{"refresh_token": alice.refresh})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	rotated := body["refresh_token"].(string)
	access := body["token"].(string)
	s.NotEqual(alice.refresh, rotated)

	w, _ = s.call(http.MethodPost, "/api/token/refresh/", "", map[string]string{"refresh_token": alice.refresh})
	s.Equal(http.StatusUnauthorized, w.Code)

	w, _ = s.call(http.MethodPost, "/api/logout/", access, map[string]string{"refresh_token": rotated})
	s.Equal(http.StatusOK, w.Code)

	w, body = s.call(http.MethodGet, "/api/profile/", access, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("revoked_token", body["error"])

	w, _ = s.call(http.MethodPost, "/api/token/refresh/", "", map[string]string{"refresh_token": rotated})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APISuite) TestEmailCheckAndProfile() {
	alice := s.register("Alice Doe", "alice@example.com")
	s.register("Bob Roe", "bob@example.com")

	w, body := s.call(http.MethodGet, "/api/email-check/?email=bob@example.com", alice.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("Bob Roe", body["fullname"])

	w, _ = s.call(http.MethodGet, "/api/email-check/?email=nobody@example.com", alice.token, nil)
	s.Equal(http.StatusNotFound, w.Code)

	w, _ = s.call(http.MethodGet, "/api/email-check/", alice.token, nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w, body = s.call(http.MethodGet, "/api/profile/", alice.token, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("alice@example.com", body["email"])

	w, _ = s.call(http.MethodDelete, "/api/profile/", alice.token, nil)
	s.Equal(http.StatusNoContent, w.Code)

	w, body = s.call(http.MethodGet, "/api/profile/", alice.token, nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Equal("unknown_user", body["error"])
}
