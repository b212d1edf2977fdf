package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"kanmind/backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryWithLog_PassesThroughWithoutPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(middleware.RecoveryWithLog(log))
	router.GET("/boards/", func(c *gin.Context) {
		c.JSON(http.StatusOK, []string{})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boards/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, buf.Len(), "nothing is logged when the handler returns normally")
}

func TestRecoveryWithLog_LogsPanicWithRequestContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RecoveryWithLog(log))
	router.GET("/boards/:id/", func(c *gin.Context) {
		panic("board projection exploded")
	})

	req := httptest.NewRequest(http.MethodGet, "/boards/3/", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-panic")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal_error"}`, w.Body.String())
	assert.Equal(t, "req-panic", w.Header().Get(middleware.HeaderRequestID))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "panic recovered", entry["msg"])
	assert.Equal(t, "board projection exploded", entry["panic"])
	assert.Equal(t, "req-panic", entry["request_id"])
	assert.Equal(t, http.MethodGet, entry["method"])
	assert.Equal(t, "/boards/3/", entry["path"])
	assert.Contains(t, entry["stack"], "runtime/debug.Stack")
}
