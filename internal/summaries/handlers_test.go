package summaries

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklane/tasklane/internal/scheduler"
)

type stubSender struct {
	result  scheduler.TestResult
	gotUser uint
	gotKind string
	called  bool
}

func (s *stubSender) SendTest(_ context.Context, userID uint, kind string) scheduler.TestResult {
	s.called = true
	s.gotUser = userID
	s.gotKind = kind
	return s.result
}

func newRouter(svc TestSender, userID any) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != nil {
			c.Set("user_id", userID)
		}
	})
	r.POST("/api/summaries/test/daily", SendTestDailyHandler(svc))
	r.POST("/api/summaries/test/weekly", SendTestWeeklyHandler(svc))
	return r
}

func post(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, scheduler.TestResult) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var res scheduler.TestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return w, res
}

func TestSendTestDailySuccess(t *testing.T) {
	svc := &stubSender{result: scheduler.TestResult{OK: true, Message: "test daily summary sent to maria@example.com"}}
	r := newRouter(svc, uint(7))

	w, res := post(t, r, "/api/summaries/test/daily")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, res.OK)
	assert.Equal(t, uint(7), svc.gotUser)
	assert.Equal(t, "daily", svc.gotKind)
}

func TestSendTestWeeklyKind(t *testing.T) {
	svc := &stubSender{result: scheduler.TestResult{OK: true, Message: "ok"}}
	r := newRouter(svc, uint(7))

	w, _ := post(t, r, "/api/summaries/test/weekly")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "weekly", svc.gotKind)
}

func TestSendTestRequiresUser(t *testing.T) {
	svc := &stubSender{}
	r := newRouter(svc, nil)

	w, res := post(t, r, "/api/summaries/test/daily")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, res.OK)
	assert.False(t, svc.called)
}

func TestSendTestUserNotFound(t *testing.T) {
	svc := &stubSender{result: scheduler.TestResult{Message: "user not found"}}
	r := newRouter(svc, uint(99))

	w, res := post(t, r, "/api/summaries/test/daily")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, res.OK)
}

func TestSendTestTransportFailure(t *testing.T) {
	svc := &stubSender{result: scheduler.TestResult{Message: "sending failed: smtp unreachable"}}
	r := newRouter(svc, uint(7))

	w, res := post(t, r, "/api/summaries/test/daily")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "smtp unreachable")
}

func TestSendTestIntSessionID(t *testing.T) {
	// Cookie sessions round-trip ids as plain ints.
	svc := &stubSender{result: scheduler.TestResult{OK: true}}
	r := newRouter(svc, 7)

	w, _ := post(t, r, "/api/summaries/test/daily")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(7), svc.gotUser)
}
