// Package summaries exposes the on-demand test-send endpoints.
package summaries

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tasklane/tasklane/internal/models"
	"github.com/tasklane/tasklane/internal/scheduler"
)

// TestSender performs a synchronous test send. Implemented by the scheduler.
type TestSender interface {
	SendTest(ctx context.Context, userID uint, kind string) scheduler.TestResult
}

// SendTestDailyHandler sends the caller a test daily summary immediately.
func SendTestDailyHandler(svc TestSender) gin.HandlerFunc {
	return testSendHandler(svc, models.SummaryKindDaily)
}

// SendTestWeeklyHandler sends the caller a test weekly summary immediately.
func SendTestWeeklyHandler(svc TestSender) gin.HandlerFunc {
	return testSendHandler(svc, models.SummaryKindWeekly)
}

func testSendHandler(svc TestSender, kind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, scheduler.TestResult{Message: "authentication required"})
			return
		}

		res := svc.SendTest(c.Request.Context(), userID, kind)
		c.JSON(statusFor(res), res)
	}
}

func statusFor(res scheduler.TestResult) int {
	switch {
	case res.OK:
		return http.StatusOK
	case res.Message == "user not found":
		return http.StatusNotFound
	case strings.HasPrefix(res.Message, "sending failed"):
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

// currentUserID reads the user id the auth middleware stored in the context.
// Session stores hand back different integer widths depending on the
// serializer, so all of them are accepted.
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	switch id := v.(type) {
	case uint:
		return id, true
	case int:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	case int64:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	case float64:
		if id < 0 {
			return 0, false
		}
		return uint(id), true
	default:
		return 0, false
	}
}
