package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limit, err := RateLimit("2-M")
	if err != nil {
		t.Fatalf("RateLimit: %v", err)
	}
	r := gin.New()
	r.POST("/login", limit, func(c *gin.Context) { c.Status(http.StatusNoContent) })

	want := []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}
	for i, code := range want {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		if w.Code != code {
			t.Fatalf("request %d = %d, want %d", i+1, w.Code, code)
		}
	}
}

func TestRateLimitRejectsBadFormat(t *testing.T) {
	if _, err := RateLimit("ten per minute"); err == nil {
		t.Fatal("expected error for malformed rate")
	}
}
