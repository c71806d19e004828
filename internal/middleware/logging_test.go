package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mdung/multi-portfolio-investment-tracker/internal/uuid"
)

func TestRequestLogging(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestLogging())
	r.GET("/ping", func(c *gin.Context) {
		seen = c.GetString(requestIDKey)
		c.Status(http.StatusNoContent)
	})

	t.Run("assigns an id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", http.NoBody))

		got := rec.Header().Get("X-Request-ID")
		if !uuid.IsValid(got) {
			t.Fatalf("expected a UUID request id, got %q", got)
		}
		if seen != got {
			t.Errorf("expected handler to see %q, got %q", got, seen)
		}
	})

	t.Run("keeps a valid caller id", func(t *testing.T) {
		const callerID = "01900000-0000-7000-8000-0000000000ab"
		req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
		req.Header.Set("X-Request-ID", callerID)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); got != callerID {
			t.Errorf("expected %s echoed back, got %s", callerID, got)
		}
	})

	t.Run("replaces a malformed caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
		req.Header.Set("X-Request-ID", "not a uuid\r\n")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if got := rec.Header().Get("X-Request-ID"); !uuid.IsValid(got) || got == "not a uuid\r\n" {
			t.Errorf("expected a fresh id, got %q", got)
		}
	})
}
