package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestPipelineAuthMiddleware(t *testing.T) {
	const key = "sweep-key-123"

	var reached int
	newRouter := func(configured string) *gin.Engine {
		r := gin.New()
		r.POST("/pipeline/snapshots", PipelineAuthMiddleware(configured), func(c *gin.Context) {
			reached++
			c.JSON(http.StatusOK, gin.H{"success": 0})
		})
		return r
	}
	call := func(r *gin.Engine, sent string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/pipeline/snapshots", http.NoBody)
		if sent != "" {
			req.Header.Set("X-API-Key", sent)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	cases := map[string]struct {
		configured string
		sent       string
		status     int
		code       string
	}{
		"matching key":       {configured: key, sent: key, status: http.StatusOK},
		"wrong key":          {configured: key, sent: "sweep-key-124", status: http.StatusUnauthorized, code: "INVALID_API_KEY"},
		"prefix of the key":  {configured: key, sent: "sweep-key", status: http.StatusUnauthorized, code: "INVALID_API_KEY"},
		"no key sent":        {configured: key, status: http.StatusUnauthorized, code: "INVALID_API_KEY"},
		"nothing configured": {configured: "", sent: key, status: http.StatusServiceUnavailable, code: "PIPELINE_NOT_CONFIGURED"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			reached = 0
			rec := call(newRouter(tc.configured), tc.sent)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.code == "" {
				if reached != 1 {
					t.Errorf("expected the handler to run once, ran %d times", reached)
				}
				return
			}
			if reached != 0 {
				t.Error("expected the handler to be skipped")
			}
			assertErrorBody(t, rec, tc.code)
		})
	}
}
