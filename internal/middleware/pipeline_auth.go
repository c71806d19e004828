package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/logger"
)

const pipelineKeyHeader = "X-API-Key"

// PipelineAuthMiddleware guards the batch endpoints with a shared key sent
// in X-API-Key. With no key configured the endpoints stay closed.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	want := []byte(apiKey)
	return func(c *gin.Context) {
		switch {
		case len(want) == 0:
			RespondWithError(c, apperrors.ErrPipelineNotConfigured)
		case subtle.ConstantTimeCompare([]byte(c.GetHeader(pipelineKeyHeader)), want) != 1:
			logger.Get().Warnw("Rejected pipeline call", "path", c.Request.URL.Path, "client_ip", c.ClientIP())
			RespondWithError(c, apperrors.ErrInvalidAPIKey)
		default:
			c.Next()
			return
		}
		c.Abort()
	}
}
