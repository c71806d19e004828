package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/mdung/multi-portfolio-investment-tracker/internal/errors"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/middleware"
	"github.com/mdung/multi-portfolio-investment-tracker/internal/uuid"
)

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (string, error) {
	userID := c.GetString("userID")
	if userID == "" {
		return "", apperrors.ErrUnauthorized
	}
	return userID, nil
}

// parsePathID reads a UUID path parameter.
// Returns ErrInvalidInput if the parameter is not a valid UUID.
func parsePathID(c *gin.Context, param string) (string, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

// parseFlexibleTime accepts RFC 3339 or a plain YYYY-MM-DD date.
func parseFlexibleTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}

// parseDateRange reads the optional from_date/to_date query parameters.
func parseDateRange(c *gin.Context) (from, to *time.Time, err error) {
	if v := c.Query("from_date"); v != "" {
		t, perr := parseFlexibleTime(v)
		if perr != nil {
			return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid from_date")
		}
		from = &t
	}
	if v := c.Query("to_date"); v != "" {
		t, perr := parseFlexibleTime(v)
		if perr != nil {
			return nil, nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid to_date")
		}
		to = &t
	}
	return from, to, nil
}

// respondWithError writes err through the shared middleware renderer so
// handler and middleware failures share one body shape.
func respondWithError(c *gin.Context, err error) {
	middleware.RespondWithError(c, err)
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// MessageResponse represents a plain message response.
type MessageResponse struct {
	Message string `json:"message"`
}
