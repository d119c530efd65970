package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "ledgerd/internal/errors"
	"ledgerd/internal/logger"
	"ledgerd/internal/services"
	"ledgerd/internal/uuid"
)

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the uniform body of every API response.
type Envelope struct {
	Success    bool         `json:"success"`
	Message    string       `json:"message"`
	Data       any          `json:"data,omitempty"`
	StatusCode int          `json:"statusCode"`
	Timestamp  time.Time    `json:"timestamp"`
	Error      *ErrorDetail `json:"error,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	StatusCode int         `json:"statusCode"`
	Timestamp  time.Time   `json:"timestamp"`
	Error      ErrorDetail `json:"error"`
}

// respond writes a successful envelope.
func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		StatusCode: status,
		Timestamp:  time.Now().UTC(),
	})
}

// getActor extracts the authenticated user and organization from the Gin
// context. Returns ErrUnauthorized if either is missing.
func getActor(c *gin.Context) (services.Actor, error) {
	userID := c.GetString("userID")
	orgID := c.GetString("organizationID")
	if userID == "" || orgID == "" {
		return services.Actor{}, apperrors.ErrUnauthorized
	}
	return services.Actor{UserID: userID, OrganizationID: orgID}, nil
}

// parsePathID reads a UUID path parameter.
// Returns ErrInvalidInput if the parameter is not a valid UUID.
//
//nolint:unparam // param is intentionally generic for reuse across handlers with different path params
func parsePathID(c *gin.Context, param string) (string, error) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return id, nil
}

// parseFlexibleTime accepts a full RFC 3339 timestamp or a bare date.
func parseFlexibleTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: expected RFC3339 or YYYY-MM-DD", s)
}

// respondWithError writes a consistent JSON error response. If the error is an
// *AppError it uses the error's status code, code, message and details.
// Otherwise it logs the unexpected error and returns a generic internal
// server error.
func respondWithError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		logger.Get().Errorw("unexpected error",
			"error", err.Error(),
			"path", c.Request.URL.Path,
			"method", c.Request.Method,
		)
		appErr = apperrors.ErrInternalServer
	} else if appErr.Internal != nil {
		logger.Get().Errorw("app error",
			"code", appErr.Code,
			"internal", appErr.Internal.Error(),
			"path", c.Request.URL.Path,
		)
	}

	c.JSON(appErr.StatusCode, ErrorResponse{
		Success:    false,
		Message:    appErr.Message,
		StatusCode: appErr.StatusCode,
		Timestamp:  time.Now().UTC(),
		Error: ErrorDetail{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}
