package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ConfirmRequest defines the payload for the code confirmation endpoint.
type ConfirmRequest struct {
	Code string `json:"code" binding:"required"`
}

// SignupRequest defines the payload for account creation.
type SignupRequest struct {
	Username  string `json:"username" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	TwoFactor bool   `json:"two_factor"`
}

// LoginResponse reports the outcome of a login step. Next tells the client
// which view to show: "confirm" when a one-time code is pending, "profile"
// once the session is established.
type LoginResponse struct {
	Next    string          `json:"next"`
	Message string          `json:"message,omitempty"`
	Profile *ProfileSummary `json:"profile,omitempty"`
}

// ProfileSummary is the identity view returned once a session exists.
type ProfileSummary struct {
	UserID     string     `json:"user_id"`
	Username   string     `json:"username"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Email      string     `json:"email,omitempty"`
	SignedInAt time.Time  `json:"signed_in_at"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

// SignupResponse reports the created account.
type SignupResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// HealthResponse reports liveness information.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func profileFromIdentity(identity domain.AuthenticatedSession) *ProfileSummary {
	return &ProfileSummary{
		UserID:     identity.UserID,
		Username:   identity.Username,
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		Email:      identity.User.Email,
		SignedInAt: identity.SignedInAt,
		LastLogin:  identity.User.LastLogin,
	}
}
