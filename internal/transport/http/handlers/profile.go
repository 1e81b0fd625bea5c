package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ryanle444/HealthCoach/internal/core/port"
	"github.com/ryanle444/HealthCoach/internal/repository"
	"github.com/ryanle444/HealthCoach/internal/transport/http/middleware"
)

// ProfileHandler returns the signed-in member's profile.
type ProfileHandler struct {
	store  port.CredentialStore
	logger *zap.Logger
}

// NewProfileHandler wires the profile endpoint.
func NewProfileHandler(store port.CredentialStore, log *zap.Logger) *ProfileHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProfileHandler{store: store, logger: log}
}

// Get responds with the session identity, refreshed from the store so the
// last-login stamp is current.
func (h *ProfileHandler) Get(c *gin.Context) {
	state := middleware.StateFromContext(c)
	if state == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	identity, ok := state.Identity()
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	profile := profileFromIdentity(identity)

	user, err := h.store.GetByID(c.Request.Context(), identity.UserID)
	switch {
	case err == nil:
		profile.Email = user.Email
		profile.LastLogin = user.LastLogin
	case errors.Is(err, repository.ErrNotFound):
		// Account deleted mid-session: the identity no longer resolves.
		state.Reset()
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	default:
		h.logger.Warn("profile refresh failed", zap.String("user_id", identity.UserID), zap.Error(err))
	}

	c.JSON(http.StatusOK, profile)
}
