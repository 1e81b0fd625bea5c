package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ryanle444/HealthCoach/internal/core/domain"
	"github.com/ryanle444/HealthCoach/internal/infra/security"
	"github.com/ryanle444/HealthCoach/internal/transport/http/middleware"
	"github.com/ryanle444/HealthCoach/internal/usecase"
)

// The login endpoints return one shared message for unknown usernames and
// wrong passwords so responses do not reveal which accounts exist.
const (
	msgBadCredentials   = "incorrect username or password"
	msgLoginUnavailable = "unable to process the login right now"
	msgCodeSent         = "a confirmation code has been sent to your email"
	msgBadCode          = "incorrect confirmation code"
	msgNoChallenge      = "no confirmation is pending for this session"
	msgChallengeExpired = "the confirmation code has expired, log in again"
	msgTooManyCodes     = "too many incorrect codes, log in again"
)

// AuthHandler exposes the login, confirmation, sign-up and sign-out endpoints.
type AuthHandler struct {
	login        *usecase.LoginService
	registration *usecase.RegistrationService
	sessions     *middleware.SessionManager
	logger       *zap.Logger
}

// NewAuthHandler wires the auth endpoints.
func NewAuthHandler(login *usecase.LoginService, registration *usecase.RegistrationService, sessions *middleware.SessionManager, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{
		login:        login,
		registration: registration,
		sessions:     sessions,
		logger:       log,
	}
}

// Login verifies credentials and either establishes the session or parks it
// behind an emailed confirmation code.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username and password are required"))
		return
	}

	state := middleware.StateFromContext(c)
	if state == nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, msgLoginUnavailable))
		return
	}

	result, err := h.login.InitiateLogin(c.Request.Context(), state, req.Username, req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUnknownUser, Status: http.StatusUnauthorized, Message: msgBadCredentials},
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: msgBadCredentials},
			{Err: usecase.ErrVerifierUnavailable, Status: http.StatusInternalServerError, Message: msgLoginUnavailable},
			{Err: usecase.ErrDeliveryFailed, Status: http.StatusBadGateway, Message: msgLoginUnavailable},
		}, http.StatusInternalServerError, msgLoginUnavailable)
		return
	}

	if result.Next == domain.NextViewConfirm {
		c.JSON(http.StatusOK, LoginResponse{Next: string(result.Next), Message: msgCodeSent})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Next:    string(result.Next),
		Profile: profileFromIdentity(*result.Identity),
	})
}

// Confirm completes the pending two-factor challenge.
func (h *AuthHandler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "confirmation code is required"))
		return
	}

	state := middleware.StateFromContext(c)
	if state == nil {
		c.JSON(http.StatusConflict, NewErrorResponse(c, msgNoChallenge))
		return
	}

	result, err := h.login.ConfirmCode(c.Request.Context(), state, req.Code)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrNoChallengePending, Status: http.StatusConflict, Message: msgNoChallenge},
			{Err: usecase.ErrInvalidCode, Status: http.StatusUnauthorized, Message: msgBadCode},
			{Err: usecase.ErrChallengeExpired, Status: http.StatusGone, Message: msgChallengeExpired},
			{Err: usecase.ErrTooManyCodeAttempts, Status: http.StatusTooManyRequests, Message: msgTooManyCodes},
			{Err: usecase.ErrUnknownUser, Status: http.StatusUnauthorized, Message: msgBadCredentials},
		}, http.StatusInternalServerError, msgLoginUnavailable)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Next:    string(result.Next),
		Profile: profileFromIdentity(*result.Identity),
	})
}

// Logout discards the session state and expires the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if state := middleware.StateFromContext(c); state != nil {
		h.login.SignOut(state)
	}
	h.sessions.Terminate(c)

	c.JSON(http.StatusOK, MessageResponse{Message: "signed out"})
}

// Signup creates a new coaching account.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username, email and password are required"))
		return
	}

	user, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		TwoFactor: req.TwoFactor,
	})
	if err != nil {
		var policyErr *security.PasswordPolicyError
		if errors.As(err, &policyErr) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, policyErr.Message))
			return
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidRegistration, Status: http.StatusBadRequest, Message: "username, email and password are required"},
			{Err: usecase.ErrUsernameTaken, Status: http.StatusConflict, Message: "an account with that username or email already exists"},
		}, http.StatusInternalServerError, "unable to create the account right now")
		return
	}

	c.JSON(http.StatusCreated, SignupResponse{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}
