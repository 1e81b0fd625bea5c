package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/ryanle444/HealthCoach/internal/infra/config"
	"github.com/ryanle444/HealthCoach/internal/infra/security"
	"github.com/ryanle444/HealthCoach/internal/session"
)

const sessionStateKey = "session_state"

// SessionManager binds browser sessions to in-memory login state. The cookie
// carries only an opaque session identifier wrapped in a signed token; all
// actual state stays server side in the registry.
type SessionManager struct {
	registry *session.Registry
	cfg      config.SessionSettings
	secret   []byte
	logger   *zap.Logger
}

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(registry *session.Registry, cfg config.SessionSettings, log *zap.Logger) (*SessionManager, error) {
	if cfg.CookieSecret == "" {
		return nil, errors.New("session cookie secret is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "healthcoach_session"
	}
	if cfg.CookieTTL <= 0 {
		cfg.CookieTTL = 12 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionManager{
		registry: registry,
		cfg:      cfg,
		secret:   []byte(cfg.CookieSecret),
		logger:   log,
	}, nil
}

// Attach resolves the caller's session from the cookie, minting a fresh one
// when the cookie is absent or invalid, and stores the state handle on the
// request context.
func (m *SessionManager) Attach() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := m.sessionIDFromCookie(c)
		if sid == "" {
			var err error
			sid, err = m.issueSession(c)
			if err != nil {
				m.logger.Error("issue session cookie failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session could not be established"})
				return
			}
		}

		c.Set(sessionStateKey, m.registry.Session(sid))
		c.Set("session_id", sid)

		c.Next()
	}
}

// RequireAuth rejects requests whose session has no established identity.
func (m *SessionManager) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := StateFromContext(c)
		if state == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if _, ok := state.Identity(); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// Terminate drops the caller's server-side session and expires the cookie.
func (m *SessionManager) Terminate(c *gin.Context) {
	if sid := c.GetString("session_id"); sid != "" {
		m.registry.Drop(sid)
	}
	c.SetCookie(m.cfg.CookieName, "", -1, "/", "", m.cfg.Secure, true)
}

// StateFromContext returns the session state attached by Attach, or nil.
func StateFromContext(c *gin.Context) *session.State {
	value, exists := c.Get(sessionStateKey)
	if !exists {
		return nil
	}
	state, ok := value.(*session.State)
	if !ok {
		return nil
	}
	return state
}

func (m *SessionManager) sessionIDFromCookie(c *gin.Context) string {
	raw, err := c.Cookie(m.cfg.CookieName)
	if err != nil || raw == "" {
		return ""
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return ""
	}

	return claims.SessionID
}

func (m *SessionManager) issueSession(c *gin.Context) (string, error) {
	sid, err := security.GenerateSessionID(32)
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}

	now := time.Now()
	claims := sessionClaims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.CookieTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	maxAge := int(m.cfg.CookieTTL.Seconds())
	c.SetCookie(m.cfg.CookieName, signed, maxAge, "/", "", m.cfg.Secure, true)

	return sid, nil
}
