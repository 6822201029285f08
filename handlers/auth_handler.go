package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/fraudshield/middleware"
	"github.com/upb/fraudshield/utils"
	"go.uber.org/zap"
)

// TokenIssuer signs session tokens
type TokenIssuer interface {
	Issue(subject, email string, orgID uuid.UUID) (string, time.Time, error)
}

// SessionCloser releases server-side state held for a session
type SessionCloser interface {
	Drop(session string)
}

// SessionResponse carries a freshly issued session token
type SessionResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionHandler refreshes and ends dashboard sessions
type SessionHandler struct {
	issuer       TokenIssuer
	sessions     SessionCloser
	secureCookie bool
	logger       *zap.Logger
}

// NewSessionHandler creates a new SessionHandler. secureCookie sets the
// Secure attribute of the session cookie and should be true outside development.
func NewSessionHandler(issuer TokenIssuer, sessions SessionCloser, secureCookie bool, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		issuer:       issuer,
		sessions:     sessions,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// HandleRefresh handles POST /api/v1/auth/refresh
// Re-issues the caller's token with a new expiry and sets the session cookie.
func (h *SessionHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	token, expiresAt, err := h.issuer.Issue(principal.Subject, principal.Email, principal.OrgID)
	if err != nil {
		h.logger.Error("failed to issue session token",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to refresh session")
		return
	}

	http.SetCookie(w, h.cookie(token, expiresAt))
	_ = utils.WriteOK(w, SessionResponse{Token: token, ExpiresAt: expiresAt})
}

// HandleLogout handles POST /api/v1/auth/logout
// Always expires the cookie; when the caller is identified, its action state is released too.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if principal := middleware.GetPrincipalFromContext(r.Context()); principal != nil {
		h.sessions.Drop(principal.Subject)
		h.logger.Debug("session released",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.String("sub", principal.Subject))
	}

	cookie := h.cookie("", time.Unix(0, 0))
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)

	_ = utils.WriteOK(w, map[string]string{"status": "logged_out"})
}

func (h *SessionHandler) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
