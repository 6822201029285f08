package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/fraudshield/auth"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/services"
	"github.com/upb/fraudshield/utils"
	"go.uber.org/zap"
)

// SessionCookieName is the cookie carrying the session token for browser clients
const SessionCookieName = "session"

// TokenValidator defines the interface for validating session tokens
type TokenValidator interface {
	// ValidateToken validates a token and returns the authenticated principal
	ValidateToken(ctx context.Context, token string) (*auth.Principal, error)
}

// UserLoader loads dashboard users by token subject
type UserLoader interface {
	GetBySubject(ctx context.Context, subject string) (*models.User, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator TokenValidator
	users     UserLoader
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, users UserLoader, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		users:     users,
		logger:    logger,
	}
}

// RequireAuth is a middleware that requires a valid session token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractToken(r)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		principal, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			if services.IsUnauthorizedError(err) {
				_ = utils.WriteUnauthorized(w, services.GetErrorMessage(err))
				return
			}
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx = WithPrincipal(ctx, principal)
		ctx = WithOrgID(ctx, principal.OrgID)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", principal.Subject),
			zap.String("org_id", principal.OrgID.String()))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches the principal when the request carries a valid token
// and passes every request through otherwise.
func (m *AuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		principal, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Debug("ignoring invalid optional token",
				zap.String("request_id", GetRequestIDFromContext(ctx)),
				zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		ctx = WithPrincipal(ctx, principal)
		ctx = WithOrgID(ctx, principal.OrgID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoadUser is a middleware that loads the dashboard user of the principal.
// This should be called after RequireAuth.
func (m *AuthMiddleware) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		principal := GetPrincipalFromContext(ctx)
		if principal == nil {
			m.logger.Error("principal not found in context",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		user, err := m.users.GetBySubject(ctx, principal.Subject)
		if err != nil {
			if services.IsNotFoundError(err) {
				m.logger.Warn("no user registered for subject",
					zap.String("request_id", requestID),
					zap.String("sub", principal.Subject))
				_ = utils.WriteForbidden(w, "User is not registered")
				return
			}
			m.logger.Error("failed to load user",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "Failed to load user")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
	})
}

// RequireAdmin is a middleware that requires a loaded user with an admin profile.
// This should be called after LoadUser.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		user := GetUserFromContext(ctx)
		if !user.IsAdmin() {
			m.logger.Warn("admin profile required",
				zap.String("request_id", GetRequestIDFromContext(ctx)))
			_ = utils.WriteForbidden(w, services.ErrNotAnAdmin.Message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractToken extracts the token from the Authorization header ("Bearer TOKEN")
// or the session cookie. The header takes precedence.
func extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
