package middleware

import (
	"net/http"

	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/services"
	"github.com/upb/fraudshield/utils"
	"go.uber.org/zap"
)

// PrivilegeChecker defines the interface for privilege resolution
type PrivilegeChecker interface {
	IsAllowed(user *models.User, privilege models.Privilege) bool
}

// DecisionRecorder records access decisions
type DecisionRecorder interface {
	RecordAccessDecision(privilege string, allowed bool)
}

// AccessMiddleware guards administrative routes by privilege
type AccessMiddleware struct {
	checker  PrivilegeChecker
	recorder DecisionRecorder
	logger   *zap.Logger
}

// NewAccessMiddleware creates a new AccessMiddleware. recorder may be nil.
func NewAccessMiddleware(checker PrivilegeChecker, recorder DecisionRecorder, logger *zap.Logger) *AccessMiddleware {
	return &AccessMiddleware{
		checker:  checker,
		recorder: recorder,
		logger:   logger,
	}
}

// RequirePrivilege returns a middleware that admits only users holding privilege.
// This should be called after LoadUser.
func (m *AccessMiddleware) RequirePrivilege(privilege models.Privilege) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			user := GetUserFromContext(ctx)
			allowed := m.checker.IsAllowed(user, privilege)
			if m.recorder != nil {
				m.recorder.RecordAccessDecision(string(privilege), allowed)
			}

			if !allowed {
				m.logger.Warn("privilege denied",
					zap.String("request_id", requestID),
					zap.String("privilege", string(privilege)),
					zap.String("access_level", string(user.AccessLevel())))
				_ = utils.WriteForbidden(w, services.ErrPrivilegeDenied.Message)
				return
			}

			m.logger.Debug("privilege granted",
				zap.String("request_id", requestID),
				zap.String("privilege", string(privilege)))

			next.ServeHTTP(w, r)
		})
	}
}
