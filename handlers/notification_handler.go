package handlers

import (
	"net/http"

	"github.com/upb/fraudshield/middleware"
	"github.com/upb/fraudshield/utils"
)

// NotificationStreamer streams transient notifications of a session
type NotificationStreamer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, session string)
}

// NotificationsHandler returns an http.HandlerFunc for GET /api/v1/notifications/ws
func NotificationsHandler(streamer NotificationStreamer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.GetPrincipalFromContext(r.Context())
		if principal == nil {
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}
		streamer.ServeWS(w, r, principal.Subject)
	}
}
