package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/fraudshield/middleware"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/services/actionstate"
	"github.com/upb/fraudshield/utils"
	"go.uber.org/zap"
)

// ActionRecorder records action state transitions
type ActionRecorder interface {
	RecordActionTransition(state string)
}

// TransitionRequest is the body of PUT /api/v1/actions/{key}
type TransitionRequest struct {
	State   string `json:"state" validate:"required,request_state"`
	Message string `json:"message" validate:"max=500"`
}

// ActionHandler exposes the per-session action state tracker
type ActionHandler struct {
	registry *actionstate.Registry
	recorder ActionRecorder
	logger   *zap.Logger
}

// NewActionHandler creates a new ActionHandler. recorder may be nil.
func NewActionHandler(registry *actionstate.Registry, recorder ActionRecorder, logger *zap.Logger) *ActionHandler {
	return &ActionHandler{
		registry: registry,
		recorder: recorder,
		logger:   logger,
	}
}

// tracker returns the tracker of the authenticated session
func (h *ActionHandler) tracker(r *http.Request) (*actionstate.Tracker, bool) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		return nil, false
	}
	return h.registry.For(principal.Subject), true
}

// HandleGet handles GET /api/v1/actions/{key}
func (h *ActionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tracker, ok := h.tracker(r)
	if !ok {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	key := models.ActionKey(chi.URLParam(r, "key"))
	_ = utils.WriteOK(w, tracker.Snapshot(key))
}

// HandleTransition handles PUT /api/v1/actions/{key}
func (h *ActionHandler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	tracker, ok := h.tracker(r)
	if !ok {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req TransitionRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	key := models.ActionKey(chi.URLParam(r, "key"))
	state := models.RequestState(req.State)
	if err := tracker.SetState(key, state, req.Message); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordActionTransition(string(state))
	}

	_ = utils.WriteOK(w, tracker.Snapshot(key))
}
