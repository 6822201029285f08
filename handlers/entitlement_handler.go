package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/fraudshield/middleware"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/services/entitlement"
	"github.com/upb/fraudshield/utils"
	"go.uber.org/zap"
)

// PlanLookup resolves the plan tier of an organization
type PlanLookup interface {
	PlanFor(ctx context.Context, orgID uuid.UUID) (models.PlanTier, error)
}

// EntitlementRecorder records entitlement checks
type EntitlementRecorder interface {
	RecordEntitlementCheck(feature string, allowed bool)
}

// EntitlementsResponse lists every feature value of a plan
type EntitlementsResponse struct {
	Plan          models.PlanTier                              `json:"plan"`
	CanonicalPlan models.PlanTier                              `json:"canonical_plan"`
	Features      map[models.FeatureKey]entitlement.LimitValue `json:"features"`
}

// FeatureResponse is the value of one feature, with the gate result when usage was given
type FeatureResponse struct {
	Feature models.FeatureKey      `json:"feature"`
	Kind    models.FeatureKind     `json:"kind"`
	Plan    models.PlanTier        `json:"plan"`
	Value   entitlement.LimitValue `json:"value"`
	Usage   *int64                 `json:"usage,omitempty"`
	Allowed *bool                  `json:"allowed,omitempty"`
}

// DimensionsResponse lists the report dimensions enabled for a plan
type DimensionsResponse struct {
	Plan       models.PlanTier          `json:"plan"`
	Dimensions []models.ReportDimension `json:"dimensions"`
}

// EntitlementHandler serves plan entitlements for the caller's organization
type EntitlementHandler struct {
	resolver *entitlement.Resolver
	plans    PlanLookup
	recorder EntitlementRecorder
	logger   *zap.Logger
}

// NewEntitlementHandler creates a new EntitlementHandler. recorder may be nil.
func NewEntitlementHandler(resolver *entitlement.Resolver, plans PlanLookup, recorder EntitlementRecorder, logger *zap.Logger) *EntitlementHandler {
	return &EntitlementHandler{
		resolver: resolver,
		plans:    plans,
		recorder: recorder,
		logger:   logger,
	}
}

// callerPlan resolves the plan tier of the authenticated organization
func (h *EntitlementHandler) callerPlan(r *http.Request) (models.PlanTier, error) {
	return h.plans.PlanFor(r.Context(), middleware.GetOrgIDFromContext(r.Context()))
}

// HandleList handles GET /api/v1/entitlements
func (h *EntitlementHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	plan, err := h.callerPlan(r)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	features, err := h.resolver.ResolveAll(plan)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	canonical, _ := h.resolver.CanonicalTier(plan)
	_ = utils.WriteOK(w, EntitlementsResponse{
		Plan:          plan,
		CanonicalPlan: canonical,
		Features:      features,
	})
}

// HandleGet handles GET /api/v1/entitlements/{feature}
func (h *EntitlementHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	feature := models.FeatureKey(chi.URLParam(r, "feature"))
	kind, ok := feature.Kind()
	if !ok {
		_ = utils.WriteNotFound(w, "unknown feature: "+string(feature))
		return
	}

	var usage *int64
	if raw := r.URL.Query().Get("usage"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			_ = utils.WriteBadRequest(w, "usage must be a non-negative integer", map[string]interface{}{"usage": raw})
			return
		}
		usage = &n
	}

	plan, err := h.callerPlan(r)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	value, err := h.resolver.Resolve(feature, plan)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	response := FeatureResponse{
		Feature: feature,
		Kind:    kind,
		Plan:    plan,
		Value:   value,
		Usage:   usage,
	}
	if usage != nil {
		allowed := value.Allows(*usage)
		response.Allowed = &allowed
		if h.recorder != nil {
			h.recorder.RecordEntitlementCheck(string(feature), allowed)
		}
		h.logger.Debug("entitlement checked",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.String("feature", string(feature)),
			zap.String("plan", string(plan)),
			zap.Int64("usage", *usage),
			zap.Bool("allowed", allowed))
	}

	_ = utils.WriteOK(w, response)
}

// HandleDimensions handles GET /api/v1/report-dimensions
func (h *EntitlementHandler) HandleDimensions(w http.ResponseWriter, r *http.Request) {
	plan, err := h.callerPlan(r)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	dimensions, err := h.resolver.Dimensions(plan)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, DimensionsResponse{Plan: plan, Dimensions: dimensions})
}
