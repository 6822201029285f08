package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/fraudshield/middleware"
	"github.com/upb/fraudshield/models"
	"github.com/upb/fraudshield/utils"
	"go.uber.org/zap"
)

// PrivilegeLister lists the effective privileges of a user
type PrivilegeLister interface {
	Privileges(user *models.User) []models.Privilege
}

// UserLister lists the users of an organization
type UserLister interface {
	GetByOrgID(ctx context.Context, orgID uuid.UUID) ([]*models.User, error)
}

// TenantManager reads and updates organizations
type TenantManager interface {
	Organization(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)
	ChangePlan(ctx context.Context, orgID uuid.UUID, plan models.PlanTier) (*models.Organization, error)
}

// PrivilegesResponse lists the caller's effective privileges
type PrivilegesResponse struct {
	AccessLevel models.AccessLevel `json:"access_level"`
	Privileges  []models.Privilege `json:"privileges"`
}

// UsersResponse lists the users of an organization
type UsersResponse struct {
	OrgID uuid.UUID      `json:"org_id"`
	Users []*models.User `json:"users"`
}

// ChangePlanRequest is the body of PUT /api/v1/admin/tenants/{id}/plan
type ChangePlanRequest struct {
	Plan string `json:"plan" validate:"required,plan_tier"`
}

// AdminHandler serves the back-office endpoints
type AdminHandler struct {
	privileges PrivilegeLister
	users      UserLister
	tenants    TenantManager
	logger     *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(privileges PrivilegeLister, users UserLister, tenants TenantManager, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		privileges: privileges,
		users:      users,
		tenants:    tenants,
		logger:     logger,
	}
}

// HandlePrivileges handles GET /api/v1/admin/privileges
func (h *AdminHandler) HandlePrivileges(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())

	_ = utils.WriteOK(w, PrivilegesResponse{
		AccessLevel: user.AccessLevel(),
		Privileges:  h.privileges.Privileges(user),
	})
}

// HandleListUsers handles GET /api/v1/admin/users
// Defaults to the caller's organization; ?org_id= selects another.
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	orgID := middleware.GetOrgIDFromContext(r.Context())
	if raw := r.URL.Query().Get("org_id"); raw != "" {
		parsed, err := utils.ParseUUID(raw, "org_id")
		if err != nil {
			HandleValidationError(w, err, h.logger)
			return
		}
		orgID = parsed
	}

	users, err := h.users.GetByOrgID(r.Context(), orgID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	if users == nil {
		users = []*models.User{}
	}

	_ = utils.WriteOK(w, UsersResponse{OrgID: orgID, Users: users})
}

// HandleGetTenant handles GET /api/v1/admin/tenants/{id}
func (h *AdminHandler) HandleGetTenant(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	org, err := h.tenants.Organization(r.Context(), orgID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, org)
}

// HandleChangePlan handles PUT /api/v1/admin/tenants/{id}/plan
func (h *AdminHandler) HandleChangePlan(w http.ResponseWriter, r *http.Request) {
	orgID, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	var req ChangePlanRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	org, err := h.tenants.ChangePlan(r.Context(), orgID, models.PlanTier(req.Plan))
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("tenant plan changed by admin",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("org_id", orgID.String()),
		zap.String("plan", req.Plan),
		zap.String("admin", actorEmail(r)))

	_ = utils.WriteOK(w, org)
}

func actorEmail(r *http.Request) string {
	if user := middleware.GetUserFromContext(r.Context()); user != nil {
		return user.Email
	}
	return ""
}
