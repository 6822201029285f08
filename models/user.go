package models

import (
	"time"

	"github.com/google/uuid"
)

// AccessLevel is the administrative rank of a back-office user
type AccessLevel string

const (
	AccessBasic AccessLevel = "BASIC"
	AccessFull  AccessLevel = "FULL"
	AccessSuper AccessLevel = "SUPER"
)

// Rank orders access levels (BASIC < FULL < SUPER). Unknown levels rank 0.
func (l AccessLevel) Rank() int {
	switch l {
	case AccessBasic:
		return 1
	case AccessFull:
		return 2
	case AccessSuper:
		return 3
	default:
		return 0
	}
}

// IsValid returns true for the three defined access levels
func (l AccessLevel) IsValid() bool {
	return l.Rank() > 0
}

// Privilege names an administrative action
type Privilege string

const (
	PrivilegeViewUsers       Privilege = "view_users"
	PrivilegeEditUsers       Privilege = "edit_users"
	PrivilegeDeleteUsers     Privilege = "delete_users"
	PrivilegeImpersonateUser Privilege = "impersonate_user"
	PrivilegeViewOffers      Privilege = "view_offers"
	PrivilegeCreateOffer     Privilege = "create_offer"
	PrivilegeEditOffer       Privilege = "edit_offer"
	PrivilegeDeleteOffer     Privilege = "delete_offer"
	PrivilegeViewTenants     Privilege = "view_tenants"
	PrivilegeEditTenantPlan  Privilege = "edit_tenant_plan"
	PrivilegeViewBilling     Privilege = "view_billing"
	PrivilegeIssueRefund     Privilege = "issue_refund"
	PrivilegeViewAuditLog    Privilege = "view_audit_log"
	PrivilegeManageAdmins    Privilege = "manage_admins"
)

// AllPrivileges lists every known privilege
var AllPrivileges = []Privilege{
	PrivilegeViewUsers,
	PrivilegeEditUsers,
	PrivilegeDeleteUsers,
	PrivilegeImpersonateUser,
	PrivilegeViewOffers,
	PrivilegeCreateOffer,
	PrivilegeEditOffer,
	PrivilegeDeleteOffer,
	PrivilegeViewTenants,
	PrivilegeEditTenantPlan,
	PrivilegeViewBilling,
	PrivilegeIssueRefund,
	PrivilegeViewAuditLog,
	PrivilegeManageAdmins,
}

// AdminProfile is attached to users that can reach the back office
type AdminProfile struct {
	AccessLevel AccessLevel `json:"access_level" db:"access_level"`
}

// User represents a dashboard user authenticated via JWT
type User struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	Email     string        `json:"email" db:"email"`
	Subject   string        `json:"subject" db:"subject"` // Token subject
	OrgID     uuid.UUID     `json:"org_id" db:"org_id"`
	Admin     *AdminProfile `json:"admin,omitempty"` // Nil for tenant-only users
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewUser creates a new User instance
func NewUser(email, subject string, orgID uuid.UUID) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		Email:     email,
		Subject:   subject,
		OrgID:     orgID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin returns true if the user has an administrative profile
func (u *User) IsAdmin() bool {
	return u != nil && u.Admin != nil
}

// AccessLevel returns the admin access level, or "" for non-admin users
func (u *User) AccessLevel() AccessLevel {
	if !u.IsAdmin() {
		return ""
	}
	return u.Admin.AccessLevel
}
