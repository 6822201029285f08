// Package access resolves administrative privileges from a user's access level.
package access

import (
	"github.com/samber/lo"
	"github.com/upb/fraudshield/models"
)

// PrivilegeSets maps each non-super access level to its granted privileges.
// Membership is the only rule; order and duplicates are irrelevant.
type PrivilegeSets map[models.AccessLevel][]models.Privilege

// FullPrivileges is granted to FULL admins
var FullPrivileges = []models.Privilege{
	models.PrivilegeViewUsers,
	models.PrivilegeEditUsers,
	models.PrivilegeImpersonateUser,
	models.PrivilegeViewOffers,
	models.PrivilegeCreateOffer,
	models.PrivilegeEditOffer,
	models.PrivilegeDeleteOffer,
	models.PrivilegeViewTenants,
	models.PrivilegeEditTenantPlan,
	models.PrivilegeViewBilling,
	models.PrivilegeViewAuditLog,
}

// BasicPrivileges is granted to BASIC admins
var BasicPrivileges = []models.Privilege{
	models.PrivilegeViewUsers,
	models.PrivilegeViewOffers,
	models.PrivilegeViewTenants,
	models.PrivilegeViewBilling,
}

// DefaultPrivilegeSets returns the built-in FULL and BASIC sets
func DefaultPrivilegeSets() PrivilegeSets {
	return PrivilegeSets{
		models.AccessFull:  FullPrivileges,
		models.AccessBasic: BasicPrivileges,
	}
}

// Resolver decides whether an admin may perform a privileged action
type Resolver struct {
	sets PrivilegeSets
}

// NewResolver creates a new access resolver over the given sets.
// SUPER entries are ignored since SUPER never consults a set.
func NewResolver(sets PrivilegeSets) *Resolver {
	copied := make(PrivilegeSets, len(sets))
	for level, privileges := range sets {
		if level == models.AccessSuper {
			continue
		}
		copied[level] = lo.Uniq(privileges)
	}
	return &Resolver{sets: copied}
}

var defaultResolver = NewResolver(DefaultPrivilegeSets())

// Default returns the resolver backed by the built-in sets
func Default() *Resolver {
	return defaultResolver
}

// IsAllowed reports whether user may exercise privilege.
// Users without an admin profile and unknown access levels are denied.
func (r *Resolver) IsAllowed(user *models.User, privilege models.Privilege) bool {
	if !user.IsAdmin() {
		return false
	}

	switch level := user.Admin.AccessLevel; level {
	case models.AccessSuper:
		return true
	case models.AccessFull, models.AccessBasic:
		return lo.Contains(r.sets[level], privilege)
	default:
		return false
	}
}

// Privileges returns the effective privileges of user in AllPrivileges order.
// SUPER receives every known privilege; non-admins and unknown levels receive none.
func (r *Resolver) Privileges(user *models.User) []models.Privilege {
	return lo.Filter(models.AllPrivileges, func(p models.Privilege, _ int) bool {
		return r.IsAllowed(user, p)
	})
}

// IsAllowed checks privilege against the built-in sets
func IsAllowed(user *models.User, privilege models.Privilege) bool {
	return defaultResolver.IsAllowed(user, privilege)
}

// Privileges lists the effective privileges under the built-in sets
func Privileges(user *models.User) []models.Privilege {
	return defaultResolver.Privileges(user)
}
