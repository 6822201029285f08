package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/upb/fraudshield/models"
)

func adminUser(level models.AccessLevel) *models.User {
	user := models.NewUser("ops@example.com", "sub-ops", uuid.New())
	user.Admin = &models.AdminProfile{AccessLevel: level}
	return user
}

func TestIsAllowed_SuperAllowsEverything(t *testing.T) {
	super := adminUser(models.AccessSuper)
	for _, p := range models.AllPrivileges {
		assert.True(t, IsAllowed(super, p), "privilege %s", p)
	}
	assert.True(t, IsAllowed(super, models.Privilege("not_yet_invented")))
}

func TestIsAllowed_FullIsExactlyItsSet(t *testing.T) {
	full := adminUser(models.AccessFull)
	for _, p := range models.AllPrivileges {
		assert.Equal(t, lo.Contains(FullPrivileges, p), IsAllowed(full, p), "privilege %s", p)
	}
	assert.False(t, IsAllowed(full, models.PrivilegeManageAdmins))
	assert.False(t, IsAllowed(full, models.PrivilegeDeleteUsers))
}

func TestIsAllowed_BasicIsExactlyItsSet(t *testing.T) {
	basic := adminUser(models.AccessBasic)
	for _, p := range models.AllPrivileges {
		assert.Equal(t, lo.Contains(BasicPrivileges, p), IsAllowed(basic, p), "privilege %s", p)
	}
	assert.Less(t, len(BasicPrivileges), len(FullPrivileges))
}

func TestIsAllowed_Denials(t *testing.T) {
	tests := []struct {
		name string
		user *models.User
	}{
		{"nil user", nil},
		{"no admin profile", models.NewUser("a@example.com", "sub-a", uuid.New())},
		{"unknown level", adminUser(models.AccessLevel("ROOT"))},
		{"empty level", adminUser(models.AccessLevel(""))},
		{"lowercase level", adminUser(models.AccessLevel("super"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, p := range models.AllPrivileges {
				assert.False(t, IsAllowed(tt.user, p))
			}
			assert.Empty(t, Privileges(tt.user))
		})
	}
}

func TestResolver_NoInheritanceBetweenSets(t *testing.T) {
	r := NewResolver(PrivilegeSets{
		models.AccessFull:  {models.PrivilegeEditUsers},
		models.AccessBasic: {models.PrivilegeViewUsers},
	})

	full := adminUser(models.AccessFull)
	assert.True(t, r.IsAllowed(full, models.PrivilegeEditUsers))
	assert.False(t, r.IsAllowed(full, models.PrivilegeViewUsers))
}

func TestResolver_SetsAreOrderIndependentAndDuplicateTolerant(t *testing.T) {
	r := NewResolver(PrivilegeSets{
		models.AccessBasic: {
			models.PrivilegeViewTenants,
			models.PrivilegeViewUsers,
			models.PrivilegeViewTenants,
		},
	})

	basic := adminUser(models.AccessBasic)
	assert.Equal(t, []models.Privilege{models.PrivilegeViewUsers, models.PrivilegeViewTenants}, r.Privileges(basic))
	assert.Empty(t, r.Privileges(adminUser(models.AccessFull)))
}

func TestResolver_SuperIgnoresConfiguredSet(t *testing.T) {
	r := NewResolver(PrivilegeSets{models.AccessSuper: {}})
	assert.True(t, r.IsAllowed(adminUser(models.AccessSuper), models.PrivilegeManageAdmins))
}

func TestPrivileges(t *testing.T) {
	assert.Equal(t, models.AllPrivileges, Privileges(adminUser(models.AccessSuper)))
	assert.ElementsMatch(t, FullPrivileges, Privileges(adminUser(models.AccessFull)))
	assert.ElementsMatch(t, BasicPrivileges, Privileges(adminUser(models.AccessBasic)))
	assert.Same(t, Default(), defaultResolver)
}
