package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lazytech/jjc-console/internal/domain"
)

func TestHasAdminAccess(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		identity domain.Identity
		want     bool
	}{
		{"admin role", domain.Identity{Role: "admin"}, true},
		{"manager access level", domain.Identity{Role: "employee", AccessLevel: "manager"}, true},
		{"superadmin access level", domain.Identity{AccessLevel: "superadmin"}, true},
		{"case insensitive", domain.Identity{AccessLevel: "Administrator"}, true},
		{"plain employee", domain.Identity{Role: "employee", AccessLevel: "user"}, false},
		{"empty", domain.Identity{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.identity.HasAdminAccess())
		})
	}
}

func TestIsValidDepartment(t *testing.T) {
	t.Parallel()

	for _, dep := range []string{"hr", "finance", "procurement", "operations", "it"} {
		assert.True(t, domain.IsValidDepartment(dep), dep)
	}
	assert.False(t, domain.IsValidDepartment("starfleet"))
	assert.False(t, domain.IsValidDepartment(""))
}
