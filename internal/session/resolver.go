// Package session owns the per-instance session state: resolving token
// claims into identities and reconciling the two session views across
// logins, logouts, and sibling-instance broadcasts.
package session

import (
	"github.com/lazytech/jjc-console/internal/domain"
)

// Alias lists per canonical field, in resolution order. Tokens in
// circulation were minted by producers that never agreed on spellings;
// the order below matches what those producers actually emit and must
// not be collapsed to a single canonical field.
var (
	idAliases          = []string{"id", "userId", "uid", "employeeId"}
	accessLevelAliases = []string{"accessLevel", "access_level"}
	departmentAliases  = []string{"department", "loginDepartment"}
)

const defaultAccessLevel = "user"

// Resolve maps decoded claims, plus an optional fallback identity, into
// the canonical identity tuple. Claims win over the fallback field by
// field; the access level defaults to "user" when neither side has one.
func Resolve(claims domain.Claims, fallback *domain.Identity) domain.Identity {
	if fallback == nil {
		fallback = &domain.Identity{}
	}

	identity := domain.Identity{
		ID:          firstClaim(claims, idAliases, fallback.ID),
		Username:    firstClaim(claims, []string{"username"}, fallback.Username),
		Name:        firstClaim(claims, []string{"name"}, fallback.Name),
		Department:  firstClaim(claims, departmentAliases, fallback.Department),
		AccessLevel: firstClaim(claims, accessLevelAliases, fallback.AccessLevel),
		Role:        firstClaim(claims, []string{"role"}, fallback.Role),
		Permissions: claims.Strings("permissions"),
	}

	if identity.AccessLevel == "" {
		identity.AccessLevel = defaultAccessLevel
	}
	if identity.Permissions == nil {
		identity.Permissions = fallback.Permissions
	}
	return identity
}

func firstClaim(claims domain.Claims, aliases []string, fallback string) string {
	for _, alias := range aliases {
		if val := claims.String(alias); val != "" {
			return val
		}
	}
	return fallback
}
