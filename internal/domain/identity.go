package domain

import "strings"

// Role distinguishes the two session views of one underlying identity.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Identity is the canonical resolved tuple describing who a session
// belongs to, independent of which token producer minted the claims.
type Identity struct {
	ID          string
	Username    string
	Name        string
	Department  string
	AccessLevel string
	Role        string
	Permissions []string
}

// HasAdminAccess reports whether the identity qualifies for an
// administrative session. Employee logins are only elevated when the role
// or access level says so; administrative logins always mirror down.
func (i Identity) HasAdminAccess() bool {
	switch strings.ToLower(i.Role) {
	case "admin", "administrator", "manager", "superadmin":
		return true
	}
	switch strings.ToLower(i.AccessLevel) {
	case "admin", "administrator", "manager", "superadmin":
		return true
	}
	return false
}
