// Package directory authenticates console accounts against the backing
// database. The session layer never talks to it; handlers validate a
// login here first and hand the resolved identity to the session manager.
package directory

import (
	"time"

	"github.com/lazytech/jjc-console/internal/domain"
)

// Account is a console login record.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	Name         string
	Department   string
	AccessLevel  string
	Role         string
	Permissions  []string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity converts the account into the session layer's canonical tuple.
func (a *Account) Identity() domain.Identity {
	return domain.Identity{
		ID:          a.ID,
		Username:    a.Username,
		Name:        a.Name,
		Department:  a.Department,
		AccessLevel: a.AccessLevel,
		Role:        a.Role,
		Permissions: a.Permissions,
	}
}
