package domain

import "time"

// Session is one of the two per-instance session views. A nil session
// means logged out for that role. Sessions are replaced whole on login,
// never patched in place.
type Session struct {
	ID          string
	Username    string
	Name        string
	Department  string
	AccessLevel string
	Role        string
	Permissions []string
	LoginAt     time.Time
}

// NewSession builds a session from a resolved identity.
func NewSession(identity Identity) *Session {
	return &Session{
		ID:          identity.ID,
		Username:    identity.Username,
		Name:        identity.Name,
		Department:  identity.Department,
		AccessLevel: identity.AccessLevel,
		Role:        identity.Role,
		Permissions: identity.Permissions,
		LoginAt:     time.Now(),
	}
}

// Notice is the session-ended surface raised when a logout arrives from
// a sibling instance. It stays up until the caller dismisses it.
type Notice struct {
	IsOpen   bool   `json:"isOpen"`
	Reason   string `json:"reason"`
	UserType string `json:"userType"`
}
