package dto

import (
	"time"

	"github.com/lazytech/jjc-console/internal/domain"
	"github.com/lazytech/jjc-console/internal/session"
)

// LoginRequest payload for administrative logins.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Department string `json:"department"`
}

// EmployeeLoginRequest payload for employee logins.
type EmployeeLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LogoutRequest optionally names the reason shown to sibling instances.
type LogoutRequest struct {
	Reason string `json:"reason"`
}

// SessionView mirrors one session slot.
type SessionView struct {
	ID          string    `json:"id"`
	Username    string    `json:"username,omitempty"`
	Name        string    `json:"name,omitempty"`
	Department  string    `json:"department,omitempty"`
	AccessLevel string    `json:"access_level,omitempty"`
	Role        string    `json:"role,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	LoginAt     time.Time `json:"login_at"`
}

// StateResponse is the full observable session state.
type StateResponse struct {
	User                    *SessionView  `json:"user"`
	Employee                *SessionView  `json:"employee"`
	SelectedDepartment      string        `json:"selected_department,omitempty"`
	IsAuthenticated         bool          `json:"is_authenticated"`
	IsEmployeeAuthenticated bool          `json:"is_employee_authenticated"`
	DarkMode                bool          `json:"dark_mode"`
	Notice                  domain.Notice `json:"notice"`
}

// AuthResponse standard response for login endpoints.
type AuthResponse struct {
	Token string        `json:"token"`
	State StateResponse `json:"state"`
}

// NewStateResponse converts a snapshot.
func NewStateResponse(snap session.Snapshot) StateResponse {
	return StateResponse{
		User:                    newSessionView(snap.Admin),
		Employee:                newSessionView(snap.Employee),
		SelectedDepartment:      snap.SelectedDepartment,
		IsAuthenticated:         snap.Admin != nil,
		IsEmployeeAuthenticated: snap.Employee != nil,
		DarkMode:                snap.DarkMode,
		Notice:                  snap.Notice,
	}
}

func newSessionView(s *domain.Session) *SessionView {
	if s == nil {
		return nil
	}
	return &SessionView{
		ID:          s.ID,
		Username:    s.Username,
		Name:        s.Name,
		Department:  s.Department,
		AccessLevel: s.AccessLevel,
		Role:        s.Role,
		Permissions: s.Permissions,
		LoginAt:     s.LoginAt,
	}
}
