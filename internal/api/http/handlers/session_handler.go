package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lazytech/jjc-console/internal/api/dto"
	"github.com/lazytech/jjc-console/internal/auth"
	"github.com/lazytech/jjc-console/internal/directory"
	"github.com/lazytech/jjc-console/internal/domain"
	"github.com/lazytech/jjc-console/internal/session"
	"github.com/lazytech/jjc-console/internal/token"
)

// SessionHandler exposes the session layer over HTTP. The server process
// is one console instance like any other: logins here propagate to every
// sibling through the same broadcast path.
type SessionHandler struct {
	directory *directory.Service
	manager   *session.Manager
	codec     *token.Codec
	lifetime  string
}

// NewSessionHandler constructs handler.
func NewSessionHandler(dir *directory.Service, manager *session.Manager, codec *token.Codec, lifetime string) *SessionHandler {
	if lifetime == "" {
		lifetime = token.ClassMedium
	}
	return &SessionHandler{directory: dir, manager: manager, codec: codec, lifetime: lifetime}
}

// Login handles POST /api/v1/auth/login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" || req.Department == "" {
		return fiber.NewError(http.StatusBadRequest, "username, password, department required")
	}
	if !domain.IsValidDepartment(req.Department) {
		return fiber.NewError(http.StatusBadRequest, "unknown department")
	}

	identity, err := h.authenticate(c, req.Username, req.Password)
	if err != nil {
		return err
	}
	identity.Department = req.Department

	tok, err := h.codec.Issue(claimsFor(identity), h.lifetime)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "token issue failed")
	}

	h.manager.Login(identity, req.Department, tok)

	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token: tok,
		State: dto.NewStateResponse(h.manager.Snapshot()),
	}})
}

// EmployeeLogin handles POST /api/v1/auth/employee/login.
func (h *SessionHandler) EmployeeLogin(c *fiber.Ctx) error {
	var req dto.EmployeeLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Username == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "username and password required")
	}

	identity, err := h.authenticate(c, req.Username, req.Password)
	if err != nil {
		return err
	}

	tok, err := h.codec.Issue(claimsFor(identity), h.lifetime)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, "token issue failed")
	}

	h.manager.EmployeeLogin(identity, tok)

	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token: tok,
		State: dto.NewStateResponse(h.manager.Snapshot()),
	}})
}

// Logout handles POST /api/v1/auth/logout. Any logout is total.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	_ = c.BodyParser(&req)

	h.manager.Logout(req.Reason)
	return c.JSON(fiber.Map{"data": dto.NewStateResponse(h.manager.Snapshot())})
}

// State handles GET /api/v1/session.
func (h *SessionHandler) State(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": dto.NewStateResponse(h.manager.Snapshot())})
}

// DismissNotice handles POST /api/v1/session/notice/dismiss.
func (h *SessionHandler) DismissNotice(c *fiber.Ctx) error {
	h.manager.DismissNotice()
	return c.JSON(fiber.Map{"data": dto.NewStateResponse(h.manager.Snapshot())})
}

// ToggleDarkMode handles POST /api/v1/preferences/dark-mode.
func (h *SessionHandler) ToggleDarkMode(c *fiber.Ctx) error {
	enabled := h.manager.ToggleDarkMode()
	return c.JSON(fiber.Map{"data": fiber.Map{"dark_mode": enabled}})
}

// Me handles GET /api/v1/me; it reports the identity resolved from the
// caller's bearer token rather than this instance's session slots.
func (h *SessionHandler) Me(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"id":           identity.ID,
		"username":     identity.Username,
		"name":         identity.Name,
		"department":   identity.Department,
		"access_level": identity.AccessLevel,
		"role":         identity.Role,
		"permissions":  identity.Permissions,
	}})
}

func (h *SessionHandler) authenticate(c *fiber.Ctx, username, password string) (domain.Identity, error) {
	identity, err := h.directory.Authenticate(c.Context(), username, password)
	if err != nil {
		if errors.Is(err, directory.ErrInvalidCredentials) || errors.Is(err, directory.ErrAccountInactive) {
			return domain.Identity{}, fiber.NewError(http.StatusUnauthorized, "invalid credentials")
		}
		return domain.Identity{}, err
	}
	return identity, nil
}

func claimsFor(identity domain.Identity) domain.Claims {
	claims := domain.Claims{
		"id":       identity.ID,
		"username": identity.Username,
		"name":     identity.Name,
	}
	if identity.Role != "" {
		claims["role"] = identity.Role
	}
	if identity.Department != "" {
		claims["department"] = identity.Department
	}
	if identity.AccessLevel != "" {
		claims["accessLevel"] = identity.AccessLevel
	}
	if len(identity.Permissions) > 0 {
		claims["permissions"] = identity.Permissions
	}
	return claims
}
