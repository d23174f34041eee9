package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/lazytech/jjc-console/internal/domain"
	"github.com/lazytech/jjc-console/internal/session"
	"github.com/lazytech/jjc-console/internal/token"
	apperrors "github.com/lazytech/jjc-console/pkg/util"
)

const identityKey = "auth_identity"

// Middleware validates bearer tokens and injects the resolved identity.
type Middleware struct {
	codec *token.Codec
}

// NewMiddleware constructs middleware.
func NewMiddleware(codec *token.Codec) *Middleware {
	return &Middleware{codec: codec}
}

// Handle enforces authentication for protected routes. Malformed and
// expired tokens both read as "no session"; the response never says
// which it was.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims := m.codec.Decode(parts[1])
	if claims == nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	identity := session.Resolve(claims, nil)
	if identity.ID == "" {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// RequireAdmin ensures the caller's identity carries admin access.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !identity.HasAdminAccess() {
			return apperrors.NewForbidden("admin access required")
		}
		return c.Next()
	}
}

// IdentityFromContext retrieves the authenticated identity.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return domain.Identity{}, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}
