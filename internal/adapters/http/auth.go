package http

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/samirrijal/seatpass/internal/core/domain"
)

// RoleAdmin is the only role that may decide bookings or edit inventory.
const RoleAdmin = "admin"

const adminCtxKey ctxKey = "admin"

// IssueToken signs an HS256 token carrying role. Used by local tooling to
// mint admin tokens; production tokens come from the identity provider.
func IssueToken(secret, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// verifyAdmin checks that raw is a valid token for the admin role.
func verifyAdmin(secret, raw string) error {
	if raw == "" {
		return domain.UnauthorizedError{Msg: "missing bearer token"}
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
	)
	claims := jwt.MapClaims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return domain.UnauthorizedError{Msg: "invalid token", Err: err}
	}
	if role, _ := claims["role"].(string); role != RoleAdmin {
		return errNotAdmin
	}
	return nil
}

var errNotAdmin = errors.New("admin role required")

func bearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// AdminAuthMiddleware rejects requests without an admin token. An empty
// secret disables the check.
func AdminAuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			markAdmin(c)
			return c.Next()
		}
		switch err := verifyAdmin(secret, bearerToken(c)); {
		case err == nil:
		case errors.Is(err, errNotAdmin):
			return errForbidden(c, err.Error())
		default:
			return errUnauthorized(c, err.Error())
		}
		markAdmin(c)
		return c.Next()
	}
}

// OptionalAdminMiddleware marks the request as admin when it carries a valid
// admin token and lets every request through.
func OptionalAdminMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if secret == "" || (raw != "" && verifyAdmin(secret, raw) == nil) {
			markAdmin(c)
		}
		return c.Next()
	}
}

func markAdmin(c *fiber.Ctx) {
	c.Locals(string(adminCtxKey), true)
	c.SetUserContext(context.WithValue(c.UserContext(), adminCtxKey, true))
}

// isAdmin reports whether an auth middleware marked the context.
func isAdmin(ctx context.Context) bool {
	ok, _ := ctx.Value(adminCtxKey).(bool)
	return ok
}
