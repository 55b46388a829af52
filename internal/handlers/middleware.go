package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"folioshare-api/internal/apperr"
	"folioshare-api/internal/auth"
	"folioshare-api/internal/models"
)

// userIDKey is the locals key under which RequireAuth stores the caller
// identity.
const userIDKey = "userID"

// RequireAuth verifies the bearer credential and stores the resolved
// caller identity in the request locals. Every route except the public
// read uses it.
func RequireAuth(jwt *auth.JWTManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractToken(c)
		if token == "" {
			return writeError(c, apperr.Unauthenticated("no token, authorization denied"))
		}

		claims, err := jwt.ValidateToken(token)
		if err != nil {
			return writeError(c, err)
		}

		c.Locals(userIDKey, claims.UserID)
		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

// writeError renders the kind-tagged error body every handler uses
func writeError(c *fiber.Ctx, err error) error {
	return c.Status(apperr.StatusCode(err)).JSON(models.ErrorResponse{
		Error:   string(apperr.KindOf(err)),
		Message: apperr.MessageOf(err),
		Code:    apperr.StatusCode(err),
	})
}

// CustomErrorHandler handles Fiber errors
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Error:   string(apperr.KindInternal),
		Message: err.Error(),
		Code:    code,
	})
}
