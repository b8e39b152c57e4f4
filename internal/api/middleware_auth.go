package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealplans/internal/models"
	"github.com/terraincognita07/mealplans/internal/services"
)

const contextDietitianKey = "dietitian"

// AuthRequired accepts a bearer token or the session cookie. A dietitian
// flagged by reset-password may only change their password.
func (handler *Handler) AuthRequired(c *fiber.Ctx) error {
	raw := bearerToken(c.Get(fiber.HeaderAuthorization))
	if raw == "" {
		raw = strings.TrimSpace(c.Cookies(authCookieName))
	}
	if raw == "" {
		return apiError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	dietitian, err := handler.auth.ParseToken(c.UserContext(), raw, handler.now())
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return apiError(c, fiber.StatusUnauthorized, "unauthorized")
		}
		return handler.respondServiceError(c, "AuthRequired", err)
	}

	c.Locals(contextDietitianKey, dietitian)
	if dietitian.MustChangePassword && c.Path() != "/api/auth/change-password" && c.Path() != "/api/auth/logout" {
		return apiError(c, fiber.StatusForbidden, "password change required")
	}
	return c.Next()
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func currentDietitian(c *fiber.Ctx) models.Dietitian {
	dietitian, _ := c.Locals(contextDietitianKey).(models.Dietitian)
	return dietitian
}
