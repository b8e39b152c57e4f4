package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealplans/internal/services"
)

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type changePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

func (handler *Handler) Login(c *fiber.Ctx) error {
	input := loginInput{}
	if err := handler.bindJSON(c, &input); err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	now := handler.now()
	limiterKey := loginLimiterKey(c, services.NormalizeEmail(input.Email))
	if handler.loginLimiter.blocked(limiterKey, now) {
		return apiError(c, fiber.StatusTooManyRequests, "too many login attempts")
	}

	dietitian, err := handler.auth.Authenticate(c.UserContext(), input.Email, input.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		handler.loginLimiter.fail(limiterKey, now)
		return apiError(c, fiber.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return handler.respondServiceError(c, "Login", err)
	}
	handler.loginLimiter.clear(limiterKey)

	token, expiresAt, err := handler.auth.IssueToken(dietitian, now)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, "failed to create session")
	}
	c.Cookie(&fiber.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  expiresAt,
	})

	return c.JSON(fiber.Map{
		"token":                token,
		"expires_at":           expiresAt.UTC(),
		"must_change_password": dietitian.MustChangePassword,
	})
}

func (handler *Handler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Secure:   handler.cookieSecure,
		SameSite: "Lax",
		Expires:  handler.now().Add(-time.Hour),
	})
	return c.SendStatus(fiber.StatusNoContent)
}

func (handler *Handler) ChangePassword(c *fiber.Ctx) error {
	input := changePasswordInput{}
	if err := handler.bindJSON(c, &input); err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	err := handler.auth.ChangePassword(c.UserContext(), currentDietitian(c), input.CurrentPassword, input.NewPassword, input.ConfirmPassword)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"ok": true})
	case errors.Is(err, services.ErrInvalidCurrentPassword):
		return apiError(c, fiber.StatusUnauthorized, "invalid current password")
	case errors.Is(err, services.ErrPasswordMismatch),
		errors.Is(err, services.ErrNewPasswordMustDiffer),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrPasswordChangeInput):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	default:
		return handler.respondServiceError(c, "ChangePassword", err)
	}
}
