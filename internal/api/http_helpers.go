package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealplans/internal/logging"
	"github.com/terraincognita07/mealplans/internal/services"
)

const dateLayout = "2006-01-02"

func apiError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// bindJSON decodes the body into target and runs its validate tags. The
// returned error text is safe to show to the caller.
func (handler *Handler) bindJSON(c *fiber.Ctx, target any) error {
	if err := c.BodyParser(target); err != nil {
		return errors.New("invalid input")
	}
	if err := handler.validate.Struct(target); err != nil {
		return errors.New(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return "invalid input"
	}
	parts := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fieldError.Field()), fieldError.Tag()))
	}
	return strings.Join(parts, ", ")
}

func parseIDParam(c *fiber.Ctx) (uint, bool) {
	raw := strings.TrimSpace(c.Params("id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// parseDate reads a YYYY-MM-DD calendar day as UTC midnight.
func parseDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// respondServiceError maps engine errors onto HTTP statuses.
func (handler *Handler) respondServiceError(c *fiber.Ctx, funcName string, err error) error {
	var conflict *services.SchedulingConflictError
	switch {
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":     "scheduling conflict",
			"conflicts": conflict.Conflicts,
		})
	case errors.Is(err, services.ErrValidation):
		return apiError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrPlanNotFound):
		return apiError(c, fiber.StatusNotFound, "meal plan not found")
	case errors.Is(err, services.ErrRetryable):
		logging.LogError(handler.logger, "api", funcName, "retryable failure", nil, err)
		c.Set("Retry-After", "1")
		return apiError(c, fiber.StatusServiceUnavailable, "temporarily unavailable")
	default:
		logging.LogError(handler.logger, "api", funcName, "request failed", nil, err)
		return apiError(c, fiber.StatusInternalServerError, "internal error")
	}
}
