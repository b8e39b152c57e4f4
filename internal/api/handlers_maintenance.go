package api

import "github.com/gofiber/fiber/v2"

// Maintenance routes run the background jobs on demand. Each job returns its
// summary even when individual plans failed.

func (handler *Handler) RunExpirySweep(c *fiber.Ctx) error {
	summary, err := handler.engine.Sweeper.Sweep(c.UserContext(), handler.now())
	if err != nil {
		return handler.respondServiceError(c, "RunExpirySweep", err)
	}
	return c.JSON(summary)
}

func (handler *Handler) RunAdvanceNotices(c *fiber.Ctx) error {
	summary, err := handler.engine.Notifier.NotifyUpcoming(c.UserContext(), handler.now())
	if err != nil {
		return handler.respondServiceError(c, "RunAdvanceNotices", err)
	}
	return c.JSON(summary)
}

func (handler *Handler) RunReminderDelivery(c *fiber.Ctx) error {
	summary, err := handler.engine.Delivery.DeliverDue(c.UserContext(), handler.now())
	if err != nil {
		return handler.respondServiceError(c, "RunReminderDelivery", err)
	}
	return c.JSON(summary)
}
