package api

import "github.com/gofiber/fiber/v2"

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/login", handler.Login)
	auth.Post("/logout", handler.AuthRequired, handler.Logout)
	auth.Post("/change-password", handler.AuthRequired, handler.ChangePassword)

	clients := api.Group("/clients", handler.AuthRequired)
	clients.Get("", handler.ListClients)
	clients.Post("", handler.CreateClient)
	clients.Get("/:code/mirrors", handler.ListClientMirrors)

	plans := api.Group("/plans", handler.AuthRequired)
	plans.Get("", handler.ListPlans)
	plans.Post("", handler.CreatePlan)
	plans.Get("/:id", handler.GetPlan)
	plans.Put("/:id", handler.UpdatePlan)
	plans.Delete("/:id", handler.DeletePlan)
	plans.Post("/:id/status", handler.ChangePlanStatus)
	plans.Get("/:id/reminders", handler.ListPlanReminders)
	plans.Get("/:id/mirror", handler.GetPlanMirror)

	maintenance := api.Group("/maintenance", handler.AuthRequired)
	maintenance.Post("/expire", handler.RunExpirySweep)
	maintenance.Post("/advance-notices", handler.RunAdvanceNotices)
	maintenance.Post("/deliver-reminders", handler.RunReminderDelivery)

	app.Use(handler.NotFound)
}

func (handler *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (handler *Handler) NotFound(c *fiber.Ctx) error {
	return apiError(c, fiber.StatusNotFound, "not found")
}
