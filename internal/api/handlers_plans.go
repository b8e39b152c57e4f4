package api

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealplans/internal/models"
	"github.com/terraincognita07/mealplans/internal/services"
)

type planInput struct {
	ClientCode          string              `json:"client_code" validate:"required,max=64"`
	Name                string              `json:"name" validate:"required,max=200"`
	Content             json.RawMessage     `json:"content"`
	DailyTargetCalories int                 `json:"daily_target_calories" validate:"gte=0"`
	MacroTargets        models.MacroTargets `json:"macro_targets"`
	ActiveDays          []int               `json:"active_days" validate:"max=7,dive,min=0,max=6"`
}

type planUpdateInput struct {
	Name                *string              `json:"name" validate:"omitempty,max=200"`
	Content             json.RawMessage      `json:"content"`
	DailyTargetCalories *int                 `json:"daily_target_calories" validate:"omitempty,gte=0"`
	MacroTargets        *models.MacroTargets `json:"macro_targets"`
}

type statusInput struct {
	Status           string  `json:"status" validate:"required,oneof=draft scheduled active published expired"`
	ActiveFrom       *string `json:"active_from" validate:"omitempty,datetime=2006-01-02"`
	ActiveUntil      *string `json:"active_until" validate:"omitempty,datetime=2006-01-02"`
	ActiveDays       *[]int  `json:"active_days"`
	ResolveConflicts bool    `json:"resolve_conflicts"`
}

type planListResponse struct {
	Plans   []models.MealPlan `json:"plans"`
	Expired int               `json:"expired"`
}

func (handler *Handler) ListPlans(c *fiber.Ctx) error {
	filter := models.PlanFilter{
		OwnerID:    currentDietitian(c).ID,
		ClientCode: strings.TrimSpace(c.Query("client")),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		filter.Status = models.PlanStatus(raw)
		if !filter.Status.Valid() {
			return apiError(c, fiber.StatusBadRequest, services.ErrInvalidStatus.Error())
		}
	}

	plans, sweep, err := handler.engine.ListPlans(c.UserContext(), filter, handler.now())
	if err != nil {
		return handler.respondServiceError(c, "ListPlans", err)
	}
	return c.JSON(planListResponse{Plans: plans, Expired: sweep.Updated})
}

func (handler *Handler) CreatePlan(c *fiber.Ctx) error {
	input := planInput{}
	if err := handler.bindJSON(c, &input); err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	owned, err := handler.ownsClient(c, input.ClientCode)
	if err != nil {
		return handler.respondServiceError(c, "CreatePlan", err)
	}
	if !owned {
		return apiError(c, fiber.StatusBadRequest, "unknown client")
	}

	plan := models.MealPlan{
		ClientCode:          input.ClientCode,
		Name:                input.Name,
		Content:             input.Content,
		DailyTargetCalories: input.DailyTargetCalories,
		MacroTargets:        input.MacroTargets,
		ActiveDays:          input.ActiveDays,
		OwnerID:             currentDietitian(c).ID,
	}
	if err := handler.engine.Lifecycle.CreateDraft(c.UserContext(), &plan); err != nil {
		return handler.respondServiceError(c, "CreatePlan", err)
	}
	return c.Status(fiber.StatusCreated).JSON(plan)
}

func (handler *Handler) GetPlan(c *fiber.Ctx) error {
	planID, ok := parseIDParam(c)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid plan id")
	}
	plan, err := handler.engine.Lifecycle.GetPlan(c.UserContext(), planID, currentDietitian(c).ID)
	if err != nil {
		return handler.respondServiceError(c, "GetPlan", err)
	}
	return c.JSON(plan)
}

func (handler *Handler) UpdatePlan(c *fiber.Ctx) error {
	planID, ok := parseIDParam(c)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid plan id")
	}
	input := planUpdateInput{}
	if err := handler.bindJSON(c, &input); err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := handler.engine.Lifecycle.UpdateContent(c.UserContext(), services.ContentUpdate{
		PlanID:              planID,
		OwnerID:             currentDietitian(c).ID,
		Name:                input.Name,
		Content:             input.Content,
		DailyTargetCalories: input.DailyTargetCalories,
		MacroTargets:        input.MacroTargets,
		Now:                 handler.now(),
	})
	if err != nil {
		return handler.respondServiceError(c, "UpdatePlan", err)
	}
	return c.JSON(result)
}

func (handler *Handler) DeletePlan(c *fiber.Ctx) error {
	planID, ok := parseIDParam(c)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid plan id")
	}
	result, err := handler.engine.Lifecycle.DeletePlan(c.UserContext(), planID, currentDietitian(c).ID)
	if err != nil {
		return handler.respondServiceError(c, "DeletePlan", err)
	}
	return c.JSON(fiber.Map{"deleted": true, "warnings": result.Warnings})
}

// ChangePlanStatus drives one lifecycle transition. A blocked activation
// answers 409 with the conflicting plans.
func (handler *Handler) ChangePlanStatus(c *fiber.Ctx) error {
	planID, ok := parseIDParam(c)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid plan id")
	}
	input := statusInput{}
	if err := handler.bindJSON(c, &input); err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}
	activeFrom, err := parseDate(input.ActiveFrom)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid active_from")
	}
	activeUntil, err := parseDate(input.ActiveUntil)
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid active_until")
	}

	result, err := handler.engine.Lifecycle.ChangeStatus(c.UserContext(), services.StatusChangeRequest{
		PlanID:           planID,
		OwnerID:          currentDietitian(c).ID,
		Target:           models.PlanStatus(input.Status),
		ActiveFrom:       activeFrom,
		ActiveUntil:      activeUntil,
		ActiveDays:       input.ActiveDays,
		ResolveConflicts: input.ResolveConflicts,
		Now:              handler.now(),
	})
	if err != nil {
		return handler.respondServiceError(c, "ChangePlanStatus", err)
	}
	return c.JSON(result)
}

func (handler *Handler) ListPlanReminders(c *fiber.Ctx) error {
	planID, ok := parseIDParam(c)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid plan id")
	}
	reminders, err := handler.engine.Lifecycle.ListReminders(c.UserContext(), planID, currentDietitian(c).ID)
	if err != nil {
		return handler.respondServiceError(c, "ListPlanReminders", err)
	}
	return c.JSON(reminders)
}

func (handler *Handler) GetPlanMirror(c *fiber.Ctx) error {
	planID, ok := parseIDParam(c)
	if !ok {
		return apiError(c, fiber.StatusBadRequest, "invalid plan id")
	}
	if _, err := handler.engine.Lifecycle.GetPlan(c.UserContext(), planID, currentDietitian(c).ID); err != nil {
		return handler.respondServiceError(c, "GetPlanMirror", err)
	}

	mirror, found, err := handler.engine.Mirrors.Find(c.UserContext(), planID)
	if err != nil {
		return handler.respondServiceError(c, "GetPlanMirror", err)
	}
	if !found {
		return apiError(c, fiber.StatusNotFound, "plan is not mirrored")
	}
	return c.JSON(mirror)
}
