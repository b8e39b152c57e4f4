package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealplans/internal/models"
)

type clientInput struct {
	Code           string `json:"code" validate:"required,max=64"`
	DisplayName    string `json:"display_name" validate:"max=128"`
	Language       string `json:"language" validate:"omitempty,oneof=en he"`
	Channel        string `json:"channel" validate:"omitempty,oneof=log telegram"`
	TelegramChatID int64  `json:"telegram_chat_id"`
}

func (handler *Handler) ListClients(c *fiber.Ctx) error {
	clients, err := handler.clients.ListByOwner(c.UserContext(), currentDietitian(c).ID)
	if err != nil {
		return handler.respondServiceError(c, "ListClients", err)
	}
	return c.JSON(clients)
}

func (handler *Handler) CreateClient(c *fiber.Ctx) error {
	input := clientInput{}
	if err := handler.bindJSON(c, &input); err != nil {
		return apiError(c, fiber.StatusBadRequest, err.Error())
	}

	code := strings.TrimSpace(input.Code)
	_, exists, err := handler.clients.FindByCode(c.UserContext(), code)
	if err != nil {
		return handler.respondServiceError(c, "CreateClient", err)
	}
	if exists {
		return apiError(c, fiber.StatusConflict, "client code already exists")
	}

	client := models.Client{
		Code:           code,
		DisplayName:    strings.TrimSpace(input.DisplayName),
		Language:       input.Language,
		Channel:        input.Channel,
		TelegramChatID: input.TelegramChatID,
		OwnerID:        currentDietitian(c).ID,
	}
	if client.Language == "" {
		client.Language = handler.language
	}
	if client.Channel == "" {
		client.Channel = models.ChannelLog
	}
	if client.Channel == models.ChannelTelegram && client.TelegramChatID == 0 {
		return apiError(c, fiber.StatusBadRequest, "telegram channel requires telegram_chat_id")
	}

	if err := handler.clients.Create(c.UserContext(), &client); err != nil {
		return handler.respondServiceError(c, "CreateClient", err)
	}
	return c.Status(fiber.StatusCreated).JSON(client)
}

// ListClientMirrors shows what the client currently sees: the mirrors of
// their active plans.
func (handler *Handler) ListClientMirrors(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Params("code"))
	owned, err := handler.ownsClient(c, code)
	if err != nil {
		return handler.respondServiceError(c, "ListClientMirrors", err)
	}
	if !owned {
		return apiError(c, fiber.StatusNotFound, "client not found")
	}

	mirrors, err := handler.engine.Mirrors.ListForClient(c.UserContext(), code)
	if err != nil {
		return handler.respondServiceError(c, "ListClientMirrors", err)
	}
	return c.JSON(mirrors)
}

// ownsClient reports whether code names a client of the signed-in dietitian.
func (handler *Handler) ownsClient(c *fiber.Ctx, code string) (bool, error) {
	client, found, err := handler.clients.FindByCode(c.UserContext(), strings.TrimSpace(code))
	if err != nil {
		return false, err
	}
	return found && client.OwnerID == currentDietitian(c).ID, nil
}
