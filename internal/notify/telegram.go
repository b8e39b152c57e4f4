package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/mealplans/internal/models"
	"github.com/terraincognita07/mealplans/internal/services"
)

var ErrNoTelegramChat = errors.New("client has no telegram chat")

type ClientDirectory interface {
	FindByCode(ctx context.Context, code string) (models.Client, bool, error)
}

// TelegramDispatcher sends messages to the chat linked to each client.
type TelegramDispatcher struct {
	api     *tgbotapi.BotAPI
	clients ClientDirectory
	logger  logrus.FieldLogger
}

// NewTelegramDispatcher authorizes the bot. Every API request, getMe
// included, is cut off after requestTimeout.
func NewTelegramDispatcher(token string, requestTimeout time.Duration, clients ClientDirectory, logger logrus.FieldLogger) (*TelegramDispatcher, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: requestTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	return newTelegramDispatcher(api, clients, logger), nil
}

func newTelegramDispatcher(api *tgbotapi.BotAPI, clients ClientDirectory, logger logrus.FieldLogger) *TelegramDispatcher {
	logger.WithField("bot", api.Self.UserName).Info("notify: telegram bot authorized")
	return &TelegramDispatcher{api: api, clients: clients, logger: logger}
}

func (dispatcher *TelegramDispatcher) Send(ctx context.Context, message services.NotificationMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client, found, err := dispatcher.clients.FindByCode(ctx, message.RecipientCode)
	if err != nil {
		return fmt.Errorf("resolve telegram chat: %w", err)
	}
	if !found || client.TelegramChatID == 0 {
		return fmt.Errorf("%w: %s", ErrNoTelegramChat, message.RecipientCode)
	}

	// The bot api takes no context; the call runs aside so the caller's
	// deadline still applies. The http client timeout ends the request.
	done := make(chan error, 1)
	go func() {
		_, err := dispatcher.api.Send(tgbotapi.NewMessage(client.TelegramChatID, message.Message))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	case <-ctx.Done():
		dispatcher.logger.WithField("recipient", message.RecipientCode).Warn("notify: telegram send abandoned")
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}
