package notify

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/mealplans/internal/services"
)

// LogDispatcher writes messages to the application log. It backs the "log"
// channel and stands in for any channel without a configured transport.
type LogDispatcher struct {
	logger logrus.FieldLogger
}

func NewLogDispatcher(logger logrus.FieldLogger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (dispatcher *LogDispatcher) Send(ctx context.Context, message services.NotificationMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dispatcher.logger.WithFields(logrus.Fields{
		"recipient":  message.RecipientCode,
		"channel":    message.Channel,
		"dedupe_key": message.DedupeKey,
	}).Info(message.Message)
	return nil
}
