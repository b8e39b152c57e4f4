package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/mealplans/internal/logging"
	"github.com/terraincognita07/mealplans/internal/models"
)

const reminderDeliveryBatch = 200

type DeliverySummary struct {
	Due    int      `json:"due"`
	Sent   int      `json:"sent"`
	Errors []string `json:"errors"`
}

// ReminderDelivery dispatches pending reminders once their date and time
// have passed in the configured location.
type ReminderDelivery struct {
	reminders  ReminderRepository
	logs       NotificationLogRepository
	dispatcher NotificationDispatcher
	logger     logrus.FieldLogger
	location   *time.Location
	timeout    time.Duration
}

func NewReminderDelivery(reminders ReminderRepository, logs NotificationLogRepository, dispatcher NotificationDispatcher, options EngineOptions) *ReminderDelivery {
	options = options.withDefaults()
	return &ReminderDelivery{
		reminders:  reminders,
		logs:       logs,
		dispatcher: dispatcher,
		logger:     options.Logger,
		location:   options.Location,
		timeout:    options.CallTimeout,
	}
}

func ReminderDedupeKey(reminderID string) string {
	return models.NotificationTypeReminder + "|" + reminderID
}

func (service *ReminderDelivery) DeliverDue(ctx context.Context, now time.Time) (DeliverySummary, error) {
	summary := DeliverySummary{Errors: make([]string, 0)}
	today := CalendarDate(now, service.location)
	local := now.In(service.location)
	minuteOfDay := local.Hour()*60 + local.Minute()

	callCtx, cancel := bounded(ctx, service.timeout)
	due, err := service.reminders.ListDue(callCtx, today, reminderDeliveryBatch)
	cancel()
	if err != nil {
		return summary, newPersistenceError("list due reminders", err)
	}

	for _, reminder := range due {
		if normalizeDate(reminder.ScheduledDate).Equal(today) && minuteOfDay < clockMinutes(reminder.ScheduledTime) {
			continue
		}
		summary.Due++
		if err := service.deliver(ctx, reminder, now); err != nil {
			logging.LogError(service.logger, "services", "ReminderDelivery.DeliverDue", "deliver reminder", logrus.Fields{"reminder_id": reminder.ID, "plan_id": reminder.PlanID}, err)
			summary.Errors = append(summary.Errors, fmt.Sprintf("reminder %s: %v", reminder.ID, err))
			continue
		}
		summary.Sent++
	}
	return summary, nil
}

func (service *ReminderDelivery) deliver(ctx context.Context, reminder models.ScheduledReminder, now time.Time) error {
	key := ReminderDedupeKey(reminder.ID)

	callCtx, cancel := bounded(ctx, service.timeout)
	exists, err := service.logs.ExistsByDedupeKey(callCtx, key)
	cancel()
	if err != nil {
		return fmt.Errorf("dedupe lookup: %w", err)
	}

	if !exists {
		callCtx, cancel = bounded(ctx, service.timeout)
		err = service.dispatcher.Send(callCtx, NotificationMessage{
			RecipientCode: reminder.ClientCode,
			Channel:       reminder.Channel,
			Message:       reminder.MessageText,
			DedupeKey:     key,
		})
		cancel()
		if err != nil {
			return fmt.Errorf("dispatch: %w", err)
		}

		callCtx, cancel = bounded(ctx, service.timeout)
		err = service.logs.Record(callCtx, &models.NotificationLog{
			DedupeKey:    key,
			ClientCode:   reminder.ClientCode,
			Type:         models.NotificationTypeReminder,
			CalendarDate: normalizeDate(reminder.ScheduledDate),
			Channel:      reminder.Channel,
			SentAt:       now.UTC(),
		})
		cancel()
		if err != nil {
			return fmt.Errorf("record dispatch: %w", err)
		}
	}

	callCtx, cancel = bounded(ctx, service.timeout)
	defer cancel()
	return service.reminders.MarkSent(callCtx, reminder.ID, now.UTC())
}

// clockMinutes parses "HH:MM". Malformed values read as midnight.
func clockMinutes(value string) int {
	hours, minutes, ok := strings.Cut(value, ":")
	if !ok {
		return 0
	}
	hour, err := strconv.Atoi(hours)
	if err != nil {
		return 0
	}
	minute, err := strconv.Atoi(minutes)
	if err != nil {
		return 0
	}
	return hour*60 + minute
}
