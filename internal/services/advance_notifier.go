package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/mealplans/internal/logging"
	"github.com/terraincognita07/mealplans/internal/models"
)

// Scheduled plans starting this many days out get an advance notice.
var advanceNoticeOffsets = []int{2, 3}

type NotifySummary struct {
	Found             int      `json:"found"`
	NotificationsSent int      `json:"notifications_sent"`
	Skipped           int      `json:"skipped"`
	Errors            []string `json:"errors"`
}

type AdvanceNotifier struct {
	plans      PlanRepository
	clients    ClientRepository
	logs       NotificationLogRepository
	dispatcher NotificationDispatcher
	catalog    MessageCatalog
	logger     logrus.FieldLogger
	location   *time.Location
	timeout    time.Duration
}

func NewAdvanceNotifier(
	plans PlanRepository,
	clients ClientRepository,
	logs NotificationLogRepository,
	dispatcher NotificationDispatcher,
	catalog MessageCatalog,
	options EngineOptions,
) *AdvanceNotifier {
	options = options.withDefaults()
	return &AdvanceNotifier{
		plans:      plans,
		clients:    clients,
		logs:       logs,
		dispatcher: dispatcher,
		catalog:    catalog,
		logger:     options.Logger,
		location:   options.Location,
		timeout:    options.CallTimeout,
	}
}

// AdvanceDedupeKey identifies one advance notice per client, plan and day.
func AdvanceDedupeKey(clientCode string, planName string, day time.Time) string {
	return strings.Join([]string{clientCode, models.NotificationTypeAdvance, planName, formatDate(day)}, "|")
}

// NotifyUpcoming sends one notice per scheduled plan starting two or three
// days after today, at most once per day.
func (service *AdvanceNotifier) NotifyUpcoming(ctx context.Context, now time.Time) (NotifySummary, error) {
	summary := NotifySummary{Errors: make([]string, 0)}
	today := CalendarDate(now, service.location)

	targets := make([]time.Time, 0, len(advanceNoticeOffsets))
	for _, offset := range advanceNoticeOffsets {
		targets = append(targets, today.AddDate(0, 0, offset))
	}

	callCtx, cancel := bounded(ctx, service.timeout)
	upcoming, err := service.plans.List(callCtx, models.PlanFilter{
		Status:       models.PlanStatusScheduled,
		ActiveFromOn: targets,
	})
	cancel()
	if err != nil {
		return summary, newPersistenceError("list upcoming plans", err)
	}
	summary.Found = len(upcoming)

	for _, plan := range upcoming {
		sent, err := service.notify(ctx, plan, today, now)
		if err != nil {
			logging.LogError(service.logger, "services", "AdvanceNotifier.NotifyUpcoming", "send advance notice", logrus.Fields{"plan_id": plan.ID}, err)
			summary.Errors = append(summary.Errors, fmt.Sprintf("plan %d: %v", plan.ID, err))
		}
		if sent {
			summary.NotificationsSent++
		} else if err == nil {
			summary.Skipped++
		}
	}
	return summary, nil
}

func (service *AdvanceNotifier) notify(ctx context.Context, plan models.MealPlan, today time.Time, now time.Time) (bool, error) {
	key := AdvanceDedupeKey(plan.ClientCode, plan.Name, today)

	callCtx, cancel := bounded(ctx, service.timeout)
	exists, err := service.logs.ExistsByDedupeKey(callCtx, key)
	cancel()
	if err != nil {
		return false, fmt.Errorf("dedupe lookup: %w", err)
	}
	if exists {
		return false, nil
	}

	client, err := resolveClient(ctx, service.clients, plan.ClientCode, service.timeout)
	if err != nil {
		return false, fmt.Errorf("client lookup: %w", err)
	}
	language := service.catalog.ResolveLanguage(client.Language)
	startsOn := ""
	if plan.ActiveFrom != nil {
		startsOn = formatDate(*plan.ActiveFrom)
	}

	callCtx, cancel = bounded(ctx, service.timeout)
	err = service.dispatcher.Send(callCtx, NotificationMessage{
		RecipientCode: plan.ClientCode,
		Channel:       client.Channel,
		Message:       service.catalog.Translatef(language, "notification.advance", plan.Name, startsOn),
		DedupeKey:     key,
	})
	cancel()
	if err != nil {
		return false, fmt.Errorf("dispatch: %w", err)
	}

	callCtx, cancel = bounded(ctx, service.timeout)
	defer cancel()
	if err := service.logs.Record(callCtx, &models.NotificationLog{
		DedupeKey:    key,
		ClientCode:   plan.ClientCode,
		Type:         models.NotificationTypeAdvance,
		PlanName:     plan.Name,
		CalendarDate: today,
		Channel:      client.Channel,
		SentAt:       now.UTC(),
	}); err != nil {
		return true, fmt.Errorf("record dispatch: %w", err)
	}
	return true, nil
}
