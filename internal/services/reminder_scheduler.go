package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/mealplans/internal/models"
)

// ReminderScheduler owns the weekly encouragement reminders of active plans.
type ReminderScheduler struct {
	reminders ReminderRepository
	clients   ClientRepository
	catalog   MessageCatalog
	logger    logrus.FieldLogger
	timeout   time.Duration
}

func NewReminderScheduler(reminders ReminderRepository, clients ClientRepository, catalog MessageCatalog, options EngineOptions) *ReminderScheduler {
	options = options.withDefaults()
	return &ReminderScheduler{
		reminders: reminders,
		clients:   clients,
		catalog:   catalog,
		logger:    options.Logger,
		timeout:   options.CallTimeout,
	}
}

// BuildReminderSeries lays out one reminder per week after from, up to and
// including until. Week n fires on from+7n at models.ReminderTime and carries
// catalog[(n-1) mod len(catalog)].
func BuildReminderSeries(planID uint, clientCode string, from time.Time, until time.Time, channel string, catalog []string) []models.ScheduledReminder {
	from = normalizeDate(from)
	until = normalizeDate(until)

	days := daysBetween(from, until)
	if days <= 0 || len(catalog) == 0 {
		return nil
	}
	weeks := (days + 6) / 7

	series := make([]models.ScheduledReminder, 0, weeks)
	for week := 1; week <= weeks; week++ {
		date := from.AddDate(0, 0, 7*week)
		if date.After(until) {
			break
		}
		series = append(series, models.ScheduledReminder{
			ID:                uuid.NewString(),
			PlanID:            planID,
			ClientCode:        clientCode,
			WeekNumber:        week,
			ScheduledDate:     date,
			ScheduledTime:     models.ReminderTime,
			MessageText:       catalog[(week-1)%len(catalog)],
			Channel:           channel,
			Status:            models.ReminderStatusPending,
			RecurrenceEndDate: until,
		})
	}
	return series
}

// Schedule replaces the reminders of plan with a fresh series. Plans without
// both window dates get none. Weeks dated before today are stored cancelled so
// a window that started in the past does not release a backlog on delivery.
func (service *ReminderScheduler) Schedule(ctx context.Context, plan models.MealPlan, today time.Time) ([]models.ScheduledReminder, error) {
	if err := service.Purge(ctx, plan.ID); err != nil {
		return nil, err
	}
	if plan.ActiveFrom == nil || plan.ActiveUntil == nil {
		return nil, nil
	}

	client, err := resolveClient(ctx, service.clients, plan.ClientCode, service.timeout)
	if err != nil {
		service.logger.WithError(err).WithField("client_code", plan.ClientCode).
			Warn("reminders: client lookup failed, using default language and channel")
	}
	language := service.catalog.ResolveLanguage(client.Language)

	series := BuildReminderSeries(plan.ID, plan.ClientCode, *plan.ActiveFrom, *plan.ActiveUntil, client.Channel, service.catalog.Encouragements(language))
	if len(series) == 0 {
		return series, nil
	}
	today = normalizeDate(today)
	for index := range series {
		if series[index].ScheduledDate.Before(today) {
			series[index].Status = models.ReminderStatusCancelled
		}
	}

	callCtx, cancel := bounded(ctx, service.timeout)
	defer cancel()
	if err := service.reminders.InsertBatch(callCtx, series); err != nil {
		return nil, err
	}
	return series, nil
}

func (service *ReminderScheduler) Purge(ctx context.Context, planID uint) error {
	callCtx, cancel := bounded(ctx, service.timeout)
	defer cancel()

	return service.reminders.DeleteByPlanID(callCtx, planID)
}

// PurgeMany deletes the reminders of every plan in planIDs in one call.
func (service *ReminderScheduler) PurgeMany(ctx context.Context, planIDs []uint) error {
	if len(planIDs) == 0 {
		return nil
	}
	callCtx, cancel := bounded(ctx, service.timeout)
	defer cancel()

	return service.reminders.DeleteByPlanIDs(callCtx, planIDs)
}

func (service *ReminderScheduler) List(ctx context.Context, planID uint) ([]models.ScheduledReminder, error) {
	callCtx, cancel := bounded(ctx, service.timeout)
	defer cancel()

	return service.reminders.ListByPlanID(callCtx, planID)
}
