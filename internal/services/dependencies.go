package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/mealplans/internal/logging"
	"github.com/terraincognita07/mealplans/internal/models"
)

type PlanRepository interface {
	FindByID(ctx context.Context, planID uint) (models.MealPlan, bool, error)
	List(ctx context.Context, filter models.PlanFilter) ([]models.MealPlan, error)
	Create(ctx context.Context, plan *models.MealPlan) error
	UpdateContent(ctx context.Context, plan *models.MealPlan) error
	UpdateLifecycle(ctx context.Context, planID uint, expectedStatus models.PlanStatus, patch models.LifecyclePatch) (bool, error)
	Delete(ctx context.Context, planID uint) (bool, error)
}

type MirrorRepository interface {
	Upsert(ctx context.Context, mirror *models.MirroredPlan) error
	DeleteByOriginalID(ctx context.Context, planID uint) error
	FindByOriginalID(ctx context.Context, planID uint) (models.MirroredPlan, bool, error)
	ListByClient(ctx context.Context, clientCode string) ([]models.MirroredPlan, error)
}

type ReminderRepository interface {
	InsertBatch(ctx context.Context, reminders []models.ScheduledReminder) error
	DeleteByPlanID(ctx context.Context, planID uint) error
	DeleteByPlanIDs(ctx context.Context, planIDs []uint) error
	ListByPlanID(ctx context.Context, planID uint) ([]models.ScheduledReminder, error)
	ListDue(ctx context.Context, day time.Time, limit int) ([]models.ScheduledReminder, error)
	MarkSent(ctx context.Context, reminderID string, sentAt time.Time) error
}

type ClientRepository interface {
	FindByCode(ctx context.Context, code string) (models.Client, bool, error)
}

type NotificationLogRepository interface {
	ExistsByDedupeKey(ctx context.Context, dedupeKey string) (bool, error)
	Record(ctx context.Context, entry *models.NotificationLog) error
}

// NotificationMessage is one outbound message for a client.
type NotificationMessage struct {
	RecipientCode string
	Channel       string
	Message       string
	DedupeKey     string
}

type NotificationDispatcher interface {
	Send(ctx context.Context, message NotificationMessage) error
}

// ClientLocker serialises activations for one client. The returned func
// releases the lock.
type ClientLocker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// MessageCatalog supplies localized text. *i18n.Manager satisfies it.
type MessageCatalog interface {
	ResolveLanguage(raw string) string
	Translate(language string, key string) string
	Translatef(language string, key string, args ...any) string
	Encouragements(language string) []string
	WeekdayNames(language string) []string
}

// EngineOptions carries the settings every engine component shares.
type EngineOptions struct {
	Logger      logrus.FieldLogger
	Location    *time.Location
	CallTimeout time.Duration
}

func (options EngineOptions) withDefaults() EngineOptions {
	if options.Logger == nil {
		options.Logger = logging.Discard()
	}
	if options.Location == nil {
		options.Location = time.UTC
	}
	return options
}

// bounded limits a single store or dispatcher call to timeout.
func bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func resolveClient(ctx context.Context, clients ClientRepository, code string, timeout time.Duration) (models.Client, error) {
	fallback := models.Client{Code: code, Language: models.LangEnglish, Channel: models.ChannelLog}
	if clients == nil {
		return fallback, nil
	}
	callCtx, cancel := bounded(ctx, timeout)
	defer cancel()

	client, found, err := clients.FindByCode(callCtx, code)
	if err != nil {
		return fallback, err
	}
	if !found {
		return fallback, nil
	}
	if client.Channel == "" {
		client.Channel = models.ChannelLog
	}
	return client, nil
}
