package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/mealplans/internal/logging"
	"github.com/terraincognita07/mealplans/internal/models"
)

// EngineDependencies are the stores and collaborators the engine runs on.
type EngineDependencies struct {
	Plans         PlanRepository
	Mirrors       MirrorRepository
	Reminders     ReminderRepository
	Clients       ClientRepository
	Notifications NotificationLogRepository
	Dispatcher    NotificationDispatcher
	Catalog       MessageCatalog
	Locker        ClientLocker
}

// Engine wires the lifecycle components together.
type Engine struct {
	Lifecycle *PlanLifecycleService
	Conflicts *ConflictResolver
	Mirrors   *MirrorSynchronizer
	Reminders *ReminderScheduler
	Sweeper   *ExpirySweeper
	Notifier  *AdvanceNotifier
	Delivery  *ReminderDelivery

	plans   PlanRepository
	logger  logrus.FieldLogger
	timeout time.Duration
}

func NewEngine(deps EngineDependencies, options EngineOptions) *Engine {
	options = options.withDefaults()

	mirrors := NewMirrorSynchronizer(deps.Mirrors, options)
	reminders := NewReminderScheduler(deps.Reminders, deps.Clients, deps.Catalog, options)
	conflicts := NewConflictResolver(deps.Plans, mirrors, reminders, deps.Catalog, options)
	lifecycle := NewPlanLifecycleService(deps.Plans, conflicts, mirrors, reminders, deps.Locker, options)

	return &Engine{
		Lifecycle: lifecycle,
		Conflicts: conflicts,
		Mirrors:   mirrors,
		Reminders: reminders,
		Sweeper:   NewExpirySweeper(deps.Plans, lifecycle, options),
		Notifier:  NewAdvanceNotifier(deps.Plans, deps.Clients, deps.Notifications, deps.Dispatcher, deps.Catalog, options),
		Delivery:  NewReminderDelivery(deps.Reminders, deps.Notifications, deps.Dispatcher, options),
		plans:     deps.Plans,
		logger:    options.Logger,
		timeout:   options.CallTimeout,
	}
}

// ListPlans expires overdue plans first so no listing shows a stale active
// plan. A failed sweep is logged and the listing still runs.
func (engine *Engine) ListPlans(ctx context.Context, filter models.PlanFilter, now time.Time) ([]models.MealPlan, SweepSummary, error) {
	summary, err := engine.Sweeper.Sweep(ctx, now)
	if err != nil {
		logging.LogError(engine.logger, "services", "Engine.ListPlans", "sweep before listing", nil, err)
	}

	callCtx, cancel := bounded(ctx, engine.timeout)
	defer cancel()
	plans, err := engine.plans.List(callCtx, filter)
	if err != nil {
		return nil, summary, newPersistenceError("list plans", err)
	}
	return plans, summary, nil
}

// StartMaintenance runs the expiry sweep and reminder delivery once and then
// on every interval tick until ctx ends. A non-positive interval disables it.
func (engine *Engine) StartMaintenance(ctx context.Context, interval time.Duration, clock func() time.Time) {
	if interval <= 0 {
		return
	}
	if clock == nil {
		clock = time.Now
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()

		engine.runMaintenance(ctx, clock())
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				engine.runMaintenance(ctx, clock())
			}
		}
	}()
}

func (engine *Engine) runMaintenance(ctx context.Context, now time.Time) {
	if _, err := engine.Sweeper.Sweep(ctx, now); err != nil {
		logging.LogError(engine.logger, "services", "Engine.runMaintenance", "expiry sweep", nil, err)
	}
	summary, err := engine.Delivery.DeliverDue(ctx, now)
	if err != nil {
		logging.LogError(engine.logger, "services", "Engine.runMaintenance", "reminder delivery", nil, err)
		return
	}
	if summary.Due > 0 {
		engine.logger.WithFields(logrus.Fields{
			"due":    summary.Due,
			"sent":   summary.Sent,
			"errors": len(summary.Errors),
		}).Info("maintenance: reminders delivered")
	}
}
