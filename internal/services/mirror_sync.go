package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/mealplans/internal/models"
)

// MirrorSynchronizer keeps the client-visible copy of each active plan.
type MirrorSynchronizer struct {
	mirrors MirrorRepository
	logger  logrus.FieldLogger
	timeout time.Duration
}

func NewMirrorSynchronizer(mirrors MirrorRepository, options EngineOptions) *MirrorSynchronizer {
	options = options.withDefaults()
	return &MirrorSynchronizer{
		mirrors: mirrors,
		logger:  options.Logger,
		timeout: options.CallTimeout,
	}
}

// Sync upserts the mirror of plan, keyed by the plan id.
func (service *MirrorSynchronizer) Sync(ctx context.Context, plan models.MealPlan, now time.Time) error {
	callCtx, cancel := bounded(ctx, service.timeout)
	defer cancel()

	mirror := MirrorFromPlan(plan, now)
	return service.mirrors.Upsert(callCtx, &mirror)
}

// Remove deletes the mirror of planID. A missing mirror is not an error.
func (service *MirrorSynchronizer) Remove(ctx context.Context, planID uint) error {
	callCtx, cancel := bounded(ctx, service.timeout)
	defer cancel()

	return service.mirrors.DeleteByOriginalID(callCtx, planID)
}

func (service *MirrorSynchronizer) Find(ctx context.Context, planID uint) (models.MirroredPlan, bool, error) {
	callCtx, cancel := bounded(ctx, service.timeout)
	defer cancel()

	return service.mirrors.FindByOriginalID(callCtx, planID)
}

// ListForClient returns the client-visible records of one client, earliest
// window first.
func (service *MirrorSynchronizer) ListForClient(ctx context.Context, clientCode string) ([]models.MirroredPlan, error) {
	callCtx, cancel := bounded(ctx, service.timeout)
	defer cancel()

	mirrors, err := service.mirrors.ListByClient(callCtx, clientCode)
	if err != nil {
		return nil, newPersistenceError("list client mirrors", err)
	}
	return mirrors, nil
}

func MirrorFromPlan(plan models.MealPlan, now time.Time) models.MirroredPlan {
	content := plan.Content
	if len(content) == 0 {
		content = json.RawMessage("{}")
	}
	return models.MirroredPlan{
		OriginalPlanID:      plan.ID,
		ClientCode:          plan.ClientCode,
		Name:                plan.Name,
		Content:             content,
		DailyTargetCalories: plan.DailyTargetCalories,
		MacroTargets:        plan.MacroTargets,
		ActiveDays:          DaySetFromStored(plan.ActiveDays).Stored(),
		ActiveFrom:          normalizeDatePtr(plan.ActiveFrom),
		ActiveUntil:         normalizeDatePtr(plan.ActiveUntil),
		SyncedAt:            now.UTC(),
	}
}
