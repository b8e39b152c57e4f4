package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/mealplans/internal/logging"
	"github.com/terraincognita07/mealplans/internal/models"
	"golang.org/x/sync/errgroup"
)

const mirrorDeleteConcurrency = 4

// ConflictingPlan is an active plan whose window overlaps a requested one.
type ConflictingPlan struct {
	PlanID      uint       `json:"plan_id"`
	Name        string     `json:"name"`
	ActiveFrom  *time.Time `json:"active_from"`
	ActiveUntil *time.Time `json:"active_until"`
	// ActiveDays is the stored form: nil when the plan runs every day.
	ActiveDays []int  `json:"active_days"`
	DaysLabel  string `json:"days_label"`
}

type ConflictResolver struct {
	plans     PlanRepository
	mirrors   *MirrorSynchronizer
	reminders *ReminderScheduler
	catalog   MessageCatalog
	logger    logrus.FieldLogger
	timeout   time.Duration
}

func NewConflictResolver(plans PlanRepository, mirrors *MirrorSynchronizer, reminders *ReminderScheduler, catalog MessageCatalog, options EngineOptions) *ConflictResolver {
	options = options.withDefaults()
	return &ConflictResolver{
		plans:     plans,
		mirrors:   mirrors,
		reminders: reminders,
		catalog:   catalog,
		logger:    options.Logger,
		timeout:   options.CallTimeout,
	}
}

// FindConflicts lists the other active plans of clientCode whose windows
// overlap candidate.
func (service *ConflictResolver) FindConflicts(ctx context.Context, clientCode string, excludeID uint, candidate ActivationWindow, today time.Time) ([]ConflictingPlan, error) {
	callCtx, cancel := bounded(ctx, service.timeout)
	defer cancel()

	active, err := service.plans.List(callCtx, models.PlanFilter{
		ClientCode: clientCode,
		Status:     models.PlanStatusActive,
		ExcludeID:  excludeID,
	})
	if err != nil {
		return nil, err
	}

	conflicts := make([]ConflictingPlan, 0)
	for _, plan := range active {
		if plan.ID == excludeID {
			continue
		}
		if !WindowForPlan(plan, today).Overlaps(candidate) {
			continue
		}
		conflicts = append(conflicts, service.describe(plan))
	}
	return conflicts, nil
}

func (service *ConflictResolver) describe(plan models.MealPlan) ConflictingPlan {
	days := DaySetFromStored(plan.ActiveDays)
	label := days.String()
	if service.catalog != nil {
		label = days.Label(service.catalog.WeekdayNames(models.LangEnglish), service.catalog.Translate(models.LangEnglish, "days.every_day"))
	}
	return ConflictingPlan{
		PlanID:      plan.ID,
		Name:        plan.Name,
		ActiveFrom:  plan.ActiveFrom,
		ActiveUntil: plan.ActiveUntil,
		ActiveDays:  days.Stored(),
		DaysLabel:   label,
	}
}

// Resolve moves every conflicting plan back to draft, then removes their
// mirrors and reminders. Failures come back as warnings; a plan that could
// not be moved to draft keeps its mirror and reminders.
func (service *ConflictResolver) Resolve(ctx context.Context, conflicts []ConflictingPlan) []CascadeWarning {
	warnings := make([]CascadeWarning, 0)
	drafted := make([]uint, 0, len(conflicts))

	for _, conflict := range conflicts {
		callCtx, cancel := bounded(ctx, service.timeout)
		updated, err := service.plans.UpdateLifecycle(callCtx, conflict.PlanID, models.PlanStatusActive, models.LifecyclePatch{
			Status:     models.PlanStatusDraft,
			ActiveDays: conflict.ActiveDays,
		})
		cancel()
		if err == nil && !updated {
			err = ErrStaleWrite
		}
		if err != nil {
			logging.LogError(service.logger, "services", "ConflictResolver.Resolve", "deactivate conflicting plan", logrus.Fields{"plan_id": conflict.PlanID}, err)
			warnings = append(warnings, CascadeWarning{Step: StepConflictDraft, PlanID: conflict.PlanID, Message: err.Error()})
			continue
		}
		service.logger.WithField("plan_id", conflict.PlanID).Info("conflicts: plan moved to draft")
		drafted = append(drafted, conflict.PlanID)
	}
	if len(drafted) == 0 {
		return warnings
	}

	mirrorErrors := make([]error, len(drafted))
	var group errgroup.Group
	group.SetLimit(mirrorDeleteConcurrency)
	for index, planID := range drafted {
		group.Go(func() error {
			mirrorErrors[index] = service.mirrors.Remove(ctx, planID)
			return nil
		})
	}
	_ = group.Wait()

	for index, err := range mirrorErrors {
		if err == nil {
			continue
		}
		logging.LogError(service.logger, "services", "ConflictResolver.Resolve", "delete conflicting mirror", logrus.Fields{"plan_id": drafted[index]}, err)
		warnings = append(warnings, CascadeWarning{Step: StepMirrorDelete, PlanID: drafted[index], Message: err.Error()})
	}

	if err := service.reminders.PurgeMany(ctx, drafted); err != nil {
		logging.LogError(service.logger, "services", "ConflictResolver.Resolve", "purge conflicting reminders", logrus.Fields{"plan_ids": drafted}, err)
		for _, planID := range drafted {
			warnings = append(warnings, CascadeWarning{Step: StepReminderPurge, PlanID: planID, Message: err.Error()})
		}
	}
	return warnings
}
