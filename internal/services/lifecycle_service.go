package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/mealplans/internal/logging"
	"github.com/terraincognita07/mealplans/internal/models"
)

// StatusChangeRequest asks for a plan to move to Target. Nil fields keep the
// stored value; ActiveDays is a pointer so an explicit empty list can reset a
// plan to every day. A zero Now means the wall clock.
type StatusChangeRequest struct {
	PlanID           uint
	OwnerID          uint
	Target           models.PlanStatus
	ActiveFrom       *time.Time
	ActiveUntil      *time.Time
	ActiveDays       *[]int
	ResolveConflicts bool
	Now              time.Time
}

// TransitionResult is the committed plan plus everything that happened
// downstream of the commit.
type TransitionResult struct {
	Plan        models.MealPlan   `json:"plan"`
	Deactivated []ConflictingPlan `json:"deactivated,omitempty"`
	Reminders   int               `json:"reminders_scheduled"`
	Warnings    []CascadeWarning  `json:"warnings,omitempty"`
}

// ContentUpdate edits the non-lifecycle fields of a plan. Nil fields are left
// untouched.
type ContentUpdate struct {
	PlanID              uint
	OwnerID             uint
	Name                *string
	Content             json.RawMessage
	DailyTargetCalories *int
	MacroTargets        *models.MacroTargets
	Now                 time.Time
}

type PlanLifecycleService struct {
	plans     PlanRepository
	conflicts *ConflictResolver
	mirrors   *MirrorSynchronizer
	reminders *ReminderScheduler
	locker    ClientLocker
	logger    logrus.FieldLogger
	location  *time.Location
	timeout   time.Duration
}

func NewPlanLifecycleService(
	plans PlanRepository,
	conflicts *ConflictResolver,
	mirrors *MirrorSynchronizer,
	reminders *ReminderScheduler,
	locker ClientLocker,
	options EngineOptions,
) *PlanLifecycleService {
	options = options.withDefaults()
	return &PlanLifecycleService{
		plans:     plans,
		conflicts: conflicts,
		mirrors:   mirrors,
		reminders: reminders,
		locker:    locker,
		logger:    options.Logger,
		location:  options.Location,
		timeout:   options.CallTimeout,
	}
}

// CreateDraft validates and stores plan as a new draft.
func (service *PlanLifecycleService) CreateDraft(ctx context.Context, plan *models.MealPlan) error {
	plan.Name = strings.TrimSpace(plan.Name)
	plan.ClientCode = strings.TrimSpace(plan.ClientCode)
	if plan.Name == "" || plan.ClientCode == "" || plan.DailyTargetCalories < 0 {
		return ErrInvalidPlanInput
	}
	days, err := NewDaySet(plan.ActiveDays)
	if err != nil {
		return err
	}
	content, err := normalizeContent(plan.Content)
	if err != nil {
		return err
	}

	plan.ID = 0
	plan.Status = models.PlanStatusDraft
	plan.ActiveFrom = nil
	plan.ActiveUntil = nil
	plan.ActiveDays = days.Stored()
	plan.Content = content

	callCtx, cancel := bounded(ctx, service.timeout)
	defer cancel()
	if err := service.plans.Create(callCtx, plan); err != nil {
		return newPersistenceError("create plan", err)
	}
	return nil
}

func (service *PlanLifecycleService) GetPlan(ctx context.Context, planID uint, ownerID uint) (models.MealPlan, error) {
	return service.loadPlan(ctx, planID, ownerID)
}

// ChangeStatus validates and applies one caller-requested transition. The
// status write is the commit point: on error nothing downstream has run, and
// after it every cascade runs to completion with failures reported as
// warnings.
func (service *PlanLifecycleService) ChangeStatus(ctx context.Context, request StatusChangeRequest) (TransitionResult, error) {
	if !request.Target.Valid() {
		return TransitionResult{}, ErrInvalidStatus
	}
	now := request.Now
	if now.IsZero() {
		now = time.Now()
	}
	today := CalendarDate(now, service.location)

	plan, err := service.loadPlan(ctx, request.PlanID, request.OwnerID)
	if err != nil {
		return TransitionResult{}, err
	}

	switch request.Target {
	case models.PlanStatusActive:
		return service.activate(ctx, plan, request, today, now)
	case models.PlanStatusScheduled:
		patch, err := scheduledPatch(plan, request, today)
		if err != nil {
			return TransitionResult{}, err
		}
		return service.transition(ctx, plan, patch)
	case models.PlanStatusPublished:
		patch, err := publishedPatch(plan, request)
		if err != nil {
			return TransitionResult{}, err
		}
		return service.transition(ctx, plan, patch)
	default:
		patch, err := clearedPatch(request.Target, plan, request)
		if err != nil {
			return TransitionResult{}, err
		}
		return service.transition(ctx, plan, patch)
	}
}

func (service *PlanLifecycleService) activate(ctx context.Context, plan models.MealPlan, request StatusChangeRequest, today time.Time, now time.Time) (TransitionResult, error) {
	days, err := requestedDays(plan, request)
	if err != nil {
		return TransitionResult{}, err
	}

	from := today
	if request.ActiveFrom != nil {
		from = normalizeDate(*request.ActiveFrom)
	} else if plan.ActiveFrom != nil {
		from = normalizeDate(*plan.ActiveFrom)
	}
	// A stored end that the new start has passed is dropped for the default.
	until := from.AddDate(0, 1, 0)
	if request.ActiveUntil != nil {
		until = normalizeDate(*request.ActiveUntil)
	} else if plan.ActiveUntil != nil && !normalizeDate(*plan.ActiveUntil).Before(from) {
		until = normalizeDate(*plan.ActiveUntil)
	}
	if until.Before(from) {
		return TransitionResult{}, ErrInvalidActiveRange
	}

	unlock, err := service.lockClient(ctx, plan.ClientCode)
	if err != nil {
		return TransitionResult{}, err
	}
	defer unlock()

	candidate := ActivationWindow{From: from, Until: &until, Days: days}
	result := TransitionResult{}

	conflicts, err := service.conflicts.FindConflicts(ctx, plan.ClientCode, plan.ID, candidate, today)
	if err != nil {
		return TransitionResult{}, newPersistenceError("find conflicts", err)
	}
	if len(conflicts) > 0 {
		if !request.ResolveConflicts {
			return TransitionResult{}, &SchedulingConflictError{Conflicts: conflicts}
		}
		result.Deactivated = conflicts
		result.Warnings = append(result.Warnings, service.conflicts.Resolve(context.WithoutCancel(ctx), conflicts)...)

		remaining, err := service.conflicts.FindConflicts(ctx, plan.ClientCode, plan.ID, candidate, today)
		if err != nil {
			return result, newPersistenceError("find conflicts", err)
		}
		if len(remaining) > 0 {
			return result, &SchedulingConflictError{Conflicts: remaining}
		}
	}

	committed, err := service.commit(ctx, plan, models.LifecyclePatch{
		Status:      models.PlanStatusActive,
		ActiveFrom:  &from,
		ActiveUntil: &until,
		ActiveDays:  days.Stored(),
	})
	if err != nil {
		return result, err
	}
	result.Plan = committed

	cascadeCtx := context.WithoutCancel(ctx)
	if err := service.mirrors.Sync(cascadeCtx, committed, now); err != nil {
		result.Warnings = append(result.Warnings, service.warn(StepMirrorSync, committed.ID, err))
	}
	series, err := service.reminders.Schedule(cascadeCtx, committed, today)
	if err != nil {
		result.Warnings = append(result.Warnings, service.warn(StepReminderSchedule, committed.ID, err))
	}
	result.Reminders = len(series)

	service.logger.WithFields(logrus.Fields{
		"plan_id":     committed.ID,
		"client_code": committed.ClientCode,
		"reminders":   result.Reminders,
		"deactivated": len(result.Deactivated),
	}).Info("lifecycle: plan activated")
	return result, nil
}

// transition commits patch and, when the plan leaves active, removes its
// mirror and reminders.
func (service *PlanLifecycleService) transition(ctx context.Context, plan models.MealPlan, patch models.LifecyclePatch) (TransitionResult, error) {
	committed, err := service.commit(ctx, plan, patch)
	if err != nil {
		return TransitionResult{}, err
	}
	result := TransitionResult{Plan: committed}
	if plan.Status == models.PlanStatusActive && committed.Status != models.PlanStatusActive {
		result.Warnings = service.release(context.WithoutCancel(ctx), committed.ID)
	}

	service.logger.WithFields(logrus.Fields{
		"plan_id": committed.ID,
		"from":    plan.Status,
		"to":      committed.Status,
	}).Info("lifecycle: status changed")
	return result, nil
}

// Expire moves an active plan to expired. The sweep is its only caller.
func (service *PlanLifecycleService) Expire(ctx context.Context, plan models.MealPlan) (TransitionResult, error) {
	return service.transition(ctx, plan, models.LifecyclePatch{
		Status:     models.PlanStatusExpired,
		ActiveDays: DaySetFromStored(plan.ActiveDays).Stored(),
	})
}

// UpdateContent edits a plan and refreshes the mirror of an active one.
// Reminders are left alone.
func (service *PlanLifecycleService) UpdateContent(ctx context.Context, update ContentUpdate) (TransitionResult, error) {
	plan, err := service.loadPlan(ctx, update.PlanID, update.OwnerID)
	if err != nil {
		return TransitionResult{}, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return TransitionResult{}, ErrInvalidPlanInput
		}
		plan.Name = name
	}
	if update.Content != nil {
		content, err := normalizeContent(update.Content)
		if err != nil {
			return TransitionResult{}, err
		}
		plan.Content = content
	}
	if update.DailyTargetCalories != nil {
		if *update.DailyTargetCalories < 0 {
			return TransitionResult{}, ErrInvalidPlanInput
		}
		plan.DailyTargetCalories = *update.DailyTargetCalories
	}
	if update.MacroTargets != nil {
		plan.MacroTargets = *update.MacroTargets
	}
	now := update.Now
	if now.IsZero() {
		now = time.Now()
	}
	plan.UpdatedAt = now.UTC()

	callCtx, cancel := bounded(ctx, service.timeout)
	err = service.plans.UpdateContent(callCtx, &plan)
	cancel()
	if err != nil {
		return TransitionResult{}, newPersistenceError("update plan content", err)
	}

	result := TransitionResult{Plan: plan}
	result.Warnings = service.refreshMirror(context.WithoutCancel(ctx), plan.ID, now)
	return result, nil
}

// refreshMirror re-reads the plan after a content write so a concurrent
// transition away from active cannot leave a mirror behind. The status is
// checked again after the upsert; a plan that left active in between has its
// mirror removed.
func (service *PlanLifecycleService) refreshMirror(ctx context.Context, planID uint, now time.Time) []CascadeWarning {
	current, err := service.loadPlan(ctx, planID, 0)
	if errors.Is(err, ErrPlanNotFound) {
		return nil
	}
	if err != nil {
		return []CascadeWarning{service.warn(StepMirrorSync, planID, err)}
	}
	if current.Status != models.PlanStatusActive {
		return nil
	}
	if err := service.mirrors.Sync(ctx, current, now); err != nil {
		return []CascadeWarning{service.warn(StepMirrorSync, planID, err)}
	}

	after, err := service.loadPlan(ctx, planID, 0)
	if err == nil && after.Status == models.PlanStatusActive {
		return nil
	}
	if err != nil && !errors.Is(err, ErrPlanNotFound) {
		return []CascadeWarning{service.warn(StepMirrorSync, planID, err)}
	}
	if err := service.mirrors.Remove(ctx, planID); err != nil {
		return []CascadeWarning{service.warn(StepMirrorDelete, planID, err)}
	}
	return nil
}

// DeletePlan removes a plan together with its mirror and reminders.
func (service *PlanLifecycleService) DeletePlan(ctx context.Context, planID uint, ownerID uint) (TransitionResult, error) {
	plan, err := service.loadPlan(ctx, planID, ownerID)
	if err != nil {
		return TransitionResult{}, err
	}

	callCtx, cancel := bounded(ctx, service.timeout)
	deleted, err := service.plans.Delete(callCtx, plan.ID)
	cancel()
	if err != nil {
		return TransitionResult{}, newPersistenceError("delete plan", err)
	}
	if !deleted {
		return TransitionResult{}, ErrPlanNotFound
	}

	result := TransitionResult{Plan: plan}
	result.Warnings = service.release(context.WithoutCancel(ctx), plan.ID)
	service.logger.WithField("plan_id", plan.ID).Info("lifecycle: plan deleted")
	return result, nil
}

func (service *PlanLifecycleService) ListReminders(ctx context.Context, planID uint, ownerID uint) ([]models.ScheduledReminder, error) {
	if _, err := service.loadPlan(ctx, planID, ownerID); err != nil {
		return nil, err
	}
	reminders, err := service.reminders.List(ctx, planID)
	if err != nil {
		return nil, newPersistenceError("list reminders", err)
	}
	return reminders, nil
}

func (service *PlanLifecycleService) release(ctx context.Context, planID uint) []CascadeWarning {
	warnings := make([]CascadeWarning, 0)
	if err := service.mirrors.Remove(ctx, planID); err != nil {
		warnings = append(warnings, service.warn(StepMirrorDelete, planID, err))
	}
	if err := service.reminders.Purge(ctx, planID); err != nil {
		warnings = append(warnings, service.warn(StepReminderPurge, planID, err))
	}
	return warnings
}

func (service *PlanLifecycleService) commit(ctx context.Context, plan models.MealPlan, patch models.LifecyclePatch) (models.MealPlan, error) {
	callCtx, cancel := bounded(ctx, service.timeout)
	defer cancel()

	updated, err := service.plans.UpdateLifecycle(callCtx, plan.ID, plan.Status, patch)
	if err != nil {
		return models.MealPlan{}, newPersistenceError("update plan status", err)
	}
	if !updated {
		return models.MealPlan{}, newPersistenceError("update plan status", ErrStaleWrite)
	}

	plan.Status = patch.Status
	plan.ActiveFrom = patch.ActiveFrom
	plan.ActiveUntil = patch.ActiveUntil
	plan.ActiveDays = patch.ActiveDays
	return plan, nil
}

func (service *PlanLifecycleService) loadPlan(ctx context.Context, planID uint, ownerID uint) (models.MealPlan, error) {
	callCtx, cancel := bounded(ctx, service.timeout)
	defer cancel()

	plan, found, err := service.plans.FindByID(callCtx, planID)
	if err != nil {
		return models.MealPlan{}, newPersistenceError("load plan", err)
	}
	if !found || (ownerID != 0 && plan.OwnerID != ownerID) {
		return models.MealPlan{}, ErrPlanNotFound
	}
	return plan, nil
}

func (service *PlanLifecycleService) lockClient(ctx context.Context, clientCode string) (func(), error) {
	if service.locker == nil {
		return func() {}, nil
	}
	lockCtx, cancel := bounded(ctx, service.timeout)
	defer cancel()

	unlock, err := service.locker.Lock(lockCtx, "mealplans:activation:"+clientCode)
	if err != nil {
		return nil, newPersistenceError("lock client", err)
	}
	return unlock, nil
}

func (service *PlanLifecycleService) warn(step string, planID uint, err error) CascadeWarning {
	logging.LogError(service.logger, "services", "PlanLifecycleService", step, logrus.Fields{"plan_id": planID}, err)
	return CascadeWarning{Step: step, PlanID: planID, Message: err.Error()}
}

func requestedDays(plan models.MealPlan, request StatusChangeRequest) (DaySet, error) {
	if request.ActiveDays != nil {
		return NewDaySet(*request.ActiveDays)
	}
	return NewDaySet(plan.ActiveDays)
}

func scheduledPatch(plan models.MealPlan, request StatusChangeRequest, today time.Time) (models.LifecyclePatch, error) {
	days, err := requestedDays(plan, request)
	if err != nil {
		return models.LifecyclePatch{}, err
	}
	from := normalizeDatePtr(request.ActiveFrom)
	if from == nil {
		from = normalizeDatePtr(plan.ActiveFrom)
	}
	if from == nil {
		return models.LifecyclePatch{}, ErrScheduledDateRequired
	}
	if !from.After(today) {
		return models.LifecyclePatch{}, ErrScheduledDateNotFuture
	}
	until := normalizeDatePtr(request.ActiveUntil)
	if until == nil {
		until = normalizeDatePtr(plan.ActiveUntil)
	}
	if until != nil && until.Before(*from) {
		return models.LifecyclePatch{}, ErrInvalidActiveRange
	}
	return models.LifecyclePatch{
		Status:      models.PlanStatusScheduled,
		ActiveFrom:  from,
		ActiveUntil: until,
		ActiveDays:  days.Stored(),
	}, nil
}

func publishedPatch(plan models.MealPlan, request StatusChangeRequest) (models.LifecyclePatch, error) {
	days, err := requestedDays(plan, request)
	if err != nil {
		return models.LifecyclePatch{}, err
	}
	from := normalizeDatePtr(plan.ActiveFrom)
	if request.ActiveFrom != nil {
		from = normalizeDatePtr(request.ActiveFrom)
	}
	until := normalizeDatePtr(plan.ActiveUntil)
	if request.ActiveUntil != nil {
		until = normalizeDatePtr(request.ActiveUntil)
	}
	if from != nil && until != nil && until.Before(*from) {
		return models.LifecyclePatch{}, ErrInvalidActiveRange
	}
	return models.LifecyclePatch{
		Status:      models.PlanStatusPublished,
		ActiveFrom:  from,
		ActiveUntil: until,
		ActiveDays:  days.Stored(),
	}, nil
}

// clearedPatch serves draft and expired, which never keep dates.
func clearedPatch(target models.PlanStatus, plan models.MealPlan, request StatusChangeRequest) (models.LifecyclePatch, error) {
	days, err := requestedDays(plan, request)
	if err != nil {
		return models.LifecyclePatch{}, err
	}
	return models.LifecyclePatch{Status: target, ActiveDays: days.Stored()}, nil
}

func normalizeContent(content json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" || trimmed == "null" {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, ErrInvalidContent
	}
	return json.RawMessage(trimmed), nil
}

// IsConflict extracts the conflict list from err.
func IsConflict(err error) ([]ConflictingPlan, bool) {
	var conflict *SchedulingConflictError
	if errors.As(err, &conflict) {
		return conflict.Conflicts, true
	}
	return nil, false
}
