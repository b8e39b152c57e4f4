package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terraincognita07/mealplans/internal/models"
)

type SweepSummary struct {
	Found   int      `json:"found"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// ExpirySweeper expires active plans whose window ended before today.
type ExpirySweeper struct {
	plans     PlanRepository
	lifecycle *PlanLifecycleService
	logger    logrus.FieldLogger
	location  *time.Location
	timeout   time.Duration
}

func NewExpirySweeper(plans PlanRepository, lifecycle *PlanLifecycleService, options EngineOptions) *ExpirySweeper {
	options = options.withDefaults()
	return &ExpirySweeper{
		plans:     plans,
		lifecycle: lifecycle,
		logger:    options.Logger,
		location:  options.Location,
		timeout:   options.CallTimeout,
	}
}

// Sweep processes each overdue plan independently. The returned error is
// only set when the overdue plans could not be listed at all.
func (service *ExpirySweeper) Sweep(ctx context.Context, now time.Time) (SweepSummary, error) {
	summary := SweepSummary{Errors: make([]string, 0)}
	today := CalendarDate(now, service.location)

	callCtx, cancel := bounded(ctx, service.timeout)
	overdue, err := service.plans.List(callCtx, models.PlanFilter{
		Status:            models.PlanStatusActive,
		ActiveUntilBefore: &today,
	})
	cancel()
	if err != nil {
		return summary, newPersistenceError("list overdue plans", err)
	}
	summary.Found = len(overdue)

	for _, plan := range overdue {
		result, err := service.lifecycle.Expire(ctx, plan)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("plan %d: %v", plan.ID, err))
			continue
		}
		summary.Updated++
		for _, warning := range result.Warnings {
			summary.Errors = append(summary.Errors, fmt.Sprintf("plan %d: %s: %s", warning.PlanID, warning.Step, warning.Message))
		}
	}

	if summary.Found > 0 {
		service.logger.WithFields(logrus.Fields{
			"found":   summary.Found,
			"updated": summary.Updated,
			"errors":  len(summary.Errors),
		}).Info("sweep: expired overdue plans")
	}
	return summary, nil
}
