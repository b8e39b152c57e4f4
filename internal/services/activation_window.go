package services

import (
	"time"

	"github.com/terraincognita07/mealplans/internal/models"
)

// ActivationWindow is the inclusive date range plus weekday set a plan is
// active over. A nil Until is open-ended.
type ActivationWindow struct {
	From  time.Time
	Until *time.Time
	Days  DaySet
}

// WindowForPlan builds the window of a stored plan. A missing start date is
// read as today.
func WindowForPlan(plan models.MealPlan, today time.Time) ActivationWindow {
	from := normalizeDate(today)
	if plan.ActiveFrom != nil {
		from = normalizeDate(*plan.ActiveFrom)
	}
	return ActivationWindow{
		From:  from,
		Until: normalizeDatePtr(plan.ActiveUntil),
		Days:  DaySetFromStored(plan.ActiveDays),
	}
}

// Overlaps reports whether both windows share a weekday and a calendar date.
func (window ActivationWindow) Overlaps(other ActivationWindow) bool {
	if !window.Days.Intersects(other.Days) {
		return false
	}
	if window.Until != nil && window.Until.Before(other.From) {
		return false
	}
	if other.Until != nil && other.Until.Before(window.From) {
		return false
	}
	return true
}
