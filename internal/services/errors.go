package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrPlanNotFound       = errors.New("meal plan not found")
	ErrSchedulingConflict = errors.New("scheduling conflict")
	ErrPersistence        = errors.New("persistence failed")
	ErrRetryable          = errors.New("retryable")
	ErrStaleWrite         = errors.New("meal plan changed concurrently")

	ErrInvalidStatus          = newValidationError("invalid status")
	ErrInvalidActiveDays      = newValidationError("invalid active days")
	ErrInvalidActiveRange     = newValidationError("active until precedes active from")
	ErrScheduledDateRequired  = newValidationError("scheduled plan requires active from")
	ErrScheduledDateNotFuture = newValidationError("scheduled plan must start in the future")
	ErrInvalidPlanInput       = newValidationError("invalid plan input")
	ErrInvalidContent         = newValidationError("plan content must be a JSON document")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type validationError struct {
	message string
}

func newValidationError(message string) error {
	return &validationError{message: message}
}

func (err *validationError) Error() string {
	return err.message
}

func (err *validationError) Is(target error) bool {
	return target == ErrValidation
}

// SchedulingConflictError blocks an activation. Conflicts lists the active
// plans whose windows overlap the requested one.
type SchedulingConflictError struct {
	Conflicts []ConflictingPlan
}

func (err *SchedulingConflictError) Error() string {
	parts := make([]string, 0, len(err.Conflicts))
	for _, conflict := range err.Conflicts {
		parts = append(parts, fmt.Sprintf("%q (%s)", conflict.Name, conflict.DaysLabel))
	}
	return fmt.Sprintf("scheduling conflict with %d active plan(s): %s", len(err.Conflicts), strings.Join(parts, "; "))
}

func (err *SchedulingConflictError) Is(target error) bool {
	return target == ErrSchedulingConflict
}

// PersistenceError means an authoritative read or write failed; nothing
// downstream ran.
type PersistenceError struct {
	Op  string
	Err error
}

func newPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}

func (err *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", err.Op, err.Err)
}

func (err *PersistenceError) Unwrap() error {
	return err.Err
}

func (err *PersistenceError) Is(target error) bool {
	if target == ErrPersistence {
		return true
	}
	return target == ErrRetryable && err.Retryable()
}

// Retryable reports whether the failure was a timeout or a lost race.
func (err *PersistenceError) Retryable() bool {
	return errors.Is(err.Err, context.DeadlineExceeded) || errors.Is(err.Err, ErrStaleWrite)
}

// CascadeWarning reports a downstream step that failed after the
// authoritative write committed. Warnings are never rolled back.
type CascadeWarning struct {
	Step    string `json:"step"`
	PlanID  uint   `json:"plan_id"`
	Message string `json:"message"`
}

const (
	StepMirrorSync       = "mirror_sync"
	StepMirrorDelete     = "mirror_delete"
	StepReminderSchedule = "reminder_schedule"
	StepReminderPurge    = "reminder_purge"
	StepConflictDraft    = "conflict_deactivate"
)
